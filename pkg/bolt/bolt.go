// Package bolt implements the persistence boundary over the Neo4j driver.
// Each call acquires one session, runs one managed write transaction with
// exactly one statement, and releases the session before returning.
package bolt

import (
	"context"
	"fmt"

	"github.com/maraichr/loom/internal/config"
	"github.com/maraichr/loom/pkg/cypher"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Client wraps the Neo4j driver behind the cypher.Runner contract.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewClient creates a driver-backed client from configuration.
func NewClient(cfg config.Neo4jConfig) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Client{driver: driver, database: cfg.Database}, nil
}

// Run executes one composite statement in a managed write transaction and
// returns its rows. No connection is held across calls.
func (c *Client) Run(ctx context.Context, statement string, params map[string]any) ([]*cypher.Record, error) {
	session := c.Session(ctx)
	defer session.Close(ctx)
	records, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) ([]*cypher.Record, error) {
		result, err := tx.Run(ctx, statement, params)
		if err != nil {
			return nil, err
		}
		var out []*cypher.Record
		for result.Next(ctx) {
			record := result.Record()
			out = append(out, &cypher.Record{Keys: record.Keys, Values: record.Values})
		}
		return out, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("run statement: %w", err)
	}
	return records, nil
}

// Verify checks connectivity to Neo4j.
func (c *Client) Verify(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close releases the driver resources.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Session returns a new session bound to the configured database.
func (c *Client) Session(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})
}
