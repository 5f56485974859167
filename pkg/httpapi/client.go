// Package httpapi implements the persistence boundary over the Neo4j
// transactional HTTP endpoint. It exists for deployments where the bolt
// port is unreachable; the statement and argument contract is identical
// to pkg/bolt. One caveat is numeric width: the endpoint speaks JSON, so
// integers arrive as float64.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/maraichr/loom/pkg/cypher"
)

const (
	defaultBaseURL  = "http://localhost:7474"
	defaultDatabase = "neo4j"
	defaultTimeout  = 30 * time.Second
)

// Client is a lightweight transactional-endpoint client. Every Run is a
// single auto-committed request; there are no retries.
type Client struct {
	endpoint string
	user     string
	password string
	http     *http.Client
}

type txRequest struct {
	Statements []txStatement `json:"statements"`
}

type txStatement struct {
	Statement  string         `json:"statement"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type txResponse struct {
	Results []struct {
		Columns []string `json:"columns"`
		Data    []struct {
			Row []any `json:"row"`
		} `json:"data"`
	} `json:"results"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// NewClient creates a client for the commit endpoint of one database.
func NewClient(baseURL, database, user, password string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if database == "" {
		database = defaultDatabase
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/db/" + database + "/tx/commit",
		user:     user,
		password: password,
		http:     &http.Client{Timeout: defaultTimeout},
	}
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

// Run submits one statement to the commit endpoint and returns its rows.
func (c *Client) Run(ctx context.Context, statement string, params map[string]any) ([]*cypher.Record, error) {
	body, err := json.Marshal(txRequest{
		Statements: []txStatement{{Statement: statement, Parameters: params}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result txResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Errors) > 0 {
		e := result.Errors[0]
		return nil, fmt.Errorf("cypher error %s: %s", e.Code, e.Message)
	}
	if len(result.Results) == 0 {
		return nil, nil
	}

	first := result.Results[0]
	records := make([]*cypher.Record, 0, len(first.Data))
	for _, row := range first.Data {
		records = append(records, &cypher.Record{Keys: first.Columns, Values: row.Row})
	}
	return records, nil
}
