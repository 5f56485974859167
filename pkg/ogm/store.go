// Package ogm maps schema-typed object graphs onto Cypher statements and
// back. Save walks an instance graph depth-first and emits one idempotent
// upsert script; Find builds a staged traversal projection and rebuilds
// typed instances from its rows; Delete detaches one node and prunes its
// directly orphaned neighbors. Every call builds a single-use query,
// executes it once through a cypher.Runner, and discards it.
package ogm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maraichr/loom/pkg/cypher"
	"github.com/maraichr/loom/pkg/schema"
)

// Store binds a schema registry to a persistence boundary. It is safe for
// concurrent use; calls share nothing but the registry and the runner.
type Store struct {
	registry *schema.Registry
	runner   cypher.Runner
	log      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger routes the store's debug output to l.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore creates a mapper over runner for the types in registry.
func NewStore(runner cypher.Runner, registry *schema.Registry, opts ...Option) *Store {
	s := &Store{registry: registry, runner: runner, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureConstraints creates one uniqueness constraint per registered type
// on its identifying attribute. The save path merges by that attribute on
// every node, which is only fast and race-safe with these in place.
func (s *Store) EnsureConstraints(ctx context.Context) error {
	for _, t := range s.registry.Types() {
		name := fmt.Sprintf("%s_%s_unique", strings.ToLower(t.Name()), t.Key())
		stmt := fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
			name, t.Name(), t.Key())
		if _, err := s.runner.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("create constraint %s: %w", name, err)
		}
		s.log.Debug("constraint ensured", slog.String("constraint", name))
	}
	return nil
}
