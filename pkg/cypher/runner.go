package cypher

import (
	"context"
	"fmt"
)

// Runner is the persistence boundary: it executes one composite statement
// with a flat argument map and returns the resulting records. The bolt and
// httpapi packages implement it; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, statement string, params map[string]any) ([]*Record, error)
}

// Record is one result row with named-field access.
type Record struct {
	Keys   []string
	Values []any
}

// Get returns the value of the named field.
func (r *Record) Get(key string) (any, bool) {
	for i, k := range r.Keys {
		if k == key {
			return r.Values[i], true
		}
	}
	return nil, false
}

// TransportError wraps a persistence-boundary failure. The cause is
// propagated unchanged through Unwrap; nothing in this module retries it.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cypher: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
