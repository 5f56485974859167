package ogm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/maraichr/loom/pkg/cypher"
	"github.com/maraichr/loom/pkg/schema"
)

// Save persists root and every reachable relation value in one statement.
// A depth-first walk over the instance graph emits an upsert per node and,
// per declared relationship, an edge erase pass followed by one edge
// upsert per value; relation fields replace their previous edge set, they
// never append to it. Save returns the root's identifying value and
// assigns it back onto the root when the database generated it.
func (s *Store) Save(ctx context.Context, root *Node) (any, error) {
	if root == nil {
		return nil, fmt.Errorf("ogm: save: nil root")
	}
	q := cypher.NewQuery()
	if countMissingIDs(root, make(map[*Node]bool)) > 0 {
		q.Carry(cypher.IDBatchVar)
	}
	w := &saveWalk{q: q, nodes: make(map[*Node]string), refs: make(map[*Deferred]string)}
	rootAlias, err := w.walk(root)
	if err != nil {
		return nil, err
	}
	key := root.typ.Key()
	q.Append(fmt.Sprintf("RETURN %s.%s AS %s", rootAlias, key, key))

	s.log.Debug("save statement built",
		slog.String("type", root.typ.Name()),
		slog.Int("ids", q.IDCount()),
		slog.Int("args", len(q.Args())),
		slog.String("cypher", q.Text()))

	records, err := q.Execute(ctx, s.runner)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("ogm: save %s: no row returned", root.typ.Name())
	}
	id, ok := records[0].Get(key)
	if !ok {
		return nil, fmt.Errorf("ogm: save %s: result missing %s", root.typ.Name(), key)
	}
	if root.id == nil {
		root.id = id
	}
	return id, nil
}

// countMissingIDs reports how many reachable entities carry no identity
// yet. When any do, the identifier batch has to join the carry context
// before the first projection stage, so Save checks up front.
func countMissingIDs(n *Node, seen map[*Node]bool) int {
	if seen[n] {
		return 0
	}
	seen[n] = true
	count := 0
	if n.typ.Kind() == schema.KindEntity && n.id == nil {
		count++
	}
	for _, rel := range n.typ.Model() {
		for _, v := range n.fields[rel.Field] {
			if v.kind == NodeValue {
				count += countMissingIDs(v.node, seen)
			}
		}
	}
	return count
}

// saveWalk tracks visited instances so a repeated or cyclic reference
// reuses its first alias instead of recursing again.
type saveWalk struct {
	q     *cypher.Query
	nodes map[*Node]string
	refs  map[*Deferred]string
}

// walk upserts n and its relation values, returning n's alias.
func (w *saveWalk) walk(n *Node) (string, error) {
	if alias, ok := w.nodes[n]; ok {
		return alias, nil
	}
	expr, err := w.keyExpr(n)
	if err != nil {
		return "", err
	}
	alias := w.q.NodeAlias()
	w.q.Append("MERGE " + w.q.Pattern(alias, n.typ.Labels(), n.typ.Key(), expr))
	w.q.Carry(alias)
	w.nodes[n] = alias

	for _, rel := range n.typ.Model() {
		if err := w.relate(n, alias, rel); err != nil {
			return "", err
		}
	}
	return alias, nil
}

// keyExpr renders the identifying-attribute expression for n's upsert:
// a bound parameter for assigned identities and encoded property scalars,
// a batch slot for entities that have none yet.
func (w *saveWalk) keyExpr(n *Node) (string, error) {
	if n.typ.Kind() == schema.KindProperty {
		encoded, err := n.typ.EncodeValue(n.id)
		if err != nil {
			return "", err
		}
		return "$" + w.q.Arg(encoded), nil
	}
	if n.id == nil {
		return w.q.NewID(), nil
	}
	if err := validateID(n.typ, n.id); err != nil {
		return "", err
	}
	return "$" + w.q.Arg(n.id), nil
}

// validateID format-checks an assigned entity identity before any
// statement text references it. Types keyed on something other than the
// default uuid attribute choose their own identity format.
func validateID(typ *schema.Type, id any) error {
	if typ.Key() != "uuid" {
		return nil
	}
	str, ok := id.(string)
	if !ok {
		return &schema.ValidationError{Property: typ.Name() + ".uuid", Value: id}
	}
	if err := uuid.Validate(str); err != nil {
		return &schema.ValidationError{Property: typ.Name() + ".uuid", Value: id}
	}
	return nil
}

// relate replaces the edge set of one declared relationship: every
// existing edge of its label toward the target's label is deleted, then
// one edge is merged per current value. An absent or empty field still
// runs the erase pass and merges nothing.
func (w *saveWalk) relate(n *Node, alias string, rel schema.Relationship) error {
	w.q.With()
	r := w.q.RelAlias()
	w.q.Append(fmt.Sprintf("OPTIONAL MATCH (%s)-[%s:%s]->(:%s)", alias, r, rel.Label, rel.Target.Name()))
	w.q.Append("DELETE " + r)
	// the erased edges fanned the row out; collapse before the next stage
	w.q.Append("WITH DISTINCT " + w.q.CarryList())

	for _, v := range n.fields[rel.Field] {
		target, err := w.value(v, rel)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", n.typ.Name(), rel.Field, err)
		}
		w.q.Append(fmt.Sprintf("MERGE (%s)-[:%s]->(%s)", alias, rel.Label, target))
	}
	return nil
}

// value resolves one relation value to an aliased node in the statement.
func (w *saveWalk) value(v Value, rel schema.Relationship) (string, error) {
	switch v.kind {
	case NodeValue:
		if !v.node.typ.IsA(rel.Target) {
			return "", fmt.Errorf("%s is not a %s", v.node.typ.Name(), rel.Target.Name())
		}
		return w.walk(v.node)
	case DeferredValue:
		return w.deferred(v.def)
	default:
		if rel.Target.Kind() != schema.KindProperty {
			return "", fmt.Errorf("scalar value %v for entity target %s", v.scalar, rel.Target.Name())
		}
		return w.walk(NewWithID(rel.Target, v.scalar))
	}
}

// deferred matches an already-persisted node by identity. No upsert and
// no property mutation is emitted for it; only edges can attach to it.
func (w *saveWalk) deferred(d *Deferred) (string, error) {
	if alias, ok := w.refs[d]; ok {
		return alias, nil
	}
	id := d.ID
	if d.Target.Kind() == schema.KindProperty {
		encoded, err := d.Target.EncodeValue(d.ID)
		if err != nil {
			return "", err
		}
		id = encoded
	}
	w.q.With()
	alias := w.q.NodeAlias()
	w.q.Append("MATCH " + w.q.Pattern(alias, d.Target.Labels(), d.Target.Key(), "$"+w.q.Arg(id)))
	w.q.Carry(alias)
	w.refs[d] = alias
	return alias, nil
}
