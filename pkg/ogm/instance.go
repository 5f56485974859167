package ogm

import "github.com/maraichr/loom/pkg/schema"

// Wire discriminants shared by serialized references and projected rows.
const (
	classField    = "__class"
	deferredClass = "Deferred"
)

// ValueKind discriminates the variants a relation-field entry can hold.
type ValueKind int

const (
	ScalarValue ValueKind = iota
	NodeValue
	DeferredValue
)

// Value is one relation-field entry: a nested instance, an unresolved
// reference, or a bare scalar.
type Value struct {
	kind   ValueKind
	node   *Node
	def    *Deferred
	scalar any
}

func wrap(raw any) Value {
	switch v := raw.(type) {
	case Value:
		return v
	case *Node:
		return Value{kind: NodeValue, node: v}
	case *Deferred:
		return Value{kind: DeferredValue, def: v}
	default:
		return Value{kind: ScalarValue, scalar: raw}
	}
}

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// Node returns the nested instance, or nil for other kinds.
func (v Value) Node() *Node { return v.node }

// Deferred returns the reference, or nil for other kinds.
func (v Value) Deferred() *Deferred { return v.def }

// Scalar returns the bare value, or nil for other kinds.
func (v Value) Scalar() any { return v.scalar }

// Any unwraps the variant to its payload.
func (v Value) Any() any {
	switch v.kind {
	case NodeValue:
		return v.node
	case DeferredValue:
		return v.def
	default:
		return v.scalar
	}
}

// Node is a materialized instance of a schema type: an identifying value
// plus the current values of its relation fields. Instances carry data
// into Save and out of Load; they hold no connection state.
type Node struct {
	typ    *schema.Type
	id     any
	fields map[string][]Value
}

// New creates an instance of typ with no identity assigned yet.
func New(typ *schema.Type) *Node {
	return &Node{typ: typ, fields: make(map[string][]Value)}
}

// NewWithID creates an instance of typ carrying an assigned identity.
func NewWithID(typ *schema.Type, id any) *Node {
	n := New(typ)
	n.id = id
	return n
}

// Type returns the instance's descriptor.
func (n *Node) Type() *schema.Type { return n.typ }

// ID returns the identifying value, nil when none is assigned.
func (n *Node) ID() any { return n.id }

// SetID assigns the identifying value.
func (n *Node) SetID(id any) *Node {
	n.id = id
	return n
}

// Set replaces the values of a relation field. Accepted values are *Node,
// *Deferred, and bare scalars; scalars are coerced into the relation's
// property type at save time.
func (n *Node) Set(field string, values ...any) *Node {
	wrapped := make([]Value, len(values))
	for i, v := range values {
		wrapped[i] = wrap(v)
	}
	n.fields[field] = wrapped
	return n
}

// Get returns the current values of a relation field.
func (n *Node) Get(field string) []Value { return n.fields[field] }

// Deferred is an unresolved, identity-only reference to a node. At save
// time it connects to an existing node without re-expanding its subgraph;
// loads return list relations as sequences of these to bound result size.
type Deferred struct {
	Target *schema.Type
	ID     any
	Limit  int
}

// Defer creates a reference to the node of typ identified by id, with a
// result limit of one.
func Defer(target *schema.Type, id any) *Deferred {
	return &Deferred{Target: target, ID: id, Limit: 1}
}

// Serialize renders the reference in its wire shape for embedding inside
// other write payloads.
func (d *Deferred) Serialize() map[string]any {
	limit := d.Limit
	if limit == 0 {
		limit = 1
	}
	return map[string]any{
		classField: deferredClass,
		"class":    d.Target.Name(),
		"filter":   map[string]any{d.Target.Key(): d.ID},
		"limit":    limit,
	}
}
