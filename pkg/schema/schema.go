// Package schema declares the node-type descriptors and the registry the
// mapper builds its statements from. A schema is assembled once at startup
// through a Registry and is immutable afterwards; nothing here touches the
// database.
package schema

// Kind distinguishes the two concrete node families. The kind name doubles
// as the marker label in the type's label chain.
type Kind string

const (
	// KindEntity marks identity-bearing nodes keyed by a uuid.
	KindEntity Kind = "Entity"
	// KindProperty marks scalar-wrapping nodes keyed by their value.
	KindProperty Kind = "Property"
)

// baseLabel terminates every label chain.
const baseLabel = "Node"

// DefaultEdgeLabel is the relationship label used when a declaration leaves
// it empty.
const DefaultEdgeLabel = "HAS"

// Type describes one node type: its label chain, identifying attribute, and
// structural model. Types are created through a Registry and must not be
// mutated once statements are being built from them.
type Type struct {
	name      string
	kind      Kind
	key       string
	parent    *Type
	labels    []string
	ancestors map[string]bool
	rels      []Relationship

	// Property codec state; nil/empty for entity types.
	choices []any
	encode  func(any) (any, error)
	decode  func(any) (any, error)
}

// newType precomputes the label chain and ancestor set so no type walking
// happens at query-build time.
func newType(name string, kind Kind, parent *Type) *Type {
	t := &Type{name: name, kind: kind, parent: parent}
	if parent != nil {
		t.key = parent.key
		t.labels = append([]string{name}, parent.labels...)
	} else {
		t.key = "value"
		if kind == KindEntity {
			t.key = "uuid"
		}
		t.labels = []string{name, string(kind), baseLabel}
	}
	t.ancestors = make(map[string]bool, len(t.labels))
	for _, l := range t.labels {
		t.ancestors[l] = true
	}
	return t
}

// Name returns the concrete type name.
func (t *Type) Name() string { return t.name }

// Kind returns the node family this type belongs to.
func (t *Type) Kind() Kind { return t.kind }

// Key returns the name of the identifying attribute ("uuid" for entities,
// "value" for properties, unless overridden).
func (t *Type) Key() string { return t.key }

// SetKey overrides the identifying attribute name. Setup-time only.
func (t *Type) SetKey(name string) *Type {
	if name == "" {
		panic("schema: empty identifying attribute for " + t.name)
	}
	t.key = name
	return t
}

// Labels returns the ancestor-ordered label chain, concrete type first,
// ending with the kind marker and the base marker.
func (t *Type) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// IsA reports whether target occurs in this type's ancestor chain. A type
// is-a itself.
func (t *Type) IsA(target *Type) bool {
	if target == nil {
		return false
	}
	return t.ancestors[target.name]
}

// Relationship declares one structural edge on an owning type: which field
// it backs, the target type, the edge label, and whether it is optional or
// list-valued.
type Relationship struct {
	Field    string
	Target   *Type
	Label    string // edge label; empty means DefaultEdgeLabel
	Optional bool
	List     bool
}

// Relate appends relationship declarations to this type's structural model,
// in order. Malformed declarations panic at wiring time.
func (t *Type) Relate(rels ...Relationship) *Type {
	for _, r := range rels {
		if r.Field == "" {
			panic("schema: relationship on " + t.name + " has no field name")
		}
		if r.Target == nil {
			panic("schema: relationship " + t.name + "." + r.Field + " has no target type")
		}
		for _, have := range t.rels {
			if have.Field == r.Field {
				panic("schema: duplicate relationship field " + t.name + "." + r.Field)
			}
		}
		if r.Label == "" {
			r.Label = DefaultEdgeLabel
		}
		t.rels = append(t.rels, r)
	}
	return t
}

// Model returns the structural model: this type's declared relationships
// plus inherited ones, own declarations first, overridden fields dropped.
// A nil result means the type is terminal.
func (t *Type) Model() []Relationship {
	if t.parent == nil {
		if len(t.rels) == 0 {
			return nil
		}
		out := make([]Relationship, len(t.rels))
		copy(out, t.rels)
		return out
	}
	out := make([]Relationship, len(t.rels), len(t.rels)+4)
	copy(out, t.rels)
	seen := make(map[string]bool, len(t.rels))
	for _, r := range t.rels {
		seen[r.Field] = true
	}
	for _, r := range t.parent.Model() {
		if !seen[r.Field] {
			seen[r.Field] = true
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
