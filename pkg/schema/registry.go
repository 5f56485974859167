package schema

// Registry maps type names to descriptors. It is assembled once at startup
// and then read concurrently by the mapper; constructors panic on wiring
// mistakes.
type Registry struct {
	types map[string]*Type
	order []*Type
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Entity declares a new identity-bearing type keyed by "uuid".
func (r *Registry) Entity(name string) *Type {
	return r.add(newType(name, KindEntity, nil))
}

// Property declares a new scalar-wrapping type keyed by "value".
func (r *Registry) Property(name string) *Type {
	return r.add(newType(name, KindProperty, nil))
}

// Subtype declares a type extending parent: it inherits the kind, the
// identifying attribute, and the structural model, and prepends its own
// name to the label chain.
func (r *Registry) Subtype(name string, parent *Type) *Type {
	if parent == nil {
		panic("schema: subtype " + name + " has no parent")
	}
	if r.types[parent.name] != parent {
		panic("schema: parent of " + name + " is not registered here")
	}
	return r.add(newType(name, parent.kind, parent))
}

func (r *Registry) add(t *Type) *Type {
	if t.name == "" {
		panic("schema: type with empty name")
	}
	if _, dup := r.types[t.name]; dup {
		panic("schema: duplicate type name " + t.name)
	}
	r.types[t.name] = t
	r.order = append(r.order, t)
	return t
}

// Resolve looks up a type by name. It is the discriminant lookup used
// during deserialization.
func (r *Registry) Resolve(name string) (*Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Types returns all registered types in registration order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, len(r.order))
	copy(out, r.order)
	return out
}
