package ogm

import "github.com/maraichr/loom/pkg/schema"

// decode recursively reinterprets a raw result value: sequences map
// element-wise, a map carrying the deferred tag becomes an unresolved
// reference, a map with a resolvable discriminant is rebuilt as a typed
// instance, and anything else passes through unchanged rather than
// failing.
func (s *Store) decode(raw any) any {
	switch v := raw.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = s.decode(item)
		}
		return out
	case map[string]any:
		if v[classField] == deferredClass {
			return s.decodeDeferred(v)
		}
		typ := s.resolveClass(v[classField])
		if typ == nil {
			return v
		}
		return s.rebuild(typ, v)
	default:
		return raw
	}
}

// resolveClass maps a discriminant to the registered type it names.
// Matched rows carry the node's full label list, so among resolvable
// candidates the longest chain, the most specific type, wins.
func (s *Store) resolveClass(v any) *schema.Type {
	switch d := v.(type) {
	case string:
		if t, ok := s.registry.Resolve(d); ok {
			return t
		}
	case []any:
		var best *schema.Type
		for _, item := range d {
			name, ok := item.(string)
			if !ok {
				continue
			}
			t, ok := s.registry.Resolve(name)
			if !ok {
				continue
			}
			if best == nil || len(t.Labels()) > len(best.Labels()) {
				best = t
			}
		}
		return best
	case []string:
		var best *schema.Type
		for _, name := range d {
			t, ok := s.registry.Resolve(name)
			if !ok {
				continue
			}
			if best == nil || len(t.Labels()) > len(best.Labels()) {
				best = t
			}
		}
		return best
	}
	return nil
}

// decodeDeferred rebuilds an unresolved reference from its wire record.
// Both shapes are accepted: the embedded form with a filter submap, and
// the flat form collected by list projections. An unresolvable class
// passes the record through unchanged.
func (s *Store) decodeDeferred(m map[string]any) any {
	name, _ := m["class"].(string)
	typ, ok := s.registry.Resolve(name)
	if !ok {
		return m
	}
	d := Defer(typ, nil)
	if filter, ok := m["filter"].(map[string]any); ok {
		d.ID = filter[typ.Key()]
	} else {
		d.ID = m[typ.Key()]
	}
	if n, ok := asInt(m["limit"]); ok && n > 0 {
		d.Limit = n
	}
	return d
}

// rebuild reconstructs a typed instance from its projected map, recursing
// into relation entries and running property scalars through their
// declared codec. Entries the model does not declare are ignored.
func (s *Store) rebuild(typ *schema.Type, m map[string]any) any {
	node := New(typ)
	if raw, ok := m[typ.Key()]; ok && raw != nil {
		id := raw
		if typ.Kind() == schema.KindProperty {
			if decoded, err := typ.DecodeValue(raw); err == nil {
				id = decoded
			}
		}
		node.id = id
	}
	for _, rel := range typ.Model() {
		raw, ok := m[rel.Field]
		if !ok || raw == nil {
			continue
		}
		decoded := s.decode(raw)
		if items, ok := decoded.([]any); ok {
			values := make([]any, len(items))
			for i, item := range items {
				values[i] = s.coerceField(rel, item)
			}
			node.Set(rel.Field, values...)
			continue
		}
		node.Set(rel.Field, s.coerceField(rel, decoded))
	}
	return node
}

// coerceField runs bare scalars destined for a property-typed field
// through the target's decoder; everything already structured passes
// through as is.
func (s *Store) coerceField(rel schema.Relationship, v any) any {
	switch v.(type) {
	case *Node, *Deferred, map[string]any, []any:
		return v
	}
	if rel.Target.Kind() != schema.KindProperty {
		return v
	}
	if decoded, err := rel.Target.DecodeValue(v); err == nil {
		return decoded
	}
	return v
}

// asInt normalizes the numeric representations the transports produce:
// int64 over bolt, float64 over the JSON endpoint.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
