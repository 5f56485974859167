package schema

import "fmt"

// Restrict declares the allowed-value set for a property type. Encoding a
// value outside the set fails with *ValidationError.
func (t *Type) Restrict(values ...any) *Type {
	if t.kind != KindProperty {
		panic("schema: Restrict on non-property type " + t.name)
	}
	t.choices = append(t.choices, values...)
	return t
}

// SetCodec overrides the identity codec for custom scalar representations.
// Either function may be nil to keep the identity behavior for that
// direction.
func (t *Type) SetCodec(encode, decode func(any) (any, error)) *Type {
	if t.kind != KindProperty {
		panic("schema: SetCodec on non-property type " + t.name)
	}
	t.encode = encode
	t.decode = decode
	return t
}

// EncodeValue validates v against the allowed-value set, then applies the
// custom encoder if one is declared.
func (t *Type) EncodeValue(v any) (any, error) {
	if len(t.choices) > 0 && !t.allowed(v) {
		return nil, &ValidationError{Property: t.name, Value: v}
	}
	if t.encode == nil {
		return v, nil
	}
	return t.encode(v)
}

// DecodeValue maps a stored scalar back to its in-memory representation.
// Identity unless a custom decoder is declared.
func (t *Type) DecodeValue(v any) (any, error) {
	if t.decode == nil {
		return v, nil
	}
	return t.decode(v)
}

func (t *Type) allowed(v any) bool {
	for _, c := range t.choices {
		if c == v {
			return true
		}
	}
	return false
}

// ValidationError reports a property value outside its declared
// allowed-value set.
type ValidationError struct {
	Property string
	Value    any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: value %v not allowed for %s", e.Value, e.Property)
}
