package ogm

import (
	"errors"
	"fmt"

	"github.com/maraichr/loom/pkg/cypher"
	"github.com/maraichr/loom/pkg/schema"
)

// NotFoundError is returned when a single-result load matches no node.
type NotFoundError struct {
	Label string
	ID    any
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("ogm: %s not found", e.Label)
	}
	return fmt.Sprintf("ogm: %s %v not found", e.Label, e.ID)
}

// IsNotFound reports whether err is a missing-node failure.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsValidation reports whether err is a rejected input value: a property
// scalar outside its allowed set, or a malformed assigned identity.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var e *schema.ValidationError
	return errors.As(err, &e)
}

// IsTransport reports whether err is a persistence boundary failure.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var e *cypher.TransportError
	return errors.As(err, &e)
}
