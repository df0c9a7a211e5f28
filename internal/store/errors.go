package store

import (
	"errors"
	"fmt"

	"github.com/roach88/hiscores/internal/model"
)

var (
	// ErrNotFound is returned when a single-row operation matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrNotUnique is returned when a single-row operation matches more than
	// one row.
	ErrNotUnique = errors.New("where clause matches more than one record")
)

// UnknownEntityError is returned for an entity without a table.
type UnknownEntityError struct {
	Entity model.EntityType
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity %q", e.Entity)
}

// UnknownFieldError is returned for a column the entity's table lacks.
type UnknownFieldError struct {
	Entity model.EntityType
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q on %s", e.Field, e.Entity)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
