package model

import (
	"errors"
	"fmt"
)

// CodeRegistrationConflict identifies duplicate startup registrations.
const CodeRegistrationConflict = "REGISTRATION_CONFLICT"

// ErrSealed is returned by registrations attempted after startup completed.
var ErrSealed = errors.New("registrations are sealed")

// RegistrationConflict is returned when two computed fields or two hook
// handlers are registered under the same key. It is a startup failure.
type RegistrationConflict struct {
	// Kind is "computed_field" or "hook".
	Kind string
	Key  string
}

func (e *RegistrationConflict) Error() string {
	return fmt.Sprintf("%s: %s %s already registered", CodeRegistrationConflict, e.Kind, e.Key)
}

// IsRegistrationConflict reports whether err wraps a RegistrationConflict.
func IsRegistrationConflict(err error) bool {
	var rc *RegistrationConflict
	return errors.As(err, &rc)
}
