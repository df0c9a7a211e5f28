package codec

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes codec errors.
type ErrorCode string

const (
	// CodePrecisionLoss indicates a value cannot be represented without loss.
	CodePrecisionLoss ErrorCode = "PRECISION_LOSS"

	// CodeMissingDependency indicates a required raw input is absent or null.
	CodeMissingDependency ErrorCode = "MISSING_DEPENDENCY"
)

// PrecisionLossError is returned instead of silently truncating a value.
type PrecisionLossError struct {
	// Entity and Field locate the value when known.
	Entity string
	Field  string

	// Raw is the offending value in its exact textual form.
	Raw    string
	Policy Policy
	Reason string
}

// Code returns CodePrecisionLoss.
func (e *PrecisionLossError) Code() ErrorCode { return CodePrecisionLoss }

func (e *PrecisionLossError) Error() string {
	msg := fmt.Sprintf("%s: %s under %s", CodePrecisionLoss, e.Raw, e.Policy)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (field=%s.%s)", e.Entity, e.Field)
	}
	return msg
}

// MissingDependencyError is returned when a field cannot be computed because
// a raw input it depends on is absent or null.
type MissingDependencyError struct {
	Entity     string
	Field      string
	Dependency string
}

// Code returns CodeMissingDependency.
func (e *MissingDependencyError) Code() ErrorCode { return CodeMissingDependency }

func (e *MissingDependencyError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: raw value is null", CodeMissingDependency)
	}
	return fmt.Sprintf("%s: %s.%s requires %q", CodeMissingDependency, e.Entity, e.Field, e.Dependency)
}

// IsPrecisionLoss reports whether err wraps a PrecisionLossError.
func IsPrecisionLoss(err error) bool {
	var pe *PrecisionLossError
	return errors.As(err, &pe)
}

// IsMissingDependency reports whether err wraps a MissingDependencyError.
func IsMissingDependency(err error) bool {
	var me *MissingDependencyError
	return errors.As(err, &me)
}
