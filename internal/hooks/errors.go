package hooks

import (
	"errors"
	"fmt"

	"github.com/roach88/hiscores/internal/model"
)

// CodeHandlerFailure identifies a failed side-effect handler.
const CodeHandlerFailure = "HANDLER_FAILURE"

// HandlerFailure describes a handler that returned an error or panicked.
// It is reported to operators and never returned to the write caller.
type HandlerFailure struct {
	Entity      model.EntityType
	Operation   model.OperationKind
	OperationID string
	Err         error
	Panic       bool
}

func (f *HandlerFailure) Error() string {
	return fmt.Sprintf("%s: %s/%s (operation=%s): %v", CodeHandlerFailure, f.Entity, f.Operation, f.OperationID, f.Err)
}

func (f *HandlerFailure) Unwrap() error {
	return f.Err
}

// IsHandlerFailure reports whether err wraps a HandlerFailure.
func IsHandlerFailure(err error) bool {
	var hf *HandlerFailure
	return errors.As(err, &hf)
}
