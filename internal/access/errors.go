package access

import (
	"errors"
	"fmt"
)

// CodeCommittedDecode marks a write that committed but whose result could not
// be decoded.
const CodeCommittedDecode = "COMMITTED_DECODE_FAILED"

// CommittedError reports that a write committed but its result could not be
// decoded. The write is not rolled back and its hook still runs; the Result
// returned alongside holds the raw stored values.
type CommittedError struct {
	OperationID string
	Err         error
}

// Error implements the error interface.
func (e *CommittedError) Error() string {
	return fmt.Sprintf("%s: write %s committed: %v", CodeCommittedDecode, e.OperationID, e.Err)
}

// Unwrap returns the decode error.
func (e *CommittedError) Unwrap() error {
	return e.Err
}

// IsCommitted reports whether err is a CommittedError. Callers must not retry
// such writes.
func IsCommitted(err error) bool {
	var ce *CommittedError
	return errors.As(err, &ce)
}
