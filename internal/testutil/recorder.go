package testutil

import (
	"context"
	"sync"

	"github.com/roach88/hiscores/internal/model"
)

// Recorder is a hook handler that remembers every operation it receives.
//
// Thread-safety: Recorder is safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	ops []model.WriteOperation
	err error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes every later invocation return err after recording.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Handle records op. Its signature matches hooks.Handler.
func (r *Recorder) Handle(_ context.Context, op model.WriteOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	return r.err
}

// Count returns the number of recorded invocations.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// Ops returns a copy of the recorded operations in invocation order.
func (r *Recorder) Ops() []model.WriteOperation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.WriteOperation, len(r.ops))
	copy(out, r.ops)
	return out
}

// Last returns the most recent operation, or false when none was recorded.
func (r *Recorder) Last() (model.WriteOperation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ops) == 0 {
		return model.WriteOperation{}, false
	}
	return r.ops[len(r.ops)-1], true
}
