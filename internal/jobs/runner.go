// Package jobs runs background work requested by hook handlers.
//
// Handlers must not do slow work inline, so they enqueue a Job and return.
// A Runner drains the queue on its own goroutine, one job at a time, in
// enqueue order. A failing job is logged and dropped; it never affects the
// write that produced it.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Kind names a job type.
type Kind string

const (
	KindSyncAchievements   Kind = "sync_achievements"
	KindPlayerUpdated      Kind = "player_updated"
	KindMembersJoined      Kind = "members_joined"
	KindMembersLeft        Kind = "members_left"
	KindParticipantsJoined Kind = "participants_joined"
	KindNameChangeReviewed Kind = "name_change_reviewed"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("job runner closed")

// Job is one unit of background work.
type Job struct {
	Kind        Kind           `json:"kind"`
	OperationID string         `json:"operation_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	EnqueuedAt  time.Time      `json:"enqueued_at"`
}

// Func processes a job.
type Func func(ctx context.Context, job Job) error

// Reporter observes processed jobs.
type Reporter interface {
	Processed(kind Kind, d time.Duration, err error)
}

type nopReporter struct{}

func (nopReporter) Processed(Kind, time.Duration, error) {}

// Runner executes queued jobs.
type Runner struct {
	mu       sync.RWMutex
	handlers map[Kind]Func

	queue    *queue
	reporter Reporter
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithReporter routes job outcomes to r.
func WithReporter(r Reporter) Option {
	return func(run *Runner) {
		if r != nil {
			run.reporter = r
		}
	}
}

// WithClock sets the time source for EnqueuedAt.
func WithClock(now func() time.Time) Option {
	return func(run *Runner) {
		if now != nil {
			run.now = now
		}
	}
}

// NewRunner returns a Runner with no handlers.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		handlers: make(map[Kind]Func),
		queue:    newQueue(),
		reporter: nopReporter{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers fn for kind. Registering a kind twice is an error.
func (r *Runner) Handle(kind Kind, fn Func) error {
	if fn == nil {
		return fmt.Errorf("handle %s: nil func", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[kind]; ok {
		return fmt.Errorf("handle %s: already registered", kind)
	}
	r.handlers[kind] = fn
	return nil
}

// Kinds returns the registered job kinds, sorted.
func (r *Runner) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Enqueue adds a job. It never blocks.
func (r *Runner) Enqueue(job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = r.now().UTC()
	}
	if !r.queue.enqueue(job) {
		return ErrClosed
	}
	slog.Debug("job enqueued",
		"kind", job.Kind,
		"operation_id", job.OperationID,
	)
	return nil
}

// Len returns the number of queued jobs.
func (r *Runner) Len() int {
	return r.queue.len()
}

// Close stops accepting jobs. Run returns once the queue is drained.
func (r *Runner) Close() {
	r.queue.close()
}

// Run processes jobs until ctx is cancelled or the runner is closed and
// drained. It returns ctx.Err() on cancellation and nil otherwise.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if job, ok := r.queue.tryDequeue(); ok {
			r.process(ctx, job)
			continue
		}
		if r.queue.isClosed() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.queue.wait():
		}
	}
}

// Drain processes every queued job on the calling goroutine and returns the
// number processed. It stops early once ctx is done, leaving the rest
// queued. Used by one-shot commands and tests.
func (r *Runner) Drain(ctx context.Context) int {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			slog.Warn("drain interrupted",
				"processed", n,
				"error", err,
			)
			return n
		}
		job, ok := r.queue.tryDequeue()
		if !ok {
			return n
		}
		r.process(ctx, job)
		n++
	}
}

func (r *Runner) process(ctx context.Context, job Job) {
	r.mu.RLock()
	fn := r.handlers[job.Kind]
	r.mu.RUnlock()

	if fn == nil {
		slog.Warn("no handler for job kind, dropping",
			"kind", job.Kind,
			"operation_id", job.OperationID,
		)
		return
	}

	start := time.Now()
	err := run(ctx, fn, job)
	r.reporter.Processed(job.Kind, time.Since(start), err)

	if err != nil {
		slog.Error("job failed",
			"kind", job.Kind,
			"operation_id", job.OperationID,
			"error", err,
		)
		return
	}
	slog.Debug("job done",
		"kind", job.Kind,
		"operation_id", job.OperationID,
	)
}

func run(ctx context.Context, fn Func, job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panic: %v", p)
		}
	}()
	return fn(ctx, job)
}
