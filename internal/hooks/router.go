// Package hooks routes committed writes to side-effect handlers.
//
// Handlers are registered once per (entity, operation) at startup. After a
// write commits, the access layer calls Dispatch exactly once with the
// operation's descriptor. Dispatch never returns an error: handler failures
// and panics are logged and reported, and the write stays committed.
//
// SetEnabled flips the process-wide flag. Bulk and test code should prefer
// Suppress/WithoutHooks, which restore themselves, or WithSuppressed, which
// only affects one call chain.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/hiscores/internal/model"
)

// Handler performs the side effect of one committed write.
type Handler func(ctx context.Context, op model.WriteOperation) error

// Key identifies a registration.
type Key struct {
	Entity    model.EntityType
	Operation model.OperationKind
}

func (k Key) String() string {
	return string(k.Entity) + "/" + string(k.Operation)
}

// Reporter receives dispatch outcomes for operators.
type Reporter interface {
	Dispatched(key Key, elapsed time.Duration)
	Suppressed(key Key)
	Failed(f *HandlerFailure)
}

type nopReporter struct{}

func (nopReporter) Dispatched(Key, time.Duration) {}
func (nopReporter) Suppressed(Key)                {}
func (nopReporter) Failed(*HandlerFailure)        {}

// Router dispatches committed writes to registered handlers.
type Router struct {
	mu       sync.RWMutex
	handlers map[Key]Handler
	sealed   bool

	enabled    atomic.Bool
	suppressed atomic.Int64

	reporter Reporter
}

// Option configures a Router.
type Option func(*Router)

// WithReporter routes dispatch outcomes to r.
func WithReporter(r Reporter) Option {
	return func(router *Router) {
		if r != nil {
			router.reporter = r
		}
	}
}

// WithEnabled sets the initial value of the process-wide flag.
func WithEnabled(enabled bool) Option {
	return func(router *Router) {
		router.enabled.Store(enabled)
	}
}

// NewRouter returns a router with hooks enabled.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		handlers: make(map[Key]Handler),
		reporter: nopReporter{},
	}
	r.enabled.Store(true)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register installs the handler for (entity, op). A second registration for
// the same key fails with model.RegistrationConflict; registering after Seal
// fails with model.ErrSealed.
func (r *Router) Register(entity model.EntityType, op model.OperationKind, h Handler) error {
	if h == nil {
		return fmt.Errorf("register hook %s/%s: nil handler", entity, op)
	}
	key := Key{Entity: entity, Operation: op}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("register hook %s: %w", key, model.ErrSealed)
	}
	if _, dup := r.handlers[key]; dup {
		return &model.RegistrationConflict{Kind: "hook", Key: key.String()}
	}
	r.handlers[key] = h
	return nil
}

// Seal makes the registration set immutable.
func (r *Router) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Registrations returns the registered keys sorted by entity then operation.
func (r *Router) Registrations() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]Key, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Entity != keys[j].Entity {
			return keys[i].Entity < keys[j].Entity
		}
		return keys[i].Operation < keys[j].Operation
	})
	return keys
}

// SetEnabled sets the process-wide flag. Idempotent, effective immediately.
func (r *Router) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
	slog.Info("hooks toggled", "enabled", enabled)
}

// Enabled reports whether dispatch is currently active process-wide: the
// flag is set and no scoped suppression is held.
func (r *Router) Enabled() bool {
	return r.enabled.Load() && r.suppressed.Load() == 0
}

// Suppress disables dispatch until the returned restore func is called.
// Suppressions nest; restore is safe to call more than once.
//
//	restore := router.Suppress()
//	defer restore()
func (r *Router) Suppress() (restore func()) {
	r.suppressed.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { r.suppressed.Add(-1) })
	}
}

// WithoutHooks runs fn with dispatch suppressed and restores it on every exit
// path, including panics.
func (r *Router) WithoutHooks(fn func() error) error {
	restore := r.Suppress()
	defer restore()
	return fn()
}

// Dispatch runs the handler registered for op, if any.
//
// It returns once the handler has finished. The handler's context is
// detached from ctx's cancellation because a started side effect is never
// cancelled.
func (r *Router) Dispatch(ctx context.Context, op model.WriteOperation) {
	key := Key{Entity: op.Entity, Operation: op.Operation}

	if !r.Enabled() || IsSuppressed(ctx) {
		r.reporter.Suppressed(key)
		slog.Debug("hook dispatch suppressed",
			"entity", op.Entity,
			"operation", op.Operation,
			"operation_id", op.ID,
		)
		return
	}

	r.mu.RLock()
	h := r.handlers[key]
	r.mu.RUnlock()
	if h == nil {
		return
	}

	start := time.Now()
	panicked, err := invoke(context.WithoutCancel(ctx), h, op)
	r.reporter.Dispatched(key, time.Since(start))

	if err != nil {
		f := &HandlerFailure{
			Entity:      op.Entity,
			Operation:   op.Operation,
			OperationID: op.ID,
			Err:         err,
			Panic:       panicked,
		}
		slog.Error("hook handler failed",
			"entity", op.Entity,
			"operation", op.Operation,
			"operation_id", op.ID,
			"panic", panicked,
			"error", err,
		)
		r.reporter.Failed(f)
		return
	}

	slog.Debug("hook dispatched",
		"entity", op.Entity,
		"operation", op.Operation,
		"operation_id", op.ID,
		"seq", op.Seq,
	)
}

func invoke(ctx context.Context, h Handler, op model.WriteOperation) (panicked bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			panicked = true
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return false, h(ctx, op)
}

type suppressedKey struct{}

// WithSuppressed returns a context under which Dispatch runs no handler.
// It scopes suppression to one call chain without touching shared state.
func WithSuppressed(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressedKey{}, true)
}

// IsSuppressed reports whether ctx carries a suppression.
func IsSuppressed(ctx context.Context) bool {
	v, _ := ctx.Value(suppressedKey{}).(bool)
	return v
}
