// Package access is the single entry point for persisted reads and writes.
//
// Every caller-issued write goes through Client.Write: payloads are encoded
// by the computed field registry, the write commits in one transaction, the
// result is decoded, and the hook router is invoked exactly once for the
// committed operation. Failed writes never reach the router. Reads go through
// Client.Read and come back with derived fields resolved.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/hiscores/internal/computed"
	"github.com/roach88/hiscores/internal/hooks"
	"github.com/roach88/hiscores/internal/model"
)

const tracerName = "github.com/roach88/hiscores/internal/access"

// Store persists rows. *store.Store satisfies it.
type Store interface {
	Apply(ctx context.Context, req model.WriteRequest) (model.Result, error)
	Select(ctx context.Context, req model.ReadRequest) ([]model.Row, error)
}

// Client wraps a Store with derived-field handling and hook dispatch.
type Client struct {
	store    Store
	registry *computed.Registry
	router   *hooks.Router

	ids      model.IDGenerator
	clock    *Clock
	seq      *sequencer
	tracer   trace.Tracer
	now      func() time.Time
	maxDepth int

	locksMu sync.Mutex
	locks   map[model.EntityType]*sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithIDGenerator sets the operation id source. Defaults to UUIDv7.
func WithIDGenerator(g model.IDGenerator) Option {
	return func(c *Client) {
		if g != nil {
			c.ids = g
		}
	}
}

// WithTracer sets the tracer used for write and read spans. Defaults to the
// global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithClock sets the wall clock used for CommittedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a Client. The registry and router are sealed: registrations
// are a startup concern and must be complete before the first write.
func New(store Store, registry *computed.Registry, router *hooks.Router, opts ...Option) *Client {
	registry.Seal()
	router.Seal()

	c := &Client{
		store:    store,
		registry: registry,
		router:   router,
		ids:      model.UUIDv7Generator{},
		clock:    NewClock(),
		seq:      newSequencer(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		maxDepth: DefaultMaxDepth,
		locks:    make(map[model.EntityType]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the computed field registry.
func (c *Client) Registry() *computed.Registry {
	return c.registry
}

// Router returns the hook router.
func (c *Client) Router() *hooks.Router {
	return c.router
}

// SetHooksEnabled toggles hook dispatch process-wide.
func (c *Client) SetHooksEnabled(enabled bool) {
	c.router.SetEnabled(enabled)
}

// WithoutHooks runs fn with hook dispatch suppressed.
func (c *Client) WithoutHooks(fn func() error) error {
	return c.router.WithoutHooks(fn)
}

func (c *Client) entityLock(entity model.EntityType) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	mu, ok := c.locks[entity]
	if !ok {
		mu = &sync.Mutex{}
		c.locks[entity] = mu
	}
	return mu
}

// Write commits req and dispatches its hook.
//
// On a store error nothing is committed, no hook runs, and the error is
// returned. When the write commits but its result cannot be decoded, the raw
// result is returned with a *CommittedError and the hook still runs. Hook
// failures never affect the returned value.
//
// Hooks of one entity run in commit order. Write returns after its hook has
// finished.
func (c *Client) Write(ctx context.Context, req model.WriteRequest) (model.Result, error) {
	ctx, span := c.tracer.Start(ctx, "access.write", trace.WithAttributes(
		attribute.String("entity", string(req.Entity)),
		attribute.String("operation", string(req.Operation)),
	))
	defer span.End()

	res, err := c.write(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (c *Client) write(ctx context.Context, req model.WriteRequest) (model.Result, error) {
	if err := req.Validate(); err != nil {
		return model.Result{}, err
	}
	if err := c.checkDepth(ctx, req); err != nil {
		return model.Result{}, err
	}
	encoded, err := c.encodeRequest(req)
	if err != nil {
		return model.Result{}, err
	}

	mu := c.entityLock(req.Entity)
	mu.Lock()
	raw, err := c.store.Apply(ctx, encoded)
	if err != nil {
		mu.Unlock()
		slog.Debug("write failed",
			"entity", req.Entity,
			"operation", req.Operation,
			"error", err,
		)
		return model.Result{}, err
	}
	seq := c.clock.Next()
	ticket := c.seq.issue(req.Entity)
	mu.Unlock()
	defer c.seq.done(req.Entity, ticket)

	op := model.WriteOperation{
		ID:          c.ids.Generate(),
		Seq:         seq,
		Entity:      req.Entity,
		Operation:   req.Operation,
		Request:     req,
		CommittedAt: c.now().UTC(),
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("operation_id", op.ID))

	result, decodeErr := c.decodeResult(req.Entity, raw)
	if decodeErr != nil {
		result = raw
		op.DecodeErr = decodeErr
		slog.Warn("committed write result could not be decoded",
			"entity", req.Entity,
			"operation", req.Operation,
			"operation_id", op.ID,
			"error", decodeErr,
		)
	}
	op.Result = result

	// Writes made by a handler never wait: the dispatch they would wait on
	// may itself be waiting on the handler.
	depth := dispatchDepth(ctx)
	if depth == 0 {
		if err := c.seq.wait(ctx, req.Entity, ticket); err != nil {
			slog.Warn("dispatching out of commit order",
				"entity", req.Entity,
				"operation", req.Operation,
				"operation_id", op.ID,
				"error", err,
			)
		}
	}
	c.router.Dispatch(withDepth(ctx, depth+1), op)

	if decodeErr != nil {
		return result, &CommittedError{OperationID: op.ID, Err: decodeErr}
	}
	return result, nil
}

// encodeRequest converts the derived values of every payload in req to
// their stored form.
func (c *Client) encodeRequest(req model.WriteRequest) (model.WriteRequest, error) {
	out := req
	var err error

	if out.Where, err = c.registry.EncodeFilter(req.Entity, req.Where); err != nil {
		return model.WriteRequest{}, fmt.Errorf("encode where: %w", err)
	}

	switch req.Operation {
	case model.OpCreate:
		out.Data, err = c.registry.Encode(req.Entity, req.Data)
	case model.OpCreateMany:
		out.Rows = make([]model.Row, len(req.Rows))
		for i, r := range req.Rows {
			if out.Rows[i], err = c.registry.Encode(req.Entity, r); err != nil {
				break
			}
		}
	case model.OpUpsert:
		if out.Create, err = c.registry.Encode(req.Entity, req.Create); err != nil {
			break
		}
		out.Data, err = c.registry.EncodeScoped(req.Entity, req.Data, req.Where)
	case model.OpUpdate, model.OpUpdateMany:
		out.Data, err = c.registry.EncodeScoped(req.Entity, req.Data, req.Where)
	}
	if err != nil {
		return model.WriteRequest{}, fmt.Errorf("encode %s %s: %w", req.Entity, req.Operation, err)
	}
	return out, nil
}

func (c *Client) decodeResult(entity model.EntityType, raw model.Result) (model.Result, error) {
	if raw.Row == nil {
		return raw, nil
	}
	row, err := c.registry.Resolve(entity, raw.Row)
	if err != nil {
		return model.Result{}, err
	}
	return model.Result{Row: row, Count: raw.Count}, nil
}

// Read selects rows and resolves their derived fields. A field whose
// dependencies were not selected is omitted from the result.
func (c *Client) Read(ctx context.Context, req model.ReadRequest) ([]model.Row, error) {
	ctx, span := c.tracer.Start(ctx, "access.read", trace.WithAttributes(
		attribute.String("entity", string(req.Entity)),
	))
	defer span.End()

	rows, err := c.read(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

func (c *Client) read(ctx context.Context, req model.ReadRequest) ([]model.Row, error) {
	where, err := c.registry.EncodeFilter(req.Entity, req.Where)
	if err != nil {
		return nil, fmt.Errorf("encode where: %w", err)
	}
	req.Where = where

	raw, err := c.store.Select(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make([]model.Row, len(raw))
	for i, r := range raw {
		if out[i], err = c.registry.Resolve(req.Entity, r); err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", req.Entity, i, err)
		}
	}
	return out, nil
}

// ReadOne returns the single row matching req, or nil when none matches.
func (c *Client) ReadOne(ctx context.Context, req model.ReadRequest) (model.Row, error) {
	req.Limit = 1
	rows, err := c.Read(ctx, req)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}
