package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/hiscores/internal/model"
)

// DefaultMaxDepth bounds how many handler writes may nest below one
// caller-issued write.
const DefaultMaxDepth = 8

// WithMaxDepth sets the nested write limit. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

type depthKey struct{}

// dispatchDepth returns the number of dispatches ctx is nested in. A
// caller-issued write runs at depth 0; a write made by its handler at 1.
func dispatchDepth(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

func withDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

// DepthExceededError is returned when a handler write would nest deeper than
// the configured limit. Nothing is committed. Handlers that write the entity
// that triggered them without a terminating condition hit this.
type DepthExceededError struct {
	Entity    model.EntityType
	Operation model.OperationKind
	Depth     int
	Limit     int
}

// Error implements the error interface.
func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("%s %s: nested write depth %d exceeds limit %d",
		e.Entity, e.Operation, e.Depth, e.Limit)
}

// IsDepthExceeded reports whether err is a DepthExceededError.
func IsDepthExceeded(err error) bool {
	var de *DepthExceededError
	return errors.As(err, &de)
}

// checkDepth fails when a write in ctx would exceed the limit.
func (c *Client) checkDepth(ctx context.Context, req model.WriteRequest) error {
	if d := dispatchDepth(ctx); d > c.maxDepth {
		return &DepthExceededError{
			Entity:    req.Entity,
			Operation: req.Operation,
			Depth:     d,
			Limit:     c.maxDepth,
		}
	}
	return nil
}
