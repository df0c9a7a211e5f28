package access

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/roach88/hiscores/internal/model"
)

// Clock is a monotonic logical clock. Every committed write is stamped with
// the next value, so WriteOperation.Seq is strictly increasing in commit
// order across all entities.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// sequencer makes dispatches of one entity run in commit order.
//
// A ticket is issued while the entity's write lock is held, right after the
// commit, so ticket order equals commit order. A dispatch waits until every
// earlier ticket of its entity has finished.
type sequencer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	issued   map[model.EntityType]int64
	serving  map[model.EntityType]int64
	finished map[model.EntityType]map[int64]bool
}

func newSequencer() *sequencer {
	s := &sequencer{
		issued:   make(map[model.EntityType]int64),
		serving:  make(map[model.EntityType]int64),
		finished: make(map[model.EntityType]map[int64]bool),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// issue returns the next ticket for entity. Tickets start at 1.
func (s *sequencer) issue(entity model.EntityType) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[entity]++
	if s.serving[entity] == 0 {
		s.serving[entity] = 1
	}
	return s.issued[entity]
}

// wait blocks until ticket is the oldest unfinished ticket of entity, or
// until ctx is done.
func (s *sequencer) wait(ctx context.Context, entity model.EntityType, ticket int64) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.serving[entity] < ticket {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}
	return nil
}

// done marks ticket finished and advances past every finished ticket.
func (s *sequencer) done(entity model.EntityType, ticket int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished[entity] == nil {
		s.finished[entity] = make(map[int64]bool)
	}
	s.finished[entity][ticket] = true
	for s.finished[entity][s.serving[entity]] {
		delete(s.finished[entity], s.serving[entity])
		s.serving[entity]++
	}
	s.cond.Broadcast()
}
