package model

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces write operation ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids, so operation ids in
// logs sort in commit order. Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns predetermined ids, then falls back to
// "<prefix>-<n>" once they run out. Used for deterministic tests.
type SequenceGenerator struct {
	mu     sync.Mutex
	ids    []string
	prefix string
	n      int
}

// NewSequenceGenerator returns a generator yielding ids in order.
func NewSequenceGenerator(prefix string, ids ...string) *SequenceGenerator {
	return &SequenceGenerator{ids: ids, prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	if g.n <= len(g.ids) {
		return g.ids[g.n-1]
	}
	return g.prefix + "-" + strconv.Itoa(g.n)
}
