package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/hiscores/internal/store"
)

// NewStore opens a SQLite store in a temporary directory that is closed when
// the test ends. Timestamps come from clock.
func NewStore(t *testing.T, clock *FixedClock) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path, store.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
