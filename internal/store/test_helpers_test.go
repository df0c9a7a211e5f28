package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscores/internal/model"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPlayer inserts a player and returns its id.
func createTestPlayer(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	res, err := s.Apply(context.Background(), model.WriteRequest{
		Entity:    model.EntityPlayer,
		Operation: model.OpCreate,
		Data:      model.Row{"username": username, "display_name": username},
	})
	require.NoError(t, err)
	return res.Row["id"].(int64)
}
