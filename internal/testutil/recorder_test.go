package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscores/internal/model"
)

func TestRecorder_RecordsInOrder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, model.WriteOperation{ID: "op-1"}))
	require.NoError(t, r.Handle(ctx, model.WriteOperation{ID: "op-2"}))

	assert.Equal(t, 2, r.Count())
	ops := r.Ops()
	assert.Equal(t, "op-1", ops[0].ID)
	assert.Equal(t, "op-2", ops[1].ID)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "op-2", last.ID)
}

func TestRecorder_FailWithStillRecords(t *testing.T) {
	r := NewRecorder()
	boom := errors.New("boom")
	r.FailWith(boom)

	err := r.Handle(context.Background(), model.WriteOperation{ID: "op-1"})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, r.Count())
}

func TestRecorder_EmptyLast(t *testing.T) {
	_, ok := NewRecorder().Last()
	assert.False(t, ok)
}
