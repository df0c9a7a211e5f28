package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscores/internal/codec"
	"github.com/roach88/hiscores/internal/model"
)

func TestApply_CreateReturnsStoredRow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	res, err := s.Apply(ctx, model.WriteRequest{
		Entity:    model.EntityPlayer,
		Operation: model.OpCreate,
		Data: model.Row{
			"username": "zezima",
			"exp":      codec.MustParseNumeric("4611686018427387904"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Count)
	assert.Equal(t, int64(1), res.Row["id"])
	assert.Equal(t, "zezima", res.Row["username"])
	assert.Equal(t, "4611686018427387904", res.Row["exp"].(codec.StoredNumeric).String())
	assert.Equal(t, "0", res.Row["ehp"].(codec.StoredNumeric).String())
	assert.Equal(t, testNow, res.Row["created_at"])
	assert.Nil(t, res.Row["latest_snapshot_id"])
}

func TestApply_FailedCreateCommitsNothing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestPlayer(t, s, "zezima")

	_, err := s.Apply(ctx, model.WriteRequest{
		Entity:    model.EntityPlayer,
		Operation: model.OpCreate,
		Data:      model.Row{"username": "zezima"},
	})
	require.Error(t, err)

	rows, err := s.Select(ctx, model.ReadRequest{Entity: model.EntityPlayer})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestApply_UnknownField(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Apply(context.Background(), model.WriteRequest{
		Entity:    model.EntityPlayer,
		Operation: model.OpCreate,
		Data:      model.Row{"username": "a", "flair": "x"},
	})

	var fe *UnknownFieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "flair", fe.Field)
}

func TestApply_UpdateSingleRow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	id := createTestPlayer(t, s, "lynx titan")

	res, err := s.Apply(ctx, model.WriteRequest{
		Entity:    model.EntityPlayer,
		Operation: model.OpUpdate,
		Where:     model.Row{"id": id},
		Data:      model.Row{"exp": codec.FromInt64(4_600_000_000), "country": "US"},
	})
	require.NoError(t, err)
	assert.Equal(t, "4600000000", res.Row["exp"].(codec.StoredNumeric).String())
	assert.Equal(t, "US", res.Row["country"])

	_, err = s.Apply(ctx, model.WriteRequest{
		Entity:    model.EntityPlayer,
		Operation: model.OpUpdate,
		Where:     model.Row{"id": id + 100},
		Data:      model.Row{"country": "PT"},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestApply_UpdateRejectsAmbiguousWhere(t *testing.T) {
	s := createTestStore(t)
	createTestPlayer(t, s, "a")
	createTestPlayer(t, s, "b")

	_, err := s.Apply(context.Background(), model.WriteRequest{
		Entity:    model.EntityPlayer,
		Operation: model.OpUpdate,
		Where:     model.Row{"build": "main"},
		Data:      model.Row{"country": "PT"},
	})
	assert.ErrorIs(t, err, ErrNotUnique)
}

func TestApply_CreateManyAndUpdateMany(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	res, err := s.Apply(ctx, model.WriteRequest{
		Entity:    model.EntityPlayer,
		Operation: model.OpCreateMany,
		Rows: []model.Row{
			{"username": "a"}, {"username": "b"}, {"username": "c"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Count)
	assert.Nil(t, res.Row)

	res, err = s.Apply(ctx, model.WriteRequest{
		Entity:         model.EntityPlayer,
		Operation:      model.OpCreateMany,
		Rows:           []model.Row{{"username": "a"}, {"username": "d"}},
		SkipDuplicates: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count)

	res, err = s.Apply(ctx, model.WriteRequest{
		Entity:    model.EntityPlayer,
		Operation: model.OpUpdateMany,
		Where:     model.Row{"username": []string{"a", "b"}},
		Data:      model.Row{"type": "ironman"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Count)
}

func TestApply_UpsertIsOneWrite(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	playerID := createTestPlayer(t, s, "zezima")

	req := model.WriteRequest{
		Entity:    model.EntityRecord,
		Operation: model.OpUpsert,
		Where:     model.Row{"player_id": playerID, "period": "week", "metric": "ehp"},
		Create: model.Row{
			"player_id": playerID, "period": "week", "metric": "ehp",
			"value": codec.FromInt64(12345),
		},
		Data: model.Row{"value": codec.FromInt64(22222)},
	}

	created, err := s.Apply(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "12345", created.Row["value"].(codec.StoredNumeric).String())

	updated, err := s.Apply(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, created.Row["id"], updated.Row["id"])
	assert.Equal(t, "22222", updated.Row["value"].(codec.StoredNumeric).String())

	rows, err := s.Select(ctx, model.ReadRequest{Entity: model.EntityRecord})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestApply_DeleteReturnsRemovedRow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	id := createTestPlayer(t, s, "zezima")
	createTestPlayer(t, s, "woox")

	res, err := s.Apply(ctx, model.WriteRequest{
		Entity:    model.EntityPlayer,
		Operation: model.OpDelete,
		Where:     model.Row{"id": id},
	})
	require.NoError(t, err)
	assert.Equal(t, "zezima", res.Row["username"])

	res, err = s.Apply(ctx, model.WriteRequest{Entity: model.EntityPlayer, Operation: model.OpDeleteMany})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count)
}

func TestApply_ReviewContextStoredAsText(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	playerID := createTestPlayer(t, s, "zezima")

	res, err := s.Apply(ctx, model.WriteRequest{
		Entity:    model.EntityNameChange,
		Operation: model.OpCreate,
		Data: model.Row{
			"player_id":      playerID,
			"old_name":       "zezima",
			"new_name":       "zezima2",
			"review_context": `{"kind":"skip","reason":"manual_review"}`,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"skip","reason":"manual_review"}`, res.Row["review_context"])
	assert.Equal(t, "pending", res.Row["status"])
}

func TestApply_RejectsInvalidRequest(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Apply(context.Background(), model.WriteRequest{Entity: model.EntityPlayer, Operation: model.OpCreate})
	require.Error(t, err)

	_, err = s.Apply(context.Background(), model.WriteRequest{
		Entity: "patron", Operation: model.OpCreate, Data: model.Row{"a": 1},
	})
	var ue *UnknownEntityError
	assert.ErrorAs(t, err, &ue)
}
