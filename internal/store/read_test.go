package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscores/internal/codec"
	"github.com/roach88/hiscores/internal/model"
)

func seedRecords(t *testing.T, s *Store) int64 {
	t.Helper()
	playerID := createTestPlayer(t, s, "zezima")
	_, err := s.Apply(context.Background(), model.WriteRequest{
		Entity:    model.EntityRecord,
		Operation: model.OpCreateMany,
		Rows: []model.Row{
			{"player_id": playerID, "period": "day", "metric": "ehp", "value": codec.FromInt64(12345)},
			{"player_id": playerID, "period": "week", "metric": "ehp", "value": codec.FromInt64(54321)},
			{"player_id": playerID, "period": "day", "metric": "zulrah", "value": codec.FromInt64(17)},
		},
	})
	require.NoError(t, err)
	return playerID
}

func TestSelect_PartialFields(t *testing.T) {
	s := createTestStore(t)
	seedRecords(t, s)

	rows, err := s.Select(context.Background(), model.ReadRequest{
		Entity: model.EntityRecord,
		Fields: []string{"id", "value"},
		Where:  model.Row{"metric": "ehp"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"id", "value"}, rows[0].Keys())
}

func TestSelect_OrderAndLimit(t *testing.T) {
	s := createTestStore(t)
	seedRecords(t, s)

	rows, err := s.Select(context.Background(), model.ReadRequest{
		Entity:  model.EntityRecord,
		OrderBy: []string{"-id"},
		Limit:   2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0]["id"])
	assert.Equal(t, int64(2), rows[1]["id"])
}

func TestSelect_OrderByNumericMagnitude(t *testing.T) {
	s := createTestStore(t)
	seedRecords(t, s)

	rows, err := s.Select(context.Background(), model.ReadRequest{
		Entity:  model.EntityRecord,
		Fields:  []string{"value"},
		OrderBy: []string{"-value"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	var got []string
	for _, r := range rows {
		got = append(got, fmt.Sprint(r["value"]))
	}
	assert.Equal(t, []string{"54321", "12345", "17"}, got)
}

func TestSelect_WhereNullAndIn(t *testing.T) {
	s := createTestStore(t)
	seedRecords(t, s)
	ctx := context.Background()

	rows, err := s.Select(ctx, model.ReadRequest{
		Entity: model.EntityRecord,
		Where:  model.Row{"period": []any{"week", "month"}},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = s.Select(ctx, model.ReadRequest{
		Entity: model.EntityRecord,
		Where:  model.Row{"period": []string{}},
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)

	rows, err = s.Select(ctx, model.ReadRequest{
		Entity: model.EntityPlayer,
		Where:  model.Row{"country": nil},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSelect_UnknownFields(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Select(ctx, model.ReadRequest{Entity: model.EntityRecord, Fields: []string{"nope"}})
	var fe *UnknownFieldError
	require.ErrorAs(t, err, &fe)

	_, err = s.Select(ctx, model.ReadRequest{Entity: model.EntityRecord, OrderBy: []string{"-nope"}})
	require.ErrorAs(t, err, &fe)

	_, err = s.Select(ctx, model.ReadRequest{Entity: model.EntityRecord, Where: model.Row{"nope": 1}})
	require.ErrorAs(t, err, &fe)
}

func TestSelect_WhereOnNumericColumn(t *testing.T) {
	s := createTestStore(t)
	seedRecords(t, s)

	rows, err := s.Select(context.Background(), model.ReadRequest{
		Entity: model.EntityRecord,
		Where:  model.Row{"value": 17},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "zulrah", rows[0]["metric"])
}
