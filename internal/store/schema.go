package store

import (
	"sort"

	"github.com/roach88/hiscores/internal/model"
)

// colType determines how a column's values are bound and scanned.
type colType uint8

const (
	colInt colType = iota + 1
	colText
	// colNumeric holds arbitrary-precision integers, scanned as
	// codec.StoredNumeric.
	colNumeric
	colTime
	// colJSON holds an opaque JSON document as text.
	colJSON
)

type column struct {
	name string
	typ  colType
}

// table maps an entity to its SQL table. Columns must match the embedded
// schema files.
type table struct {
	entity  model.EntityType
	name    string
	columns []column
	// autoID marks tables whose "id" column is generated on insert.
	autoID bool

	byName map[string]column
}

func (t *table) column(name string) (column, bool) {
	c, ok := t.byName[name]
	return c, ok
}

func (t *table) has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

func (t *table) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

func defineTable(entity model.EntityType, name string, autoID bool, cols ...column) *table {
	t := &table{entity: entity, name: name, columns: cols, autoID: autoID, byName: make(map[string]column, len(cols))}
	for _, c := range cols {
		t.byName[c.name] = c
	}
	return t
}

func intCol(name string) column  { return column{name, colInt} }
func textCol(name string) column { return column{name, colText} }
func numCol(name string) column  { return column{name, colNumeric} }
func timeCol(name string) column { return column{name, colTime} }
func jsonCol(name string) column { return column{name, colJSON} }

var tables = map[model.EntityType]*table{
	model.EntityPlayer: defineTable(model.EntityPlayer, "players", true,
		intCol("id"), textCol("username"), textCol("display_name"), textCol("type"), textCol("build"), textCol("country"),
		numCol("exp"), numCol("ehp"), numCol("ehb"), numCol("ttm"), numCol("tt200m"),
		intCol("latest_snapshot_id"), timeCol("last_changed_at"), timeCol("created_at"), timeCol("updated_at"),
	),
	model.EntitySnapshot: defineTable(model.EntitySnapshot, "snapshots", true,
		intCol("id"), intCol("player_id"), numCol("overall_experience"), intCol("overall_rank"),
		numCol("ehp_value"), numCol("ehb_value"), timeCol("created_at"),
	),
	model.EntityRecord: defineTable(model.EntityRecord, "records", true,
		intCol("id"), intCol("player_id"), textCol("period"), textCol("metric"), numCol("value"), timeCol("updated_at"),
	),
	model.EntityDelta: defineTable(model.EntityDelta, "deltas", true,
		intCol("id"), intCol("player_id"), textCol("period"), numCol("overall"), numCol("ehp"), numCol("ehb"),
		timeCol("started_at"), timeCol("ended_at"), timeCol("updated_at"),
	),
	model.EntityAchievement: defineTable(model.EntityAchievement, "achievements", false,
		intCol("player_id"), textCol("name"), textCol("metric"), numCol("threshold"), numCol("accuracy"), timeCol("created_at"),
	),
	model.EntityNameChange: defineTable(model.EntityNameChange, "name_changes", true,
		intCol("id"), intCol("player_id"), textCol("old_name"), textCol("new_name"), textCol("status"),
		jsonCol("review_context"), timeCol("resolved_at"), timeCol("created_at"), timeCol("updated_at"),
	),
	model.EntityGroup: defineTable(model.EntityGroup, "groups", true,
		intCol("id"), textCol("name"), textCol("clan_chat"), textCol("description"), textCol("verification_hash"),
		timeCol("created_at"), timeCol("updated_at"),
	),
	model.EntityMembership: defineTable(model.EntityMembership, "memberships", false,
		intCol("player_id"), intCol("group_id"), textCol("role"), timeCol("created_at"), timeCol("updated_at"),
	),
	model.EntityCompetition: defineTable(model.EntityCompetition, "competitions", true,
		intCol("id"), textCol("title"), textCol("metric"), textCol("type"), timeCol("starts_at"), timeCol("ends_at"),
		intCol("group_id"), timeCol("created_at"), timeCol("updated_at"),
	),
	model.EntityParticipation: defineTable(model.EntityParticipation, "participations", false,
		intCol("player_id"), intCol("competition_id"), textCol("team_name"),
		intCol("start_snapshot_id"), intCol("end_snapshot_id"), timeCol("created_at"), timeCol("updated_at"),
	),
}

func lookupTable(entity model.EntityType) (*table, error) {
	t, ok := tables[entity]
	if !ok {
		return nil, &UnknownEntityError{Entity: entity}
	}
	return t, nil
}

// Columns returns the column names of entity's table in schema order.
func Columns(entity model.EntityType) ([]string, error) {
	t, err := lookupTable(entity)
	if err != nil {
		return nil, err
	}
	return t.columnNames(), nil
}

// sortedKeys returns r's columns sorted, validating each against t.
func (t *table) sortedKeys(r model.Row) ([]string, error) {
	keys := make([]string, 0, len(r))
	for k := range r {
		if !t.has(k) {
			return nil, &UnknownFieldError{Entity: t.entity, Field: k}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
