// Package model holds the types shared by the data-access layer: entity and
// operation identifiers, rows, write descriptors and the review outcome
// variant.
package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// EntityType names a persisted entity.
type EntityType string

const (
	EntityPlayer        EntityType = "player"
	EntitySnapshot      EntityType = "snapshot"
	EntityRecord        EntityType = "record"
	EntityDelta         EntityType = "delta"
	EntityAchievement   EntityType = "achievement"
	EntityNameChange    EntityType = "name_change"
	EntityGroup         EntityType = "group"
	EntityMembership    EntityType = "membership"
	EntityCompetition   EntityType = "competition"
	EntityParticipation EntityType = "participation"
)

// Entities lists every entity type.
var Entities = []EntityType{
	EntityPlayer, EntitySnapshot, EntityRecord, EntityDelta, EntityAchievement,
	EntityNameChange, EntityGroup, EntityMembership, EntityCompetition, EntityParticipation,
}

// OperationKind names a write operation.
type OperationKind string

const (
	OpCreate     OperationKind = "create"
	OpCreateMany OperationKind = "createMany"
	OpUpdate     OperationKind = "update"
	OpUpdateMany OperationKind = "updateMany"
	OpUpsert     OperationKind = "upsert"
	OpDelete     OperationKind = "delete"
	OpDeleteMany OperationKind = "deleteMany"
)

// Operations lists every operation kind.
var Operations = []OperationKind{
	OpCreate, OpCreateMany, OpUpdate, OpUpdateMany, OpUpsert, OpDelete, OpDeleteMany,
}

// IsBulk reports whether the operation affects a set of rows and returns a
// count rather than a row.
func (o OperationKind) IsBulk() bool {
	return o == OpCreateMany || o == OpUpdateMany || o == OpDeleteMany
}

// ParseEntityType resolves a case-insensitive entity name. Both
// "name_change" and "nameChange" are accepted.
func ParseEntityType(s string) (EntityType, error) {
	key := foldName(s)
	for _, e := range Entities {
		if foldName(string(e)) == key {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// ParseOperationKind resolves a case-insensitive operation name. Both
// "createMany" and "create_many" are accepted.
func ParseOperationKind(s string) (OperationKind, error) {
	key := foldName(s)
	for _, o := range Operations {
		if foldName(string(o)) == key {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown operation kind %q", s)
}

func foldName(s string) string {
	s = cases.Fold().String(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "").Replace(s)
}

// Row is a record as a map of column name to value.
type Row map[string]any

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the column is present, even with a nil value.
func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// Keys returns the column names in sorted order.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteRequest is a caller-issued write.
//
// Field use by operation:
//   - create: Data
//   - createMany: Rows
//   - update, updateMany: Where, Data
//   - upsert: Where, Create, Data (Data is the update branch)
//   - delete, deleteMany: Where
type WriteRequest struct {
	Entity    EntityType    `json:"entity"`
	Operation OperationKind `json:"operation"`
	Where     Row           `json:"where,omitempty"`
	Data      Row           `json:"data,omitempty"`
	Rows      []Row         `json:"rows,omitempty"`
	Create    Row           `json:"create,omitempty"`

	// SkipDuplicates makes createMany ignore rows that violate a unique
	// constraint. Only inserted rows are counted.
	SkipDuplicates bool `json:"skip_duplicates,omitempty"`
}

// Validate checks that the fields required by the operation are present.
func (r WriteRequest) Validate() error {
	if r.Entity == "" {
		return fmt.Errorf("write request: entity is required")
	}
	switch r.Operation {
	case OpCreate:
		if len(r.Data) == 0 {
			return fmt.Errorf("%s %s: data is required", r.Entity, r.Operation)
		}
	case OpCreateMany:
		if len(r.Rows) == 0 {
			return fmt.Errorf("%s %s: rows are required", r.Entity, r.Operation)
		}
	case OpUpdate, OpUpdateMany:
		if len(r.Data) == 0 {
			return fmt.Errorf("%s %s: data is required", r.Entity, r.Operation)
		}
		if r.Operation == OpUpdate && len(r.Where) == 0 {
			return fmt.Errorf("%s %s: where is required", r.Entity, r.Operation)
		}
	case OpUpsert:
		if len(r.Where) == 0 || len(r.Create) == 0 {
			return fmt.Errorf("%s %s: where and create are required", r.Entity, r.Operation)
		}
	case OpDelete:
		if len(r.Where) == 0 {
			return fmt.Errorf("%s %s: where is required", r.Entity, r.Operation)
		}
	case OpDeleteMany:
	default:
		return fmt.Errorf("write request: unknown operation %q", r.Operation)
	}
	return nil
}

// Result is the outcome of a committed write. Single-row operations set Row;
// bulk operations set Count.
type Result struct {
	Row   Row   `json:"row,omitempty"`
	Count int64 `json:"count"`
}

// WriteOperation describes one committed caller-issued write. It is built by
// the access layer after commit, handed to the hook router once and then
// discarded.
type WriteOperation struct {
	ID        string        `json:"id"`
	Seq       int64         `json:"seq"`
	Entity    EntityType    `json:"entity"`
	Operation OperationKind `json:"operation"`
	Request   WriteRequest  `json:"request"`

	// Result holds decoded values. When decoding failed, Result holds the
	// raw stored values and DecodeErr is set.
	Result    Result `json:"result"`
	DecodeErr error  `json:"-"`

	CommittedAt time.Time `json:"committed_at"`
}

// ReadRequest selects rows of one entity.
//
// Fields limits the selected columns; empty selects all. OrderBy entries are
// column names, prefixed with "-" for descending order. Limit 0 means no limit.
type ReadRequest struct {
	Entity  EntityType `json:"entity"`
	Where   Row        `json:"where,omitempty"`
	Fields  []string   `json:"fields,omitempty"`
	OrderBy []string   `json:"order_by,omitempty"`
	Limit   int        `json:"limit,omitempty"`
}
