package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/hiscores/internal/model"
)

// Apply executes a write inside one transaction and commits it.
//
// Every operation kind, including upsert's find-then-create-or-update, runs
// in that single transaction. The Result holds raw stored values; numeric
// columns come back as codec.StoredNumeric. On error nothing is committed.
func (s *Store) Apply(ctx context.Context, req model.WriteRequest) (model.Result, error) {
	if err := req.Validate(); err != nil {
		return model.Result{}, err
	}
	t, err := lookupTable(req.Entity)
	if err != nil {
		return model.Result{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Result{}, fmt.Errorf("begin %s %s: %w", req.Entity, req.Operation, err)
	}
	defer tx.Rollback()

	w := &writer{store: s, q: tx, t: t}
	res, err := w.apply(ctx, req)
	if err != nil {
		return model.Result{}, fmt.Errorf("%s %s: %w", req.Entity, req.Operation, err)
	}

	if err := tx.Commit(); err != nil {
		return model.Result{}, fmt.Errorf("commit %s %s: %w", req.Entity, req.Operation, err)
	}
	return res, nil
}

// writer runs the statements of one write against a transaction.
type writer struct {
	store *Store
	q     querier
	t     *table
}

func (w *writer) apply(ctx context.Context, req model.WriteRequest) (model.Result, error) {
	switch req.Operation {
	case model.OpCreate:
		row, err := w.insert(ctx, req.Data)
		if err != nil {
			return model.Result{}, err
		}
		return model.Result{Row: row, Count: 1}, nil

	case model.OpCreateMany:
		var total int64
		for _, r := range req.Rows {
			n, err := w.insertNoReturn(ctx, r, req.SkipDuplicates)
			if err != nil {
				return model.Result{}, err
			}
			total += n
		}
		return model.Result{Count: total}, nil

	case model.OpUpdate:
		if _, err := w.single(ctx, req.Where); err != nil {
			return model.Result{}, err
		}
		rows, err := w.update(ctx, req.Where, req.Data)
		if err != nil {
			return model.Result{}, err
		}
		return model.Result{Row: rows[0], Count: 1}, nil

	case model.OpUpdateMany:
		n, err := w.updateCount(ctx, req.Where, req.Data)
		if err != nil {
			return model.Result{}, err
		}
		return model.Result{Count: n}, nil

	case model.OpUpsert:
		return w.upsert(ctx, req)

	case model.OpDelete:
		existing, err := w.single(ctx, req.Where)
		if err != nil {
			return model.Result{}, err
		}
		if _, err := w.deleteCount(ctx, req.Where); err != nil {
			return model.Result{}, err
		}
		return model.Result{Row: existing, Count: 1}, nil

	case model.OpDeleteMany:
		n, err := w.deleteCount(ctx, req.Where)
		if err != nil {
			return model.Result{}, err
		}
		return model.Result{Count: n}, nil
	}
	return model.Result{}, fmt.Errorf("unknown operation %q", req.Operation)
}

// upsert updates the single row matching Where, or inserts Create when no
// row matches.
func (w *writer) upsert(ctx context.Context, req model.WriteRequest) (model.Result, error) {
	existing, err := w.find(ctx, req.Where, 2)
	if err != nil {
		return model.Result{}, err
	}

	switch len(existing) {
	case 0:
		row, err := w.insert(ctx, req.Create)
		if err != nil {
			return model.Result{}, err
		}
		return model.Result{Row: row, Count: 1}, nil
	case 1:
		if len(req.Data) == 0 {
			return model.Result{Row: existing[0], Count: 1}, nil
		}
		rows, err := w.update(ctx, req.Where, req.Data)
		if err != nil {
			return model.Result{}, err
		}
		return model.Result{Row: rows[0], Count: 1}, nil
	default:
		return model.Result{}, ErrNotUnique
	}
}

// stamp fills created_at/updated_at when the table has them and the caller
// did not set them.
func (w *writer) stamp(r model.Row, creating bool) model.Row {
	out := r.Clone()
	if out == nil {
		out = model.Row{}
	}
	now := w.store.now().UTC()
	if creating && w.t.has("created_at") && !out.Has("created_at") {
		out["created_at"] = now
	}
	if w.t.has("updated_at") && !out.Has("updated_at") {
		out["updated_at"] = now
	}
	return out
}

func (w *writer) insertSQL(b *builder, data model.Row, skipDuplicates bool) (string, error) {
	row := w.stamp(data, true)
	keys, err := w.t.sortedKeys(row)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(quote(w.t.name))
	if len(keys) == 0 {
		sb.WriteString(" DEFAULT VALUES")
	} else {
		marks := make([]string, len(keys))
		for i, k := range keys {
			c, _ := w.t.column(k)
			arg, err := bindValue(w.t.entity, c, row[k])
			if err != nil {
				return "", err
			}
			marks[i] = b.bind(arg)
		}
		sb.WriteString(" (" + selectList(keys) + ") VALUES (" + strings.Join(marks, ", ") + ")")
	}
	if skipDuplicates {
		sb.WriteString(" ON CONFLICT DO NOTHING")
	}
	return sb.String(), nil
}

func (w *writer) insert(ctx context.Context, data model.Row) (model.Row, error) {
	b := &builder{dialect: w.store.dialect}
	query, err := w.insertSQL(b, data, false)
	if err != nil {
		return nil, err
	}
	cols := w.t.columnNames()
	rows, err := queryRows(ctx, w.q, w.t, cols, query+" RETURNING "+selectList(cols), b.args)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("insert into %s returned %d rows", w.t.name, len(rows))
	}
	return rows[0], nil
}

func (w *writer) insertNoReturn(ctx context.Context, data model.Row, skipDuplicates bool) (int64, error) {
	b := &builder{dialect: w.store.dialect}
	query, err := w.insertSQL(b, data, skipDuplicates)
	if err != nil {
		return 0, err
	}
	res, err := w.q.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", w.t.name, err)
	}
	return res.RowsAffected()
}

func (w *writer) find(ctx context.Context, filter model.Row, limit int) ([]model.Row, error) {
	b := &builder{dialect: w.store.dialect}
	where, err := b.where(w.t, filter)
	if err != nil {
		return nil, err
	}
	cols := w.t.columnNames()
	query := "SELECT " + selectList(cols) + " FROM " + quote(w.t.name) + where
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}
	return queryRows(ctx, w.q, w.t, cols, query, b.args)
}

// single returns the one row matching filter.
func (w *writer) single(ctx context.Context, filter model.Row) (model.Row, error) {
	rows, err := w.find(ctx, filter, 2)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return rows[0], nil
	default:
		return nil, ErrNotUnique
	}
}

func (w *writer) updateSQL(b *builder, filter, data model.Row) (string, error) {
	row := w.stamp(data, false)
	keys, err := w.t.sortedKeys(row)
	if err != nil {
		return "", err
	}

	sets := make([]string, len(keys))
	for i, k := range keys {
		c, _ := w.t.column(k)
		arg, err := bindValue(w.t.entity, c, row[k])
		if err != nil {
			return "", err
		}
		sets[i] = quote(k) + " = " + b.bind(arg)
	}
	where, err := b.where(w.t, filter)
	if err != nil {
		return "", err
	}
	return "UPDATE " + quote(w.t.name) + " SET " + strings.Join(sets, ", ") + where, nil
}

func (w *writer) update(ctx context.Context, filter, data model.Row) ([]model.Row, error) {
	b := &builder{dialect: w.store.dialect}
	query, err := w.updateSQL(b, filter, data)
	if err != nil {
		return nil, err
	}
	cols := w.t.columnNames()
	rows, err := queryRows(ctx, w.q, w.t, cols, query+" RETURNING "+selectList(cols), b.args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}

func (w *writer) updateCount(ctx context.Context, filter, data model.Row) (int64, error) {
	b := &builder{dialect: w.store.dialect}
	query, err := w.updateSQL(b, filter, data)
	if err != nil {
		return 0, err
	}
	res, err := w.q.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", w.t.name, err)
	}
	return res.RowsAffected()
}

func (w *writer) deleteCount(ctx context.Context, filter model.Row) (int64, error) {
	b := &builder{dialect: w.store.dialect}
	where, err := b.where(w.t, filter)
	if err != nil {
		return 0, err
	}
	res, err := w.q.ExecContext(ctx, "DELETE FROM "+quote(w.t.name)+where, b.args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", w.t.name, err)
	}
	return res.RowsAffected()
}
