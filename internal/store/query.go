package store

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/hiscores/internal/model"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// builder accumulates bind arguments with dialect-specific placeholders.
type builder struct {
	dialect Dialect
	args    []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	if b.dialect == DialectPostgres {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

// where renders an AND of equality predicates. nil matches IS NULL and a
// slice matches IN; an empty slice matches nothing. An empty filter matches
// every row.
func (b *builder) where(t *table, filter model.Row) (string, error) {
	keys, err := t.sortedKeys(filter)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", nil
	}

	preds := make([]string, 0, len(keys))
	for _, k := range keys {
		c, _ := t.column(k)
		v := filter[k]

		if v == nil {
			preds = append(preds, quote(k)+" IS NULL")
			continue
		}

		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && c.typ != colJSON {
			if _, isBytes := v.([]byte); !isBytes {
				if rv.Len() == 0 {
					preds = append(preds, "1 = 0")
					continue
				}
				marks := make([]string, rv.Len())
				for i := 0; i < rv.Len(); i++ {
					arg, err := bindValue(t.entity, c, rv.Index(i).Interface())
					if err != nil {
						return "", err
					}
					marks[i] = b.bind(arg)
				}
				preds = append(preds, quote(k)+" IN ("+strings.Join(marks, ", ")+")")
				continue
			}
		}

		arg, err := bindValue(t.entity, c, v)
		if err != nil {
			return "", err
		}
		preds = append(preds, quote(k)+" = "+b.bind(arg))
	}
	return " WHERE " + strings.Join(preds, " AND "), nil
}

func selectList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

// queryRows runs query and scans every row into the given columns.
func queryRows(ctx context.Context, q querier, t *table, cols []string, query string, args []any) ([]model.Row, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		dests := make([]any, len(cols))
		for i, name := range cols {
			c, _ := t.column(name)
			dests[i] = scanTarget(c)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		row := make(model.Row, len(cols))
		for i, name := range cols {
			row[name] = scanValue(dests[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}

	// Return empty slice instead of nil
	if out == nil {
		out = []model.Row{}
	}
	return out, nil
}
