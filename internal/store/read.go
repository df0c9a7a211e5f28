package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/roach88/hiscores/internal/model"
)

// Select returns the rows of req.Entity matching req.Where.
//
// Only req.Fields are selected when given, so callers can fetch a subset of
// columns. Without an OrderBy, rows are ordered by the table's columns in
// schema order for deterministic results.
func (s *Store) Select(ctx context.Context, req model.ReadRequest) ([]model.Row, error) {
	t, err := lookupTable(req.Entity)
	if err != nil {
		return nil, err
	}

	cols := req.Fields
	if len(cols) == 0 {
		cols = t.columnNames()
	}
	for _, c := range cols {
		if !t.has(c) {
			return nil, &UnknownFieldError{Entity: t.entity, Field: c}
		}
	}

	b := &builder{dialect: s.dialect}
	where, err := b.where(t, req.Where)
	if err != nil {
		return nil, err
	}

	order, err := orderBy(s.dialect, t, req.OrderBy)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + selectList(cols) + " FROM " + quote(t.name) + where + order
	if req.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(req.Limit)
	}
	return queryRows(ctx, s.db, t, cols, query, b.args)
}

// orderBy renders the ORDER BY clause. SQLite stores numeric columns as
// text, so they are cast to sort by magnitude.
func orderBy(dialect Dialect, t *table, terms []string) (string, error) {
	if len(terms) == 0 {
		terms = t.columnNames()
	}
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		dir := " ASC"
		name := term
		if strings.HasPrefix(term, "-") {
			dir = " DESC"
			name = term[1:]
		}
		c, ok := t.column(name)
		if !ok {
			return "", &UnknownFieldError{Entity: t.entity, Field: name}
		}
		expr := quote(name)
		if c.typ == colNumeric && dialect == DialectSQLite {
			expr = "CAST(" + expr + " AS NUMERIC)"
		}
		parts = append(parts, expr+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}
