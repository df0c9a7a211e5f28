package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/hiscores/internal/codec"
	"github.com/roach88/hiscores/internal/model"
)

// bindValue converts a caller value to a driver argument for column c.
func bindValue(entity model.EntityType, c column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	bad := func(err error) error {
		return fmt.Errorf("%s.%s: %w", entity, c.name, err)
	}

	switch c.typ {
	case colInt:
		n, err := toInt64(v)
		if err != nil {
			return nil, bad(err)
		}
		return n, nil

	case colText:
		if s, ok := toString(v); ok {
			return s, nil
		}
		return nil, bad(fmt.Errorf("expected text, got %T", v))

	case colNumeric:
		stored, err := codec.EncodeValue(v, codec.Identity())
		if err != nil {
			return nil, bad(err)
		}
		return stored, nil

	case colTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, bad(err)
			}
			return parsed.UTC(), nil
		}
		return nil, bad(fmt.Errorf("expected time, got %T", v))

	case colJSON:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		case json.RawMessage:
			return string(x), nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, bad(err)
		}
		return string(data), nil
	}
	return nil, bad(fmt.Errorf("unsupported column type %d", c.typ))
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint32:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > codec.MaxSafeInteger {
			return 0, fmt.Errorf("expected integer, got %v", x)
		}
		return int64(x), nil
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func toString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

// scanTarget returns a destination for one column of a result row.
func scanTarget(c column) any {
	switch c.typ {
	case colInt:
		return new(sql.NullInt64)
	case colNumeric:
		return new(codec.StoredNumeric)
	case colTime:
		return new(nullTime)
	default:
		// JSONB arrives as text or bytes depending on the driver.
		return new(any)
	}
}

// scanValue unwraps a destination filled by scanTarget.
func scanValue(dest any) any {
	switch d := dest.(type) {
	case *sql.NullInt64:
		if !d.Valid {
			return nil
		}
		return d.Int64
	case *codec.StoredNumeric:
		return *d
	case *nullTime:
		if !d.valid {
			return nil
		}
		return d.t.UTC()
	case *any:
		switch v := (*d).(type) {
		case nil:
			return nil
		case []byte:
			return string(v)
		default:
			return v
		}
	}
	return nil
}

// nullTime scans timestamps that arrive either as time.Time or, for
// expressions SQLite returns without a declared type, as text.
type nullTime struct {
	t     time.Time
	valid bool
}

func (n *nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.valid = false
		return nil
	case time.Time:
		n.t, n.valid = v, true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (n *nullTime) parse(s string) error {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			n.t, n.valid = t, true
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}
