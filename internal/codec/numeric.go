package codec

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// StoredNumeric is an arbitrary-precision integer as persisted. The zero
// value is null.
//
// Values are exchanged with the database as base-10 strings so that no
// driver ever routes them through float64. JSON encoding emits a string for
// the same reason; JSON decoding accepts strings and integral numbers.
type StoredNumeric struct {
	v *big.Int
}

// Null returns the null StoredNumeric.
func Null() StoredNumeric {
	return StoredNumeric{}
}

// FromInt64 wraps n.
func FromInt64(n int64) StoredNumeric {
	return StoredNumeric{v: big.NewInt(n)}
}

// FromBigInt wraps a copy of x. A nil x yields null.
func FromBigInt(x *big.Int) StoredNumeric {
	if x == nil {
		return StoredNumeric{}
	}
	return StoredNumeric{v: new(big.Int).Set(x)}
}

// ParseNumeric parses a base-10 integer literal.
func ParseNumeric(s string) (StoredNumeric, error) {
	s = strings.TrimSpace(s)
	x, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return StoredNumeric{}, fmt.Errorf("invalid integer literal %q", s)
	}
	return StoredNumeric{v: x}, nil
}

// MustParseNumeric is ParseNumeric that panics on error. For tests and
// static tables.
func MustParseNumeric(s string) StoredNumeric {
	n, err := ParseNumeric(s)
	if err != nil {
		panic(err)
	}
	return n
}

// IsNull reports whether the value is null.
func (n StoredNumeric) IsNull() bool {
	return n.v == nil
}

// BigInt returns a copy of the value, or nil when null.
func (n StoredNumeric) BigInt() *big.Int {
	if n.v == nil {
		return nil
	}
	return new(big.Int).Set(n.v)
}

// Equal reports whether two values are both null or numerically equal.
func (n StoredNumeric) Equal(o StoredNumeric) bool {
	if n.v == nil || o.v == nil {
		return n.v == nil && o.v == nil
	}
	return n.v.Cmp(o.v) == 0
}

// String returns the base-10 representation, or "null".
func (n StoredNumeric) String() string {
	if n.v == nil {
		return "null"
	}
	return n.v.String()
}

// Value implements driver.Valuer.
func (n StoredNumeric) Value() (driver.Value, error) {
	if n.v == nil {
		return nil, nil
	}
	return n.v.String(), nil
}

// Scan implements sql.Scanner.
func (n *StoredNumeric) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.v = nil
	case int64:
		n.v = big.NewInt(v)
	case string:
		return n.scanText(v)
	case []byte:
		return n.scanText(string(v))
	case float64:
		// Only integral values that survived the float round trip are accepted.
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || math.Abs(v) > MaxSafeInteger {
			return &PrecisionLossError{Raw: strconv.FormatFloat(v, 'g', -1, 64), Reason: "stored value arrived as a lossy float"}
		}
		n.v = big.NewInt(int64(v))
	default:
		return fmt.Errorf("cannot scan %T into StoredNumeric", src)
	}
	return nil
}

func (n *StoredNumeric) scanText(s string) error {
	// NUMERIC columns may render integral values with a zero fraction.
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	parsed, err := ParseNumeric(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// MarshalJSON emits null or a quoted base-10 integer.
func (n StoredNumeric) MarshalJSON() ([]byte, error) {
	if n.v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.v.String())
}

// UnmarshalJSON accepts null, a quoted integer or an integral number literal.
func (n *StoredNumeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		n.v = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return n.scanText(s)
	}
	return n.scanText(string(data))
}
