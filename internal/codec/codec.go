// Package codec converts stored arbitrary-precision integers to and from the
// float64 values used in memory.
//
// Two scaling policies exist. Identity decodes the integer as-is and fails
// with PrecisionLossError when it falls outside ±MaxSafeInteger. A
// FractionalRatio decodes numerator/denominator to the nearest float64 and
// encodes round(v*d), trading anything finer than 1/d for a compact integer
// representation.
//
// All functions are pure and safe for concurrent use.
package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// divisionPlaces bounds the fractional digits kept when dividing by a
// denominator before conversion to float64. It exceeds float64's ~17
// significant digits for any numerator in the safe range.
const divisionPlaces = 24

var (
	maxSafe = big.NewInt(MaxSafeInteger)
	minSafe = big.NewInt(-MaxSafeInteger)
)

func inSafeRange(x *big.Int) bool {
	return x.Cmp(maxSafe) <= 0 && x.Cmp(minSafe) >= 0
}

// Decode converts a stored value to its semantic number.
//
// A null raw value fails with MissingDependencyError; callers that allow
// nulls must check IsNull first.
func Decode(raw StoredNumeric, p Policy) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if raw.IsNull() {
		return 0, &MissingDependencyError{}
	}
	if p.kind == PolicyIdentity {
		if !inSafeRange(raw.v) {
			return 0, &PrecisionLossError{
				Raw:    raw.v.String(),
				Policy: p,
				Reason: "magnitude exceeds float64 safe integer range",
			}
		}
		return float64(raw.v.Int64()), nil
	}

	// A ratio already trades exactness for scale, so a numerator past the
	// safe range still decodes as long as the quotient is finite.
	q := decimal.NewFromBigInt(raw.v, 0).DivRound(decimal.NewFromInt(p.denominator), divisionPlaces)
	f, _ := q.Float64()
	if math.IsInf(f, 0) {
		return 0, &PrecisionLossError{
			Raw:    raw.v.String(),
			Policy: p,
			Reason: "quotient exceeds float64 range",
		}
	}
	return f, nil
}

// Encode converts a semantic number to its stored form.
//
// Identity requires an integral value within ±MaxSafeInteger; a float64
// outside that range no longer identifies a single integer. FractionalRatio
// rounds v*d half away from zero using v's shortest decimal form.
func Encode(v float64, p Policy) (StoredNumeric, error) {
	if err := p.Validate(); err != nil {
		return StoredNumeric{}, err
	}
	raw := strconv.FormatFloat(v, 'g', -1, 64)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return StoredNumeric{}, &PrecisionLossError{Raw: raw, Policy: p, Reason: "value is not finite"}
	}

	if p.kind == PolicyIdentity {
		if v != math.Trunc(v) {
			return StoredNumeric{}, &PrecisionLossError{Raw: raw, Policy: p, Reason: "fractional value under identity policy"}
		}
		if math.Abs(v) > MaxSafeInteger {
			return StoredNumeric{}, &PrecisionLossError{Raw: raw, Policy: p, Reason: "magnitude exceeds float64 safe integer range"}
		}
		return FromInt64(int64(v)), nil
	}

	return encodeDecimal(decimal.NewFromFloat(v), p), nil
}

func encodeDecimal(d decimal.Decimal, p Policy) StoredNumeric {
	scaled := d.Mul(decimal.NewFromInt(p.Denominator())).Round(0)
	return StoredNumeric{v: scaled.BigInt()}
}

// EncodeValue encodes a loosely typed payload value, as found in decoded
// JSON or in caller-built rows.
//
// Exact inputs (integers, json.Number, decimal.Decimal, *big.Int) are encoded
// without passing through float64, so Identity accepts integers of any
// magnitude. A StoredNumeric is treated as already encoded and returned
// unchanged. nil encodes to null.
func EncodeValue(v any, p Policy) (StoredNumeric, error) {
	if err := p.Validate(); err != nil {
		return StoredNumeric{}, err
	}
	switch x := v.(type) {
	case nil:
		return StoredNumeric{}, nil
	case StoredNumeric:
		return x, nil
	case *StoredNumeric:
		if x == nil {
			return StoredNumeric{}, nil
		}
		return *x, nil
	case float64:
		return Encode(x, p)
	case float32:
		return Encode(float64(x), p)
	case int:
		return encodeExact(decimal.NewFromInt(int64(x)), p)
	case int32:
		return encodeExact(decimal.NewFromInt(int64(x)), p)
	case int64:
		return encodeExact(decimal.NewFromInt(x), p)
	case uint32:
		return encodeExact(decimal.NewFromInt(int64(x)), p)
	case uint64:
		return encodeExact(decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), p)
	case *big.Int:
		if x == nil {
			return StoredNumeric{}, nil
		}
		return encodeExact(decimal.NewFromBigInt(x, 0), p)
	case decimal.Decimal:
		return encodeExact(x, p)
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return StoredNumeric{}, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return encodeExact(d, p)
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return StoredNumeric{}, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return encodeExact(d, p)
	default:
		return StoredNumeric{}, fmt.Errorf("cannot encode %T as a numeric value", v)
	}
}

func encodeExact(d decimal.Decimal, p Policy) (StoredNumeric, error) {
	if p.kind == PolicyIdentity {
		if !d.IsInteger() {
			return StoredNumeric{}, &PrecisionLossError{Raw: d.String(), Policy: p, Reason: "fractional value under identity policy"}
		}
		return StoredNumeric{v: d.BigInt()}, nil
	}
	return encodeDecimal(d, p), nil
}
