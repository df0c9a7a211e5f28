package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultDenominator is the resolution of computed metrics unless a metric
// configures its own.
const DefaultDenominator int64 = 10_000

// MaxSafeInteger is the largest integer a float64 represents exactly
// together with all of its neighbours (2^53 - 1).
const MaxSafeInteger = 1<<53 - 1

// PolicyKind selects how a stored integer maps to its semantic value.
type PolicyKind uint8

const (
	// PolicyIdentity: the stored integer is the value.
	PolicyIdentity PolicyKind = iota
	// PolicyRatio: the stored integer is a numerator over a fixed denominator.
	PolicyRatio
)

// Policy is a scaling policy. The zero value is Identity.
type Policy struct {
	kind        PolicyKind
	denominator int64
}

// Identity returns the identity policy.
func Identity() Policy {
	return Policy{kind: PolicyIdentity}
}

// FractionalRatio returns a ratio policy with denominator d.
// Validate rejects non-positive denominators.
func FractionalRatio(d int64) Policy {
	return Policy{kind: PolicyRatio, denominator: d}
}

// Kind returns the policy kind.
func (p Policy) Kind() PolicyKind {
	return p.kind
}

// Denominator returns the ratio denominator, or 1 for Identity.
func (p Policy) Denominator() int64 {
	if p.kind == PolicyIdentity {
		return 1
	}
	return p.denominator
}

// Validate checks that the policy is usable.
func (p Policy) Validate() error {
	switch p.kind {
	case PolicyIdentity:
		return nil
	case PolicyRatio:
		if p.denominator <= 0 {
			return fmt.Errorf("ratio denominator must be positive, got %d", p.denominator)
		}
		return nil
	default:
		return fmt.Errorf("unknown policy kind %d", p.kind)
	}
}

// String renders "identity" or "ratio(<denominator>)".
func (p Policy) String() string {
	if p.kind == PolicyRatio {
		return "ratio(" + strconv.FormatInt(p.denominator, 10) + ")"
	}
	return "identity"
}

// ParsePolicy parses the String form. A bare "ratio" uses DefaultDenominator.
func ParsePolicy(s string) (Policy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "identity":
		return Identity(), nil
	case s == "ratio":
		return FractionalRatio(DefaultDenominator), nil
	case strings.HasPrefix(s, "ratio(") && strings.HasSuffix(s, ")"):
		d, err := strconv.ParseInt(s[len("ratio("):len(s)-1], 10, 64)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid ratio denominator in %q: %w", s, err)
		}
		p := FractionalRatio(d)
		if err := p.Validate(); err != nil {
			return Policy{}, err
		}
		return p, nil
	default:
		return Policy{}, fmt.Errorf("unknown policy %q: must be identity, ratio or ratio(<denominator>)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
