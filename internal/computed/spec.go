package computed

import (
	"fmt"
	"sort"

	"github.com/roach88/hiscores/internal/codec"
	"github.com/roach88/hiscores/internal/model"
)

// Kind tags the transform a Spec applies.
type Kind uint8

const (
	// Numeric decodes a StoredNumeric through a scaling policy.
	Numeric Kind = iota + 1
	// Review decodes an opaque ReviewOutcome payload without scaling.
	Review
	// Hidden removes the field from every read result.
	Hidden
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Review:
		return "review"
	case Hidden:
		return "hidden"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Selector picks a field's policy from the value of a sibling field, such as
// a record's metric. The table is built once at registration.
type Selector struct {
	Field    string
	Policies map[string]codec.Policy
	Default  codec.Policy
	// Normalize, when set, maps a selector value to its Policies key.
	Normalize func(string) string
}

func (s *Selector) policy(v any) codec.Policy {
	key, ok := v.(string)
	if !ok {
		key = fmt.Sprint(v)
	}
	if s.Normalize != nil {
		key = s.Normalize(key)
	}
	if p, ok := s.Policies[key]; ok {
		return p
	}
	return s.Default
}

// Spec declares one derived field.
type Spec struct {
	Entity model.EntityType
	// Field is the name attached to read results.
	Field string
	Kind  Kind
	// Source is the stored column. Defaults to Field, in which case the
	// decoded value replaces the stored one.
	Source string

	// Policy applies to Numeric specs without a Selector.
	Policy   codec.Policy
	Selector *Selector

	// Nullable lets a stored null decode to nil instead of being treated as
	// a missing dependency.
	Nullable bool
	// Mandatory surfaces MissingDependencyError instead of omitting the field.
	Mandatory bool
}

// Key identifies the spec within a registry.
func (s Spec) Key() string {
	return string(s.Entity) + "." + s.Field
}

func (s Spec) source() string {
	if s.Source == "" {
		return s.Field
	}
	return s.Source
}

// DependsOn returns the stored fields the transform reads, sorted.
func (s Spec) DependsOn() []string {
	if s.Kind == Hidden {
		return nil
	}
	deps := []string{s.source()}
	if s.Selector != nil && s.Selector.Field != s.source() {
		deps = append(deps, s.Selector.Field)
	}
	sort.Strings(deps)
	return deps
}

// PolicyFor returns the policy applied to a row, resolving the selector when
// there is one.
func (s Spec) PolicyFor(row model.Row) (codec.Policy, bool) {
	if s.Selector == nil {
		return s.Policy, true
	}
	v, ok := row[s.Selector.Field]
	if !ok {
		return codec.Policy{}, false
	}
	return s.Selector.policy(v), true
}

func (s Spec) validate() error {
	if s.Entity == "" || s.Field == "" {
		return fmt.Errorf("computed field spec requires entity and field")
	}
	switch s.Kind {
	case Numeric:
		if s.Selector != nil {
			if s.Selector.Field == "" {
				return fmt.Errorf("%s: selector requires a field", s.Key())
			}
			if err := s.Selector.Default.Validate(); err != nil {
				return fmt.Errorf("%s: %w", s.Key(), err)
			}
			for k, p := range s.Selector.Policies {
				if err := p.Validate(); err != nil {
					return fmt.Errorf("%s[%s]: %w", s.Key(), k, err)
				}
			}
			return nil
		}
		if err := s.Policy.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.Key(), err)
		}
	case Review, Hidden:
	default:
		return fmt.Errorf("%s: unknown kind %s", s.Key(), s.Kind)
	}
	return nil
}
