package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ReviewKind is the tag of a ReviewOutcome.
type ReviewKind string

const (
	ReviewSkip ReviewKind = "skip"
	ReviewDeny ReviewKind = "deny"
)

// ErrCorruptPayload marks a stored review payload that is present but not a
// valid ReviewOutcome.
var ErrCorruptPayload = errors.New("corrupt review outcome payload")

// ReviewOutcome records why a moderated transition was skipped or denied.
// A nil *ReviewOutcome is the null variant.
//
// Keys other than kind and reason are kept verbatim in Details so a payload
// survives a decode/encode cycle unchanged.
type ReviewOutcome struct {
	Kind    ReviewKind
	Reason  string
	Details map[string]json.RawMessage
}

// Skip returns a skip outcome.
func Skip(reason string) *ReviewOutcome {
	return &ReviewOutcome{Kind: ReviewSkip, Reason: reason}
}

// Deny returns a deny outcome.
func Deny(reason string) *ReviewOutcome {
	return &ReviewOutcome{Kind: ReviewDeny, Reason: reason}
}

// MarshalJSON writes kind, reason and any details as one flat object.
func (o ReviewOutcome) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(o.Details))
	for k := range o.Details {
		if k != "kind" && k != "reason" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	kind, err := json.Marshal(o.Kind)
	if err != nil {
		return nil, err
	}
	buf.Write(kind)
	buf.WriteString(`,"reason":`)
	reason, err := json.Marshal(o.Reason)
	if err != nil {
		return nil, err
	}
	buf.Write(reason)
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(o.Details[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts exactly the skip and deny shapes.
func (o *ReviewOutcome) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: not an object", ErrCorruptPayload)
	}

	var kind ReviewKind
	if err := json.Unmarshal(fields["kind"], &kind); err != nil {
		return fmt.Errorf("%w: kind: %v", ErrCorruptPayload, err)
	}
	if kind != ReviewSkip && kind != ReviewDeny {
		return fmt.Errorf("%w: unknown kind %q", ErrCorruptPayload, kind)
	}

	rawReason, ok := fields["reason"]
	if !ok {
		return fmt.Errorf("%w: reason is missing", ErrCorruptPayload)
	}
	var reason string
	if err := json.Unmarshal(rawReason, &reason); err != nil {
		return fmt.Errorf("%w: reason: %v", ErrCorruptPayload, err)
	}

	delete(fields, "kind")
	delete(fields, "reason")
	if len(fields) == 0 {
		fields = nil
	}
	*o = ReviewOutcome{Kind: kind, Reason: reason, Details: fields}
	return nil
}

// DecodeReviewOutcome reads a stored review payload.
//
// Absent, null and empty payloads decode to (nil, nil): records written
// before the column existed carry no outcome. Anything else that is not a
// valid outcome decodes to nil with an error wrapping ErrCorruptPayload.
func DecodeReviewOutcome(raw any) (*ReviewOutcome, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case *ReviewOutcome:
		return v, nil
	case ReviewOutcome:
		return &v, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		}
		data = b
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrCorruptPayload, raw)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var out ReviewOutcome
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &out, nil
}

// EncodeReviewOutcome converts an in-memory outcome to its stored payload.
// The null variant encodes to nil. JSON given as a string, byte slice or map
// is validated and re-encoded.
func EncodeReviewOutcome(v any) (any, error) {
	o, err := DecodeReviewOutcome(v)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, nil
	}
	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
