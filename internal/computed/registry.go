// Package computed attaches derived fields to read results and encodes them
// back on writes.
//
// A Registry is a static table of Specs keyed by (entity, field). Specs are
// registered at startup, the registry is sealed, and from then on it is only
// read. Resolve is pure: identical input rows always produce identical output.
package computed

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/hiscores/internal/codec"
	"github.com/roach88/hiscores/internal/model"
)

// Reporter receives operator-visible decode problems.
type Reporter interface {
	CorruptPayload(entity model.EntityType, field string)
	PrecisionLoss(entity model.EntityType, field string)
}

type nopReporter struct{}

func (nopReporter) CorruptPayload(model.EntityType, string) {}
func (nopReporter) PrecisionLoss(model.EntityType, string)  {}

// Registry holds computed field specs.
type Registry struct {
	mu       sync.RWMutex
	byEntity map[model.EntityType][]Spec
	keys     map[string]struct{}
	sealed   bool
	reporter Reporter
}

// Option configures a Registry.
type Option func(*Registry)

// WithReporter routes decode problems to r.
func WithReporter(r Reporter) Option {
	return func(reg *Registry) {
		if r != nil {
			reg.reporter = r
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byEntity: make(map[model.EntityType][]Spec),
		keys:     make(map[string]struct{}),
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a spec. Registering a key twice fails with
// model.RegistrationConflict; registering after Seal fails with
// model.ErrSealed.
func (r *Registry) Register(spec Spec) error {
	if err := spec.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("register computed field %s: %w", spec.Key(), model.ErrSealed)
	}
	if _, dup := r.keys[spec.Key()]; dup {
		return &model.RegistrationConflict{Kind: "computed_field", Key: spec.Key()}
	}
	r.keys[spec.Key()] = struct{}{}
	r.byEntity[spec.Entity] = append(r.byEntity[spec.Entity], spec)
	return nil
}

// RegisterAll registers specs in order, stopping at the first error.
func (r *Registry) RegisterAll(specs []Spec) error {
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Specs returns all specs ordered by entity then field.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Spec
	for _, specs := range r.byEntity {
		out = append(out, specs...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entity != out[j].Entity {
			return out[i].Entity < out[j].Entity
		}
		return out[i].Field < out[j].Field
	})
	return out
}

func (r *Registry) specsFor(entity model.EntityType) []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byEntity[entity]
}

// Resolve returns raw with every derived field of entity decoded.
//
// A derived field whose dependencies are not all present in raw is omitted
// (its stored value too, when they share a name) unless the spec is
// Mandatory. Stored nulls decode to nil for Nullable specs and are otherwise
// treated as missing. PrecisionLossError is returned, never truncated.
// Undecodable review payloads become nil and are reported.
func (r *Registry) Resolve(entity model.EntityType, raw model.Row) (model.Row, error) {
	out := raw.Clone()
	for _, spec := range r.specsFor(entity) {
		if err := r.resolveOne(spec, raw, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Registry) resolveOne(spec Spec, raw, out model.Row) error {
	src := spec.source()

	if spec.Kind == Hidden {
		delete(out, spec.Field)
		delete(out, src)
		return nil
	}

	for _, dep := range spec.DependsOn() {
		if !raw.Has(dep) {
			return r.omit(spec, out, dep)
		}
	}

	switch spec.Kind {
	case Review:
		outcome, err := model.DecodeReviewOutcome(raw[src])
		if err != nil {
			r.reporter.CorruptPayload(spec.Entity, spec.Field)
			slog.Warn("undecodable review payload treated as null",
				"entity", spec.Entity,
				"field", spec.Field,
				"error", err,
			)
			out[spec.Field] = nil
			return nil
		}
		if outcome == nil {
			out[spec.Field] = nil
		} else {
			out[spec.Field] = outcome
		}
		return nil

	case Numeric:
		stored, err := toStored(raw[src])
		if err != nil {
			return fmt.Errorf("decode %s: %w", spec.Key(), err)
		}
		if stored.IsNull() {
			if spec.Nullable {
				out[spec.Field] = nil
				return nil
			}
			return r.omit(spec, out, src)
		}

		policy, _ := spec.PolicyFor(raw)
		v, err := codec.Decode(stored, policy)
		if err != nil {
			var pe *codec.PrecisionLossError
			if errors.As(err, &pe) {
				pe.Entity, pe.Field = string(spec.Entity), spec.Field
				r.reporter.PrecisionLoss(spec.Entity, spec.Field)
			}
			return err
		}
		if spec.Field != src {
			delete(out, src)
		}
		out[spec.Field] = v
		return nil
	}
	return nil
}

func (r *Registry) omit(spec Spec, out model.Row, dep string) error {
	if spec.Mandatory {
		return &codec.MissingDependencyError{Entity: string(spec.Entity), Field: spec.Field, Dependency: dep}
	}
	delete(out, spec.Field)
	delete(out, spec.source())
	return nil
}

// Encode converts derived values in a write payload to their stored form.
//
// Fields absent from payload are left alone. A selector-based field needs
// its selector in the same payload; without it the policy is unknown and
// MissingDependencyError is returned. Values that are already
// codec.StoredNumeric pass through unchanged.
func (r *Registry) Encode(entity model.EntityType, payload model.Row) (model.Row, error) {
	return r.encode(entity, payload, nil, true)
}

// EncodeScoped is Encode for update payloads: a selector missing from
// payload is looked up in scope, typically the write's where clause.
func (r *Registry) EncodeScoped(entity model.EntityType, payload, scope model.Row) (model.Row, error) {
	return r.encode(entity, payload, scope, true)
}

// EncodeFilter is Encode for where clauses: fields whose policy cannot be
// determined are left as given rather than rejected.
func (r *Registry) EncodeFilter(entity model.EntityType, filter model.Row) (model.Row, error) {
	return r.encode(entity, filter, nil, false)
}

func (r *Registry) encode(entity model.EntityType, payload, scope model.Row, strict bool) (model.Row, error) {
	if payload == nil {
		return nil, nil
	}
	lookup := payload
	if len(scope) > 0 {
		lookup = scope.Clone()
		for k, v := range payload {
			lookup[k] = v
		}
	}
	out := payload.Clone()
	for _, spec := range r.specsFor(entity) {
		v, ok := payload[spec.Field]
		if !ok || spec.Kind == Hidden {
			continue
		}
		src := spec.source()

		switch spec.Kind {
		case Review:
			stored, err := model.EncodeReviewOutcome(v)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", spec.Key(), err)
			}
			delete(out, spec.Field)
			out[src] = stored

		case Numeric:
			policy, known := spec.PolicyFor(lookup)
			if !known {
				if _, raw := v.(codec.StoredNumeric); raw || !strict {
					continue
				}
				return nil, &codec.MissingDependencyError{Entity: string(entity), Field: spec.Field, Dependency: spec.Selector.Field}
			}
			if v == nil && !spec.Nullable && strict {
				return nil, &codec.MissingDependencyError{Entity: string(entity), Field: spec.Field, Dependency: src}
			}
			stored, err := codec.EncodeValue(v, policy)
			if err != nil {
				var pe *codec.PrecisionLossError
				if errors.As(err, &pe) {
					pe.Entity, pe.Field = string(entity), spec.Field
				}
				return nil, fmt.Errorf("encode %s: %w", spec.Key(), err)
			}
			delete(out, spec.Field)
			out[src] = stored
		}
	}
	return out, nil
}

func toStored(v any) (codec.StoredNumeric, error) {
	switch x := v.(type) {
	case codec.StoredNumeric:
		return x, nil
	case *codec.StoredNumeric:
		if x == nil {
			return codec.Null(), nil
		}
		return *x, nil
	case int:
		return codec.FromInt64(int64(x)), nil
	}
	var n codec.StoredNumeric
	if err := n.Scan(v); err != nil {
		return codec.Null(), err
	}
	return n, nil
}
