package computed

import (
	"github.com/roach88/hiscores/internal/codec"
	"github.com/roach88/hiscores/internal/metric"
	"github.com/roach88/hiscores/internal/model"
)

// DefaultSpecs returns the derived fields of the persisted schema. Ratio
// denominators are read from catalog, so overrides must be applied to the
// catalog before calling.
func DefaultSpecs(catalog *metric.Catalog) []Spec {
	ehp := catalog.Policy("ehp")
	ehb := catalog.Policy("ehb")

	recordValue := &Selector{
		Field:     "metric",
		Policies:  make(map[string]codec.Policy),
		Default:   codec.Identity(),
		Normalize: metric.Normalize,
	}
	for _, m := range catalog.OfKind(metric.KindComputed) {
		recordValue.Policies[string(m)] = catalog.Policy(m)
	}

	identity := func(e model.EntityType, field string) Spec {
		return Spec{Entity: e, Field: field, Kind: Numeric, Policy: codec.Identity()}
	}
	ratio := func(e model.EntityType, field string, p codec.Policy) Spec {
		return Spec{Entity: e, Field: field, Kind: Numeric, Policy: p}
	}

	accuracy := identity(model.EntityAchievement, "accuracy")
	accuracy.Nullable = true

	return []Spec{
		identity(model.EntityPlayer, "exp"),
		ratio(model.EntityPlayer, "ehp", ehp),
		ratio(model.EntityPlayer, "ehb", ehb),
		ratio(model.EntityPlayer, "ttm", ehp),
		ratio(model.EntityPlayer, "tt200m", ehp),
		{Entity: model.EntityPlayer, Field: "latest_snapshot_id", Kind: Hidden},

		identity(model.EntitySnapshot, "overall_experience"),
		ratio(model.EntitySnapshot, "ehp_value", ehp),
		ratio(model.EntitySnapshot, "ehb_value", ehb),

		{Entity: model.EntityRecord, Field: "value", Kind: Numeric, Selector: recordValue},

		identity(model.EntityDelta, "overall"),
		ratio(model.EntityDelta, "ehp", ehp),
		ratio(model.EntityDelta, "ehb", ehb),

		identity(model.EntityAchievement, "threshold"),
		accuracy,

		{Entity: model.EntityNameChange, Field: "review_context", Kind: Review},
	}
}

// NewDefaultRegistry registers DefaultSpecs and seals the registry.
func NewDefaultRegistry(catalog *metric.Catalog, opts ...Option) (*Registry, error) {
	r := NewRegistry(opts...)
	if err := r.RegisterAll(DefaultSpecs(catalog)); err != nil {
		return nil, err
	}
	r.Seal()
	return r, nil
}
