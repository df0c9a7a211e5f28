package computed

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscores/internal/codec"
	"github.com/roach88/hiscores/internal/metric"
	"github.com/roach88/hiscores/internal/model"
)

type recordingReporter struct {
	mu        sync.Mutex
	corrupt   []string
	precision []string
}

func (r *recordingReporter) CorruptPayload(e model.EntityType, f string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.corrupt = append(r.corrupt, string(e)+"."+f)
}

func (r *recordingReporter) PrecisionLoss(e model.EntityType, f string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.precision = append(r.precision, string(e)+"."+f)
}

func newTestRegistry(t *testing.T) (*Registry, *recordingReporter) {
	t.Helper()
	rep := &recordingReporter{}
	reg, err := NewDefaultRegistry(metric.NewCatalog(), WithReporter(rep))
	require.NoError(t, err)
	return reg, rep
}

func TestResolve_RecordValueByMetricKind(t *testing.T) {
	reg, _ := newTestRegistry(t)

	computedRow, err := reg.Resolve(model.EntityRecord, model.Row{
		"id": int64(1), "metric": "ehp", "value": codec.FromInt64(12345),
	})
	require.NoError(t, err)
	assert.Equal(t, 1.2345, computedRow["value"])

	rawRow, err := reg.Resolve(model.EntityRecord, model.Row{
		"id": int64(2), "metric": "zulrah", "value": codec.FromInt64(12345),
	})
	require.NoError(t, err)
	assert.Equal(t, float64(12345), rawRow["value"])
}

func TestResolve_OmitsFieldWhenDependencyNotSelected(t *testing.T) {
	reg, _ := newTestRegistry(t)

	row, err := reg.Resolve(model.EntityRecord, model.Row{"id": int64(1), "value": codec.FromInt64(12345)})
	require.NoError(t, err)
	assert.False(t, row.Has("value"))
	assert.Equal(t, int64(1), row["id"])

	row, err = reg.Resolve(model.EntityPlayer, model.Row{"username": "zezima"})
	require.NoError(t, err)
	assert.Equal(t, model.Row{"username": "zezima"}, row)
}

func TestResolve_PrecisionLossSurfaced(t *testing.T) {
	reg, rep := newTestRegistry(t)

	_, err := reg.Resolve(model.EntitySnapshot, model.Row{
		"overall_experience": codec.MustParseNumeric("4611686018427387904"),
	})

	require.Error(t, err)
	var pe *codec.PrecisionLossError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "snapshot", pe.Entity)
	assert.Equal(t, "overall_experience", pe.Field)
	assert.Equal(t, []string{"snapshot.overall_experience"}, rep.precision)
}

func TestResolve_IsIdempotent(t *testing.T) {
	reg, _ := newTestRegistry(t)
	raw := model.Row{
		"id":                 int64(7),
		"exp":                codec.FromInt64(200_000_000),
		"ehp":                codec.FromInt64(15_000_000),
		"latest_snapshot_id": int64(3),
	}

	first, err := reg.Resolve(model.EntityPlayer, raw)
	require.NoError(t, err)
	second, err := reg.Resolve(model.EntityPlayer, raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, float64(200_000_000), first["exp"])
	assert.Equal(t, 1500.0, first["ehp"])
	assert.Equal(t, codec.FromInt64(200_000_000), raw["exp"], "input row must not be mutated")
}

func TestResolve_HiddenField(t *testing.T) {
	reg, _ := newTestRegistry(t)

	row, err := reg.Resolve(model.EntityPlayer, model.Row{"id": int64(1), "latest_snapshot_id": int64(9)})
	require.NoError(t, err)
	assert.False(t, row.Has("latest_snapshot_id"))
}

func TestResolve_NullableAndNull(t *testing.T) {
	reg, _ := newTestRegistry(t)

	row, err := reg.Resolve(model.EntityAchievement, model.Row{
		"threshold": codec.FromInt64(99),
		"accuracy":  codec.Null(),
	})
	require.NoError(t, err)
	assert.Equal(t, float64(99), row["threshold"])
	assert.True(t, row.Has("accuracy"))
	assert.Nil(t, row["accuracy"])

	row, err = reg.Resolve(model.EntityAchievement, model.Row{"threshold": nil})
	require.NoError(t, err)
	assert.False(t, row.Has("threshold"), "null non-nullable field is omitted")
}

func TestResolve_MandatorySurfacesMissingDependency(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Spec{
		Entity: model.EntityDelta, Field: "overall", Kind: Numeric,
		Policy: codec.Identity(), Mandatory: true,
	}))

	_, err := reg.Resolve(model.EntityDelta, model.Row{"id": int64(1)})
	require.Error(t, err)
	assert.True(t, codec.IsMissingDependency(err))

	_, err = reg.Resolve(model.EntityDelta, model.Row{"overall": nil})
	assert.True(t, codec.IsMissingDependency(err))
}

func TestResolve_ReviewOutcome(t *testing.T) {
	reg, rep := newTestRegistry(t)

	row, err := reg.Resolve(model.EntityNameChange, model.Row{
		"review_context": `{"kind":"deny","reason":"negative_gains"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, model.Deny("negative_gains"), row["review_context"])

	row, err = reg.Resolve(model.EntityNameChange, model.Row{"review_context": nil})
	require.NoError(t, err)
	assert.Nil(t, row["review_context"])

	row, err = reg.Resolve(model.EntityNameChange, model.Row{"review_context": `{"kind":"maybe"}`})
	require.NoError(t, err, "corrupt payloads are not errors")
	assert.Nil(t, row["review_context"])
	assert.Equal(t, []string{"name_change.review_context"}, rep.corrupt)
}

func TestRegister_Conflict(t *testing.T) {
	reg := NewRegistry()
	spec := Spec{Entity: model.EntityPlayer, Field: "exp", Kind: Numeric}

	require.NoError(t, reg.Register(spec))
	err := reg.Register(spec)

	require.Error(t, err)
	assert.True(t, model.IsRegistrationConflict(err))
}

func TestRegister_AfterSeal(t *testing.T) {
	reg := NewRegistry()
	reg.Seal()

	err := reg.Register(Spec{Entity: model.EntityPlayer, Field: "exp", Kind: Numeric})
	assert.ErrorIs(t, err, model.ErrSealed)
}

func TestRegister_InvalidSpec(t *testing.T) {
	reg := NewRegistry()

	require.Error(t, reg.Register(Spec{Entity: model.EntityPlayer, Kind: Numeric}))
	require.Error(t, reg.Register(Spec{Entity: model.EntityPlayer, Field: "ehp", Kind: Numeric, Policy: codec.FractionalRatio(0)}))
	require.Error(t, reg.Register(Spec{Entity: model.EntityPlayer, Field: "x"}))
}

func TestEncode_ScalesComputedFields(t *testing.T) {
	reg, _ := newTestRegistry(t)

	out, err := reg.Encode(model.EntityRecord, model.Row{"metric": "ehb", "value": 1.2345, "player_id": 1})
	require.NoError(t, err)
	assert.Equal(t, codec.FromInt64(12345), out["value"])
	assert.Equal(t, 1, out["player_id"])

	out, err = reg.Encode(model.EntityPlayer, model.Row{"exp": 13_034_431, "ehp": 10.5})
	require.NoError(t, err)
	assert.Equal(t, codec.FromInt64(13_034_431), out["exp"])
	assert.Equal(t, codec.FromInt64(105_000), out["ehp"])
}

func TestSelector_MetricCaseInsensitive(t *testing.T) {
	reg, _ := newTestRegistry(t)

	out, err := reg.Encode(model.EntityRecord, model.Row{"metric": "EHP", "value": 1.5})
	require.NoError(t, err)
	assert.Equal(t, codec.FromInt64(15_000), out["value"])

	row, err := reg.Resolve(model.EntityRecord, model.Row{
		"metric": " Ehb ", "value": codec.FromInt64(15_000),
	})
	require.NoError(t, err)
	assert.Equal(t, 1.5, row["value"])
}

func TestEncode_SelectorRequired(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Encode(model.EntityRecord, model.Row{"value": 1.5})
	assert.True(t, codec.IsMissingDependency(err))

	out, err := reg.EncodeFilter(model.EntityRecord, model.Row{"value": 1.5})
	require.NoError(t, err)
	assert.Equal(t, 1.5, out["value"])

	out, err = reg.Encode(model.EntityRecord, model.Row{"value": codec.FromInt64(3)})
	require.NoError(t, err)
	assert.Equal(t, codec.FromInt64(3), out["value"])
}

func TestEncode_PrecisionLoss(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Encode(model.EntityPlayer, model.Row{"exp": 1.5})
	require.Error(t, err)
	var pe *codec.PrecisionLossError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "exp", pe.Field)
}

func TestEncode_ReviewOutcome(t *testing.T) {
	reg, _ := newTestRegistry(t)

	out, err := reg.Encode(model.EntityNameChange, model.Row{"review_context": model.Skip("manual_review")})
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"skip","reason":"manual_review"}`, out["review_context"])

	out, err = reg.Encode(model.EntityNameChange, model.Row{"review_context": nil})
	require.NoError(t, err)
	assert.Nil(t, out["review_context"])

	_, err = reg.Encode(model.EntityNameChange, model.Row{"review_context": `{"kind":"nope"}`})
	assert.ErrorIs(t, err, model.ErrCorruptPayload)
}

func TestDefaultSpecs_HonorDenominatorOverride(t *testing.T) {
	catalog := metric.NewCatalog()
	require.NoError(t, catalog.SetDenominator("ehb", 100))

	reg, err := NewDefaultRegistry(catalog)
	require.NoError(t, err)

	row, err := reg.Resolve(model.EntityRecord, model.Row{"metric": "ehb", "value": codec.FromInt64(250)})
	require.NoError(t, err)
	assert.Equal(t, 2.5, row["value"])

	row, err = reg.Resolve(model.EntityRecord, model.Row{"metric": "ehp", "value": codec.FromInt64(250)})
	require.NoError(t, err)
	assert.Equal(t, 0.025, row["value"])
}

func TestSpec_DependsOn(t *testing.T) {
	reg, _ := newTestRegistry(t)

	deps := map[string][]string{}
	for _, s := range reg.Specs() {
		deps[s.Key()] = s.DependsOn()
	}
	assert.Equal(t, []string{"metric", "value"}, deps["record.value"])
	assert.Equal(t, []string{"exp"}, deps["player.exp"])
	assert.Nil(t, deps["player.latest_snapshot_id"])
}

func TestEncodeScoped_SelectorFromScope(t *testing.T) {
	reg, _ := newTestRegistry(t)

	out, err := reg.EncodeScoped(model.EntityRecord,
		model.Row{"value": 0.75},
		model.Row{"metric": "ehb", "period": "day"},
	)
	require.NoError(t, err)

	assert.Equal(t, "7500", out["value"].(codec.StoredNumeric).String())
	assert.NotContains(t, out, "metric")
	assert.NotContains(t, out, "period")
}

func TestEncodeScoped_PayloadSelectorWins(t *testing.T) {
	reg, _ := newTestRegistry(t)

	out, err := reg.EncodeScoped(model.EntityRecord,
		model.Row{"metric": "attack", "value": 42},
		model.Row{"metric": "ehb"},
	)
	require.NoError(t, err)

	assert.Equal(t, "42", out["value"].(codec.StoredNumeric).String())
}
