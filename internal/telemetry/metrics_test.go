package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscores/internal/computed"
	"github.com/roach88/hiscores/internal/hooks"
	"github.com/roach88/hiscores/internal/jobs"
	"github.com/roach88/hiscores/internal/model"
)

var (
	_ hooks.Reporter    = (*Metrics)(nil)
	_ computed.Reporter = (*Metrics)(nil)
	_ jobs.Reporter     = (*Metrics)(nil)
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNew_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_HookCounters(t *testing.T) {
	m := newTestMetrics(t)
	key := hooks.Key{Entity: model.EntityPlayer, Operation: model.OpUpdate}

	m.Dispatched(key, 5*time.Millisecond)
	m.Dispatched(key, time.Millisecond)
	m.Suppressed(key)
	m.Failed(&hooks.HandlerFailure{Entity: model.EntityPlayer, Operation: model.OpUpdate, Panic: true})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatched.WithLabelValues("player", "update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suppressed.WithLabelValues("player", "update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerFailures.WithLabelValues("player", "update", "true")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.handlerFailures.WithLabelValues("player", "update", "false")))
}

func TestMetrics_CodecCounters(t *testing.T) {
	m := newTestMetrics(t)

	m.CorruptPayload(model.EntityNameChange, "review_context")
	m.PrecisionLoss(model.EntityPlayer, "exp")
	m.PrecisionLoss(model.EntityPlayer, "exp")

	expected := `
# HELP hiscores_codec_precision_loss_total Stored values outside the representable range.
# TYPE hiscores_codec_precision_loss_total counter
hiscores_codec_precision_loss_total{entity="player",field="exp"} 2
`
	require.NoError(t, testutil.CollectAndCompare(m.precisionLoss, strings.NewReader(expected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.corruptPayloads.WithLabelValues("name_change", "review_context")))
}

func TestMetrics_JobCounters(t *testing.T) {
	m := newTestMetrics(t)

	m.Processed(jobs.KindSyncAchievements, time.Millisecond, nil)
	m.Processed(jobs.KindSyncAchievements, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsProcessed.WithLabelValues("sync_achievements", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsProcessed.WithLabelValues("sync_achievements", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.jobDuration))
}

func TestMetrics_WiredIntoRouter(t *testing.T) {
	m := newTestMetrics(t)
	r := hooks.NewRouter(hooks.WithReporter(m))
	require.NoError(t, r.Register(model.EntitySnapshot, model.OpCreate, func(_ context.Context, _ model.WriteOperation) error {
		return errors.New("boom")
	}))

	r.Dispatch(context.Background(), model.WriteOperation{Entity: model.EntitySnapshot, Operation: model.OpCreate})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatched.WithLabelValues("snapshot", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerFailures.WithLabelValues("snapshot", "create", "false")))
}
