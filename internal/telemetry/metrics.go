// Package telemetry exports operator-facing counters for hook dispatch, job
// processing and decode problems as Prometheus metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/hiscores/internal/hooks"
	"github.com/roach88/hiscores/internal/jobs"
	"github.com/roach88/hiscores/internal/model"
)

const namespace = "hiscores"

// Metrics implements hooks.Reporter, computed.Reporter and jobs.Reporter.
type Metrics struct {
	dispatched       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	suppressed       *prometheus.CounterVec
	handlerFailures  *prometheus.CounterVec
	corruptPayloads  *prometheus.CounterVec
	precisionLoss    *prometheus.CounterVec
	jobsProcessed    *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "dispatched_total",
			Help:      "Hook handler invocations.",
		}, []string{"entity", "operation"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "dispatch_duration_seconds",
			Help:      "Hook handler run time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "operation"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "suppressed_total",
			Help:      "Committed writes whose dispatch was suppressed.",
		}, []string{"entity", "operation"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "handler_failures_total",
			Help:      "Hook handlers that returned an error or panicked.",
		}, []string{"entity", "operation", "panic"}),
		corruptPayloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "corrupt_payloads_total",
			Help:      "Stored review payloads that could not be decoded and were read as null.",
		}, []string{"entity", "field"}),
		precisionLoss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "precision_loss_total",
			Help:      "Stored values outside the representable range.",
		}, []string{"entity", "field"}),
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Background jobs processed, by result.",
		}, []string{"kind", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Background job run time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{
		m.dispatched, m.dispatchDuration, m.suppressed, m.handlerFailures,
		m.corruptPayloads, m.precisionLoss, m.jobsProcessed, m.jobDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Dispatched records a handler invocation.
func (m *Metrics) Dispatched(key hooks.Key, d time.Duration) {
	m.dispatched.WithLabelValues(string(key.Entity), string(key.Operation)).Inc()
	m.dispatchDuration.WithLabelValues(string(key.Entity), string(key.Operation)).Observe(d.Seconds())
}

// Suppressed records a dispatch skipped because hooks were disabled.
func (m *Metrics) Suppressed(key hooks.Key) {
	m.suppressed.WithLabelValues(string(key.Entity), string(key.Operation)).Inc()
}

// Failed records a handler failure.
func (m *Metrics) Failed(f *hooks.HandlerFailure) {
	panicked := "false"
	if f.Panic {
		panicked = "true"
	}
	m.handlerFailures.WithLabelValues(string(f.Entity), string(f.Operation), panicked).Inc()
}

// CorruptPayload records an undecodable review payload.
func (m *Metrics) CorruptPayload(entity model.EntityType, field string) {
	m.corruptPayloads.WithLabelValues(string(entity), field).Inc()
}

// PrecisionLoss records a value that could not be decoded exactly.
func (m *Metrics) PrecisionLoss(entity model.EntityType, field string) {
	m.precisionLoss.WithLabelValues(string(entity), field).Inc()
}

// Processed records a finished job.
func (m *Metrics) Processed(kind jobs.Kind, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobsProcessed.WithLabelValues(string(kind), result).Inc()
	m.jobDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}
