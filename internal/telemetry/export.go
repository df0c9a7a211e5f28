package telemetry

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/roach88/hiscores/internal/hooks"
)

// Init creates the dispatch and failure series of every registered hook at
// zero, so they are exported before the first dispatch.
func (m *Metrics) Init(keys []hooks.Key) {
	for _, k := range keys {
		entity, op := string(k.Entity), string(k.Operation)
		m.dispatched.WithLabelValues(entity, op)
		m.suppressed.WithLabelValues(entity, op)
		m.handlerFailures.WithLabelValues(entity, op, "false")
		m.handlerFailures.WithLabelValues(entity, op, "true")
	}
}

// WriteText writes every family gathered from g in the Prometheus text
// exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// NewTracerProvider returns an always-sampling SDK provider. No exporter is
// attached: spans get real trace ids so command output and logs of one
// invocation can be correlated.
func NewTracerProvider() *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
}
