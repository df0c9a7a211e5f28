package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/hiscores/internal/access"
	"github.com/roach88/hiscores/internal/codec"
	"github.com/roach88/hiscores/internal/computed"
	"github.com/roach88/hiscores/internal/config"
	"github.com/roach88/hiscores/internal/effects"
	"github.com/roach88/hiscores/internal/hooks"
	"github.com/roach88/hiscores/internal/jobs"
	"github.com/roach88/hiscores/internal/metric"
	"github.com/roach88/hiscores/internal/model"
	"github.com/roach88/hiscores/internal/store"
	"github.com/roach88/hiscores/internal/telemetry"
)

// App is the wired data-access stack used by commands.
type App struct {
	Catalog  *metric.Catalog
	Registry *computed.Registry
	Router   *hooks.Router
	Runner   *jobs.Runner
	Metrics  *telemetry.Metrics
	Gatherer prometheus.Gatherer
	Tracer   trace.Tracer
	Store    *store.Store
	Client   *access.Client

	provider *sdktrace.TracerProvider
}

const cliTracerName = "github.com/roach88/hiscores/internal/cli"

// Components builds everything but the store. Commands that only inspect
// registrations use it without touching a database.
func Components(cfg *config.Config) (*App, error) {
	catalog := metric.NewCatalog()
	if err := cfg.ApplyDenominators(catalog); err != nil {
		return nil, fmt.Errorf("apply denominators: %w", err)
	}

	reg := prometheus.NewRegistry()
	m, err := telemetry.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	registry, err := computed.NewDefaultRegistry(catalog, computed.WithReporter(m))
	if err != nil {
		return nil, fmt.Errorf("register computed fields: %w", err)
	}

	router := hooks.NewRouter(hooks.WithReporter(m), hooks.WithEnabled(cfg.HooksEnabled))
	runner := jobs.NewRunner(jobs.WithReporter(m))
	if err := effects.Register(router, runner); err != nil {
		return nil, fmt.Errorf("register hooks: %w", err)
	}
	router.Seal()
	m.Init(router.Registrations())

	tp := telemetry.NewTracerProvider()
	return &App{
		Catalog:  catalog,
		Registry: registry,
		Router:   router,
		Runner:   runner,
		Metrics:  m,
		Gatherer: reg,
		Tracer:   tp.Tracer(cliTracerName),
		provider: tp,
	}, nil
}

// OpenApp builds the full stack against the configured database.
func OpenApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app, err := Components(cfg)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = st
	app.Client = access.New(st, app.Registry, app.Router,
		access.WithTracer(app.provider.Tracer("github.com/roach88/hiscores/internal/access")))

	if err := effects.RegisterJobs(app.Runner, app.Client); err != nil {
		st.Close()
		return nil, fmt.Errorf("register jobs: %w", err)
	}
	return app, nil
}

// Close runs queued jobs, ends tracing and closes the database.
func (a *App) Close(ctx context.Context) {
	if n := a.Runner.Drain(ctx); n > 0 {
		slog.Debug("drained jobs", "count", n)
	}
	a.Runner.Close()
	if err := a.provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("error shutting down tracer provider", "error", err)
	}
	if a.Store == nil {
		return
	}
	if err := a.Store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		slog.Debug("opening database", "driver", cfg.Driver)
		return store.OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		slog.Debug("opening database", "driver", cfg.Driver, "path", cfg.DBPath)
		return store.Open(cfg.DBPath)
	}
}

// startSpan opens the command span and stamps its trace id on f.
func (a *App) startSpan(ctx context.Context, f *OutputFormatter, name string) (context.Context, trace.Span) {
	ctx, span := a.Tracer.Start(ctx, name)
	f.TraceID = span.SpanContext().TraceID().String()
	f.VerboseLog("trace_id=%s", f.TraceID)
	return ctx, span
}

// reportMetrics writes the metrics gathered during the command to the
// diagnostic writer when --verbose is set.
func (a *App) reportMetrics(f *OutputFormatter) {
	if !f.Verbose {
		return
	}
	f.VerboseLog("# metrics")
	if err := telemetry.WriteText(f.GetErrWriter(), a.Gatherer); err != nil {
		slog.Warn("failed to write metrics", "error", err)
	}
}

// errorCode maps an error to its CLI error code.
func errorCode(err error) string {
	var unknownEntity *store.UnknownEntityError
	var unknownField *store.UnknownFieldError
	var unknownMetric *metric.UnknownMetricError
	switch {
	case access.IsCommitted(err):
		return ErrCodeCommittedDecode
	case codec.IsPrecisionLoss(err):
		return ErrCodePrecisionLoss
	case codec.IsMissingDependency(err):
		return ErrCodeMissingDependency
	case store.IsNotFound(err):
		return ErrCodeNotFound
	case errors.Is(err, store.ErrNotUnique):
		return ErrCodeNotUnique
	case errors.As(err, &unknownEntity), errors.As(err, &unknownField), errors.As(err, &unknownMetric):
		return ErrCodeUnknownEntity
	case errors.Is(err, model.ErrCorruptPayload):
		return ErrCodeInvalidInput
	}
	return ErrCodeGeneric
}

// fail reports err through the formatter and returns the ExitError the
// command should exit with.
func fail(f *OutputFormatter, code int, message string, err error) error {
	details := map[string]string{"error": err.Error()}
	if ferr := f.Error(errorCode(err), message, details); ferr != nil {
		return ferr
	}
	return WrapExitError(code, message, err)
}
