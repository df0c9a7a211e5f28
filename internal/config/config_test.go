package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscores/internal/metric"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "hiscores.db", cfg.DBPath)
	assert.True(t, cfg.HooksEnabled)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Metrics.Denominators)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HISCORES_DB_DRIVER", "postgres")
	t.Setenv("HISCORES_POSTGRES_DSN", "postgres://localhost/hiscores")
	t.Setenv("HISCORES_HOOKS_ENABLED", "false")
	t.Setenv("HISCORES_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "postgres://localhost/hiscores", cfg.PostgresDSN)
	assert.False(t, cfg.HooksEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("HISCORES_HOOKS_ENABLED", "sometimes")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoad_PostgresNeedsDSN(t *testing.T) {
	t.Setenv("HISCORES_DB_DRIVER", "postgres")

	_, err := Load()
	assert.ErrorContains(t, err, "HISCORES_POSTGRES_DSN")
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("HISCORES_DB_DRIVER", "mysql")

	_, err := Load()
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestLoad_UnknownLogLevel(t *testing.T) {
	t.Setenv("HISCORES_LOG_LEVEL", "loud")

	_, err := Load()
	assert.ErrorContains(t, err, "unknown log level")
}

func TestLoad_MetricsFile(t *testing.T) {
	t.Setenv("HISCORES_METRICS_FILE", writeFile(t, "denominators:\n  ehp: 100000\n  ehb: 1000\n"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"ehp": 100000, "ehb": 1000}, cfg.Metrics.Denominators)
}

func TestLoad_MetricsFileRejectsNonPositive(t *testing.T) {
	t.Setenv("HISCORES_METRICS_FILE", writeFile(t, "denominators:\n  ehp: 0\n"))

	_, err := Load()
	assert.ErrorContains(t, err, "must be positive")
}

func TestLoadMetricsFile_UnknownKey(t *testing.T) {
	_, err := LoadMetricsFile(writeFile(t, "denominator:\n  ehp: 10\n"))
	assert.ErrorContains(t, err, "failed to parse metrics file")
}

func TestLoadMetricsFile_Missing(t *testing.T) {
	_, err := LoadMetricsFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read metrics file")
}

func TestApplyDenominators(t *testing.T) {
	cfg := &Config{Metrics: MetricsFile{Denominators: map[string]int64{"EHP": 100000}}}
	catalog := metric.NewCatalog()

	require.NoError(t, cfg.ApplyDenominators(catalog))

	assert.Equal(t, int64(100000), catalog.Denominator("ehp"))
	assert.Equal(t, int64(10_000), catalog.Denominator("ehb"))
}

func TestApplyDenominators_RawMetricRejected(t *testing.T) {
	cfg := &Config{Metrics: MetricsFile{Denominators: map[string]int64{"attack": 10}}}

	assert.Error(t, cfg.ApplyDenominators(metric.NewCatalog()))
}

func TestApplyDenominators_UnknownMetric(t *testing.T) {
	cfg := &Config{Metrics: MetricsFile{Denominators: map[string]int64{"sailing": 10}}}

	assert.Error(t, cfg.ApplyDenominators(metric.NewCatalog()))
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
