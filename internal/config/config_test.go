package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/caterya/internal/metric"
	"github.com/danielpatrickdp/caterya/internal/registry"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "geometric_mean", cfg.Evaluator.AggregationMethod)
	assert.Equal(t, 1, cfg.Evaluator.Concurrency)
}

func TestDecodeOverDefaults(t *testing.T) {
	src := `
evaluator:
  aggregation_method: harmonic_mean
  concurrency: 4
  metric_timeout: 2s
  pillar_weights:
    bias: 2
metrics:
  fairness_energy:
    lambda: 1
store:
  path: /tmp/runs.db
logging:
  format: json
`
	cfg, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "harmonic_mean", cfg.Evaluator.AggregationMethod)
	assert.Equal(t, 4, cfg.Evaluator.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Evaluator.MetricTimeout)
	assert.Equal(t, 2.0, cfg.Evaluator.PillarWeights["bias"])
	assert.Equal(t, "/tmp/runs.db", cfg.Store.Path)
	assert.Equal(t, "json", cfg.Logging.Format)
	// untouched sections keep their defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddr)
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("evaluator:\n  aggregation: x\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative concurrency", func(c *Config) { c.Evaluator.Concurrency = -1 }},
		{"huge concurrency", func(c *Config) { c.Evaluator.Concurrency = 1000 }},
		{"negative timeout", func(c *Config) { c.Evaluator.MetricTimeout = -time.Second }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"missing http addr", func(c *Config) { c.Server.HTTPAddr = "" }},
		{"bad grpc addr", func(c *Config) { c.Server.GRPCAddr = "nope" }},
		{"sampling above one", func(c *Config) { c.Tracing.SamplingRate = 1.5 }},
		{"unknown pillar weight", func(c *Config) { c.Evaluator.PillarWeights = map[string]float64{"speed": 1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestUnknownAggregationPassesValidation(t *testing.T) {
	cfg := Default()
	cfg.Evaluator.AggregationMethod = "median"
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvDB:          "env.db",
		EnvAggregation: "arithmetic_mean",
		EnvHTTPAddr:    ":9000",
		EnvLogLevel:    "debug",
		EnvModelAddr:   "model:50051",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "env.db", cfg.Store.Path)
	assert.Equal(t, "arithmetic_mean", cfg.Evaluator.AggregationMethod)
	assert.Equal(t, ":9000", cfg.Server.HTTPAddr)
	assert.Equal(t, "localhost:9090", cfg.Server.GRPCAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "model:50051", cfg.Model.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caterya.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  path: file.db\n"), 0o644))
	t.Setenv(EnvDB, "")
	t.Setenv(EnvAggregation, "harmonic_mean")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file.db", cfg.Store.Path)
	assert.Equal(t, "harmonic_mean", cfg.Evaluator.AggregationMethod)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestRegistryAppliesParams(t *testing.T) {
	cfg := Default()
	cfg.Metrics = map[string]metric.Params{
		metric.FairnessEnergyName: {"lambda": 2},
	}
	r, err := cfg.Registry()
	require.NoError(t, err)
	assert.True(t, r.Has(metric.FairnessEnergyName))
}

func TestRegistryRejectsBadParams(t *testing.T) {
	cfg := Default()
	cfg.Metrics = map[string]metric.Params{
		metric.FairnessEnergyName: {"lambda": "high"},
	}
	_, err := cfg.Registry()
	require.ErrorIs(t, err, metric.ErrInvalidParam)

	cfg.Metrics = map[string]metric.Params{"speed": {}}
	_, err = cfg.Registry()
	require.ErrorIs(t, err, registry.ErrUnknownMetric)
}
