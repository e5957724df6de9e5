// Package config loads the YAML process configuration and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/caterya/internal/evaluator"
	"github.com/danielpatrickdp/caterya/internal/registry"
	"github.com/danielpatrickdp/caterya/internal/telemetry"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// #region defaults
// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Evaluator: evaluator.DefaultConfig(),
		Store:     StoreConfig{Path: "caterya.db"},
		Server: ServerConfig{
			HTTPAddr: "localhost:8080",
			GRPCAddr: "localhost:9090",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Tracing: telemetry.TraceConfig{ServiceName: "caterya", SamplingRate: 1},
	}
}

// #endregion defaults

// #region load
// Load reads path on top of Default, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if cfg, err = Decode(f); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode parses YAML over Default. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the CATERYA_* variables that getenv
// reports as non-empty.
func (c *Config) ApplyEnv(getenv func(string) string) {
	envOr := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}
	c.Store.Path = envOr(EnvDB, c.Store.Path)
	c.Evaluator.AggregationMethod = envOr(EnvAggregation, c.Evaluator.AggregationMethod)
	c.Server.HTTPAddr = envOr(EnvHTTPAddr, c.Server.HTTPAddr)
	c.Server.GRPCAddr = envOr(EnvGRPCAddr, c.Server.GRPCAddr)
	c.Logging.Level = envOr(EnvLogLevel, c.Logging.Level)
	c.Model.Addr = envOr(EnvModelAddr, c.Model.Addr)
}

// #endregion load

// #region validate
// Validate checks struct tags and pillar weight names. Aggregation names are
// left to the evaluator, which owns the fallback policy.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	pillars := registry.DefaultPillars()
	for name := range c.Evaluator.PillarWeights {
		if _, err := pillars.MetricsFor(name); err != nil {
			return fmt.Errorf("%w: pillar_weights: %v", ErrInvalid, err)
		}
	}
	return nil
}

// #endregion validate

// #region registry
// Registry returns the reference registry with the configured metric
// parameters applied.
func (c Config) Registry() (*registry.Registry, error) {
	r := registry.Default()
	for name, params := range c.Metrics {
		if err := r.Configure(name, params); err != nil {
			return nil, fmt.Errorf("configure %s: %w", name, err)
		}
		if _, err := r.Resolve(name); err != nil {
			return nil, fmt.Errorf("configure %s: %w", name, err)
		}
	}
	return r, nil
}

// #endregion registry
