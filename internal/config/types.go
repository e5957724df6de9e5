package config

import (
	"errors"

	"github.com/danielpatrickdp/caterya/internal/evaluator"
	"github.com/danielpatrickdp/caterya/internal/metric"
	"github.com/danielpatrickdp/caterya/internal/telemetry"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// Environment overrides, applied after the file is read.
const (
	EnvDB          = "CATERYA_DB"
	EnvAggregation = "CATERYA_AGGREGATION"
	EnvHTTPAddr    = "CATERYA_HTTP_ADDR"
	EnvGRPCAddr    = "CATERYA_GRPC_ADDR"
	EnvLogLevel    = "CATERYA_LOG_LEVEL"
	EnvModelAddr   = "CATERYA_MODEL_ADDR"
)

// #region config
// Config is the whole process configuration.
type Config struct {
	Evaluator evaluator.Config `yaml:"evaluator"`

	// Metrics holds constructor parameters keyed by metric name.
	Metrics map[string]metric.Params `yaml:"metrics"`

	Store   StoreConfig           `yaml:"store"`
	Server  ServerConfig          `yaml:"server"`
	Model   ModelConfig           `yaml:"model"`
	Logging LoggingConfig         `yaml:"logging"`
	Tracing telemetry.TraceConfig `yaml:"tracing"`
}

// StoreConfig locates the run history database. An empty path disables
// persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds listen addresses for the serve command.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" validate:"required,hostname_port"`
	GRPCAddr string `yaml:"grpc_addr" validate:"omitempty,hostname_port"`
}

// ModelConfig points at a remote model service. Empty means the dataset
// must carry its own predictions.
type ModelConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// #endregion config
