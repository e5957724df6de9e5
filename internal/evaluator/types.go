package evaluator

import (
	"context"
	"errors"
	"time"

	"github.com/danielpatrickdp/caterya/internal/aggregate"
	"github.com/danielpatrickdp/caterya/internal/metric"
	"github.com/danielpatrickdp/caterya/internal/results"
)

// ErrInvalidConfig is returned by New for unusable configuration values.
var ErrInvalidConfig = errors.New("invalid evaluator config")

// #region config
// Config controls how an Evaluator runs and aggregates metrics.
type Config struct {
	// AggregationMethod names the open-score reducer. Unknown names fall back
	// to geometric_mean unless StrictAggregation is set.
	AggregationMethod string `yaml:"aggregation_method" json:"aggregation_method"`

	// PillarWeights are validated and recorded in run metadata. No reducer
	// applies them.
	PillarWeights map[string]float64 `yaml:"pillar_weights" json:"pillar_weights,omitempty"`

	StrictAggregation bool `yaml:"strict_aggregation" json:"strict_aggregation"`

	// Concurrency > 1 runs metrics in parallel, at most this many at once.
	Concurrency int `yaml:"concurrency" json:"concurrency" validate:"gte=0,lte=64"`

	// MetricTimeout bounds a single metric computation; 0 disables it.
	MetricTimeout time.Duration `yaml:"metric_timeout" json:"metric_timeout" validate:"gte=0"`
}

// DefaultConfig returns sequential execution with the geometric reducer.
func DefaultConfig() Config {
	return Config{
		AggregationMethod: string(aggregate.DefaultMethod),
		Concurrency:       1,
	}
}

// #endregion config

// #region request
// Request selects what one Evaluate call computes.
type Request struct {
	// Pillars to evaluate, in order. nil means every pillar; an empty
	// non-nil slice means none.
	Pillars []string `json:"pillars,omitempty"`

	// Metrics, when non-empty, is the exact work list and overrides the
	// pillar grouping for execution. Pillar scores still use Pillars.
	Metrics []string `json:"metrics,omitempty"`

	// Options are handed to every metric and recorded in metadata.
	Options metric.Options `json:"options,omitempty"`
}

// #endregion request

// #region run-store
// RunStore persists finished runs. *store.Store satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, r *results.Results) (string, error)
}

// #endregion run-store

// #region outcome
// outcome is what executing one work item produced.
type outcome struct {
	name     string
	bounds   metric.Bounds
	score    float64
	err      error
	duration time.Duration
}

// #endregion outcome
