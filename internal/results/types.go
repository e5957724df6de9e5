package results

import (
	"errors"
	"fmt"
)

// Metadata keys written by the evaluator.
const (
	KeyPillars             = "pillars"
	KeyAggregationMethod   = "aggregation_method"
	KeyAggregationFallback = "aggregation_fallback"
	KeyPillarWeights       = "pillar_weights"
	KeyOptions             = "options"
	KeyFailures            = "failures"
	KeyRunID               = "run_id"
)

// #region errors

// ErrSerialization matches any *SerializationError.
var ErrSerialization = errors.New("results serialization failed")

// SerializationError reports a malformed, missing or unwritable results document.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("results: %v", e.Err)
	}
	return fmt.Sprintf("results %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }

// #endregion errors

// #region canonical

// Canonical is the four-field document form of a result. Every field is
// always present when serialized.
type Canonical struct {
	PillarScores map[string]float64 `json:"pillar_scores" yaml:"pillar_scores"`
	MetricScores map[string]float64 `json:"metric_scores" yaml:"metric_scores"`
	OpenScore    float64            `json:"open_score" yaml:"open_score"`
	Metadata     map[string]any     `json:"metadata" yaml:"metadata"`
}

// #endregion canonical

// #region failure

// Failure records one metric that did not produce a score.
type Failure struct {
	Metric      string  `json:"metric" yaml:"metric"`
	Error       string  `json:"error" yaml:"error"`
	Placeholder float64 `json:"placeholder" yaml:"placeholder"`
}

// #endregion failure
