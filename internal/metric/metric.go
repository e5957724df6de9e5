// Package metric defines the scoring-unit contract hosted by the evaluation
// pipeline, the dataset and model shapes it consumes, and the reference
// metrics grouped under the bias, interpretability, robustness and
// transparency pillars.
package metric

import (
	"context"
	"math"
)

// #region metric

// Metric is a named, self-contained scoring unit.
//
// Compute must treat model and ds as read-only, must not keep mutable state
// between calls, and must route its final value through the bounds clamp
// (Base.ValidateScore) before returning it. Failures are reported as errors;
// a NaN score is treated as one.
type Metric interface {
	Name() string
	Bounds() Bounds
	Compute(ctx context.Context, model Model, ds *Dataset, opts Options) (float64, error)
	Interpret(value float64) string
}

// Describer is implemented by metrics that carry a human-readable summary.
type Describer interface {
	Description() string
}

// #endregion metric

// #region base

// Base supplies the shared bounds, clamping and banding behavior. Concrete
// metrics embed it and override Interpret when they need custom wording.
type Base struct {
	bounds      Bounds
	description string
}

// NewBase builds a Base after checking the bounds.
func NewBase(bounds Bounds, description string) (Base, error) {
	if err := bounds.Validate(); err != nil {
		return Base{}, err
	}
	return Base{bounds: bounds, description: description}, nil
}

// Bounds returns the declared score range.
func (b Base) Bounds() Bounds { return b.bounds }

// Description returns the metric summary.
func (b Base) Description() string { return b.description }

// ValidateScore clamps x into the declared range. NaN is returned unchanged
// so the caller can report it as a failed computation.
func (b Base) ValidateScore(x float64) float64 {
	if math.IsNaN(x) {
		return x
	}
	return b.bounds.Clamp(x)
}

// Interpret applies the default five-band policy.
func (b Base) Interpret(value float64) string { return Interpret(b.bounds, value) }

// #endregion base

// #region bands

// Band labels of the default interpretation policy.
const (
	BandExcellent = "Excellent"
	BandGood      = "Good"
	BandModerate  = "Moderate"
	BandPoor      = "Poor"
	BandCritical  = "Critical"
	BandUndefined = "Undefined"
)

// Interpret maps the position of value inside b to one of five ordered
// bands. Degenerate bounds have no defined position.
func Interpret(b Bounds, value float64) string {
	if b.Validate() != nil {
		return BandUndefined
	}
	normalized := (value - b.Min) / (b.Max - b.Min)
	switch {
	case normalized >= 0.9:
		return BandExcellent
	case normalized >= 0.7:
		return BandGood
	case normalized >= 0.5:
		return BandModerate
	case normalized >= 0.3:
		return BandPoor
	default:
		return BandCritical
	}
}

// #endregion bands
