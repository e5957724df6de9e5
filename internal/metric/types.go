package metric

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// #region errors

var (
	// ErrInvalidBounds is returned when a metric declares min >= max.
	ErrInvalidBounds = errors.New("invalid metric bounds")

	// ErrMissingField is returned when a dataset lacks a field a metric requires.
	ErrMissingField = errors.New("dataset field missing")

	// ErrInvalidDataset is returned when dataset fields are not index-aligned.
	ErrInvalidDataset = errors.New("invalid dataset")

	// ErrComputation matches any *ComputationError.
	ErrComputation = errors.New("metric computation failed")

	// ErrInvalidParam is returned when a construction parameter has the wrong shape.
	ErrInvalidParam = errors.New("invalid metric parameter")
)

// ComputationError wraps a failure raised inside a metric's Compute.
type ComputationError struct {
	Metric string
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("compute %s: %v", e.Metric, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

func (e *ComputationError) Is(target error) bool { return target == ErrComputation }

// #endregion errors

// #region bounds

// Bounds is the closed score range a metric declares.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// UnitBounds is the [0,1] range every reference metric uses.
var UnitBounds = Bounds{Min: 0, Max: 1}

// NewBounds returns bounds after checking min < max.
func NewBounds(min, max float64) (Bounds, error) {
	b := Bounds{Min: min, Max: max}
	if err := b.Validate(); err != nil {
		return Bounds{}, err
	}
	return b, nil
}

// Validate reports whether the range is usable.
func (b Bounds) Validate() error {
	if math.IsNaN(b.Min) || math.IsNaN(b.Max) || !(b.Min < b.Max) {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidBounds, b.Min, b.Max)
	}
	return nil
}

// Clamp clips x into [Min, Max]. NaN clamps to Min.
func (b Bounds) Clamp(x float64) float64 {
	if math.IsNaN(x) || x < b.Min {
		return b.Min
	}
	if x > b.Max {
		return b.Max
	}
	return x
}

// Normalize maps x to its position inside the range, clipped to [0,1].
func (b Bounds) Normalize(x float64) float64 {
	if !(b.Min < b.Max) {
		return 0
	}
	n := (x - b.Min) / (b.Max - b.Min)
	switch {
	case math.IsNaN(n), n < 0:
		return 0
	case n > 1:
		return 1
	}
	return n
}

// #endregion bounds

// #region options

// Options carries per-call extra options handed to every Compute call.
type Options map[string]any

// Float returns a numeric option or fallback when absent or not numeric.
func (o Options) Float(key string, fallback float64) float64 {
	if v, ok := toFloat(o[key]); ok {
		return v
	}
	return fallback
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Params is the construction-time configuration bag of a metric.
type Params map[string]any

// Float reads a scalar parameter.
func (p Params) Float(key string, fallback float64) (float64, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	v, ok := toFloat(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidParam, key, raw)
	}
	return v, nil
}

// Floats reads a numeric vector parameter.
func (p Params) Floats(key string, fallback []float64) ([]float64, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		out := make([]float64, len(fallback))
		copy(out, fallback)
		return out, nil
	}
	switch vs := raw.(type) {
	case []float64:
		out := make([]float64, len(vs))
		copy(out, vs)
		return out, nil
	case []any:
		out := make([]float64, len(vs))
		for i, item := range vs {
			v, ok := toFloat(item)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a number, got %T", ErrInvalidParam, key, i, item)
			}
			out[i] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s must be a list of numbers, got %T", ErrInvalidParam, key, raw)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// #endregion options
