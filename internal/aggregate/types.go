package aggregate

import "errors"

// #region method
// Method names an open-score reducer.
type Method string

const (
	ArithmeticMean Method = "arithmetic_mean"
	GeometricMean  Method = "geometric_mean"
	HarmonicMean   Method = "harmonic_mean"
)

// DefaultMethod is used when no method is configured.
const DefaultMethod = GeometricMean

// Methods lists every supported reducer.
func Methods() []Method {
	return []Method{ArithmeticMean, GeometricMean, HarmonicMean}
}

// #endregion method

// ErrUnknownAggregation is returned by strict resolution of an unsupported method.
var ErrUnknownAggregation = errors.New("unknown aggregation method")

// #region choice
// Choice is the outcome of resolving a configured method name.
type Choice struct {
	Requested string
	Method    Method
	Fallback  bool // requested name unsupported, DefaultMethod used instead
}

// #endregion choice
