// Package aggregate reduces normalized pillar scores to a single open score.
package aggregate

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// harmonicEpsilon keeps the harmonic reducer finite on zero scores.
const harmonicEpsilon = 1e-10

// #region resolve
// Resolve maps a configured name to a reducer. An empty name selects the
// default. In strict mode an unsupported name is an error; otherwise it falls
// back to the default and the Choice records the fallback.
func Resolve(name string, strict bool) (Choice, error) {
	if name == "" {
		return Choice{Requested: string(DefaultMethod), Method: DefaultMethod}, nil
	}
	for _, m := range Methods() {
		if string(m) == name {
			return Choice{Requested: name, Method: m}, nil
		}
	}
	if strict {
		return Choice{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownAggregation, name, supported())
	}
	return Choice{Requested: name, Method: DefaultMethod, Fallback: true}, nil
}

func supported() string {
	names := make([]string, 0, len(Methods()))
	for _, m := range Methods() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

// #endregion resolve

// #region reduce
// Reduce applies m to scores in [0,1]. An empty input yields 0.
func Reduce(m Method, scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	switch m {
	case ArithmeticMean:
		return Mean(scores)
	case HarmonicMean:
		return harmonic(scores)
	default:
		return geometric(scores)
	}
}

// OpenScore reduces pillar scores and scales the result to [0,100].
func OpenScore(m Method, pillarScores []float64) float64 {
	s := Reduce(m, pillarScores) * 100
	switch {
	case math.IsNaN(s), s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}

// Mean is the correctly rounded arithmetic mean: the float64 inputs are
// summed exactly as rationals and rounded once, so the result does not depend
// on input order.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := new(big.Rat)
	term := new(big.Rat)
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return naiveMean(xs)
		}
		sum.Add(sum, term.SetFloat64(x))
	}
	sum.Quo(sum, new(big.Rat).SetInt64(int64(len(xs))))
	f, _ := sum.Float64()
	return f
}

func naiveMean(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// geometric is (prod s)^(1/n) computed in log space; any zero score yields 0.
func geometric(xs []float64) float64 {
	logSum := 0.0
	for _, x := range xs {
		if x <= 0 {
			return 0
		}
		logSum += math.Log(x)
	}
	return math.Exp(logSum / float64(len(xs)))
}

func harmonic(xs []float64) float64 {
	inv := 0.0
	for _, x := range xs {
		inv += 1 / (x + harmonicEpsilon)
	}
	return float64(len(xs)) / inv
}

// #endregion reduce
