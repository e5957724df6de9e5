package metric

import (
	"context"
	"fmt"
	"math"
)

// Bias pillar metric identifiers.
const (
	FairnessEnergyName = "fairness_energy"
	SymmetryIndexName  = "symmetry_index"
	EthicalEnergyName  = "ethical_energy"
)

const logEpsilon = 1e-10

// #region fairness-energy

// FairnessEnergy treats group disparity as potential energy:
// E(g) = -log P(fair|g) + lambda*|mean(g) - mean|, weighted by group size,
// and reports 1/(1+E) so that higher is fairer.
type FairnessEnergy struct {
	Base
	lambda float64
}

// NewFairnessEnergy reads the optional "lambda" parameter (default 0.5).
func NewFairnessEnergy(p Params) (Metric, error) {
	lambda, err := p.Float("lambda", 0.5)
	if err != nil {
		return nil, err
	}
	base, err := NewBase(UnitBounds, "Bias as energy wells in the fairness landscape; higher means lower bias energy.")
	if err != nil {
		return nil, err
	}
	return &FairnessEnergy{Base: base, lambda: lambda}, nil
}

func (m *FairnessEnergy) Name() string { return FairnessEnergyName }

func (m *FairnessEnergy) Compute(ctx context.Context, model Model, ds *Dataset, _ Options) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	energy, err := fairnessEnergy(ctx, model, ds, m.lambda)
	if err != nil {
		return 0, err
	}
	return m.ValidateScore(1 / (1 + energy)), nil
}

func (m *FairnessEnergy) Interpret(value float64) string {
	switch {
	case value > 0.85:
		return "Low bias energy - Excellent fairness"
	case value > 0.7:
		return "Moderate bias energy - Good fairness"
	case value > 0.5:
		return "Elevated bias energy - Fairness concerns"
	default:
		return "High bias energy - Significant fairness issues"
	}
}

func fairnessEnergy(ctx context.Context, model Model, ds *Dataset, lambda float64) (float64, error) {
	if err := ds.Require(FieldGroups); err != nil {
		return 0, err
	}
	preds, err := Predictions(ctx, model, ds)
	if err != nil {
		return 0, err
	}
	if len(preds) != len(ds.Groups) {
		return 0, fmt.Errorf("%w: %d predictions for %d group labels", ErrInvalidDataset, len(preds), len(ds.Groups))
	}

	overall := mean(preds)
	groups, index := ds.GroupIndex()
	total := 0.0
	for _, g := range groups {
		idx := index[g]
		groupMean := 0.0
		for _, i := range idx {
			groupMean += preds[i]
		}
		groupMean /= float64(len(idx))

		gap := math.Abs(groupMean - overall)
		fairProb := 1 / (1 + gap)
		energy := -math.Log(fairProb+logEpsilon) + lambda*gap
		total += energy * float64(len(idx)) / float64(len(preds))
	}
	return total, nil
}

// #endregion fairness-energy

// #region symmetry-index

// SymmetryIndex measures invariance under group relabeling:
// S = 1 - std(acc_g) / mean(acc_g) over per-group accuracy.
type SymmetryIndex struct {
	Base
	threshold float64
}

// NewSymmetryIndex reads the optional "threshold" used to binarize
// predictions and labels (default 0.5).
func NewSymmetryIndex(p Params) (Metric, error) {
	threshold, err := p.Float("threshold", 0.5)
	if err != nil {
		return nil, err
	}
	base, err := NewBase(UnitBounds, "Fairness as symmetry of per-group accuracy; 1 means no group disparity.")
	if err != nil {
		return nil, err
	}
	return &SymmetryIndex{Base: base, threshold: threshold}, nil
}

func (m *SymmetryIndex) Name() string { return SymmetryIndexName }

func (m *SymmetryIndex) Compute(ctx context.Context, model Model, ds *Dataset, _ Options) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := ds.Require(FieldLabels, FieldGroups); err != nil {
		return 0, err
	}
	preds, err := Predictions(ctx, model, ds)
	if err != nil {
		return 0, err
	}
	if len(preds) != len(ds.Labels) {
		return 0, fmt.Errorf("%w: %d predictions for %d labels", ErrInvalidDataset, len(preds), len(ds.Labels))
	}

	groups, index := ds.GroupIndex()
	accuracies := make([]float64, 0, len(groups))
	for _, g := range groups {
		correct := 0
		for _, i := range index[g] {
			if (preds[i] >= m.threshold) == (ds.Labels[i] >= m.threshold) {
				correct++
			}
		}
		accuracies = append(accuracies, float64(correct)/float64(len(index[g])))
	}

	mu := mean(accuracies)
	return m.ValidateScore(1 - stddev(accuracies, mu)/(mu+1e-6)), nil
}

func (m *SymmetryIndex) Interpret(value float64) string {
	switch {
	case value > 0.9:
		return "Excellent symmetry - No significant group disparities"
	case value > 0.7:
		return "Good symmetry - Minor group differences"
	case value > 0.5:
		return "Moderate asymmetry - Notable group disparities"
	case value > 0.3:
		return "Poor symmetry - Significant group-based discrimination"
	default:
		return "Critical asymmetry - Severe group-based discrimination"
	}
}

// #endregion symmetry-index

// #region ethical-energy

// EthicalEnergy combines compute cost, bias energy and societal impact:
// score = 1 - (w0*E_compute + w1*E_bias + w2*E_impact).
// The weights are taken as given; they are not required to sum to one.
type EthicalEnergy struct {
	Base
	weights [3]float64
	lambda  float64
}

const (
	defaultComputeEnergy = 0.5
	defaultImpactEnergy  = 0.3
	parameterCeiling     = 1e9
)

// NewEthicalEnergy reads "weights" (three numbers, default 0.3, 0.4, 0.3)
// and the "lambda" forwarded to the bias term.
func NewEthicalEnergy(p Params) (Metric, error) {
	ws, err := p.Floats("weights", []float64{0.3, 0.4, 0.3})
	if err != nil {
		return nil, err
	}
	if len(ws) != 3 {
		return nil, fmt.Errorf("%w: weights needs 3 entries [compute, bias, impact], got %d", ErrInvalidParam, len(ws))
	}
	lambda, err := p.Float("lambda", 0.5)
	if err != nil {
		return nil, err
	}
	base, err := NewBase(UnitBounds, "Weighted combination of compute, bias and impact energy; higher is better.")
	if err != nil {
		return nil, err
	}
	return &EthicalEnergy{Base: base, weights: [3]float64{ws[0], ws[1], ws[2]}, lambda: lambda}, nil
}

func (m *EthicalEnergy) Name() string { return EthicalEnergyName }

func (m *EthicalEnergy) Compute(ctx context.Context, model Model, ds *Dataset, _ Options) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	computeEnergy := defaultComputeEnergy
	if pc, ok := model.(ParameterCounter); ok {
		computeEnergy = math.Min(float64(pc.ParameterCount())/parameterCeiling, 1)
	}

	energy, err := fairnessEnergy(ctx, model, ds, m.lambda)
	if err != nil {
		return 0, fmt.Errorf("bias energy: %w", err)
	}
	biasEnergy := 1 - 1/(1+energy)

	total := m.weights[0]*computeEnergy + m.weights[1]*biasEnergy + m.weights[2]*defaultImpactEnergy
	return m.ValidateScore(1 - total), nil
}

// #endregion ethical-energy

// #region helpers

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation around mu.
func stddev(xs []float64, mu float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += (x - mu) * (x - mu)
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// #endregion helpers
