package metric

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// Interpretability, robustness and transparency metric identifiers.
const (
	InformationAuthenticityName = "information_authenticity"
	EthicalCoherenceName        = "ethical_coherence"
	FeynmanTestName             = "feynman_test"
	EthicalHorizonName          = "ethical_horizon"
	EthicalGradientName         = "ethical_gradient"
	HumanConstantName           = "human_constant"
	ProvenanceName              = "provenance"
	MoralCurvatureName          = "moral_curvature"
	ContextualEthicsName        = "contextual_ethics"
)

// #region band-metric

// BandMetric is a placeholder estimator reporting a score inside a fixed
// sub-band [floor, floor+span] of [0,1]. The position inside the band is a
// deterministic function of the dataset fingerprint, the metric name and
// the optional "seed" call option.
type BandMetric struct {
	Base
	name  string
	floor float64
	span  float64
}

// NewBandMetric builds a band estimator; "floor" and "span" params override
// the defaults.
func NewBandMetric(name, description string, floor, span float64, p Params) (Metric, error) {
	f, err := p.Float("floor", floor)
	if err != nil {
		return nil, err
	}
	s, err := p.Float("span", span)
	if err != nil {
		return nil, err
	}
	base, err := NewBase(UnitBounds, description)
	if err != nil {
		return nil, err
	}
	return &BandMetric{Base: base, name: name, floor: f, span: s}, nil
}

func (m *BandMetric) Name() string { return m.name }

func (m *BandMetric) Compute(ctx context.Context, _ Model, ds *Dataset, opts Options) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if ds != nil {
		if err := ds.Validate(); err != nil {
			return 0, err
		}
	}
	seed := fingerprint(m.name, ds, uint64(opts.Float("seed", 0)))
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return m.ValidateScore(m.floor + r.Float64()*m.span), nil
}

// #endregion band-metric

// #region constructors

func bandConstructor(name, description string, floor, span float64) func(Params) (Metric, error) {
	return func(p Params) (Metric, error) {
		return NewBandMetric(name, description, floor, span, p)
	}
}

var (
	NewInformationAuthenticity = bandConstructor(InformationAuthenticityName, "Genuine understanding versus pattern matching.", 0.75, 0.15)
	NewEthicalCoherence        = bandConstructor(EthicalCoherenceName, "Stability of ethical reasoning under pressure.", 0.70, 0.20)
	NewFeynmanTest             = bandConstructor(FeynmanTestName, "Whether the model can explain its reasoning simply.", 0.65, 0.25)
	NewEthicalHorizon          = bandConstructor(EthicalHorizonName, "Distance from ethical points of no return.", 0.72, 0.18)
	NewEthicalGradient         = bandConstructor(EthicalGradientName, "Rate of ethical decay under adversarial conditions.", 0.68, 0.22)
	NewHumanConstant           = bandConstructor(HumanConstantName, "Stability of human values across interactions.", 0.80, 0.15)
	NewProvenance              = bandConstructor(ProvenanceName, "Traceability of outputs to their origins.", 0.70, 0.20)
	NewMoralCurvature          = bandConstructor(MoralCurvatureName, "Adaptability to diverse ethical frameworks.", 0.65, 0.25)
	NewContextualEthics        = bandConstructor(ContextualEthicsName, "Decision quality across diverse contexts.", 0.73, 0.17)
)

// #endregion constructors

// #region fingerprint

func fingerprint(name string, ds *Dataset, salt uint64) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], salt)
	h.Write(buf[:])
	if ds == nil {
		return h.Sum64()
	}
	for _, p := range ds.Predictions {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p))
		h.Write(buf[:])
	}
	for _, l := range ds.Labels {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(l))
		h.Write(buf[:])
	}
	for _, g := range ds.Groups {
		h.Write([]byte(g))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// #endregion fingerprint
