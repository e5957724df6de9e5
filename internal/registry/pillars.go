package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/caterya/internal/metric"
)

// Reference pillar names.
const (
	PillarBias             = "bias"
	PillarInterpretability = "interpretability"
	PillarRobustness       = "robustness"
	PillarTransparency     = "transparency"
)

var (
	// ErrUnknownPillar matches any *UnknownPillarError.
	ErrUnknownPillar = errors.New("unknown pillar")

	// ErrDuplicatePillar is returned when a pillar is declared twice.
	ErrDuplicatePillar = errors.New("duplicate pillar")
)

// UnknownPillarError names the offending pillar and every known one.
type UnknownPillarError struct {
	Name  string
	Known []string
}

func (e *UnknownPillarError) Error() string {
	return fmt.Sprintf("unknown pillar %q (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e *UnknownPillarError) Is(target error) bool { return target == ErrUnknownPillar }

// Pillar is one named category and its ordered metric identifiers.
type Pillar struct {
	Name    string   `json:"name" yaml:"name"`
	Metrics []string `json:"metrics" yaml:"metrics"`
}

// Pillars is the static pillar grouping. Declaration order is kept so that
// iteration and logging are deterministic. A metric may appear in several
// pillars; nothing enforces exclusivity.
type Pillars struct {
	order   []string
	metrics map[string][]string
}

// NewPillars builds a grouping from an ordered declaration.
func NewPillars(decl ...Pillar) (*Pillars, error) {
	p := &Pillars{metrics: make(map[string][]string, len(decl))}
	for _, d := range decl {
		if _, exists := p.metrics[d.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePillar, d.Name)
		}
		ids := make([]string, len(d.Metrics))
		copy(ids, d.Metrics)
		p.order = append(p.order, d.Name)
		p.metrics[d.Name] = ids
	}
	return p, nil
}

// DefaultPillars returns the four reference pillars.
func DefaultPillars() *Pillars {
	p, err := NewPillars(
		Pillar{Name: PillarBias, Metrics: []string{
			metric.FairnessEnergyName, metric.SymmetryIndexName, metric.EthicalEnergyName,
		}},
		Pillar{Name: PillarInterpretability, Metrics: []string{
			metric.InformationAuthenticityName, metric.EthicalCoherenceName, metric.FeynmanTestName,
		}},
		Pillar{Name: PillarRobustness, Metrics: []string{
			metric.EthicalHorizonName, metric.EthicalGradientName, metric.HumanConstantName,
		}},
		Pillar{Name: PillarTransparency, Metrics: []string{
			metric.ProvenanceName, metric.MoralCurvatureName, metric.ContextualEthicsName,
		}},
	)
	if err != nil {
		panic(err)
	}
	return p
}

// ListPillars returns the pillar names in declaration order.
func (p *Pillars) ListPillars() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// MetricsFor returns the ordered metric identifiers of a pillar.
func (p *Pillars) MetricsFor(pillar string) ([]string, error) {
	ids, ok := p.metrics[pillar]
	if !ok {
		return nil, &UnknownPillarError{Name: pillar, Known: p.ListPillars()}
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// Catalog returns a copy of the full grouping in declaration order.
func (p *Pillars) Catalog() []Pillar {
	out := make([]Pillar, 0, len(p.order))
	for _, name := range p.order {
		ids, _ := p.MetricsFor(name)
		out = append(out, Pillar{Name: name, Metrics: ids})
	}
	return out
}

// Check verifies that every grouped identifier is registered in r.
func (p *Pillars) Check(r *Registry) error {
	for _, name := range p.order {
		for _, id := range p.metrics[name] {
			if !r.Has(id) {
				return fmt.Errorf("pillar %s: %w", name, &UnknownMetricError{Name: id, Known: r.Names()})
			}
		}
	}
	return nil
}
