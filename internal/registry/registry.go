// Package registry resolves metric identifiers to fresh metric instances and
// groups identifiers into pillars.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/danielpatrickdp/caterya/internal/metric"
)

var (
	// ErrUnknownMetric matches any *UnknownMetricError.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("metric already registered")

	// ErrNilConstructor is returned when registering a nil constructor.
	ErrNilConstructor = errors.New("metric constructor must not be nil")
)

// UnknownMetricError names the offending identifier and every known one.
type UnknownMetricError struct {
	Name  string
	Known []string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("unknown metric %q (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e *UnknownMetricError) Is(target error) bool { return target == ErrUnknownMetric }

// Constructor builds a fresh metric from its construction-time params.
type Constructor func(params metric.Params) (metric.Metric, error)

// Info describes a registered metric.
type Info struct {
	Name        string        `json:"name" yaml:"name"`
	Bounds      metric.Bounds `json:"bounds" yaml:"bounds"`
	Description string        `json:"description" yaml:"description"`
}

// Registry maps metric identifiers to constructors.
//
// Registration happens at startup; afterwards the registry is only read and
// is safe for concurrent use by many evaluation runs.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	params       map[string]metric.Params
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		params:       make(map[string]metric.Params),
	}
}

// Register adds a constructor under name.
func (r *Registry) Register(name string, c Constructor) error {
	if c == nil {
		return fmt.Errorf("%w: %s", ErrNilConstructor, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.constructors[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.constructors[name] = c
	return nil
}

// MustRegister registers a constructor and panics on error. Startup only.
func (r *Registry) MustRegister(name string, c Constructor) {
	if err := r.Register(name, c); err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
}

// Configure sets the construction params used by Resolve for name.
func (r *Registry) Configure(name string, params metric.Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.constructors[name]; !exists {
		return &UnknownMetricError{Name: name, Known: r.namesLocked()}
	}
	r.params[name] = params
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[name]
	return ok
}

// Resolve returns a fresh instance of the named metric.
func (r *Registry) Resolve(name string) (metric.Metric, error) {
	r.mu.RLock()
	c, ok := r.constructors[name]
	params := r.params[name]
	var known []string
	if !ok {
		known = r.namesLocked()
	}
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownMetricError{Name: name, Known: known}
	}
	m, err := c(params)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", name, err)
	}
	if err := m.Bounds().Validate(); err != nil {
		return nil, fmt.Errorf("construct %s: %w", name, err)
	}
	return m, nil
}

// Names returns every registered identifier in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info resolves name and reports its bounds and description.
func (r *Registry) Info(name string) (Info, error) {
	m, err := r.Resolve(name)
	if err != nil {
		return Info{}, err
	}
	info := Info{Name: name, Bounds: m.Bounds(), Description: "No description available"}
	if d, ok := m.(metric.Describer); ok && d.Description() != "" {
		info.Description = d.Description()
	}
	return info, nil
}

// Default returns a new registry holding the reference metrics.
func Default() *Registry {
	r := New()
	r.MustRegister(metric.FairnessEnergyName, metric.NewFairnessEnergy)
	r.MustRegister(metric.SymmetryIndexName, metric.NewSymmetryIndex)
	r.MustRegister(metric.EthicalEnergyName, metric.NewEthicalEnergy)

	r.MustRegister(metric.InformationAuthenticityName, metric.NewInformationAuthenticity)
	r.MustRegister(metric.EthicalCoherenceName, metric.NewEthicalCoherence)
	r.MustRegister(metric.FeynmanTestName, metric.NewFeynmanTest)

	r.MustRegister(metric.EthicalHorizonName, metric.NewEthicalHorizon)
	r.MustRegister(metric.EthicalGradientName, metric.NewEthicalGradient)
	r.MustRegister(metric.HumanConstantName, metric.NewHumanConstant)

	r.MustRegister(metric.ProvenanceName, metric.NewProvenance)
	r.MustRegister(metric.MoralCurvatureName, metric.NewMoralCurvature)
	r.MustRegister(metric.ContextualEthicsName, metric.NewContextualEthics)
	return r
}
