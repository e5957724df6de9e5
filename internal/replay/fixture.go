package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danielpatrickdp/caterya/internal/dataset"
	"github.com/danielpatrickdp/caterya/internal/evaluator"
	"github.com/danielpatrickdp/caterya/internal/metric"
)

// ErrInvalidFixture marks fixture files that cannot be turned into cases.
var ErrInvalidFixture = errors.New("invalid fixture")

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string        `json:"description"`
	Config      FixtureConfig `json:"config"`
	Cases       []FixtureCase `json:"cases"`
}

// FixtureConfig mirrors evaluator.Config with JSON-friendly durations.
// Zero values keep the evaluator defaults.
type FixtureConfig struct {
	AggregationMethod string             `json:"aggregation_method"`
	PillarWeights     map[string]float64 `json:"pillar_weights"`
	StrictAggregation bool               `json:"strict_aggregation"`
	Concurrency       int                `json:"concurrency"`
	MetricTimeout     string             `json:"metric_timeout"`
}

// FixtureCase names exactly one dataset source: inline, a file path
// relative to the fixture, or a synthetic spec.
type FixtureCase struct {
	CaseID      string          `json:"case_id"`
	Dataset     *metric.Dataset `json:"dataset,omitempty"`
	DatasetPath string          `json:"dataset_path,omitempty"`
	Synthetic   *dataset.Spec   `json:"synthetic,omitempty"`

	Pillars     []string       `json:"pillars,omitempty"`
	Metrics     []string       `json:"metrics,omitempty"`
	Options     metric.Options `json:"options,omitempty"`
	Aggregation string         `json:"aggregation_method,omitempty"`
	Expect      Expectation    `json:"expect"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file. Relative dataset paths
// are resolved against the fixture's directory.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i := range f.Cases {
		if p := f.Cases[i].DatasetPath; p != "" && !filepath.IsAbs(p) {
			f.Cases[i].DatasetPath = filepath.Join(dir, p)
		}
	}
	return &f, nil
}

// ToReplayConfig converts a FixtureConfig to a replay Config.
func (fc *FixtureConfig) ToReplayConfig() (Config, error) {
	cfg := DefaultConfig()
	if fc.AggregationMethod != "" {
		cfg.Evaluator.AggregationMethod = fc.AggregationMethod
	}
	if fc.Concurrency != 0 {
		cfg.Evaluator.Concurrency = fc.Concurrency
	}
	if fc.MetricTimeout != "" {
		d, err := time.ParseDuration(fc.MetricTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("%w: metric_timeout: %v", ErrInvalidFixture, err)
		}
		cfg.Evaluator.MetricTimeout = d
	}
	cfg.Evaluator.PillarWeights = fc.PillarWeights
	cfg.Evaluator.StrictAggregation = fc.StrictAggregation
	return cfg, nil
}

// ToCase converts a FixtureCase to a domain Case, loading or generating its
// dataset.
func (fc *FixtureCase) ToCase() (Case, error) {
	sources := 0
	for _, set := range []bool{fc.Dataset != nil, fc.DatasetPath != "", fc.Synthetic != nil} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return Case{}, fmt.Errorf("%w: case %q needs exactly one of dataset, dataset_path, synthetic", ErrInvalidFixture, fc.CaseID)
	}

	var ds *metric.Dataset
	switch {
	case fc.Dataset != nil:
		if err := fc.Dataset.Validate(); err != nil {
			return Case{}, fmt.Errorf("case %q: %w", fc.CaseID, err)
		}
		ds = fc.Dataset
	case fc.DatasetPath != "":
		loaded, err := dataset.Load(fc.DatasetPath)
		if err != nil {
			return Case{}, fmt.Errorf("case %q: %w", fc.CaseID, err)
		}
		ds = loaded
	default:
		if err := fc.Synthetic.Validate(); err != nil {
			return Case{}, fmt.Errorf("%w: case %q synthetic: %v", ErrInvalidFixture, fc.CaseID, err)
		}
		ds = dataset.Generate(*fc.Synthetic)
	}

	return Case{
		ID:      fc.CaseID,
		Dataset: ds,
		Request: evaluator.Request{
			Pillars: fc.Pillars,
			Metrics: fc.Metrics,
			Options: fc.Options,
		},
		Aggregation: fc.Aggregation,
		Expect:      fc.Expect,
	}, nil
}

// ToCases converts every fixture case, stopping at the first bad one.
func (f *Fixture) ToCases() ([]Case, error) {
	out := make([]Case, 0, len(f.Cases))
	for i := range f.Cases {
		c, err := f.Cases[i].ToCase()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// #endregion fixture-loader
