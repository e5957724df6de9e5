// Package dataset reads evaluation datasets from disk and generates
// deterministic synthetic ones.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/caterya/internal/metric"
)

// #region load

// Load reads a dataset file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON. The result is validated.
func Load(path string) (*metric.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var ds metric.Dataset
		if err := yaml.Unmarshal(raw, &ds); err != nil {
			return nil, fmt.Errorf("decode dataset %s: %w", path, err)
		}
		if err := ds.Validate(); err != nil {
			return nil, fmt.Errorf("dataset %s: %w", path, err)
		}
		return &ds, nil
	}
	ds, err := Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// Decode reads one JSON dataset document and validates it.
func Decode(r io.Reader) (*metric.Dataset, error) {
	var ds metric.Dataset
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// #endregion load

// #region synthetic

// Spec describes a synthetic dataset.
type Spec struct {
	Samples int    `json:"samples" yaml:"samples" validate:"gt=0"`
	Groups  int    `json:"groups" yaml:"groups" validate:"gt=0"`
	Seed    uint64 `json:"seed" yaml:"seed"`

	// Disparity lowers the predictions of group "0" by this amount, which
	// makes the bias metrics register unfairness.
	Disparity float64 `json:"disparity" yaml:"disparity" validate:"gte=0,lte=1"`

	// OmitPredictions leaves predictions empty so a model must supply them.
	OmitPredictions bool `json:"omit_predictions" yaml:"omit_predictions"`
}

var validate = validator.New()

// Validate checks the spec's field ranges.
func (s Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: synthetic spec: %v", metric.ErrInvalidDataset, err)
	}
	return nil
}

// Synthetic generates n samples spread round-robin over the given number of
// groups. Labels are 0/1; predictions are noisy scores in [0,1] correlated
// with the label. The same seed always yields the same dataset.
func Synthetic(n, groups int, seed uint64) *metric.Dataset {
	return Generate(Spec{Samples: n, Groups: groups, Seed: seed})
}

// Generate builds the dataset described by spec.
func Generate(spec Spec) *metric.Dataset {
	n := max(spec.Samples, 0)
	g := max(spec.Groups, 1)
	r := rand.New(rand.NewPCG(spec.Seed, spec.Seed^0x5851f42d4c957f2d))

	ds := &metric.Dataset{
		Labels: make([]float64, n),
		Groups: make([]metric.GroupID, n),
	}
	preds := make([]float64, n)
	for i := 0; i < n; i++ {
		label := 0.0
		if r.Float64() < 0.5 {
			label = 1
		}
		group := i % g
		p := 0.7*label + 0.3*r.Float64()
		if group == 0 {
			p -= spec.Disparity
		}
		ds.Labels[i] = label
		ds.Groups[i] = metric.GroupID(strconv.Itoa(group))
		preds[i] = min(max(p, 0), 1)
	}
	if !spec.OmitPredictions {
		ds.Predictions = preds
	}
	return ds
}

// #endregion synthetic
