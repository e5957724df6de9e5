// Package results holds the immutable outcome of one evaluation run and its
// JSON document form.
package results

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const documentSchema = `{
  "type": "object",
  "required": ["pillar_scores", "metric_scores", "open_score", "metadata"],
  "properties": {
    "pillar_scores": {"type": "object", "additionalProperties": {"type": "number"}},
    "metric_scores": {"type": "object", "additionalProperties": {"type": "number"}},
    "open_score":    {"type": "number", "minimum": 0, "maximum": 100},
    "metadata":      {"type": "object"}
  }
}`

var schema = jsonschema.MustCompileString("caterya-results.json", documentSchema)

// #region results

// Results is the outcome of one evaluation run. It never changes after New;
// every accessor returns a copy.
type Results struct {
	c Canonical
}

// New builds a Results. Metadata is normalized through its JSON form so that
// a saved and reloaded result compares equal to the original.
func New(pillarScores, metricScores map[string]float64, openScore float64, metadata map[string]any) (*Results, error) {
	c := Canonical{
		PillarScores: copyScores(pillarScores),
		MetricScores: copyScores(metricScores),
		OpenScore:    openScore,
		Metadata:     map[string]any{},
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, &SerializationError{Err: fmt.Errorf("encode metadata: %w", err)}
		}
		if err := json.Unmarshal(raw, &c.Metadata); err != nil {
			return nil, &SerializationError{Err: fmt.Errorf("normalize metadata: %w", err)}
		}
	}
	if _, err := json.Marshal(c); err != nil {
		return nil, &SerializationError{Err: err}
	}
	return &Results{c: c}, nil
}

// FromCanonical rebuilds a Results from its document form.
func FromCanonical(c Canonical) (*Results, error) {
	return New(c.PillarScores, c.MetricScores, c.OpenScore, c.Metadata)
}

func (r *Results) PillarScores() map[string]float64 { return copyScores(r.c.PillarScores) }

func (r *Results) MetricScores() map[string]float64 { return copyScores(r.c.MetricScores) }

func (r *Results) OpenScore() float64 { return r.c.OpenScore }

func (r *Results) Metadata() map[string]any { return copyValue(r.c.Metadata).(map[string]any) }

// Canonical returns a deep copy of the document form.
func (r *Results) Canonical() Canonical {
	return Canonical{
		PillarScores: r.PillarScores(),
		MetricScores: r.MetricScores(),
		OpenScore:    r.c.OpenScore,
		Metadata:     r.Metadata(),
	}
}

// RunID returns the run identifier recorded in metadata, if any.
func (r *Results) RunID() string {
	id, _ := r.c.Metadata[KeyRunID].(string)
	return id
}

// AggregationMethod returns the reducer recorded in metadata.
func (r *Results) AggregationMethod() string {
	m, _ := r.c.Metadata[KeyAggregationMethod].(string)
	return m
}

// Pillars returns the evaluated pillar names recorded in metadata.
func (r *Results) Pillars() []string {
	raw, _ := r.c.Metadata[KeyPillars].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Failures returns the per-metric failure records in metadata.
func (r *Results) Failures() []Failure {
	raw, _ := r.c.Metadata[KeyFailures].([]any)
	out := make([]Failure, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		f := Failure{}
		f.Metric, _ = m["metric"].(string)
		f.Error, _ = m["error"].(string)
		f.Placeholder, _ = m["placeholder"].(float64)
		out = append(out, f)
	}
	return out
}

// MetricNames returns the computed metric identifiers in sorted order.
func (r *Results) MetricNames() []string {
	names := make([]string, 0, len(r.c.MetricScores))
	for name := range r.c.MetricScores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Results) MarshalJSON() ([]byte, error) { return json.Marshal(r.c) }

// #endregion results

// #region io

// Encode writes the indented JSON document to w.
func (r *Results) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.c); err != nil {
		return &SerializationError{Err: err}
	}
	return nil
}

// Decode reads one document from rd and validates it against the schema.
func Decode(rd io.Reader) (*Results, error) {
	raw, err := io.ReadAll(rd)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	r, err := decode(raw)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return r, nil
}

// Save writes the document to path, creating parent directories.
func (r *Results) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &SerializationError{Path: path, Err: err}
	}
	raw, err := json.MarshalIndent(r.c, "", "  ")
	if err != nil {
		return &SerializationError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return &SerializationError{Path: path, Err: err}
	}
	return nil
}

// Load reads and validates a document written by Save.
func Load(path string) (*Results, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &SerializationError{Path: path, Err: err}
	}
	r, err := decode(raw)
	if err != nil {
		return nil, &SerializationError{Path: path, Err: err}
	}
	return r, nil
}

func decode(raw []byte) (*Results, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	var c Canonical
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromCanonical(c)
}

// #endregion io

// #region helpers

func copyScores(in map[string]float64) map[string]float64 {
	if in == nil {
		return map[string]float64{}
	}
	return maps.Clone(in)
}

// copyValue deep-copies a JSON-shaped value.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// #endregion helpers
