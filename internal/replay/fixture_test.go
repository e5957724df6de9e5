package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/caterya/internal/dataset"
)

const fixtureJSON = `{
  "description": "bias pillar regression",
  "config": {"aggregation_method": "arithmetic_mean", "concurrency": 2, "metric_timeout": "5s"},
  "cases": [
    {
      "case_id": "inline",
      "dataset": {"predictions": [0.9, 0.1], "labels": [1, 0], "groups": ["a", "b"]},
      "pillars": ["bias"],
      "metrics": ["symmetry_index"],
      "expect": {"open_score": {"min": 99.9, "max": 100}}
    },
    {
      "case_id": "from-file",
      "dataset_path": "data.json",
      "pillars": ["bias"],
      "metrics": ["symmetry_index"]
    },
    {
      "case_id": "synthetic",
      "synthetic": {"samples": 100, "groups": 2, "seed": 3},
      "pillars": ["bias"]
    }
  ]
}`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data := `{"predictions": [0.8, 0.2], "labels": [1, 0], "groups": [0, 1]}`
	if err := os.WriteFile(filepath.Join(dir, "data.json"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "fixture.json")
	if err := os.WriteFile(path, []byte(fixtureJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFixture(t *testing.T) {
	path := writeFixture(t)
	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if len(f.Cases) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(f.Cases))
	}
	if want := filepath.Join(filepath.Dir(path), "data.json"); f.Cases[1].DatasetPath != want {
		t.Errorf("dataset_path = %q, want %q", f.Cases[1].DatasetPath, want)
	}

	cfg, err := f.Config.ToReplayConfig()
	if err != nil {
		t.Fatalf("ToReplayConfig: %v", err)
	}
	if cfg.Evaluator.AggregationMethod != "arithmetic_mean" || cfg.Evaluator.Concurrency != 2 {
		t.Errorf("config = %+v", cfg.Evaluator)
	}
	if cfg.Evaluator.MetricTimeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", cfg.Evaluator.MetricTimeout)
	}

	cases, err := f.ToCases()
	if err != nil {
		t.Fatalf("ToCases: %v", err)
	}
	if cases[1].Dataset.Groups[0] != "0" {
		t.Errorf("numeric group decoded as %q", cases[1].Dataset.Groups[0])
	}
	if cases[2].Dataset.Len() != 100 {
		t.Errorf("synthetic len = %d, want 100", cases[2].Dataset.Len())
	}

	got := Replay(context.Background(), nil, cases, cfg)
	s := Summarize(got)
	if s.Passes != 3 {
		for _, r := range got {
			t.Logf("%s: %s %s", r.CaseID, r.Outcome, r.Reason)
		}
		t.Errorf("expected 3 passes, got %+v", s)
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFixture(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFixture(bad); err == nil {
		t.Error("expected error for malformed json")
	}
}

func TestToCase_DatasetSources(t *testing.T) {
	tests := []struct {
		name string
		fc   FixtureCase
	}{
		{"none", FixtureCase{CaseID: "none"}},
		{"two", FixtureCase{CaseID: "two", DatasetPath: "x.json", Synthetic: &dataset.Spec{Samples: 1, Groups: 1}}},
		{"bad synthetic", FixtureCase{CaseID: "bad", Synthetic: &dataset.Spec{Samples: 0, Groups: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fc.ToCase()
			if !errors.Is(err, ErrInvalidFixture) {
				t.Errorf("err = %v, want ErrInvalidFixture", err)
			}
		})
	}
}

func TestToReplayConfig_BadTimeout(t *testing.T) {
	fc := FixtureConfig{MetricTimeout: "soon"}
	if _, err := fc.ToReplayConfig(); !errors.Is(err, ErrInvalidFixture) {
		t.Errorf("err = %v, want ErrInvalidFixture", err)
	}
}
