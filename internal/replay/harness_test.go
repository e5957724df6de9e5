package replay

import (
	"context"
	"strings"
	"testing"

	"github.com/danielpatrickdp/caterya/internal/evaluator"
	"github.com/danielpatrickdp/caterya/internal/metric"
	"github.com/danielpatrickdp/caterya/internal/registry"
)

// helper: predictions match labels in both groups, so per-group accuracy is
// uniform and the symmetry index is exactly 1.
func fairDataset() *metric.Dataset {
	return &metric.Dataset{
		Predictions: []float64{0.9, 0.1, 0.8, 0.2},
		Labels:      []float64{1, 0, 1, 0},
		Groups:      []metric.GroupID{"a", "a", "b", "b"},
	}
}

func symmetryCase(id string, exp Expectation) Case {
	return Case{
		ID:      id,
		Dataset: fairDataset(),
		Request: evaluator.Request{
			Pillars: []string{registry.PillarBias},
			Metrics: []string{metric.SymmetryIndexName},
		},
		Expect: exp,
	}
}

func intPtr(n int) *int { return &n }

// 1. Passing case: scores inside every expected range.
func TestReplay_Pass(t *testing.T) {
	c := symmetryCase("fair", Expectation{
		OpenScore:   &Range{Min: 99.9, Max: 100},
		Pillars:     map[string]Range{registry.PillarBias: {Min: 0.99, Max: 1}},
		Metrics:     map[string]Range{metric.SymmetryIndexName: {Min: 0.99, Max: 1}},
		MaxFailures: intPtr(0),
	})

	got := Replay(context.Background(), nil, []Case{c}, DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].Outcome != OutcomePass {
		t.Fatalf("expected pass, got %s (%s)", got[0].Outcome, got[0].Reason)
	}
	if got[0].Results == nil {
		t.Fatal("expected results to be populated")
	}
}

// 2. Failing case: the open score misses its range and the reason says so.
func TestReplay_Fail(t *testing.T) {
	c := symmetryCase("too-strict", Expectation{
		OpenScore: &Range{Min: 0, Max: 50},
		Metrics:   map[string]Range{"absent_metric": {Min: 0, Max: 1}},
	})

	got := Replay(context.Background(), nil, []Case{c}, DefaultConfig())
	if got[0].Outcome != OutcomeFail {
		t.Fatalf("expected fail, got %s", got[0].Outcome)
	}
	if !strings.Contains(got[0].Reason, "open_score") {
		t.Errorf("reason %q should mention open_score", got[0].Reason)
	}
	if !strings.Contains(got[0].Reason, "metric absent_metric missing") {
		t.Errorf("reason %q should mention the missing metric", got[0].Reason)
	}
}

// 3. Evaluation errors are recorded and do not stop later cases.
func TestReplay_ErrorContinues(t *testing.T) {
	bad := symmetryCase("unknown", Expectation{})
	bad.Request.Metrics = []string{"no_such_metric"}
	good := symmetryCase("fair", Expectation{})

	got := Replay(context.Background(), nil, []Case{bad, good}, DefaultConfig())
	if got[0].Outcome != OutcomeError {
		t.Errorf("case 0: expected error, got %s", got[0].Outcome)
	}
	if got[0].Results != nil {
		t.Error("case 0: results should be nil")
	}
	if got[1].Outcome != OutcomePass {
		t.Errorf("case 1: expected pass, got %s (%s)", got[1].Outcome, got[1].Reason)
	}
}

// 4. MaxFailures catches isolated metric failures.
func TestReplay_MaxFailures(t *testing.T) {
	c := symmetryCase("no-groups", Expectation{MaxFailures: intPtr(0)})
	c.Dataset = &metric.Dataset{Predictions: []float64{0.5}, Labels: []float64{1}}

	got := Replay(context.Background(), nil, []Case{c}, DefaultConfig())
	if got[0].Outcome != OutcomeFail {
		t.Fatalf("expected fail, got %s (%s)", got[0].Outcome, got[0].Reason)
	}
	if !strings.Contains(got[0].Reason, "1 failed metrics") {
		t.Errorf("reason = %q", got[0].Reason)
	}
}

// 5. Per-case aggregation override reaches the evaluator.
func TestReplay_AggregationOverride(t *testing.T) {
	c := symmetryCase("harmonic", Expectation{})
	c.Aggregation = "harmonic_mean"

	got := Replay(context.Background(), nil, []Case{c}, DefaultConfig())
	if got[0].Results == nil {
		t.Fatalf("expected results, got %s (%s)", got[0].Outcome, got[0].Reason)
	}
	if m := got[0].Results.AggregationMethod(); m != "harmonic_mean" {
		t.Errorf("aggregation = %q, want harmonic_mean", m)
	}
}

// 6. Strict config turns an unknown override into a case error.
func TestReplay_StrictAggregation(t *testing.T) {
	c := symmetryCase("median", Expectation{})
	c.Aggregation = "median"
	cfg := DefaultConfig()
	cfg.Evaluator.StrictAggregation = true

	got := Replay(context.Background(), nil, []Case{c}, cfg)
	if got[0].Outcome != OutcomeError {
		t.Fatalf("expected error, got %s", got[0].Outcome)
	}
}

// 7. A cancelled context marks remaining cases as errors.
func TestReplay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := Replay(ctx, nil, []Case{symmetryCase("a", Expectation{}), symmetryCase("b", Expectation{})}, DefaultConfig())
	for i, r := range got {
		if r.Outcome != OutcomeError {
			t.Errorf("case %d: expected error, got %s", i, r.Outcome)
		}
	}
}

// 8. Summarize counts outcomes and averages scored cases only.
func TestSummarize(t *testing.T) {
	pass := symmetryCase("pass", Expectation{})
	fail := symmetryCase("fail", Expectation{OpenScore: &Range{Min: 0, Max: 1}})
	broken := symmetryCase("broken", Expectation{})
	broken.Request.Pillars = []string{"speed"}

	got := Replay(context.Background(), nil, []Case{pass, fail, broken}, DefaultConfig())
	s := Summarize(got)

	if s.TotalCases != 3 || s.Passes != 1 || s.Failures != 1 || s.Errors != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.MeanOpenScore < 99.9 || s.MeanOpenScore > 100 {
		t.Errorf("mean open score = %v, want ~100", s.MeanOpenScore)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalCases != 0 || s.MeanOpenScore != 0 {
		t.Errorf("summary = %+v", s)
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: 0.2, Max: 0.4}
	for _, tc := range []struct {
		x    float64
		want bool
	}{{0.2, true}, {0.4, true}, {0.3, true}, {0.1, false}, {0.5, false}} {
		if got := r.Contains(tc.x); got != tc.want {
			t.Errorf("Contains(%v) = %v, want %v", tc.x, got, tc.want)
		}
	}
}
