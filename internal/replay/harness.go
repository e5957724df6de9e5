// Package replay runs recorded evaluation cases and checks each result
// against its expected score ranges.
package replay

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/danielpatrickdp/caterya/internal/evaluator"
	"github.com/danielpatrickdp/caterya/internal/metric"
	"github.com/danielpatrickdp/caterya/internal/results"
)

// Case outcomes.
const (
	OutcomePass  = "pass"
	OutcomeFail  = "fail"
	OutcomeError = "error"
)

// #region types
// Range is an inclusive score interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether x lies in [Min, Max].
func (r Range) Contains(x float64) bool { return x >= r.Min && x <= r.Max }

// Expectation is what a case must produce. Nil or empty fields are not
// checked.
type Expectation struct {
	OpenScore   *Range           `json:"open_score,omitempty"`
	Pillars     map[string]Range `json:"pillars,omitempty"`
	Metrics     map[string]Range `json:"metrics,omitempty"`
	MaxFailures *int             `json:"max_failures,omitempty"`
}

// Case is one evaluation to replay.
type Case struct {
	ID      string
	Dataset *metric.Dataset
	Request evaluator.Request

	// Aggregation overrides the run config's method when set.
	Aggregation string
	Expect      Expectation
}

// Config bundles the evaluator settings shared by every case.
type Config struct {
	Evaluator evaluator.Config
}

// DefaultConfig returns the evaluator defaults.
func DefaultConfig() Config {
	return Config{Evaluator: evaluator.DefaultConfig()}
}

// CaseResult captures the outcome of replaying one case.
type CaseResult struct {
	CaseID  string `json:"case_id"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`

	// Results is nil when the evaluation itself errored.
	Results *results.Results `json:"results,omitempty"`
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalCases int `json:"total_cases" yaml:"total_cases"`
	Passes     int `json:"passes" yaml:"passes"`
	Failures   int `json:"failures" yaml:"failures"`
	Errors     int `json:"errors" yaml:"errors"`

	// MeanOpenScore averages the open score over cases that produced results.
	MeanOpenScore float64 `json:"mean_open_score" yaml:"mean_open_score"`
}

// #endregion types

// #region replay
// Replay evaluates each case against model in order. A case whose
// evaluation fails is recorded as an error and the run continues; only ctx
// cancellation stops it early.
func Replay(ctx context.Context, model metric.Model, cases []Case, cfg Config, opts ...evaluator.Option) []CaseResult {
	out := make([]CaseResult, 0, len(cases))
	for _, c := range cases {
		if ctx.Err() != nil {
			out = append(out, CaseResult{CaseID: c.ID, Outcome: OutcomeError, Reason: ctx.Err().Error()})
			continue
		}

		ecfg := cfg.Evaluator
		if c.Aggregation != "" {
			ecfg.AggregationMethod = c.Aggregation
		}
		ev, err := evaluator.New(ecfg, opts...)
		if err != nil {
			out = append(out, CaseResult{CaseID: c.ID, Outcome: OutcomeError, Reason: err.Error()})
			continue
		}
		res, err := ev.Evaluate(ctx, model, c.Dataset, c.Request)
		if err != nil {
			out = append(out, CaseResult{CaseID: c.ID, Outcome: OutcomeError, Reason: err.Error()})
			continue
		}

		r := CaseResult{CaseID: c.ID, Outcome: OutcomePass, Results: res}
		if problems := Check(res, c.Expect); len(problems) > 0 {
			r.Outcome = OutcomeFail
			r.Reason = strings.Join(problems, "; ")
		}
		out = append(out, r)
	}
	return out
}

// Check lists every way res misses exp, in a stable order.
func Check(res *results.Results, exp Expectation) []string {
	var problems []string
	if exp.OpenScore != nil && !exp.OpenScore.Contains(res.OpenScore()) {
		problems = append(problems, fmt.Sprintf("open_score %.4f outside [%g, %g]",
			res.OpenScore(), exp.OpenScore.Min, exp.OpenScore.Max))
	}
	problems = append(problems, checkScores("pillar", res.PillarScores(), exp.Pillars)...)
	problems = append(problems, checkScores("metric", res.MetricScores(), exp.Metrics)...)
	if exp.MaxFailures != nil {
		if n := len(res.Failures()); n > *exp.MaxFailures {
			problems = append(problems, fmt.Sprintf("%d failed metrics, at most %d allowed", n, *exp.MaxFailures))
		}
	}
	return problems
}

func checkScores(kind string, got map[string]float64, want map[string]Range) []string {
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	slices.Sort(names)

	var problems []string
	for _, name := range names {
		score, ok := got[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s %s missing", kind, name))
			continue
		}
		if rng := want[name]; !rng.Contains(score) {
			problems = append(problems, fmt.Sprintf("%s %s %.4f outside [%g, %g]", kind, name, score, rng.Min, rng.Max))
		}
	}
	return problems
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []CaseResult) Summary {
	s := Summary{TotalCases: len(results)}
	scored := 0
	for _, r := range results {
		switch r.Outcome {
		case OutcomePass:
			s.Passes++
		case OutcomeFail:
			s.Failures++
		case OutcomeError:
			s.Errors++
		}
		if r.Results != nil {
			s.MeanOpenScore += r.Results.OpenScore()
			scored++
		}
	}
	if scored > 0 {
		s.MeanOpenScore /= float64(scored)
	}
	return s
}

// #endregion replay
