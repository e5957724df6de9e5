// Package evaluator runs metrics over a model and dataset, groups the scores
// into pillars and reduces them to the open score.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/caterya/internal/aggregate"
	"github.com/danielpatrickdp/caterya/internal/logging"
	"github.com/danielpatrickdp/caterya/internal/metric"
	"github.com/danielpatrickdp/caterya/internal/registry"
	"github.com/danielpatrickdp/caterya/internal/results"
	"github.com/danielpatrickdp/caterya/internal/telemetry"
)

// #region evaluator
// Evaluator coordinates one evaluation run at a time per call; a single
// Evaluator may serve concurrent calls.
type Evaluator struct {
	config   Config
	choice   aggregate.Choice
	registry *registry.Registry
	pillars  *registry.Pillars
	logger   *slog.Logger
	recorder *telemetry.Recorder
	tracer   trace.Tracer
	store    RunStore
	newID    func() string
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

func WithRegistry(r *registry.Registry) Option { return func(e *Evaluator) { e.registry = r } }

func WithPillars(p *registry.Pillars) Option { return func(e *Evaluator) { e.pillars = p } }

func WithLogger(l *slog.Logger) Option { return func(e *Evaluator) { e.logger = l } }

func WithRecorder(r *telemetry.Recorder) Option { return func(e *Evaluator) { e.recorder = r } }

func WithTracer(t trace.Tracer) Option { return func(e *Evaluator) { e.tracer = t } }

// WithStore persists every finished run. Store errors are logged, not returned.
func WithStore(s RunStore) Option { return func(e *Evaluator) { e.store = s } }

// WithRunIDs replaces the uuid run id generator.
func WithRunIDs(f func() string) Option { return func(e *Evaluator) { e.newID = f } }

// New creates an evaluator. Unspecified collaborators default to the
// reference registry and pillars, a discarding logger and the global tracer.
func New(cfg Config, opts ...Option) (*Evaluator, error) {
	choice, err := aggregate.Resolve(cfg.AggregationMethod, cfg.StrictAggregation)
	if err != nil {
		return nil, err
	}
	for pillar, w := range cfg.PillarWeights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: pillar weight %s=%v must be a non-negative number", ErrInvalidConfig, pillar, w)
		}
	}
	if cfg.Concurrency < 0 || cfg.MetricTimeout < 0 {
		return nil, fmt.Errorf("%w: concurrency and metric timeout must not be negative", ErrInvalidConfig)
	}

	e := &Evaluator{
		config:   cfg,
		choice:   choice,
		registry: registry.Default(),
		pillars:  registry.DefaultPillars(),
		logger:   logging.Discard(),
		tracer:   otel.Tracer(telemetry.InstrumentationName),
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}

	if choice.Fallback {
		e.logger.Warn("unknown aggregation method, using default",
			"requested", choice.Requested, "method", string(choice.Method))
	}
	return e, nil
}

func (e *Evaluator) Config() Config { return e.config }

func (e *Evaluator) Aggregation() aggregate.Choice { return e.choice }

func (e *Evaluator) Registry() *registry.Registry { return e.registry }

func (e *Evaluator) Pillars() *registry.Pillars { return e.pillars }

// #endregion evaluator

// #region evaluate
// Evaluate runs the requested metrics and packages the scores.
//
// Unknown pillar or metric names fail the call before any metric runs.
// A metric that errors, panics or exceeds MetricTimeout is isolated: it gets
// a placeholder score, a warning and a failure record, and is left out of
// its pillar mean. Cancelling ctx aborts the run with ctx's error.
func (e *Evaluator) Evaluate(ctx context.Context, model metric.Model, ds *metric.Dataset, req Request) (*results.Results, error) {
	ctx, span := e.tracer.Start(ctx, "caterya.evaluate")
	defer span.End()

	pillars, work, err := e.plan(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	runID := e.newID()
	log := e.logger.With("run_id", runID)
	span.SetAttributes(
		attribute.String("caterya.run_id", runID),
		attribute.Int("caterya.metrics", len(work)),
	)
	log.Debug("evaluation started", "pillars", len(pillars), "metrics", len(work))

	outcomes := e.execute(ctx, work, model, ds, req.Options)
	if err := ctx.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	metricScores := make(map[string]float64, len(outcomes))
	bounds := make(map[string]metric.Bounds, len(outcomes))
	failed := make(map[string]bool)
	failures := make([]results.Failure, 0)
	for _, o := range outcomes {
		metricScores[o.name] = o.score
		bounds[o.name] = o.bounds
		if o.err != nil {
			failed[o.name] = true
			failures = append(failures, results.Failure{Metric: o.name, Error: o.err.Error(), Placeholder: o.score})
			log.Warn("metric computation failed", "metric", o.name, "error", o.err)
		} else {
			delete(failed, o.name)
		}
	}

	pillarScores := make(map[string]float64, len(pillars))
	ordered := make([]float64, 0, len(pillars))
	for _, p := range pillars {
		ids, _ := e.pillars.MetricsFor(p)
		var vals []float64
		for _, id := range ids {
			score, ok := metricScores[id]
			if !ok || failed[id] {
				continue
			}
			vals = append(vals, bounds[id].Normalize(score))
		}
		pillarScores[p] = aggregate.Mean(vals)
		ordered = append(ordered, pillarScores[p])
	}
	openScore := aggregate.OpenScore(e.choice.Method, ordered)

	metadata := map[string]any{
		results.KeyPillars:           pillars,
		results.KeyAggregationMethod: e.choice.Requested,
		results.KeyOptions:           recordedOptions(req.Options),
		results.KeyFailures:          failures,
		results.KeyRunID:             runID,
	}
	if e.choice.Fallback {
		metadata[results.KeyAggregationFallback] = true
	}
	if len(e.config.PillarWeights) > 0 {
		metadata[results.KeyPillarWeights] = e.config.PillarWeights
	}

	res, err := results.New(pillarScores, metricScores, openScore, metadata)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("package results: %w", err)
	}

	span.SetAttributes(
		attribute.Float64("caterya.open_score", openScore),
		attribute.Int("caterya.failures", len(failures)),
	)
	e.recorder.EvaluationCompleted(string(e.choice.Method), openScore)
	log.Info("evaluation finished", "open_score", openScore, "failures", len(failures))

	if e.store != nil {
		if _, err := e.store.SaveRun(ctx, res); err != nil {
			log.Warn("persist run failed", "error", err)
		}
	}
	return res, nil
}

// recordedOptions copies the caller options for metadata. A value without a
// JSON form, such as NaN or a func, is recorded as its fmt.Sprint text.
func recordedOptions(opts metric.Options) map[string]any {
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		if _, err := json.Marshal(v); err != nil {
			out[k] = fmt.Sprint(v)
			continue
		}
		out[k] = v
	}
	return out
}

// #endregion evaluate

// #region evaluate-metric
// EvaluateMetric computes one metric directly: no pillar bookkeeping, no
// aggregation, and failures are returned rather than isolated.
func (e *Evaluator) EvaluateMetric(ctx context.Context, name string, model metric.Model, ds *metric.Dataset, opts metric.Options) (float64, error) {
	m, err := e.registry.Resolve(name)
	if err != nil {
		return 0, err
	}
	o := e.run(ctx, name, m, model, ds, opts)
	if o.err != nil {
		return 0, o.err
	}
	return o.score, nil
}

// #endregion evaluate-metric

// #region plan
type task struct {
	name   string
	metric metric.Metric
}

// plan resolves the pillar list and the work list. Every name is resolved
// here so that nothing executes when any of them is unknown.
func (e *Evaluator) plan(req Request) ([]string, []task, error) {
	pillars := req.Pillars
	if pillars == nil {
		pillars = e.pillars.ListPillars()
	}

	var names []string
	for _, p := range pillars {
		ids, err := e.pillars.MetricsFor(p)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, ids...)
	}
	if len(req.Metrics) > 0 {
		names = req.Metrics
	}

	work := make([]task, 0, len(names))
	for _, name := range names {
		m, err := e.registry.Resolve(name)
		if err != nil {
			return nil, nil, err
		}
		work = append(work, task{name: name, metric: m})
	}
	return append([]string{}, pillars...), work, nil
}

// #endregion plan

// #region execute
// execute runs the work list. Outcomes are stored by work index so the
// result does not depend on completion order.
func (e *Evaluator) execute(ctx context.Context, work []task, model metric.Model, ds *metric.Dataset, opts metric.Options) []outcome {
	outcomes := make([]outcome, len(work))
	if e.config.Concurrency <= 1 {
		for i, t := range work {
			outcomes[i] = e.run(ctx, t.name, t.metric, model, ds, opts)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(e.config.Concurrency)
	for i, t := range work {
		g.Go(func() error {
			outcomes[i] = e.run(ctx, t.name, t.metric, model, ds, opts)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// run computes one metric with panic recovery and the optional time budget.
func (e *Evaluator) run(ctx context.Context, name string, m metric.Metric, model metric.Model, ds *metric.Dataset, opts metric.Options) outcome {
	ctx, span := e.tracer.Start(ctx, "caterya.metric", trace.WithAttributes(attribute.String("caterya.metric", name)))
	defer span.End()

	if e.config.MetricTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.MetricTimeout)
		defer cancel()
	}

	b := m.Bounds()
	start := time.Now()
	type computed struct {
		score float64
		err   error
	}
	done := make(chan computed, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- computed{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		score, err := m.Compute(ctx, model, ds, opts)
		done <- computed{score: score, err: err}
	}()

	var c computed
	select {
	case c = <-done:
	case <-ctx.Done():
		c = computed{err: ctx.Err()}
	}
	if c.err == nil && math.IsNaN(c.score) {
		c.err = fmt.Errorf("score is NaN")
	}

	o := outcome{name: name, bounds: b, duration: time.Since(start)}
	if c.err != nil {
		o.err = &metric.ComputationError{Metric: name, Err: c.err}
		o.score = b.Clamp(0)
		telemetry.RecordError(span, o.err)
	} else {
		o.score = b.Clamp(c.score)
		span.SetAttributes(attribute.Float64("caterya.score", o.score))
	}
	e.recorder.MetricExecuted(name, o.err == nil, o.duration)
	return o
}

// #endregion execute
