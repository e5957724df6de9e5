package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielpatrickdp/caterya/internal/codec"
	"github.com/danielpatrickdp/caterya/internal/config"
	"github.com/danielpatrickdp/caterya/internal/evaluator"
	"github.com/danielpatrickdp/caterya/internal/logging"
	"github.com/danielpatrickdp/caterya/internal/metric"
	"github.com/danielpatrickdp/caterya/internal/store"
	"github.com/danielpatrickdp/caterya/internal/telemetry"
)

// #region app
// app is everything a command needs, built from configuration and flags.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	eval     *evaluator.Evaluator
	evalOpts []evaluator.Option
	store    *store.Store
	model    metric.Model
	metrics  *prometheus.Registry
	closers  []func() error
}

// newApp loads configuration, applies flag overrides and wires the
// evaluator's collaborators.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	if opts.dbPath != "" {
		cfg.Store.Path = opts.dbPath
	}
	if opts.noStore {
		cfg.Store.Path = ""
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, metrics: prometheus.NewRegistry()}

	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	tracer, shutdown, err := telemetry.NewTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return shutdown(context.Background()) })

	a.evalOpts = []evaluator.Option{
		evaluator.WithRegistry(reg),
		evaluator.WithLogger(logger),
		evaluator.WithTracer(tracer),
		evaluator.WithRecorder(telemetry.NewRecorder(a.metrics)),
	}

	if cfg.Store.Path != "" {
		st, err := store.NewStore(cfg.Store.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
		a.closers = append(a.closers, st.Close)
		a.evalOpts = append(a.evalOpts, evaluator.WithStore(st))
	}

	if cfg.Model.Addr != "" {
		client, err := codec.NewClient(cfg.Model.Addr)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.model = client
		a.closers = append(a.closers, client.Close)
	}

	if a.eval, err = evaluator.New(cfg.Evaluator, a.evalOpts...); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// withAggregation returns an evaluator using method instead of the
// configured reducer.
func (a *app) withAggregation(method string) (*evaluator.Evaluator, error) {
	if method == "" {
		return a.eval, nil
	}
	cfg := a.cfg.Evaluator
	cfg.AggregationMethod = method
	return evaluator.New(cfg, a.evalOpts...)
}

// requireStore fails when run history was disabled.
func (a *app) requireStore() (*store.Store, error) {
	if a.store == nil {
		return nil, errors.New("run history is disabled (set --db or store.path)")
	}
	return a.store, nil
}

// Close releases collaborators in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// #endregion app
