// Package server exposes the evaluator over HTTP (gin) and gRPC.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/caterya/internal/evaluator"
	"github.com/danielpatrickdp/caterya/internal/logging"
	"github.com/danielpatrickdp/caterya/internal/metric"
	"github.com/danielpatrickdp/caterya/internal/registry"
	"github.com/danielpatrickdp/caterya/internal/store"
)

const shutdownTimeout = 10 * time.Second

// #region server
// Server holds what both transports share.
type Server struct {
	eval     *evaluator.Evaluator
	model    metric.Model
	runs     RunReader
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option customizes a Server.
type Option func(*Server)

// WithModel sets the model handed to every evaluation.
func WithModel(m metric.Model) Option { return func(s *Server) { s.model = m } }

// WithRuns enables the run history routes.
func WithRuns(r RunReader) Option { return func(s *Server) { s.runs = r } }

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// New creates a Server around an evaluator.
func New(ev *evaluator.Evaluator, opts ...Option) *Server {
	s := &Server{
		eval:     ev,
		logger:   logging.Discard(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// #endregion server

// #region run
// Run serves HTTP on httpAddr and, when grpcAddr is non-empty, gRPC on
// grpcAddr until ctx is cancelled or a listener fails.
func (s *Server) Run(ctx context.Context, httpAddr, grpcAddr string) error {
	httpSrv := &http.Server{Addr: httpAddr, Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}
	grpcSrv := s.GRPCServer()

	var grpcLis net.Listener
	if grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
		grpcLis = lis
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting http server", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if grpcLis != nil {
		g.Go(func() error {
			s.logger.Info("starting grpc server", "addr", grpcAddr)
			if err := grpcSrv.Serve(grpcLis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("stopping server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// #endregion run

// #region catalog
// catalog lists registered metrics with their pillar, sorted by name.
func (s *Server) catalog() ([]MetricInfo, error) {
	pillarOf := make(map[string]string)
	for _, p := range s.eval.Pillars().Catalog() {
		for _, m := range p.Metrics {
			pillarOf[m] = p.Name
		}
	}
	names := s.eval.Registry().Names()
	out := make([]MetricInfo, 0, len(names))
	for _, name := range names {
		info, err := s.describe(name, pillarOf)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Server) describe(name string, pillarOf map[string]string) (MetricInfo, error) {
	info, err := s.eval.Registry().Info(name)
	if err != nil {
		return MetricInfo{}, err
	}
	return MetricInfo{
		Name:        info.Name,
		Pillar:      pillarOf[name],
		Bounds:      info.Bounds,
		Description: info.Description,
	}, nil
}

// #endregion catalog

// #region errors
// classify maps domain errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, registry.ErrUnknownMetric):
		return http.StatusBadRequest, CodeUnknownMetric
	case errors.Is(err, registry.ErrUnknownPillar):
		return http.StatusBadRequest, CodeUnknownPillar
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound, CodeRunNotFound
	case errors.Is(err, ErrStoreDisabled):
		return http.StatusServiceUnavailable, CodeStoreDisabled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, metric.ErrComputation):
		return http.StatusUnprocessableEntity, CodeComputation
	case errors.Is(err, metric.ErrInvalidDataset), errors.Is(err, metric.ErrMissingField):
		return http.StatusBadRequest, CodeInvalidDataset
	}
	return http.StatusInternalServerError, CodeInternal
}

// #endregion errors
