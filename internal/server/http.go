package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/caterya/internal/evaluator"
	"github.com/danielpatrickdp/caterya/internal/registry"
)

const defaultRunLimit = 50

// #region router
// Router builds the HTTP API.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/evaluate", s.evaluate)
	v1.GET("/metrics", s.listMetrics)
	v1.GET("/metrics/:name", s.metricInfo)
	v1.POST("/metrics/:name/evaluate", s.evaluateMetric)
	v1.GET("/runs", s.listRuns)
	v1.GET("/runs/:id", s.getRun)
	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// #endregion router

// #region handlers
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	ds, err := req.Resolve()
	if err != nil {
		fail(c, err)
		return
	}
	res, err := s.eval.Evaluate(c.Request.Context(), s.model, ds, evaluator.Request{
		Pillars: req.Pillars,
		Metrics: req.Metrics,
		Options: req.Options,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res.Canonical())
}

func (s *Server) evaluateMetric(c *gin.Context) {
	name := c.Param("name")
	if !s.eval.Registry().Has(name) {
		abort(c, http.StatusNotFound, CodeUnknownMetric, &registry.UnknownMetricError{Name: name, Known: s.eval.Registry().Names()})
		return
	}
	var req MetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	ds, err := req.Resolve()
	if err != nil {
		fail(c, err)
		return
	}
	score, err := s.eval.EvaluateMetric(c.Request.Context(), name, s.model, ds, req.Options)
	if err != nil {
		fail(c, err)
		return
	}
	m, err := s.eval.Registry().Resolve(name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MetricResponse{Metric: name, Score: score, Interpretation: m.Interpret(score)})
}

func (s *Server) listMetrics(c *gin.Context) {
	all, err := s.catalog()
	if err != nil {
		fail(c, err)
		return
	}
	pillar := c.Query("pillar")
	if pillar == "" {
		c.JSON(http.StatusOK, all)
		return
	}
	if _, err := s.eval.Pillars().MetricsFor(pillar); err != nil {
		fail(c, err)
		return
	}
	filtered := make([]MetricInfo, 0, len(all))
	for _, m := range all {
		if m.Pillar == pillar {
			filtered = append(filtered, m)
		}
	}
	c.JSON(http.StatusOK, filtered)
}

func (s *Server) metricInfo(c *gin.Context) {
	name := c.Param("name")
	all, err := s.catalog()
	if err != nil {
		fail(c, err)
		return
	}
	for _, m := range all {
		if m.Name == name {
			c.JSON(http.StatusOK, m)
			return
		}
	}
	abort(c, http.StatusNotFound, CodeUnknownMetric, &registry.UnknownMetricError{Name: name, Known: s.eval.Registry().Names()})
}

func (s *Server) listRuns(c *gin.Context) {
	if s.runs == nil {
		fail(c, ErrStoreDisabled)
		return
	}
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			abort(c, http.StatusBadRequest, CodeBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	runs, err := s.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	if s.runs == nil {
		fail(c, ErrStoreDisabled)
		return
	}
	res, err := s.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res.Canonical())
}

// #endregion handlers

// #region responses
func fail(c *gin.Context, err error) {
	status, code := classify(err)
	abort(c, status, code, err)
}

func abort(c *gin.Context, status int, code string, err error) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// #endregion responses
