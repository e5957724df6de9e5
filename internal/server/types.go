package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/caterya/internal/dataset"
	"github.com/danielpatrickdp/caterya/internal/metric"
	"github.com/danielpatrickdp/caterya/internal/results"
	"github.com/danielpatrickdp/caterya/internal/store"
)

// ErrStoreDisabled is returned by run history routes when no store is
// configured.
var ErrStoreDisabled = errors.New("run history is disabled")

// Error codes carried in ErrorResponse.Code.
const (
	CodeBadRequest     = "bad_request"
	CodeUnknownMetric  = "unknown_metric"
	CodeUnknownPillar  = "unknown_pillar"
	CodeInvalidDataset = "invalid_dataset"
	CodeComputation    = "computation_failed"
	CodeRunNotFound    = "run_not_found"
	CodeStoreDisabled  = "store_disabled"
	CodeTimeout        = "timeout"
	CodeInternal       = "internal"
)

// #region requests
// DatasetSource carries either an inline dataset or a synthetic spec.
type DatasetSource struct {
	Dataset   *metric.Dataset `json:"dataset,omitempty"`
	Synthetic *dataset.Spec   `json:"synthetic,omitempty"`
}

// Resolve returns the dataset the source names.
func (s DatasetSource) Resolve() (*metric.Dataset, error) {
	switch {
	case s.Dataset != nil && s.Synthetic != nil:
		return nil, fmt.Errorf("%w: give dataset or synthetic, not both", metric.ErrInvalidDataset)
	case s.Dataset != nil:
		if err := s.Dataset.Validate(); err != nil {
			return nil, err
		}
		return s.Dataset, nil
	case s.Synthetic != nil:
		if err := s.Synthetic.Validate(); err != nil {
			return nil, err
		}
		return dataset.Generate(*s.Synthetic), nil
	}
	return nil, fmt.Errorf("%w: dataset or synthetic is required", metric.ErrInvalidDataset)
}

// EvaluateRequest is the body of POST /v1/evaluate.
type EvaluateRequest struct {
	DatasetSource
	Pillars []string       `json:"pillars"`
	Metrics []string       `json:"metrics,omitempty"`
	Options metric.Options `json:"options,omitempty"`
}

// MetricRequest is the body of POST /v1/metrics/:name/evaluate.
type MetricRequest struct {
	DatasetSource
	Options metric.Options `json:"options,omitempty"`
}

// #endregion requests

// #region responses
// MetricResponse is the result of a single metric evaluation.
type MetricResponse struct {
	Metric         string  `json:"metric"`
	Score          float64 `json:"score"`
	Interpretation string  `json:"interpretation"`
}

// MetricInfo describes a registered metric for listings.
type MetricInfo struct {
	Name        string        `json:"name"`
	Pillar      string        `json:"pillar,omitempty"`
	Bounds      metric.Bounds `json:"bounds"`
	Description string        `json:"description"`
}

// ErrorResponse is every non-2xx body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// #endregion responses

// #region run-reader
// RunReader reads the run history. *store.Store satisfies it.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*results.Results, error)
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
}

// #endregion run-reader
