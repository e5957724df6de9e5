package store

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// #region run-summary
// RunSummary is one row of the run history listing.
type RunSummary struct {
	RunID        string    `json:"run_id" yaml:"run_id"`
	Aggregation  string    `json:"aggregation_method" yaml:"aggregation_method"`
	OpenScore    float64   `json:"open_score" yaml:"open_score"`
	MetricCount  int       `json:"metric_count" yaml:"metric_count"`
	FailureCount int       `json:"failure_count" yaml:"failure_count"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// #endregion run-summary
