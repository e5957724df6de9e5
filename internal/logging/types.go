package logging

import "time"

// #region outcome-entry
// OutcomeEntry is a single row in the metric_outcomes table: what one metric
// produced inside one evaluation run.
type OutcomeEntry struct {
	RunID     string    `json:"run_id"`
	Metric    string    `json:"metric"`
	Score     float64   `json:"score"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"` // empty when OK
	CreatedAt time.Time `json:"created_at"`
}

// #endregion outcome-entry

// #region formats
// Output formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// #endregion formats
