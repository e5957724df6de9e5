package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// #region log-outcome
// LogOutcome writes one metric outcome to the metric_outcomes table.
func LogOutcome(ctx context.Context, db Execer, entry OutcomeEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO metric_outcomes (run_id, metric, score, ok, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Metric,
		entry.Score,
		entry.OK,
		nullIfEmpty(entry.Error),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log outcome %s: %w", entry.Metric, err)
	}
	return nil
}

// #endregion log-outcome

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
