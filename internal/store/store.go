// Package store keeps evaluation run history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/caterya/internal/logging"
	"github.com/danielpatrickdp/caterya/internal/results"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	aggregation   TEXT NOT NULL,
	open_score    REAL NOT NULL,
	metric_count  INTEGER NOT NULL,
	failure_count INTEGER NOT NULL,
	document      TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metric_outcomes (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	metric        TEXT NOT NULL,
	score         REAL NOT NULL,
	ok            INTEGER NOT NULL,
	error         TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_metric_outcomes_run ON metric_outcomes(run_id);
`

// #endregion schema

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region store-struct
// Store manages evaluation runs in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region save-run
// SaveRun inserts the run document and one metric_outcomes row per metric
// atomically. The run id recorded in metadata is used when present;
// otherwise a new one is generated.
func (s *Store) SaveRun(ctx context.Context, r *results.Results) (string, error) {
	id := r.RunID()
	if id == "" {
		id = uuid.New().String()
	}
	doc, err := r.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal run: %w", err)
	}

	failed := make(map[string]string)
	for _, f := range r.Failures() {
		failed[f.Metric] = f.Error
	}
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	scores := r.MetricScores()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, aggregation, open_score, metric_count, failure_count, document, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, r.AggregationMethod(), r.OpenScore(), len(scores), len(failed), string(doc), now.Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, name := range r.MetricNames() {
		errText, isFailed := failed[name]
		entry := logging.OutcomeEntry{
			RunID:     id,
			Metric:    name,
			Score:     scores[name],
			OK:        !isFailed,
			Error:     errText,
			CreatedAt: now,
		}
		if err := logging.LogOutcome(ctx, tx, entry); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// #endregion save-run

// #region get-run
// GetRun reloads a stored run document.
func (s *Store) GetRun(ctx context.Context, id string) (*results.Results, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM runs WHERE run_id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	r, err := results.Decode(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return r, nil
}

// Latest returns the id of the most recently saved run.
func (s *Store) Latest(ctx context.Context) (string, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrRunNotFound
	}
	return runs[0].RunID, nil
}

// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, aggregation, open_score, metric_count, failure_count, created_at
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var createdStr string
		if err := rows.Scan(&rs.RunID, &rs.Aggregation, &rs.OpenScore, &rs.MetricCount, &rs.FailureCount, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rs.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		out = append(out, rs)
	}
	return out, rows.Err()
}

// #endregion list-runs

// #region outcomes
// Outcomes returns the per-metric rows of a run in metric name order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]logging.OutcomeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, metric, score, ok, error, created_at
		 FROM metric_outcomes WHERE run_id = ? ORDER BY metric, id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []logging.OutcomeEntry
	for rows.Next() {
		var e logging.OutcomeEntry
		var errText sql.NullString
		var createdStr string
		if err := rows.Scan(&e.RunID, &e.Metric, &e.Score, &e.OK, &errText, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if errText.Valid {
			e.Error = errText.String
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion outcomes

// #region delete-run
// DeleteRun removes a run and its outcomes.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// foreign_keys is per connection, so outcomes are removed explicitly
	if _, err := tx.ExecContext(ctx, `DELETE FROM metric_outcomes WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("delete outcomes %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}

// #endregion delete-run
