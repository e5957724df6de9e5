package logging

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE metric_outcomes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL,
		metric     TEXT NOT NULL,
		score      REAL NOT NULL,
		ok         INTEGER NOT NULL,
		error      TEXT,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-outcome-tests
func TestLogOutcome_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := OutcomeEntry{
		RunID:     "run-1",
		Metric:    "symmetry_index",
		Score:     0.97,
		OK:        true,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogOutcome(context.Background(), db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var metric string
	var score float64
	var ok bool
	var errText sql.NullString
	db.QueryRow("SELECT metric, score, ok, error FROM metric_outcomes").Scan(&metric, &score, &ok, &errText)
	if metric != "symmetry_index" || score != 0.97 || !ok {
		t.Errorf("unexpected row: metric=%q score=%v ok=%v", metric, score, ok)
	}
	if errText.Valid {
		t.Error("expected NULL error for successful outcome")
	}
}

func TestLogOutcome_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	err := LogOutcome(context.Background(), db, OutcomeEntry{RunID: "run-2", Metric: "provenance", Error: "boom"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr, errText string
	db.QueryRow("SELECT created_at, error FROM metric_outcomes").Scan(&createdAtStr, &errText)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
	if errText != "boom" {
		t.Errorf("expected error text 'boom', got %q", errText)
	}
}

func TestLogOutcome_InsideTransaction(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := LogOutcome(context.Background(), tx, OutcomeEntry{RunID: "r", Metric: "m", OK: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM metric_outcomes").Scan(&count)
	if count != 0 {
		t.Errorf("expected rolled back insert, got %d rows", count)
	}
}

func TestLogOutcome_Error(t *testing.T) {
	db := setupDB(t)
	db.Close()

	if err := LogOutcome(context.Background(), db, OutcomeEntry{RunID: "r", Metric: "m"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-outcome-tests

// #region cli-handler-tests
func TestCLIHandler_Colors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo))

	logger.Info("plain")
	logger.Warn("careful")
	logger.Error("broken")

	out := buf.String()
	assert.Contains(t, out, colorGreen+"plain"+colorReset)
	assert.Contains(t, out, colorYellow+"careful"+colorReset)
	assert.Contains(t, out, colorRed+"broken"+colorReset)
}

func TestCLIHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelWarn))
	logger.Info("hidden")
	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestCLIHandler_Attributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo)).With("run_id", "r1")
	logger.WithGroup("evaluator").Warn("metric failed", "metric", "provenance")

	out := buf.String()
	assert.Contains(t, out, "[evaluator] metric failed: run_id=r1 metric=provenance")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("debug", FormatJSON, &buf)
	require.NoError(t, err)
	logger.Debug("hello", "metric", "x")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "x", rec["metric"])

	_, err = NewLogger("info", "xml", &buf)
	assert.Error(t, err)

	text, err := NewLogger("info", "", &buf)
	require.NoError(t, err)
	_, isCLI := text.Handler().(*CLIHandler)
	assert.True(t, isCLI)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

// #endregion cli-handler-tests
