package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS predictions (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	date           TEXT NOT NULL,
	t              REAL NOT NULL,
	tm_max         REAL NOT NULL,
	tm_min         REAL NOT NULL,
	slp            REAL NOT NULL,
	h              REAL NOT NULL,
	v              REAL NOT NULL,
	predicted_pm25 REAL NOT NULL
);`

// SQLiteStore keeps the history as rows of an append-only table. Each append
// is its own transaction and a single connection serializes writers.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &airquality.StorageError{Op: "open", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &airquality.StorageError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
		sqliteSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, &airquality.StorageError{Op: "init", Err: fmt.Errorf("%s: %w", stmt, err)}
		}
	}

	return &SQLiteStore{db: db, logger: logger.With("component", "history", "path", path)}, nil
}

// Append inserts rec as the newest row.
func (s *SQLiteStore) Append(ctx context.Context, rec airquality.PredictionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (date, t, tm_max, tm_min, slp, h, v, predicted_pm25)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Date, rec.T, rec.TM, rec.Tm, rec.SLP, rec.H, rec.V, rec.PredictedPM25,
	)
	if err != nil {
		return &airquality.StorageError{Op: "append", Err: err}
	}
	return nil
}

// All returns every row in insertion order.
func (s *SQLiteStore) All(ctx context.Context) ([]airquality.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, t, tm_max, tm_min, slp, h, v, predicted_pm25 FROM predictions ORDER BY seq`)
	if err != nil {
		return nil, &airquality.StorageError{Op: "read", Err: err}
	}
	defer rows.Close()

	recs := []airquality.PredictionRecord{}
	for rows.Next() {
		var r airquality.PredictionRecord
		if err := rows.Scan(&r.Date, &r.T, &r.TM, &r.Tm, &r.SLP, &r.H, &r.V, &r.PredictedPM25); err != nil {
			return nil, &airquality.StorageError{Op: "read", Err: err}
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &airquality.StorageError{Op: "read", Err: err}
	}
	return recs, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
