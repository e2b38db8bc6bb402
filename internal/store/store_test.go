package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(i int) airquality.PredictionRecord {
	return airquality.PredictionRecord{
		Date: "2026-10-14",
		FeatureVector: airquality.FeatureVector{
			T: float64(i), TM: 30, Tm: 20, SLP: 1010, H: 70, V: 5,
		},
		PredictedPM25: float64(i) + 0.25,
	}
}

// backends opens every persistent backend in a fresh temp dir.
func backends(t *testing.T) map[string]airquality.HistoryStore {
	t.Helper()
	dir := t.TempDir()

	journal, err := OpenJournal(filepath.Join(dir, "history.json"), quietLogger())
	require.NoError(t, err)
	sqlite, err := OpenSQLite(filepath.Join(dir, "history.db"), quietLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = journal.Close()
		_ = sqlite.Close()
	})
	return map[string]airquality.HistoryStore{
		BackendJSON:   journal,
		BackendSQLite: sqlite,
		BackendMemory: NewMemoryStore(),
	}
}

func TestAppendKeepsInsertionOrder(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			recs, err := s.All(ctx)
			require.NoError(t, err)
			assert.Empty(t, recs)

			for i := 0; i < 5; i++ {
				require.NoError(t, s.Append(ctx, record(i)))
			}

			recs, err = s.All(ctx)
			require.NoError(t, err)
			require.Len(t, recs, 5)
			for i, r := range recs {
				assert.Equal(t, record(i), r)
			}
		})
	}
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	const m = 50
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var wg sync.WaitGroup
			errs := make(chan error, m)
			for i := 0; i < m; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- s.Append(ctx, record(i))
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			recs, err := s.All(ctx)
			require.NoError(t, err)
			require.Len(t, recs, m)

			seen := make(map[float64]bool)
			for _, r := range recs {
				seen[r.T] = true
			}
			assert.Len(t, seen, m)
		})
	}
}

func TestJournal_CreatesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	s, err := OpenJournal(path, quietLogger())
	require.NoError(t, err)
	defer s.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestJournal_MissingFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s, err := OpenJournal(path, quietLogger())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, os.Remove(path))

	recs, err := s.All(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestJournal_MalformedFileReadsEmpty(t *testing.T) {
	for name, body := range map[string]string{
		"object":      `{"date":"2026-10-14"}`,
		"garbage":     `not json at all`,
		"wrong items": `[1, 2, 3]`,
		"truncated":   `[{"date":"2026-10-14","T":1`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			s, err := OpenJournal(path, quietLogger())
			require.NoError(t, err)
			defer s.Close()

			recs, err := s.All(context.Background())
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

func TestJournal_AppendOverMalformedKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"oops": true}`), 0o644))

	s, err := OpenJournal(path, quietLogger())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(context.Background(), record(1)))

	recs, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []airquality.PredictionRecord{record(1)}, recs)

	backups, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, `{"oops": true}`, string(data))
}

func TestJournal_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s, err := OpenJournal(path, quietLogger())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(context.Background(), record(2)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	for _, key := range []string{"date", "T", "TM", "Tm", "SLP", "H", "V", "predicted_pm25"} {
		assert.Contains(t, raw[0], key)
	}
	assert.Equal(t, 2.25, raw[0]["predicted_pm25"])
}

func TestJournal_ReopenSeesPriorRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s, err := OpenJournal(path, quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), record(1)))
	require.NoError(t, s.Close())

	s, err = OpenJournal(path, quietLogger())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Append(context.Background(), record(2)))

	recs, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []airquality.PredictionRecord{record(1), record(2)}, recs)
}

func TestJournal_AppendAfterClose(t *testing.T) {
	s, err := OpenJournal(filepath.Join(t.TempDir(), "history.json"), quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.Append(context.Background(), record(1))
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := OpenSQLite(path, quietLogger())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(context.Background(), record(i)))
	}
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path, quietLogger())
	require.NoError(t, err)
	defer s.Close()

	recs, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{BackendJSON, BackendSQLite, BackendMemory, ""} {
		t.Run(fmt.Sprintf("backend=%q", backend), func(t *testing.T) {
			s, err := Open(Options{
				Backend:    backend,
				JSONPath:   filepath.Join(dir, backend+"history.json"),
				SQLitePath: filepath.Join(dir, backend+"history.db"),
			}, quietLogger())
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}

	_, err := Open(Options{Backend: "postgres"}, quietLogger())
	assert.Error(t, err)
}
