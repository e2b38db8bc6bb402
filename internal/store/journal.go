package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
)

var (
	// ErrClosed is returned by Append after Close.
	ErrClosed = errors.New("history store closed")

	errMalformed = errors.New("history file is not a JSON array of records")
)

type appendRequest struct {
	rec    airquality.PredictionRecord
	result chan error
}

// JournalStore keeps the history as a JSON array in a single file.
//
// One goroutine owns every write: appends are queued and applied one at a
// time as read, append, write-to-temp, rename. Readers only ever observe a
// complete file.
type JournalStore struct {
	path   string
	logger *slog.Logger

	reqs      chan appendRequest
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// OpenJournal opens the journal at path, creating it as an empty array when
// absent, and starts the writer goroutine.
func OpenJournal(path string, logger *slog.Logger) (*JournalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &airquality.StorageError{Op: "open", Err: err}
		}
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeAtomic(path, []byte("[]\n")); err != nil {
			return nil, &airquality.StorageError{Op: "create", Err: err}
		}
	} else if err != nil {
		return nil, &airquality.StorageError{Op: "open", Err: err}
	}

	s := &JournalStore{
		path:   path,
		logger: logger.With("component", "history", "path", path),
		reqs:   make(chan appendRequest),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

// Append queues rec behind any in-flight appends and waits until it is
// durable. Once accepted, a record is always written even if ctx ends.
func (s *JournalStore) Append(ctx context.Context, rec airquality.PredictionRecord) error {
	req := appendRequest{rec: rec, result: make(chan error, 1)}
	select {
	case s.reqs <- req:
	case <-ctx.Done():
		return &airquality.StorageError{Op: "append", Err: ctx.Err()}
	case <-s.quit:
		return &airquality.StorageError{Op: "append", Err: ErrClosed}
	}
	return <-req.result
}

// All returns the journaled records. A missing or malformed file reads as
// an empty history.
func (s *JournalStore) All(_ context.Context) ([]airquality.PredictionRecord, error) {
	recs, _, err := s.read()
	if errors.Is(err, errMalformed) {
		s.logger.Warn("history file is malformed; treating as empty", "err", err)
		return []airquality.PredictionRecord{}, nil
	}
	if err != nil {
		return nil, &airquality.StorageError{Op: "read", Err: err}
	}
	return recs, nil
}

// Close stops the writer after the append in progress, if any.
func (s *JournalStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
	return nil
}

func (s *JournalStore) loop() {
	defer close(s.done)
	for {
		select {
		case req := <-s.reqs:
			req.result <- s.appendNow(req.rec)
		case <-s.quit:
			return
		}
	}
}

func (s *JournalStore) appendNow(rec airquality.PredictionRecord) error {
	recs, raw, err := s.read()
	if errors.Is(err, errMalformed) {
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UnixNano())
		if werr := os.WriteFile(backup, raw, 0o644); werr != nil {
			return &airquality.StorageError{Op: "backup", Err: werr}
		}
		s.logger.Warn("malformed history file moved aside", "backup", backup)
		recs = nil
	} else if err != nil {
		return &airquality.StorageError{Op: "append", Err: err}
	}

	recs = append(recs, rec)
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return &airquality.StorageError{Op: "append", Err: err}
	}
	if err := writeAtomic(s.path, append(data, '\n')); err != nil {
		return &airquality.StorageError{Op: "append", Err: err}
	}
	return nil
}

// read returns the decoded records and the raw file bytes.
func (s *JournalStore) read() ([]airquality.PredictionRecord, []byte, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []airquality.PredictionRecord{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []airquality.PredictionRecord{}, raw, nil
	}

	var recs []airquality.PredictionRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, raw, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if recs == nil {
		recs = []airquality.PredictionRecord{}
	}
	return recs, raw, nil
}

// writeAtomic replaces path with data via a synced temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
