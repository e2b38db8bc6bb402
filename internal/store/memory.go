package store

import (
	"context"
	"sync"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
)

// MemoryStore is a concurrency-safe in-memory history. Contents are lost on
// exit; it backs tests and throwaway dev runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records []airquality.PredictionRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a record at the end of the history.
func (s *MemoryStore) Append(_ context.Context, rec airquality.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	return nil
}

// All returns a copy of the history in insertion order.
func (s *MemoryStore) All(_ context.Context) ([]airquality.PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]airquality.PredictionRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
