package store

import (
	"fmt"
	"log/slog"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and locates a history backend.
type Options struct {
	Backend    string
	JSONPath   string
	SQLitePath string
}

// Open returns the configured history backend.
func Open(opts Options, logger *slog.Logger) (airquality.HistoryStore, error) {
	switch opts.Backend {
	case BackendJSON, "":
		s, err := OpenJournal(opts.JSONPath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := OpenSQLite(opts.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", opts.Backend)
	}
}
