package airquality

import "context"

// Dataset is the read-only historical table loaded at startup.
type Dataset interface {
	// Rows returns every complete row. Callers must not modify them.
	Rows() []Row
	// FeatureMeans returns the arithmetic mean of each named column over
	// complete rows, or ErrEmptyDataset.
	FeatureMeans(columns []string) (map[string]float64, error)
}

// Model is a trained regression model. Each row is in FeatureNames order
// and yields exactly one prediction.
type Model interface {
	Predict(ctx context.Context, rows [][]float64) ([]float64, error)
}

// HistoryStore is the contract every prediction journal backend satisfies.
// Append must be safe for concurrent callers and must never lose a record.
type HistoryStore interface {
	Append(ctx context.Context, rec PredictionRecord) error
	All(ctx context.Context) ([]PredictionRecord, error)
	Close() error
}
