package airquality

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/pm25-dashboard/internal/common"
)

const (
	// DefaultForecastDays is the horizon used when a caller does not specify one.
	DefaultForecastDays = 7
	// DefaultMaxForecastDays caps the horizon unless WithMaxForecastDays
	// sets another positive limit.
	DefaultMaxForecastDays = 366
)

// Service serves predictions, forecasts, the dataset and the prediction
// history. It holds immutable references built once at startup.
type Service struct {
	dataset Dataset
	model   Model
	history HistoryStore
	logger  *slog.Logger

	now              func() time.Time
	inferenceTimeout time.Duration
	maxForecastDays  int
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the source of the current date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithInferenceTimeout bounds every model call. Zero disables the bound.
func WithInferenceTimeout(d time.Duration) Option {
	return func(s *Service) { s.inferenceTimeout = d }
}

// WithMaxForecastDays caps the forecast horizon. n <= 0 keeps
// DefaultMaxForecastDays.
func WithMaxForecastDays(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxForecastDays = n
		}
	}
}

// NewService creates a new Service.
func NewService(dataset Dataset, model Model, history HistoryStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		dataset: dataset,
		model:   model,
		history: history,
		logger:  logger,
		now:     time.Now,

		maxForecastDays: DefaultMaxForecastDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Predict runs the model on a single feature vector, journals the result and
// returns the prediction rounded to two decimal places. Nothing is journaled
// unless inference succeeds.
func (s *Service) Predict(ctx context.Context, fv FeatureVector) (float64, error) {
	if err := ValidateFeatureVector(fv); err != nil {
		return 0, err
	}

	out, err := s.infer(ctx, [][]float64{fv.Values()})
	if err != nil {
		return 0, err
	}
	value := common.Round(out[0], 2)

	rec := PredictionRecord{
		Date:          s.today().Format(DateLayout),
		FeatureVector: fv,
		PredictedPM25: value,
	}
	if err := s.history.Append(ctx, rec); err != nil {
		var se *StorageError
		if !errors.As(err, &se) {
			err = &StorageError{Op: "append", Err: err}
		}
		return 0, err
	}

	s.logger.Debug("prediction journaled", "date", rec.Date, "predicted_pm25", value)
	return value, nil
}

// Forecast predicts PM2.5 for days consecutive calendar dates starting today.
// Every day is fed the same feature vector (the dataset column means), so all
// points of one call carry the same value.
func (s *Service) Forecast(ctx context.Context, days int) ([]ForecastPoint, error) {
	if err := ValidateHorizon(days, s.maxForecastDays); err != nil {
		return nil, err
	}

	means, err := s.dataset.FeatureMeans(FeatureNames)
	if err != nil {
		return nil, fmt.Errorf("feature means: %w", err)
	}
	row := FeatureVectorFrom(means).Values()

	rows := make([][]float64, days)
	for i := range rows {
		rows[i] = row
	}

	out, err := s.infer(ctx, rows)
	if err != nil {
		return nil, err
	}

	start := s.today()
	points := make([]ForecastPoint, days)
	for i := range points {
		points[i] = ForecastPoint{
			Date:          start.AddDate(0, 0, i).Format(DateLayout),
			PredictedPM25: common.Round(out[i], 2),
		}
	}
	return points, nil
}

// Data returns the complete historical rows.
func (s *Service) Data() []Row {
	rows := s.dataset.Rows()
	if rows == nil {
		return []Row{}
	}
	return rows
}

// History returns every journaled prediction in call order. Read failures are
// logged and degrade to an empty history.
func (s *Service) History(ctx context.Context) []PredictionRecord {
	recs, err := s.history.All(ctx)
	if err != nil {
		s.logger.Warn("history read failed; serving empty history", "err", err)
		return []PredictionRecord{}
	}
	if recs == nil {
		return []PredictionRecord{}
	}
	return recs
}

// infer calls the model once, bounded by the inference timeout, and checks
// the result shape.
func (s *Service) infer(ctx context.Context, rows [][]float64) ([]float64, error) {
	if s.inferenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.inferenceTimeout)
		defer cancel()
	}

	out, err := s.model.Predict(ctx, rows)
	if err != nil {
		var me *ModelInferenceError
		if errors.As(err, &me) {
			return nil, err
		}
		return nil, &ModelInferenceError{Err: err}
	}
	if len(out) != len(rows) {
		return nil, &ModelInferenceError{Err: fmt.Errorf("model returned %d predictions for %d rows", len(out), len(rows))}
	}
	for i, v := range out {
		if !common.IsFinite(v) {
			return nil, &ModelInferenceError{Err: fmt.Errorf("model returned non-finite prediction %v for row %d", v, i)}
		}
	}
	return out, nil
}

func (s *Service) today() time.Time {
	now := s.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
