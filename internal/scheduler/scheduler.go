package scheduler

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/pm25-dashboard/internal/synthetic"
)

// Scheduler regenerates the synthetic forecast artifact once a day so its
// date labels start at the current day.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	path      string
	params    synthetic.Params
	at        string
	now       func() time.Time
}

// New creates a new Scheduler. at is a daily "HH:MM" time; empty disables
// the job.
func New(path, at string, params synthetic.Params, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		logger:    logger.With("component", "scheduler"),
		path:      path,
		params:    params,
		at:        at,
		now:       time.Now,
	}
}

// Start writes the artifact if it is missing, then schedules the daily job
// and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		s.refresh()
	}

	if s.at == "" {
		s.logger.Info("synthetic forecast refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(1).Day().At(s.at).Do(s.refresh)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) refresh() {
	points, err := synthetic.Publish(s.path, s.params, s.now())
	if err != nil {
		s.logger.Error("synthetic forecast refresh failed", "path", s.path, "err", err)
		return
	}
	s.logger.Info("synthetic forecast written", "path", s.path, "days", len(points), "start", points[0].Date)
}
