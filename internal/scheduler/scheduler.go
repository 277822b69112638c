// Package scheduler triggers pipeline runs on a cron expression or a fixed
// interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/meteo-etl-service/internal/domain"
)

// Runner executes one pipeline run.
type Runner interface {
	RunOnce(ctx context.Context) (domain.RunReport, error)
}

// Scheduler invokes a Runner on a recurring trigger.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	cron      string
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a Scheduler. A non-zero interval takes precedence over cron.
func New(runner Runner, cron string, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		cron:      cron,
		interval:  interval,
		logger:    logger,
	}
}

// Start registers the job and starts the scheduler in the background.
// Overlapping triggers are skipped while a run is in progress.
func (s *Scheduler) Start() error {
	var sched *gocron.Scheduler
	switch {
	case s.interval > 0:
		sched = s.scheduler.Every(s.interval)
	case s.cron != "":
		sched = s.scheduler.Cron(s.cron)
	default:
		return errors.New("scheduler: either a cron expression or an interval is required")
	}

	if _, err := sched.SingletonMode().Do(s.run); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "cron", s.cron, "interval", s.interval)
	return nil
}

func (s *Scheduler) run() {
	report, err := s.runner.RunOnce(context.Background())
	if err != nil {
		// RunOnce has already logged the failure.
		return
	}
	s.logger.Debug("scheduled run finished", "run_id", report.ID)
}

// Stop stops the scheduler. A run already in progress finishes on its own.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.logger.Info("scheduler stopped")
}
