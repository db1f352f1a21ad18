// Package scheduler holds the cron registry: (expression, job handler) pairs
// constructed at process start and torn down on shutdown. No ambient
// globals; the daemon owns the registry's lifecycle.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"

	"marketcast/internal/config"
	"marketcast/internal/logging"
	"marketcast/internal/queue"
)

// Handler executes one job trigger.
type Handler func(ctx context.Context)

// Registry wraps the cron runner with logging and typed job registration.
type Registry struct {
	cron    *cron.Cron
	logger  *slog.Logger
	baseCtx context.Context
}

// New constructs an empty registry. Triggered handlers receive baseCtx so a
// daemon shutdown cancels in-flight jobs.
func New(baseCtx context.Context, logger *slog.Logger) *Registry {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Registry{
		cron:    cron.New(cron.WithParser(parser)),
		logger:  logging.WithComponent(logger, "scheduler"),
		baseCtx: baseCtx,
	}
}

// Add binds a cron expression to a job handler.
func (r *Registry) Add(expr string, jobType queue.JobType, handler Handler) error {
	_, err := r.cron.AddFunc(expr, func() {
		r.logger.Info("cron trigger",
			slog.String(logging.FieldJobType, string(jobType)),
			slog.String("schedule", expr))
		handler(r.baseCtx)
	})
	if err != nil {
		return fmt.Errorf("register %s (%q): %w", jobType, expr, err)
	}
	r.logger.Info("job scheduled",
		slog.String(logging.FieldJobType, string(jobType)),
		slog.String("schedule", expr))
	return nil
}

// RegisterJobs binds every configured schedule to the run callback.
func (r *Registry) RegisterJobs(cfg *config.Config, run func(ctx context.Context, jobType queue.JobType)) error {
	bindings := []struct {
		expr    string
		jobType queue.JobType
	}{
		{cfg.Schedules.DailyBrief, queue.JobDailyBrief},
		{cfg.Schedules.WhaleAlert, queue.JobWhaleAlert},
		{cfg.Schedules.TokenSpotlight, queue.JobTokenSpotlight},
		{cfg.Schedules.WeeklyRecap, queue.JobWeeklyRecap},
		{cfg.Schedules.VideoBatch, queue.JobVideoBatch},
	}
	for _, binding := range bindings {
		jobType := binding.jobType
		if strings.TrimSpace(binding.expr) == "" {
			r.logger.Info("job disabled, no schedule",
				slog.String(logging.FieldJobType, string(jobType)))
			continue
		}
		if err := r.Add(binding.expr, jobType, func(ctx context.Context) {
			run(ctx, jobType)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Entries reports how many schedules are registered.
func (r *Registry) Entries() int {
	return len(r.cron.Entries())
}

// Start begins firing schedules in the background.
func (r *Registry) Start() {
	r.cron.Start()
	r.logger.Info("scheduler started", slog.Int("jobs", r.Entries()))
}

// Stop halts scheduling and waits for running handlers to return, bounded by
// ctx.
func (r *Registry) Stop(ctx context.Context) {
	done := r.cron.Stop().Done()
	select {
	case <-done:
		r.logger.Info("scheduler stopped")
	case <-ctx.Done():
		r.logger.Warn("scheduler stop timed out with jobs still running")
	}
}
