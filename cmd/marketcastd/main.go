// Command marketcastd is the scheduling daemon: it loads configuration, takes
// a singleton lock, and fires the configured content jobs on their cron
// schedules until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"marketcast/internal/config"
	"marketcast/internal/deps"
	"marketcast/internal/logging"
	"marketcast/internal/queue"
	"marketcast/internal/scheduler"
	"marketcast/internal/services"
	"marketcast/internal/workflow"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	onceFlag := flag.Bool("once", false, "run every scheduled job one time, then exit")
	dryRunFlag := flag.Bool("dry-run", false, "stop each job before publishing")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A .env beside the working directory is a convenience for credentials;
	// absence is not an error.
	_ = godotenv.Load()

	cfg, configPath, _, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Paths:  []string{"stdout", filepath.Join(cfg.Paths.LogDir, "marketcastd.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logger.Info("marketcastd starting", slog.String("config", configPath))

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "marketcastd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		logger.Error("acquire daemon lock", logging.Error(err))
		os.Exit(1)
	}
	if !locked {
		logger.Error("another marketcastd instance holds the lock",
			slog.String("path", lock.Path()))
		os.Exit(1)
	}
	defer lock.Unlock() //nolint:errcheck

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	runner := workflow.NewRunner(cfg, logger, store, workflow.NewDefaultDeps(cfg, logger))

	// The video pipeline shells out to external tools; their absence is a
	// configuration error and must stop the process before any schedule fires.
	if strings.TrimSpace(cfg.Schedules.VideoBatch) != "" {
		if err := deps.VerifyRequired(cfg); err != nil {
			logger.Error("tool preflight failed", logging.Error(err))
			os.Exit(1)
		}
	}

	if *onceFlag {
		if runOnce(ctx, cfg, logger, runner, *dryRunFlag) {
			return
		}
		os.Exit(1)
	}

	var fatal atomic.Bool
	shutdown := func() {
		fatal.Store(true)
		cancel()
	}
	run := func(ctx context.Context, jobType queue.JobType) error {
		_, err := runner.Run(ctx, jobType, *dryRunFlag)
		return err
	}

	registry := scheduler.New(ctx, logger)
	err = registry.RegisterJobs(cfg, newJobHandler(logger, run, shutdown))
	if err != nil {
		logger.Error("register schedules", logging.Error(err))
		os.Exit(1)
	}
	registry.Start()

	<-ctx.Done()
	logger.Info("marketcastd shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	registry.Stop(stopCtx)
	stopCancel()

	if fatal.Load() {
		store.Close()
		lock.Unlock() //nolint:errcheck
		os.Exit(1)
	}
}

// newJobHandler wraps a job run for the scheduler. Configuration-class
// errors are the one class that must kill the process, so they trigger
// shutdown; every other failure is scoped to its job and the schedule keeps
// firing.
func newJobHandler(logger *slog.Logger, run func(context.Context, queue.JobType) error, shutdown func()) func(context.Context, queue.JobType) {
	return func(ctx context.Context, jobType queue.JobType) {
		err := run(ctx, jobType)
		if err == nil {
			return
		}
		logger.Error("scheduled job failed",
			slog.String(logging.FieldJobType, string(jobType)),
			logging.Error(err))
		if services.IsFatal(err) {
			logger.Error("configuration error, stopping daemon",
				slog.String(logging.FieldJobType, string(jobType)))
			shutdown()
		}
	}
}

// runOnce executes each job with a non-empty schedule a single time,
// sequentially, and reports whether every run finished without error.
func runOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger, runner *workflow.Runner, dryRun bool) bool {
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

	ok := true
	for _, binding := range bindings {
		if strings.TrimSpace(binding.expr) == "" {
			continue
		}
		if ctx.Err() != nil {
			return false
		}
		if _, err := runner.Run(ctx, binding.jobType, dryRun); err != nil {
			logger.Error("job failed",
				slog.String(logging.FieldJobType, string(binding.jobType)),
				logging.Error(err))
			if services.IsFatal(err) {
				return false
			}
			ok = false
		}
	}
	return ok
}
