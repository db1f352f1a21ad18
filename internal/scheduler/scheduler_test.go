package scheduler

import (
	"context"
	"testing"
	"time"

	"marketcast/internal/logging"
	"marketcast/internal/queue"
	"marketcast/internal/testsupport"
)

func TestRegisterJobsBindsAllSchedules(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	registry := New(context.Background(), logging.Nop())

	err := registry.RegisterJobs(cfg, func(ctx context.Context, jobType queue.JobType) {})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := registry.Entries(); got != 5 {
		t.Fatalf("entries = %d, want 5", got)
	}
}

func TestRegisterJobsSkipsEmptySchedules(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedules.VideoBatch = ""
	cfg.Schedules.WeeklyRecap = "   "
	registry := New(context.Background(), logging.Nop())

	if err := registry.RegisterJobs(cfg, func(ctx context.Context, jobType queue.JobType) {}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := registry.Entries(); got != 3 {
		t.Fatalf("entries = %d, want 3", got)
	}
}

func TestAddRejectsInvalidExpression(t *testing.T) {
	registry := New(context.Background(), logging.Nop())
	err := registry.Add("not a cron expr", queue.JobDailyBrief, func(ctx context.Context) {})
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAddRejectsSecondsField(t *testing.T) {
	// Five-field expressions only; a seconds field is a config mistake.
	registry := New(context.Background(), logging.Nop())
	err := registry.Add("0 0 13 * * *", queue.JobDailyBrief, func(ctx context.Context) {})
	if err == nil {
		t.Fatal("expected parse error for six fields")
	}
}

func TestStartStop(t *testing.T) {
	registry := New(context.Background(), logging.Nop())
	if err := registry.Add("* * * * *", queue.JobWhaleAlert, func(ctx context.Context) {}); err != nil {
		t.Fatalf("add: %v", err)
	}
	registry.Start()

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	registry.Stop(stopCtx)
}
