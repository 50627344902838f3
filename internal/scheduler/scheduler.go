package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// defaultCronGrace is reported as the expected interval of free-form cron schedules.
const defaultCronGrace = 5 * time.Minute

// Job is one dashboard refresh.
type Job func(ctx context.Context) error

// Config holds scheduler configuration
type Config struct {
	Interval       string         // "5m" or "*/5 * * * *"
	Timezone       *time.Location // default UTC
	RunImmediately bool
	Logger         *slog.Logger
}

// Scheduler runs a Job on a clock-aligned gocron schedule and remembers
// the outcome of the last run.
type Scheduler struct {
	cron           gocron.Scheduler
	job            gocron.Job
	schedule       Schedule
	timezone       *time.Location
	runImmediately bool
	logger         *slog.Logger

	mu          sync.Mutex
	lastRun     time.Time
	lastSuccess time.Time
	lastErr     error
	runs        int
}

// New creates a scheduler. The job receives ctx on every run.
func New(ctx context.Context, cfg Config, job Job) (*Scheduler, error) {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	schedule, err := ParseSchedule(cfg.Interval)
	if err != nil {
		return nil, fmt.Errorf("invalid interval: %w", err)
	}

	cron, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Timezone),
		gocron.WithLogger(slogAdapter{cfg.Logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	s := &Scheduler{
		cron:           cron,
		schedule:       schedule,
		timezone:       cfg.Timezone,
		runImmediately: cfg.RunImmediately,
		logger:         cfg.Logger,
	}

	s.job, err = cron.NewJob(
		gocron.CronJob(schedule.Cron, schedule.WithSeconds),
		gocron.NewTask(func() { s.run(ctx, job) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("dashboard-refresh"),
	)
	if err != nil {
		_ = cron.Shutdown()
		return nil, fmt.Errorf("failed to create scheduled job: %w", err)
	}

	s.logger.Info("Refresh scheduled", "schedule", schedule.Describe(cfg.Timezone))
	return s, nil
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	started := time.Now()
	err := job(ctx)

	s.mu.Lock()
	s.runs++
	s.lastRun = started
	s.lastErr = err
	if err == nil {
		s.lastSuccess = started
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Refresh failed", "error", err)
		return
	}
	s.logger.Debug("Refresh completed", "duration", time.Since(started))
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()

	if s.runImmediately {
		if err := s.job.RunNow(); err != nil {
			s.logger.Error("Immediate refresh failed", "error", err)
		}
	}

	if next, err := s.NextRun(); err == nil {
		s.logger.Info("Scheduler started", "next_run", next.Format(time.RFC3339), "timezone", s.timezone.String())
	}
}

// Stop waits for a running job and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.cron.Shutdown()
}

// NextRun returns the next scheduled run time
func (s *Scheduler) NextRun() (time.Time, error) {
	next, err := s.job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}
	return next, nil
}

// LastRun returns the start time and error of the most recent run.
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

// LastSuccess returns the start time of the most recent successful run.
func (s *Scheduler) LastSuccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccess
}

// Runs returns the number of completed runs.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// ExpectedInterval is used by the health checker to detect a stalled refresh.
func (s *Scheduler) ExpectedInterval() time.Duration {
	if s.schedule.Every > 0 {
		return s.schedule.Every
	}
	return defaultCronGrace
}

// Schedule returns the resolved schedule.
func (s *Scheduler) Schedule() Schedule {
	return s.schedule
}

// slogAdapter adapts slog.Logger to gocron.Logger
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
