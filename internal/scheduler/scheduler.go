package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kirillkom/findit/internal/core/ports"
)

const (
	JobExpire  = "expire"
	JobRematch = "rematch"
)

type JobRecorder interface {
	RecordJobRun(job string, err error)
}

type Options struct {
	ExpireSpec   string
	RematchSpec  string
	RematchBatch int
	JobTimeout   time.Duration
	Recorder     JobRecorder
	Logger       *slog.Logger
}

// Scheduler runs periodic maintenance: expiring stale reports and requeueing
// active items so they are matched against newly reported ones.
type Scheduler struct {
	cron        *cron.Cron
	maintenance ports.Maintenance
	opts        Options
	logger      *slog.Logger
	baseCtx     context.Context
}

func New(maintenance ports.Maintenance, opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 5 * time.Minute
	}
	if opts.RematchBatch <= 0 {
		opts.RematchBatch = 200
	}

	cronLogger := slogCronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		maintenance: maintenance,
		opts:        opts,
		logger:      logger,
		baseCtx:     context.Background(),
	}
}

// Start registers the configured jobs and starts the cron loop. An empty spec
// disables that job. Jobs stop receiving new runs once ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.baseCtx = ctx

	if s.opts.ExpireSpec != "" {
		if _, err := s.cron.AddFunc(s.opts.ExpireSpec, func() { _ = s.RunNow(JobExpire) }); err != nil {
			return fmt.Errorf("schedule %s job: %w", JobExpire, err)
		}
	}
	if s.opts.RematchSpec != "" {
		if _, err := s.cron.AddFunc(s.opts.RematchSpec, func() { _ = s.RunNow(JobRematch) }); err != nil {
			return fmt.Errorf("schedule %s job: %w", JobRematch, err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler_started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler_stop_timeout")
	}
}

func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// RunNow executes one job synchronously.
func (s *Scheduler) RunNow(job string) error {
	if err := s.baseCtx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(s.baseCtx, s.opts.JobTimeout)
	defer cancel()

	start := time.Now()
	var (
		affected int64
		err      error
	)
	switch job {
	case JobExpire:
		affected, err = s.maintenance.ExpireStale(ctx)
	case JobRematch:
		var queued int
		queued, err = s.maintenance.RequeueActive(ctx, s.opts.RematchBatch)
		affected = int64(queued)
	default:
		return fmt.Errorf("unknown scheduler job %q", job)
	}

	if s.opts.Recorder != nil {
		s.opts.Recorder.RecordJobRun(job, err)
	}
	durationMS := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		s.logger.Error("scheduler_job_failed", "job", job, "affected", affected, "duration_ms", durationMS, "error", err)
		return err
	}
	s.logger.Info("scheduler_job_done", "job", job, "affected", affected, "duration_ms", durationMS)
	return nil
}

type slogCronLogger struct {
	logger *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron_"+msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron_"+msg, append(keysAndValues, "error", err)...)
}
