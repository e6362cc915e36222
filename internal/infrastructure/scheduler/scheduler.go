// Package scheduler runs the fee background jobs: monthly and annual due
// generation, overdue reminders and email dispatch. A cron trigger submits
// one job per active organization to a bounded worker pool.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/fee"
	"github.com/madrasa/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Job names
const (
	JobMonthlyDues   = fee.JobMonthly
	JobAnnualDues    = fee.JobAnnual
	JobFeeReminders  = "fee_reminders"
	JobEmailDispatch = "email_dispatch"
)

// Job is one run of a named job for one day. TenantID is nil for jobs that
// span all tenants, such as email dispatch.
type Job struct {
	ID         uuid.UUID
	Name       string
	TenantID   *uuid.UUID
	Day        time.Time
	MaxRetries int

	// Retries counts re-queues after a failed attempt
	Retries   int
	LastError string
}

func NewJob(name string, tenantID *uuid.UUID, day time.Time, maxRetries int) *Job {
	return &Job{ID: uuid.New(), Name: name, TenantID: tenantID, Day: day, MaxRetries: maxRetries}
}

func (j *Job) fields() []zap.Field {
	fields := []zap.Field{
		zap.String("job_id", j.ID.String()),
		zap.String("job", j.Name),
		zap.String("day", j.Day.Format("2006-01-02")),
		zap.Int("retries", j.Retries),
	}
	if j.TenantID != nil {
		fields = append(fields, zap.String("tenant_id", j.TenantID.String()))
	}
	return fields
}

func (j *Job) spanAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("job", j.Name), attribute.Int("retry", j.Retries)}
	if j.TenantID != nil {
		attrs = append(attrs, attribute.String("tenant_id", j.TenantID.String()))
	}
	return attrs
}

// JobExecutor runs a job
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// SchedulerConfig sizes the worker pool. RetryAttempts is the MaxRetries
// the cron trigger gives new jobs.
type SchedulerConfig struct {
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	QueueSize         int
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 3,
		JobTimeout:        30 * time.Minute,
		RetryAttempts:     2,
		RetryDelay:        5 * time.Minute,
		QueueSize:         256,
	}
}

// Scheduler runs submitted jobs on a fixed pool of workers. A failed job is
// re-queued after RetryDelay until it runs out of retries.
type Scheduler struct {
	cfg      SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger
	queue    chan *Job

	mu      sync.Mutex
	running bool
	stop    context.CancelFunc
	workers sync.WaitGroup
}

func NewScheduler(cfg SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	def := DefaultSchedulerConfig()
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = def.MaxConcurrentJobs
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	return &Scheduler{cfg: cfg, executor: executor, logger: logger, queue: make(chan *Job, cfg.QueueSize)}
}

// Start launches the workers. Starting a running pool does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, s.stop = context.WithCancel(ctx)
	s.running = true
	s.workers.Add(s.cfg.MaxConcurrentJobs)
	for id := range s.cfg.MaxConcurrentJobs {
		go func() {
			defer s.workers.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-s.queue:
					s.run(ctx, job, id)
				}
			}
		}()
	}

	s.logger.Info("Job pool started",
		zap.Int("workers", s.cfg.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.cfg.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.stop()
	s.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		s.logger.Info("Job pool stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Job pool did not drain before shutdown deadline")
		return ctx.Err()
	}
}

// Submit queues a job without blocking
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}

	select {
	case s.queue <- job:
		s.logger.Debug("Job queued", job.fields()...)
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) run(ctx context.Context, job *Job, worker int) {
	log := s.logger.With(job.fields()...).With(zap.Int("worker", worker))
	started := time.Now()

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()
	jobCtx, span := telemetry.StartSpan(jobCtx, "job."+job.Name, job.spanAttributes()...)
	err := s.executor.Execute(jobCtx, job)
	telemetry.EndSpan(span, err)

	if err == nil {
		job.LastError = ""
		log.Info("Job finished", zap.Duration("took", time.Since(started)))
		return
	}

	job.LastError = err.Error()
	log.Error("Job failed", zap.Error(err))
	if job.Retries >= job.MaxRetries || ctx.Err() != nil {
		return
	}
	job.Retries++
	time.AfterFunc(s.cfg.RetryDelay, func() {
		if err := s.Submit(job); err != nil {
			log.Warn("Could not re-queue job", zap.Error(err))
		}
	})
}
