package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/fee"
	"github.com/madrasa/backend/internal/application/notification"
	"github.com/madrasa/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// maxDispatchBatches bounds one email dispatch run
const maxDispatchBatches = 20

// DueRunner generates recurring dues
type DueRunner interface {
	RunMonthly(ctx context.Context, tenantID uuid.UUID, today time.Time) (fee.BatchResult, error)
	RunAnnual(ctx context.Context, tenantID uuid.UUID, today time.Time) (fee.BatchResult, error)
}

// ReminderSender queues overdue reminders. It guards its own daily run.
type ReminderSender interface {
	SendFeeReminders(ctx context.Context, tenantID uuid.UUID, today time.Time) (int, error)
}

// EmailDispatcher sends one batch of queued emails
type EmailDispatcher interface {
	DispatchPending(ctx context.Context) (notification.DispatchResult, error)
}

// FeeJobExecutor maps job names to the fee services
type FeeJobExecutor struct {
	dues       DueRunner
	reminders  ReminderSender
	dispatcher EmailDispatcher
	guard      shared.RunGuard
	lockTTL    time.Duration
	logger     *zap.Logger
}

// NewFeeJobExecutor creates an executor. guard may be nil.
func NewFeeJobExecutor(dues DueRunner, reminders ReminderSender, dispatcher EmailDispatcher, guard shared.RunGuard, lockTTL time.Duration, logger *zap.Logger) *FeeJobExecutor {
	if guard == nil {
		guard = shared.NoopRunGuard{}
	}
	if lockTTL <= 0 {
		lockTTL = 23 * time.Hour
	}
	return &FeeJobExecutor{
		dues:       dues,
		reminders:  reminders,
		dispatcher: dispatcher,
		guard:      guard,
		lockTTL:    lockTTL,
		logger:     logger,
	}
}

// LockKey is the run guard key of a tenant job for a day
func LockKey(job string, tenantID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("job:%s:%s:%s", job, tenantID, day.Format("2006-01-02"))
}

// Execute implements JobExecutor
func (e *FeeJobExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Name {
	case JobEmailDispatch:
		return e.dispatch(ctx)
	case JobFeeReminders:
		if job.TenantID == nil {
			return fmt.Errorf("%s needs a tenant", job.Name)
		}
		_, err := e.reminders.SendFeeReminders(ctx, *job.TenantID, job.Day)
		return err
	case JobMonthlyDues, JobAnnualDues:
		if job.TenantID == nil {
			return fmt.Errorf("%s needs a tenant", job.Name)
		}
		return e.runDues(ctx, job)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJob, job.Name)
	}
}

func (e *FeeJobExecutor) runDues(ctx context.Context, job *Job) error {
	key := LockKey(job.Name, *job.TenantID, job.Day)
	claimed, err := e.guard.Claim(ctx, key, e.lockTTL)
	if err != nil {
		return err
	}
	if !claimed {
		e.logger.Info("Job already ran elsewhere today", job.fields()...)
		return nil
	}

	run := e.dues.RunMonthly
	if job.Name == JobAnnualDues {
		run = e.dues.RunAnnual
	}
	if _, err := run(ctx, *job.TenantID, job.Day); err != nil {
		// let the retry claim again
		if r, ok := e.guard.(shared.RunReleaser); ok {
			if rerr := r.Release(context.WithoutCancel(ctx), key); rerr != nil {
				e.logger.Warn("Failed to release job lock", zap.String("key", key), zap.Error(rerr))
			}
		}
		return err
	}
	return nil
}

func (e *FeeJobExecutor) dispatch(ctx context.Context) error {
	for i := 0; i < maxDispatchBatches; i++ {
		result, err := e.dispatcher.DispatchPending(ctx)
		if err != nil {
			return err
		}
		if result.Sent+result.Failed == 0 || ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

var _ JobExecutor = (*FeeJobExecutor)(nil)
