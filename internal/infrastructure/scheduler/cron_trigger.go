package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TenantProvider lists the tenants jobs run for
type TenantProvider interface {
	GetAllActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// OrganizationTenants lists active organizations
type OrganizationTenants struct {
	Organizations organization.OrganizationRepository
}

// GetAllActiveTenantIDs implements TenantProvider
func (p OrganizationTenants) GetAllActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	orgs, err := p.Organizations.FindAllActive(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(orgs))
	for i := range orgs {
		ids[i] = orgs[i].ID
	}
	return ids, nil
}

// Submitter accepts jobs, usually a *Scheduler
type Submitter interface {
	Submit(job *Job) error
}

// CronTriggerConfig holds the standard five-field cron expression of each
// job, evaluated in Location
type CronTriggerConfig struct {
	MonthlyDues   string
	AnnualDues    string
	FeeReminders  string
	EmailDispatch string
	Location      *time.Location
	CheckInterval time.Duration
	RetryAttempts int
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		MonthlyDues:   "0 0 1 * *",
		AnnualDues:    "0 1 * * *",
		FeeReminders:  "0 9 * * *",
		EmailDispatch: "* * * * *",
		Location:      time.UTC,
		CheckInterval: 15 * time.Second,
		RetryAttempts: 2,
	}
}

type cronEntry struct {
	name      string
	schedule  cron.Schedule
	perTenant bool
	next      time.Time
}

// CronTrigger submits jobs when their schedule comes due
type CronTrigger struct {
	config    CronTriggerConfig
	entries   []*cronEntry
	submitter Submitter
	tenants   TenantProvider
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewCronTrigger parses the schedules. An invalid expression is an error.
func NewCronTrigger(config CronTriggerConfig, submitter Submitter, tenants TenantProvider, logger *zap.Logger) (*CronTrigger, error) {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultCronTriggerConfig().CheckInterval
	}

	specs := []struct {
		name      string
		expr      string
		perTenant bool
	}{
		{JobMonthlyDues, config.MonthlyDues, true},
		{JobAnnualDues, config.AnnualDues, true},
		{JobFeeReminders, config.FeeReminders, true},
		{JobEmailDispatch, config.EmailDispatch, false},
	}

	c := &CronTrigger{
		config:    config,
		submitter: submitter,
		tenants:   tenants,
		logger:    logger,
		now:       time.Now,
	}
	for _, spec := range specs {
		if spec.expr == "" {
			continue
		}
		schedule, err := cron.ParseStandard(spec.expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s schedule %q: %v", ErrInvalidConfig, spec.name, spec.expr, err)
		}
		c.entries = append(c.entries, &cronEntry{name: spec.name, schedule: schedule, perTenant: spec.perTenant})
	}
	return c, nil
}

// Start starts the trigger loop
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true

	now := c.now().In(c.config.Location)
	for _, e := range c.entries {
		e.next = e.schedule.Next(now)
		c.logger.Info("Job scheduled", zap.String("job", e.name), zap.Time("next_run", e.next))
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)
	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick fires every entry whose next run has passed. Runs missed while the
// process was down are not replayed.
func (c *CronTrigger) tick(ctx context.Context) {
	now := c.now().In(c.config.Location)
	for _, e := range c.entries {
		if e.next.IsZero() {
			e.next = e.schedule.Next(now)
			continue
		}
		if now.Before(e.next) {
			continue
		}
		if err := c.fire(ctx, e, now); err != nil {
			c.logger.Error("Failed to trigger job", zap.String("job", e.name), zap.Error(err))
		}
		e.next = e.schedule.Next(now)
	}
}

// TriggerNow submits a job immediately for the given day. tenantID nil
// means every active tenant.
func (c *CronTrigger) TriggerNow(ctx context.Context, name string, tenantID *uuid.UUID, day time.Time) error {
	for _, e := range c.entries {
		if e.name != name {
			continue
		}
		if tenantID != nil || !e.perTenant {
			return c.submitter.Submit(NewJob(name, tenantID, shared.DateOf(day), c.config.RetryAttempts))
		}
		return c.fire(ctx, e, day)
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

func (c *CronTrigger) fire(ctx context.Context, e *cronEntry, now time.Time) error {
	day := shared.DateOf(now)
	if !e.perTenant {
		return c.submitter.Submit(NewJob(e.name, nil, day, c.config.RetryAttempts))
	}

	tenantIDs, err := c.tenants.GetAllActiveTenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	c.logger.Info("Triggering job", zap.String("job", e.name), zap.Int("tenant_count", len(tenantIDs)))
	for _, id := range tenantIDs {
		tenantID := id
		if err := c.submitter.Submit(NewJob(e.name, &tenantID, day, c.config.RetryAttempts)); err != nil {
			c.logger.Error("Failed to submit job",
				zap.String("job", e.name),
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}
