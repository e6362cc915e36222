package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/fee"
	"github.com/madrasa/backend/internal/application/notification"
	"github.com/madrasa/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockDues struct{ mock.Mock }

func (m *mockDues) RunMonthly(ctx context.Context, tenantID uuid.UUID, today time.Time) (fee.BatchResult, error) {
	args := m.Called(ctx, tenantID, today)
	return args.Get(0).(fee.BatchResult), args.Error(1)
}

func (m *mockDues) RunAnnual(ctx context.Context, tenantID uuid.UUID, today time.Time) (fee.BatchResult, error) {
	args := m.Called(ctx, tenantID, today)
	return args.Get(0).(fee.BatchResult), args.Error(1)
}

type mockReminders struct{ mock.Mock }

func (m *mockReminders) SendFeeReminders(ctx context.Context, tenantID uuid.UUID, today time.Time) (int, error) {
	args := m.Called(ctx, tenantID, today)
	return args.Int(0), args.Error(1)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) DispatchPending(ctx context.Context) (notification.DispatchResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(notification.DispatchResult), args.Error(1)
}

var day = time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC)

func TestFeeJobExecutor_MonthlyRunsOncePerDay(t *testing.T) {
	tenant := uuid.New()
	dues := new(mockDues)
	dues.On("RunMonthly", mock.Anything, tenant, day).Return(fee.BatchResult{Created: 4}, nil).Once()

	guard := cache.NewInMemoryRunGuard()
	exec := NewFeeJobExecutor(dues, nil, nil, guard, time.Hour, zap.NewNop())

	require.NoError(t, exec.Execute(context.Background(), NewJob(JobMonthlyDues, &tenant, day, 0)))
	// a second instance on the same day finds the lock taken
	require.NoError(t, exec.Execute(context.Background(), NewJob(JobMonthlyDues, &tenant, day, 0)))

	dues.AssertExpectations(t)
	assert.Equal(t, 1, guard.Size())
}

func TestFeeJobExecutor_ReleasesLockOnFailure(t *testing.T) {
	tenant := uuid.New()
	dues := new(mockDues)
	dues.On("RunAnnual", mock.Anything, tenant, day).Return(fee.BatchResult{}, errors.New("db down")).Once()
	dues.On("RunAnnual", mock.Anything, tenant, day).Return(fee.BatchResult{Created: 1}, nil).Once()

	exec := NewFeeJobExecutor(dues, nil, nil, cache.NewInMemoryRunGuard(), time.Hour, zap.NewNop())

	job := NewJob(JobAnnualDues, &tenant, day, 1)
	assert.Error(t, exec.Execute(context.Background(), job))
	assert.NoError(t, exec.Execute(context.Background(), job))
	dues.AssertExpectations(t)
}

func TestFeeJobExecutor_Reminders(t *testing.T) {
	tenant := uuid.New()
	reminders := new(mockReminders)
	reminders.On("SendFeeReminders", mock.Anything, tenant, day).Return(3, nil).Once()

	exec := NewFeeJobExecutor(nil, reminders, nil, nil, 0, zap.NewNop())
	require.NoError(t, exec.Execute(context.Background(), NewJob(JobFeeReminders, &tenant, day, 0)))
	reminders.AssertExpectations(t)
}

func TestFeeJobExecutor_DispatchDrainsQueue(t *testing.T) {
	dispatcher := new(mockDispatcher)
	dispatcher.On("DispatchPending", mock.Anything).Return(notification.DispatchResult{Sent: 50}, nil).Once()
	dispatcher.On("DispatchPending", mock.Anything).Return(notification.DispatchResult{Sent: 3, Failed: 1}, nil).Once()
	dispatcher.On("DispatchPending", mock.Anything).Return(notification.DispatchResult{}, nil).Once()

	exec := NewFeeJobExecutor(nil, nil, dispatcher, nil, 0, zap.NewNop())
	require.NoError(t, exec.Execute(context.Background(), NewJob(JobEmailDispatch, nil, day, 0)))
	dispatcher.AssertExpectations(t)
}

func TestFeeJobExecutor_RejectsBadJobs(t *testing.T) {
	exec := NewFeeJobExecutor(nil, nil, nil, nil, 0, zap.NewNop())

	assert.ErrorIs(t, exec.Execute(context.Background(), NewJob("payroll", nil, day, 0)), ErrUnknownJob)
	assert.Error(t, exec.Execute(context.Background(), NewJob(JobMonthlyDues, nil, day, 0)))
	assert.Error(t, exec.Execute(context.Background(), NewJob(JobFeeReminders, nil, day, 0)))
}

type flakyExecutor struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (e *flakyExecutor) Execute(context.Context, *Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls <= e.failures {
		return errors.New("transient")
	}
	return nil
}

func (e *flakyExecutor) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func TestScheduler_RetriesFailedJobs(t *testing.T) {
	exec := &flakyExecutor{failures: 1}
	s := NewScheduler(SchedulerConfig{MaxConcurrentJobs: 1, RetryDelay: 10 * time.Millisecond}, exec, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	job := NewJob(JobEmailDispatch, nil, day, 2)
	require.NoError(t, s.Submit(job))

	assert.Eventually(t, func() bool { return exec.Calls() == 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_GivesUpAfterMaxRetries(t *testing.T) {
	exec := &flakyExecutor{failures: 10}
	s := NewScheduler(SchedulerConfig{MaxConcurrentJobs: 2, RetryDelay: time.Millisecond}, exec, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	require.NoError(t, s.Submit(NewJob(JobEmailDispatch, nil, day, 1)))
	assert.Eventually(t, func() bool { return exec.Calls() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, exec.Calls())
}

func TestScheduler_SubmitWhenStopped(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig(), &flakyExecutor{}, zap.NewNop())
	assert.ErrorIs(t, s.Submit(NewJob(JobEmailDispatch, nil, day, 0)), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.ErrorIs(t, s.Submit(NewJob(JobEmailDispatch, nil, day, 0)), ErrSchedulerNotRunning)
}

type recordingSubmitter struct {
	jobs []*Job
}

func (r *recordingSubmitter) Submit(job *Job) error {
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordingSubmitter) names() []string {
	names := make([]string, len(r.jobs))
	for i, j := range r.jobs {
		names[i] = j.Name
	}
	return names
}

type staticTenants []uuid.UUID

func (s staticTenants) GetAllActiveTenantIDs(context.Context) ([]uuid.UUID, error) {
	return s, nil
}

func TestCronTrigger_Tick(t *testing.T) {
	tenants := staticTenants{uuid.New(), uuid.New()}
	sub := &recordingSubmitter{}

	cfg := DefaultCronTriggerConfig()
	trigger, err := NewCronTrigger(cfg, sub, tenants, zap.NewNop())
	require.NoError(t, err)

	clock := time.Date(2024, time.October, 31, 23, 59, 30, 0, time.UTC)
	trigger.now = func() time.Time { return clock }
	trigger.tick(context.Background())
	assert.Empty(t, sub.jobs)

	clock = time.Date(2024, time.November, 1, 0, 0, 5, 0, time.UTC)
	trigger.tick(context.Background())

	assert.ElementsMatch(t, []string{JobMonthlyDues, JobMonthlyDues, JobEmailDispatch}, sub.names())
	for _, job := range sub.jobs {
		assert.Equal(t, day, job.Day)
		if job.Name == JobMonthlyDues {
			require.NotNil(t, job.TenantID)
			assert.Contains(t, tenants, *job.TenantID)
		} else {
			assert.Nil(t, job.TenantID)
		}
	}

	// nothing is due again within the same minute
	trigger.tick(context.Background())
	assert.Len(t, sub.jobs, 3)

	clock = time.Date(2024, time.November, 1, 1, 0, 0, 0, time.UTC)
	trigger.tick(context.Background())
	assert.Contains(t, sub.names()[3:], JobAnnualDues)
}

func TestCronTrigger_InvalidSchedule(t *testing.T) {
	cfg := DefaultCronTriggerConfig()
	cfg.FeeReminders = "every morning"
	_, err := NewCronTrigger(cfg, &recordingSubmitter{}, staticTenants{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCronTrigger_TriggerNow(t *testing.T) {
	tenant := uuid.New()
	sub := &recordingSubmitter{}
	trigger, err := NewCronTrigger(DefaultCronTriggerConfig(), sub, staticTenants{tenant, uuid.New()}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, trigger.TriggerNow(context.Background(), JobFeeReminders, &tenant, day.Add(10*time.Hour)))
	require.Len(t, sub.jobs, 1)
	assert.Equal(t, tenant, *sub.jobs[0].TenantID)
	assert.Equal(t, day, sub.jobs[0].Day)

	require.NoError(t, trigger.TriggerNow(context.Background(), JobAnnualDues, nil, day))
	assert.Len(t, sub.jobs, 3)

	assert.ErrorIs(t, trigger.TriggerNow(context.Background(), "payroll", nil, day), ErrUnknownJob)
}
