package fee

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"github.com/madrasa/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type onceGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (g *onceGuard) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func (g *onceGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
	return nil
}

type failingScope struct{}

func (failingScope) Execute(context.Context, func(txn.Repositories) error) error {
	return errors.New("connection reset")
}

func TestReminderService_SendFeeReminders(t *testing.T) {
	ctx := testutil.Context(t)
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	st.SeedFee(t, school, "Tuition", fee.TriggerMonthly, nil, 500)
	withFamily, _ := st.SeedStudent(t, school, "NOOR-0001", student.CategoryPermanent)
	st.SeedStudent(t, school, "NOOR-0002", student.CategoryPermanent)

	require.NoError(t, st.Repos.StudentDetails().SaveFamily(ctx, &student.StudentFamily{
		BaseEntity:   shared.NewBaseEntity(),
		StudentID:    withFamily.ID,
		FatherName:   "ABDUL RAHMAN",
		ParentMobile: "+97455500001",
		Email:        "family@example.com",
		MotherName:   "Fathima",
	}))

	_, err := newEngine(st, nil).RunMonthly(ctx, school.TenantID(), testutil.Day(2024, time.September, 1))
	require.NoError(t, err)

	rec := newRecordingRecorder()
	svc := NewReminderService(st.Repos, st.Scope, &onceGuard{}, rec, zap.NewNop())

	t.Run("nothing is overdue before the due date", func(t *testing.T) {
		queued, err := svc.SendFeeReminders(ctx, school.TenantID(), testutil.Day(2024, time.September, 5))
		require.NoError(t, err)
		assert.Zero(t, queued)
	})

	today := testutil.Day(2024, time.September, 20)
	queued, err := svc.SendFeeReminders(ctx, school.TenantID(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, queued, "student without a family email is skipped")
	assert.Equal(t, 1, rec.queued)

	var emails []notification.EmailNotification
	require.NoError(t, st.DB.Where("tenant_id = ?", school.TenantID()).Find(&emails).Error)
	require.Len(t, emails, 1)
	email := emails[0]
	assert.Equal(t, "family@example.com", email.Recipient)
	assert.Equal(t, notification.TemplateFeeReminder, email.Template)
	assert.Equal(t, notification.EmailPending, email.Status)
	assert.Contains(t, email.ContextData, `"admission_number":"NOOR-0001"`)
	assert.Contains(t, email.ContextData, `"parent_name":"Abdul Rahman"`)
	assert.Contains(t, email.ContextData, `"total_overdue":"500.00"`)
	assert.Contains(t, email.ContextData, `"month":"September"`)

	t.Run("second run on the same day queues nothing", func(t *testing.T) {
		again, err := svc.SendFeeReminders(ctx, school.TenantID(), today.Add(6*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, again)

		count, err := st.Repos.Emails().CountByStatus(ctx, school.TenantID(), notification.EmailPending)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestReminderService_ReleasesClaimOnFailure(t *testing.T) {
	ctx := testutil.Context(t)
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	st.SeedFee(t, school, "Tuition", fee.TriggerMonthly, nil, 500)
	s, _ := st.SeedStudent(t, school, "NOOR-0001", student.CategoryPermanent)
	require.NoError(t, st.Repos.StudentDetails().SaveFamily(ctx, &student.StudentFamily{
		BaseEntity:   shared.NewBaseEntity(),
		StudentID:    s.ID,
		FatherName:   "Abdul Rahman",
		ParentMobile: "+97455500001",
		Email:        "family@example.com",
	}))
	_, err := newEngine(st, nil).RunMonthly(ctx, school.TenantID(), testutil.Day(2024, time.September, 1))
	require.NoError(t, err)

	guard := &onceGuard{}
	today := testutil.Day(2024, time.September, 20)

	broken := NewReminderService(st.Repos, failingScope{}, guard, nil, zap.NewNop())
	_, err = broken.SendFeeReminders(ctx, school.TenantID(), today)
	require.Error(t, err)

	count, err := st.Repos.Emails().CountByStatus(ctx, school.TenantID(), notification.EmailPending)
	require.NoError(t, err)
	assert.Zero(t, count)

	retry := NewReminderService(st.Repos, st.Scope, guard, nil, zap.NewNop())
	queued, err := retry.SendFeeReminders(ctx, school.TenantID(), today)
	require.NoError(t, err)
	assert.Equal(t, 1, queued)
}

func TestReminderKey(t *testing.T) {
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	late := time.Date(2024, time.September, 20, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, ReminderKey(school.TenantID(), testutil.Day(2024, time.September, 20)), ReminderKey(school.TenantID(), late))
	assert.Contains(t, ReminderKey(school.TenantID(), late), "2024-09-20")
}
