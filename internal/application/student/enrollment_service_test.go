package student

import (
	"testing"
	"time"

	appfee "github.com/madrasa/backend/internal/application/fee"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"github.com/madrasa/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type lifecycleFixture struct {
	st       *testutil.Store
	school   *testutil.School
	nextYear *organization.AcademicYear
	class2   *organization.ClassLevel
	svc      *EnrollmentService
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	nextYear := st.SeedYear(t, school.TenantID(), "2025-26", testutil.Day(2025, time.June, 1), testutil.Day(2026, time.March, 31), false)

	class2, err := organization.NewClassLevel(school.TenantID(), "Class 2", 2)
	require.NoError(t, err)
	require.NoError(t, st.Repos.ClassLevels().Save(testutil.Context(t), class2))

	dues := appfee.NewDueEngine(st.Repos, appfee.NewResolver(), nil, zap.NewNop())
	svc := NewEnrollmentService(st.Repos, st.Scope, dues, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, time.March, 20, 9, 0, 0, 0, time.UTC) }
	return &lifecycleFixture{st: st, school: school, nextYear: nextYear, class2: class2, svc: svc}
}

func TestEnrollmentService_Promote(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := testutil.Context(t)
	s, current := f.st.SeedStudent(t, f.school, "NOOR-0001", student.CategoryPermanent)
	actor := f.school.AdminActor()

	result, err := f.svc.Promote(ctx, actor, s.ID, current.ID, PromoteInput{
		NextYearID: f.nextYear.ID,
		ClassID:    f.class2.ID,
		DivisionID: f.school.Division.ID,
		Remarks:    "Passed with distinction",
	})
	require.NoError(t, err)

	assert.Equal(t, student.EnrollmentPromoted, result.Closed.Status)
	require.NotNil(t, result.Closed.CompletionDate)
	assert.Equal(t, "2025-03-20", result.Closed.CompletionDate.Format(time.DateOnly))
	require.NotNil(t, result.Closed.PromotedToID)
	assert.Equal(t, result.Next.ID, *result.Closed.PromotedToID)

	assert.Equal(t, student.EnrollmentEnrolled, result.Next.Status)
	assert.Equal(t, f.nextYear.ID, result.Next.AcademicYearID)
	assert.Equal(t, f.class2.ID, result.Next.ClassID)
	assert.Equal(t, "2025-06-01", result.Next.EnrollmentDate.Format(time.DateOnly))

	history, err := f.st.Repos.Enrollments().FindByStudent(ctx, f.school.TenantID(), s.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	profile, err := f.st.Repos.Students().FindByIDForTenant(ctx, f.school.TenantID(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, student.StatusActive, profile.Status, "promotion keeps the student active")

	t.Run("closed enrollment cannot move again", func(t *testing.T) {
		_, err := f.svc.Promote(ctx, actor, s.ID, current.ID, PromoteInput{
			NextYearID: f.nextYear.ID,
			ClassID:    f.class2.ID,
			DivisionID: f.school.Division.ID,
		})
		assert.Error(t, err)
	})
}

func TestEnrollmentService_PromoteValidation(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := testutil.Context(t)
	s, current := f.st.SeedStudent(t, f.school, "NOOR-0001", student.CategoryPermanent)
	actor := f.school.AdminActor()

	_, err := f.svc.Promote(ctx, actor, s.ID, current.ID, PromoteInput{
		NextYearID: f.school.Year.ID,
		ClassID:    f.class2.ID,
		DivisionID: f.school.Division.ID,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "next year must differ from the current one")

	enrollment, err := f.st.Repos.Enrollments().FindByIDForTenant(ctx, f.school.TenantID(), current.ID)
	require.NoError(t, err)
	assert.Equal(t, student.EnrollmentEnrolled, enrollment.Status, "failed promotion leaves the row untouched")
}

func TestEnrollmentService_Detain(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := testutil.Context(t)
	s, current := f.st.SeedStudent(t, f.school, "NOOR-0001", student.CategoryPermanent)

	result, err := f.svc.Detain(ctx, f.school.AdminActor(), s.ID, current.ID, DetainInput{NextYearID: f.nextYear.ID})
	require.NoError(t, err)
	assert.Equal(t, student.EnrollmentDetained, result.Closed.Status)
	assert.Equal(t, current.ClassID, result.Next.ClassID)
	assert.Equal(t, current.DivisionID, result.Next.DivisionID)
}

func TestEnrollmentService_Transition(t *testing.T) {
	tests := []struct {
		name    string
		status  student.EnrollmentStatus
		student student.Status
	}{
		{"transferred", student.EnrollmentTransferred, student.StatusTransferred},
		{"dropped", student.EnrollmentDropped, student.StatusDropped},
		{"completed", student.EnrollmentCompleted, student.StatusGraduated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLifecycleFixture(t)
			ctx := testutil.Context(t)
			s, current := f.st.SeedStudent(t, f.school, "NOOR-0001", student.CategoryPermanent)

			result, err := f.svc.Transition(ctx, f.school.AdminActor(), s.ID, current.ID, TransitionInput{Status: tt.status, Remarks: "Moved abroad"})
			require.NoError(t, err)
			assert.Equal(t, tt.status, result.Closed.Status)
			assert.Nil(t, result.Next)

			profile, err := f.st.Repos.Students().FindByIDForTenant(ctx, f.school.TenantID(), s.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.student, profile.Status)
		})
	}

	t.Run("promotion needs a next year", func(t *testing.T) {
		f := newLifecycleFixture(t)
		s, current := f.st.SeedStudent(t, f.school, "NOOR-0001", student.CategoryPermanent)
		_, err := f.svc.Transition(testutil.Context(t), f.school.AdminActor(), s.ID, current.ID, TransitionInput{Status: student.EnrollmentPromoted})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("closed year", func(t *testing.T) {
		f := newLifecycleFixture(t)
		ctx := testutil.Context(t)
		s, current := f.st.SeedStudent(t, f.school, "NOOR-0001", student.CategoryPermanent)
		f.school.Year.IsActive = false
		require.NoError(t, f.st.Repos.AcademicYears().Save(ctx, f.school.Year))

		_, err := f.svc.Transition(ctx, f.school.AdminActor(), s.ID, current.ID, TransitionInput{Status: student.EnrollmentDropped})
		assert.Error(t, err)
	})
}

func TestEnrollmentService_Enroll(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := testutil.Context(t)
	s, _ := f.st.SeedStudent(t, f.school, "NOOR-0001", student.CategoryPermanent)
	actor := f.school.AdminActor()

	books, err := fee.NewFeeType(f.school.TenantID(), "Books", fee.CategoryOther, fee.TriggerOnEnrollment, nil, false)
	require.NoError(t, err)
	require.NoError(t, f.st.Repos.FeeTypes().Save(ctx, books))
	structure, err := fee.NewFeeStructure(f.school.TenantID(), fee.StructureInput{
		AcademicYearID:      f.nextYear.ID,
		FeeTypeID:           books.ID,
		Amount:              decimal.NewFromInt(120),
		EffectiveFrom:       f.nextYear.StartDate,
		EffectiveTo:         f.nextYear.EndDate,
		AutoCreateDue:       true,
		DueDaysAfterTrigger: 7,
	})
	require.NoError(t, err)
	require.NoError(t, f.st.Repos.FeeStructures().Save(ctx, structure))

	t.Run("inactive year", func(t *testing.T) {
		_, err := f.svc.Enroll(ctx, actor, EnrollInput{
			StudentID:      s.ID,
			AcademicYearID: f.nextYear.ID,
			ClassID:        f.class2.ID,
			DivisionID:     f.school.Division.ID,
		})
		assert.ErrorIs(t, err, organization.ErrAcademicYearClosed)
	})

	_, err = f.st.Repos.AcademicYears().DeactivateAllExcept(ctx, f.school.TenantID(), f.nextYear.ID)
	require.NoError(t, err)
	f.nextYear.MarkActivated()
	require.NoError(t, f.st.Repos.AcademicYears().Save(ctx, f.nextYear))

	input := EnrollInput{
		StudentID:      s.ID,
		AcademicYearID: f.nextYear.ID,
		ClassID:        f.class2.ID,
		DivisionID:     f.school.Division.ID,
		EnrollmentDate: testutil.Day(2025, time.June, 2),
	}
	result, err := f.svc.Enroll(ctx, actor, input)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DuesCreated)

	dues, err := f.st.Repos.Dues().ListForStudent(ctx, f.school.TenantID(), s.ID, &f.nextYear.ID)
	require.NoError(t, err)
	require.Len(t, dues, 1)
	assert.Equal(t, fee.SourceAutoEnrollment, dues[0].CreationSource)
	assert.Equal(t, "2025-06-09", dues[0].DueDate.Format(time.DateOnly))

	_, err = f.svc.Enroll(ctx, actor, input)
	assert.True(t, shared.IsAlreadyExists(err), "got %v", err)

	t.Run("year closed by the rollover", func(t *testing.T) {
		late := input
		late.AcademicYearID = f.school.Year.ID
		_, err := f.svc.Enroll(ctx, actor, late)
		assert.ErrorIs(t, err, organization.ErrAcademicYearClosed)
	})
}

func TestEnrollmentService_BranchScope(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := testutil.Context(t)
	s, current := f.st.SeedStudent(t, f.school, "NOOR-0001", student.CategoryPermanent)

	other, err := organization.NewBranch(f.school.TenantID(), "NOOREAST", "East Campus")
	require.NoError(t, err)
	require.NoError(t, f.st.Repos.Branches().Save(ctx, other))
	head := f.st.SeedUser(t, f.school.TenantID(), "head@east.test", identity.RoleHeadTeacher, &other.ID)
	actor := testutil.ActorFor(head)

	_, err = f.svc.GetStudent(ctx, actor, s.ID)
	assert.True(t, shared.IsNotFound(err))
	_, err = f.svc.Transition(ctx, actor, s.ID, current.ID, TransitionInput{Status: student.EnrollmentDropped})
	assert.True(t, shared.IsNotFound(err))

	page, err := f.svc.ListStudents(ctx, actor, StudentListFilter{}, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	own := testutil.ActorFor(f.st.SeedUser(t, f.school.TenantID(), "head@main.test", identity.RoleHeadTeacher, &f.school.Branch.ID))
	page, err = f.svc.ListStudents(ctx, own, StudentListFilter{}, shared.DefaultFilter())
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "NOOR-0001", page.Items[0].AdmissionNumber)
	assert.Equal(t, "student NOOR-0001", page.Items[0].FullName)

	detail, err := f.svc.GetStudent(ctx, own, s.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Profile)
	assert.Len(t, detail.Enrollments, 1)
}
