package student

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"github.com/madrasa/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *lifecycleFixture) admitInput(email string) AdmitInput {
	return AdmitInput{
		Email:        email,
		FullName:     " Zainab Noor ",
		Gender:       identity.GenderFemale,
		DOB:          testutil.Day(2016, time.February, 9),
		IDCardType:   identity.IDCardQID,
		IDCardNumber: "31635600077",
		Mobile:       "+97455500077",
		BranchID:     f.school.Branch.ID,
		ClassID:      f.school.Class.ID,
		DivisionID:   f.school.Division.ID,
		Family: &student.FamilyDetails{
			FatherName:      "Noor Muhammad",
			MotherName:      "Ruqayya",
			ParentMobile:    "+97455500078",
			SiblingsDetails: "Elder brother in class 4",
		},
	}
}

func TestEnrollmentService_Admit(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := testutil.Context(t)
	f.st.SeedFee(t, f.school, "Admission", fee.TriggerOnAdmission, nil, 1000)

	result, err := f.svc.Admit(ctx, f.school.AdminActor(), f.admitInput("zainab@noor.test"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.DuesCreated)

	st := result.Detail.Student
	assert.Equal(t, "NOOR0001", st.AdmissionNumber)
	assert.Equal(t, student.StatusActive, st.Status)
	assert.Equal(t, student.CategoryPermanent, st.Category)
	assert.True(t, st.HasSiblings, "sibling details imply siblings")

	detail, err := f.svc.GetStudent(ctx, f.school.AdminActor(), st.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Profile)
	assert.Equal(t, "Zainab Noor", detail.Profile.FullName)
	require.NotNil(t, detail.Family)
	assert.Equal(t, "Ruqayya", detail.Family.MotherName)
	require.Len(t, detail.Enrollments, 1)
	assert.Equal(t, f.school.Year.ID, detail.Enrollments[0].AcademicYearID)
	assert.Equal(t, student.EnrollmentEnrolled, detail.Enrollments[0].Status)

	user, err := f.st.Repos.Users().FindByIDForTenant(ctx, f.school.TenantID(), st.UserID)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleStudent, user.Role)
	assert.Equal(t, f.school.Branch.ID, *user.BranchID)

	t.Run("numbers continue", func(t *testing.T) {
		input := f.admitInput("hamza@noor.test")
		input.Family = nil
		next, err := f.svc.Admit(ctx, f.school.AdminActor(), input)
		require.NoError(t, err)
		assert.Equal(t, "NOOR0002", next.Detail.Student.AdmissionNumber)
		assert.False(t, next.Detail.Student.HasSiblings)
	})

	t.Run("email taken", func(t *testing.T) {
		_, err := f.svc.Admit(ctx, f.school.AdminActor(), f.admitInput("zainab@noor.test"))
		assert.True(t, shared.IsAlreadyExists(err), "got %v", err)
	})

	t.Run("incomplete family rolls back", func(t *testing.T) {
		input := f.admitInput("yahya@noor.test")
		input.Family.MotherName = ""
		_, err := f.svc.Admit(ctx, f.school.AdminActor(), input)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		exists, err := f.st.Repos.Users().ExistsByEmail(ctx, "yahya@noor.test")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("unknown class", func(t *testing.T) {
		input := f.admitInput("musa@noor.test")
		input.ClassID = uuid.New()
		_, err := f.svc.Admit(ctx, f.school.AdminActor(), input)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("other branch is forbidden", func(t *testing.T) {
		head := testutil.ActorFor(f.st.SeedUser(t, f.school.TenantID(), "head@noor.test", identity.RoleHeadTeacher, &f.school.Branch.ID))
		input := f.admitInput("isa@noor.test")
		input.BranchID = uuid.New()
		_, err := f.svc.Admit(ctx, head, input)
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestEnrollmentService_AdmitWithoutActiveYear(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := testutil.Context(t)

	_, err := f.st.Repos.AcademicYears().DeactivateAllExcept(ctx, f.school.TenantID(), f.nextYear.ID)
	require.NoError(t, err)

	_, err = f.svc.Admit(ctx, f.school.AdminActor(), f.admitInput("zainab@noor.test"))
	assert.ErrorIs(t, err, organization.ErrNoActiveAcademicYear)
}

func TestEnrollmentService_UpdateAndDeactivateStudent(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := testutil.Context(t)
	admin := f.school.AdminActor()
	pupil, _ := f.st.SeedStudent(t, f.school, "NOOR0100", student.CategoryPermanent)

	temporary := student.CategoryTemporary
	siblings := true
	name := "Student Renamed"
	notes := " Collects at 5pm "
	detail, err := f.svc.UpdateStudent(ctx, admin, pupil.ID, UpdateStudentInput{
		FullName:    &name,
		Category:    &temporary,
		HasSiblings: &siblings,
		Notes:       &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, student.CategoryTemporary, detail.Student.Category)
	assert.True(t, detail.Student.HasSiblings)
	assert.Equal(t, "Collects at 5pm", detail.Student.Notes)
	require.NotNil(t, detail.Profile)
	assert.Equal(t, name, detail.Profile.FullName)

	t.Run("invalid category keeps the record", func(t *testing.T) {
		weekend := student.Category("WEEKEND")
		_, err := f.svc.UpdateStudent(ctx, admin, pupil.ID, UpdateStudentInput{Category: &weekend})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("other branch is hidden", func(t *testing.T) {
		east, err := organization.NewBranch(f.school.TenantID(), "NOOREAST", "East Campus")
		require.NoError(t, err)
		require.NoError(t, f.st.Repos.Branches().Save(ctx, east))
		head := testutil.ActorFor(f.st.SeedUser(t, f.school.TenantID(), "east@noor.test", identity.RoleHeadTeacher, &east.ID))

		_, err = f.svc.UpdateStudent(ctx, head, pupil.ID, UpdateStudentInput{Notes: &notes})
		assert.True(t, shared.IsNotFound(err), "got %v", err)
		assert.True(t, shared.IsNotFound(f.svc.DeactivateStudent(ctx, head, pupil.ID)))
	})

	require.NoError(t, f.svc.DeactivateStudent(ctx, admin, pupil.ID))
	stored, err := f.st.Repos.Students().FindByIDForTenant(ctx, f.school.TenantID(), pupil.ID)
	require.NoError(t, err)
	assert.Equal(t, student.StatusInactive, stored.Status)
	assert.Equal(t, student.CategoryTemporary, stored.Category)
	user, err := f.st.Repos.Users().FindByID(ctx, pupil.UserID)
	require.NoError(t, err)
	assert.False(t, user.CanLogin())

	enrollments, err := f.st.Repos.Enrollments().FindByStudent(ctx, f.school.TenantID(), pupil.ID)
	require.NoError(t, err)
	assert.Len(t, enrollments, 1, "history is kept")

	require.NoError(t, f.svc.DeactivateStudent(ctx, admin, pupil.ID), "deactivating twice is a no-op")
}
