package staff

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/staff"
	"github.com/madrasa/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func staffInput(email string) CreateStaffInput {
	return CreateStaffInput{
		Email:         email,
		Password:      "teacher-pass-1",
		Role:          identity.RoleTeacher,
		FullName:      " Ustad Yusuf ",
		Gender:        identity.GenderMale,
		DOB:           testutil.Day(1988, time.March, 2),
		IDCardType:    identity.IDCardQID,
		IDCardNumber:  "28835600001",
		Mobile:        "+97455511111",
		Category:      staff.CategoryPermanent,
		MonthlySalary: decimal.NewFromInt(4500),
	}
}

func TestService_CreateStaff(t *testing.T) {
	ctx := testutil.Context(t)
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	svc := NewService(st.Repos, st.Scope, zap.NewNop())

	first, err := svc.CreateStaff(ctx, school.AdminActor(), staffInput("yusuf@noor.test"))
	require.NoError(t, err)
	assert.Equal(t, "NOO001", first.StaffNumber)
	assert.Equal(t, staff.StatusActive, first.Status)
	assert.Equal(t, "4500.00", first.MonthlySalary.StringFixed(2))

	user, err := st.Repos.Users().FindByIDForTenant(ctx, school.TenantID(), first.UserID)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleTeacher, user.Role)

	second, err := svc.CreateStaff(ctx, school.AdminActor(), staffInput("idris@noor.test"))
	require.NoError(t, err)
	assert.Equal(t, "NOO002", second.StaffNumber)

	t.Run("email taken", func(t *testing.T) {
		_, err := svc.CreateStaff(ctx, school.AdminActor(), staffInput("yusuf@noor.test"))
		assert.True(t, shared.IsAlreadyExists(err), "got %v", err)
	})

	t.Run("students are not staff", func(t *testing.T) {
		input := staffInput("pupil@noor.test")
		input.Role = identity.RoleStudent
		_, err := svc.CreateStaff(ctx, school.AdminActor(), input)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("failed profile leaves no user behind", func(t *testing.T) {
		input := staffInput("nameless@noor.test")
		input.FullName = ""
		_, err := svc.CreateStaff(ctx, school.AdminActor(), input)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		exists, err := st.Repos.Users().ExistsByEmail(ctx, "nameless@noor.test")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("branch-bound actor defaults to own branch", func(t *testing.T) {
		head := testutil.ActorFor(st.SeedUser(t, school.TenantID(), "head@noor.test", identity.RoleHeadTeacher, &school.Branch.ID))
		member, err := svc.CreateStaff(ctx, head, staffInput("amina@noor.test"))
		require.NoError(t, err)
		require.NotNil(t, member.BranchID)
		assert.Equal(t, school.Branch.ID, *member.BranchID)
	})
}

func TestService_ListAndUpdate(t *testing.T) {
	ctx := testutil.Context(t)
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	svc := NewService(st.Repos, st.Scope, zap.NewNop())
	admin := school.AdminActor()

	east, err := organization.NewBranch(school.TenantID(), "NOOREAST", "East Campus")
	require.NoError(t, err)
	require.NoError(t, st.Repos.Branches().Save(ctx, east))

	yusufIn := staffInput("yusuf@noor.test")
	yusufIn.BranchID = &school.Branch.ID
	yusuf, err := svc.CreateStaff(ctx, admin, yusufIn)
	require.NoError(t, err)
	aminaIn := staffInput("amina@noor.test")
	aminaIn.FullName = "Ustadha Amina"
	aminaIn.Category = staff.CategoryTemporary
	aminaIn.BranchID = &east.ID
	amina, err := svc.CreateStaff(ctx, admin, aminaIn)
	require.NoError(t, err)

	t.Run("list filters", func(t *testing.T) {
		all, err := svc.List(ctx, admin, staff.StaffFilter{}, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), all.Total)

		temps, err := svc.List(ctx, admin, staff.StaffFilter{Category: staff.CategoryTemporary}, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, temps.Items, 1)
		assert.Equal(t, amina.ID, temps.Items[0].ID)

		page := shared.DefaultFilter()
		page.Search = "amina"
		found, err := svc.List(ctx, admin, staff.StaffFilter{}, page)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.Equal(t, amina.ID, found.Items[0].ID)

		page.Search = yusuf.StaffNumber
		found, err = svc.List(ctx, admin, staff.StaffFilter{}, page)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.Equal(t, yusuf.ID, found.Items[0].ID)
	})

	head := testutil.ActorFor(st.SeedUser(t, school.TenantID(), "head@noor.test", identity.RoleHeadTeacher, &school.Branch.ID))

	t.Run("branch-bound actor sees own branch", func(t *testing.T) {
		mine, err := svc.List(ctx, head, staff.StaffFilter{}, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, mine.Items, 1)
		assert.Equal(t, yusuf.ID, mine.Items[0].ID)

		_, err = svc.List(ctx, head, staff.StaffFilter{BranchID: &east.ID}, shared.DefaultFilter())
		assert.ErrorIs(t, err, shared.ErrForbidden)

		_, err = svc.Update(ctx, head, amina.ID, UpdateStaffInput{})
		assert.True(t, shared.IsNotFound(err), "got %v", err)
	})

	salary := decimal.RequireFromString("5200.456")
	permanent := staff.CategoryPermanent
	name := "Ustadha Amina Bint Ali"
	notes := " covers Quran classes "
	updated, err := svc.Update(ctx, admin, amina.ID, UpdateStaffInput{
		FullName:      &name,
		Category:      &permanent,
		MonthlySalary: &salary,
		BranchID:      &school.Branch.ID,
		Notes:         &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, staff.CategoryPermanent, updated.Category)
	assert.Equal(t, "5200.46", updated.MonthlySalary.StringFixed(2))
	assert.Equal(t, "covers Quran classes", updated.Notes)
	assert.Equal(t, school.Branch.ID, *updated.BranchID)

	profile, err := st.Repos.Profiles().FindByUserID(ctx, amina.UserID)
	require.NoError(t, err)
	assert.Equal(t, name, profile.FullName)
	user, err := st.Repos.Users().FindByID(ctx, amina.UserID)
	require.NoError(t, err)
	assert.Equal(t, school.Branch.ID, *user.BranchID)

	t.Run("deactivation blocks login", func(t *testing.T) {
		inactive := staff.StatusInactive
		member, err := svc.Update(ctx, admin, yusuf.ID, UpdateStaffInput{Status: &inactive})
		require.NoError(t, err)
		assert.False(t, member.IsActive())
		user, err := st.Repos.Users().FindByID(ctx, yusuf.UserID)
		require.NoError(t, err)
		assert.False(t, user.CanLogin())
	})

	t.Run("invalid changes are rejected", func(t *testing.T) {
		negative := decimal.NewFromInt(-1)
		_, err := svc.Update(ctx, admin, amina.ID, UpdateStaffInput{MonthlySalary: &negative})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		missing := uuid.New()
		_, err = svc.Update(ctx, admin, amina.ID, UpdateStaffInput{BranchID: &missing})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		stored, err := svc.Get(ctx, school.TenantID(), amina.ID)
		require.NoError(t, err)
		assert.Equal(t, "5200.46", stored.MonthlySalary.StringFixed(2))
	})
}

func TestService_AssignHandsOverTheSlot(t *testing.T) {
	ctx := testutil.Context(t)
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	svc := NewService(st.Repos, st.Scope, zap.NewNop())
	_, yusuf := st.SeedTeacher(t, school, "yusuf@noor.test")
	_, idris := st.SeedTeacher(t, school, "idris@noor.test")

	input := func(teacher *staff.StaffProfile, start time.Time) AssignInput {
		return AssignInput{
			TeacherID:      teacher.ID,
			BranchID:       school.Branch.ID,
			AcademicYearID: school.Year.ID,
			ClassID:        school.Class.ID,
			DivisionID:     school.Division.ID,
			StartDate:      start,
		}
	}

	first, err := svc.Assign(ctx, school.AdminActor(), input(yusuf, testutil.Day(2024, time.June, 10)))
	require.NoError(t, err)
	assert.Empty(t, first.Closed)
	assert.True(t, first.Assignment.IsPrimary)
	assert.True(t, first.Assignment.IsOpen())

	handover := input(idris, testutil.Day(2024, time.November, 1))
	handover.ChangeReason = staff.ReasonLeave
	second, err := svc.Assign(ctx, school.AdminActor(), handover)
	require.NoError(t, err)
	require.Len(t, second.Closed, 1)
	closed := second.Closed[0]
	assert.Equal(t, first.Assignment.ID, closed.ID)
	assert.False(t, closed.IsActive)
	require.NotNil(t, closed.EndDate)
	assert.Equal(t, "2024-11-01", closed.EndDate.Format(time.DateOnly))
	require.NotNil(t, closed.ReplacedByID)
	assert.Equal(t, second.Assignment.ID, *closed.ReplacedByID)

	open, err := svc.ListAssignments(ctx, school.AdminActor(), staff.AssignmentFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, idris.ID, open[0].TeacherID)

	all, err := svc.ListAssignments(ctx, school.AdminActor(), staff.AssignmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	t.Run("start before the current assignment", func(t *testing.T) {
		_, err := svc.Assign(ctx, school.AdminActor(), input(yusuf, testutil.Day(2024, time.October, 1)))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestService_AssignKeepsBranchesApart(t *testing.T) {
	ctx := testutil.Context(t)
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	svc := NewService(st.Repos, st.Scope, zap.NewNop())

	east, err := organization.NewBranch(school.TenantID(), "NOOREAST", "East Campus")
	require.NoError(t, err)
	require.NoError(t, st.Repos.Branches().Save(ctx, east))
	_, yusuf := st.SeedTeacher(t, school, "yusuf@noor.test")
	_, idris := st.SeedTeacher(t, school, "idris@noor.test")

	input := func(teacher *staff.StaffProfile, branchID uuid.UUID) AssignInput {
		return AssignInput{
			TeacherID:      teacher.ID,
			BranchID:       branchID,
			AcademicYearID: school.Year.ID,
			ClassID:        school.Class.ID,
			DivisionID:     school.Division.ID,
			StartDate:      testutil.Day(2024, time.June, 10),
		}
	}

	home, err := svc.Assign(ctx, school.AdminActor(), input(yusuf, school.Branch.ID))
	require.NoError(t, err)
	other, err := svc.Assign(ctx, school.AdminActor(), input(idris, east.ID))
	require.NoError(t, err)
	assert.Empty(t, other.Closed)
	assert.True(t, other.Assignment.IsPrimary)

	open, err := svc.ListAssignments(ctx, school.AdminActor(), staff.AssignmentFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 2)
	ids := []uuid.UUID{open[0].ID, open[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{home.Assignment.ID, other.Assignment.ID}, ids)
}

func TestService_AssignRejects(t *testing.T) {
	ctx := testutil.Context(t)
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	svc := NewService(st.Repos, st.Scope, zap.NewNop())
	_, teacher := st.SeedTeacher(t, school, "yusuf@noor.test")

	base := AssignInput{
		TeacherID:      teacher.ID,
		BranchID:       school.Branch.ID,
		AcademicYearID: school.Year.ID,
		ClassID:        school.Class.ID,
		DivisionID:     school.Division.ID,
		StartDate:      testutil.Day(2024, time.June, 10),
	}

	t.Run("other branch", func(t *testing.T) {
		east, err := organization.NewBranch(school.TenantID(), "NOOREAST", "East Campus")
		require.NoError(t, err)
		require.NoError(t, st.Repos.Branches().Save(ctx, east))
		head := testutil.ActorFor(st.SeedUser(t, school.TenantID(), "head@east.test", identity.RoleHeadTeacher, &east.ID))

		_, err = svc.Assign(ctx, head, base)
		assert.ErrorIs(t, err, shared.ErrForbidden)
		_, err = svc.ListAssignments(ctx, head, staff.AssignmentFilter{BranchID: &school.Branch.ID})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("inactive teacher", func(t *testing.T) {
		_, resting := st.SeedTeacher(t, school, "resting@noor.test")
		require.NoError(t, resting.SetStatus(staff.StatusInactive))
		require.NoError(t, st.Repos.Staff().Save(ctx, resting))
		input := base
		input.TeacherID = resting.ID
		_, err := svc.Assign(ctx, school.AdminActor(), input)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("closed year", func(t *testing.T) {
		past := st.SeedYear(t, school.TenantID(), "2023-24", testutil.Day(2023, time.June, 1), testutil.Day(2024, time.March, 31), false)
		input := base
		input.AcademicYearID = past.ID
		_, err := svc.Assign(ctx, school.AdminActor(), input)
		assert.Error(t, err)
	})

	t.Run("division of another organization", func(t *testing.T) {
		other := st.SeedSchool(t, "HUDA")
		input := base
		input.DivisionID = other.Division.ID
		_, err := svc.Assign(ctx, school.AdminActor(), input)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}
