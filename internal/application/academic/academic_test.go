package academic

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestYearService_ActivateKeepsOneActiveYear(t *testing.T) {
	ctx := testutil.Context(t)
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	publisher := testutil.NewRecordingPublisher()
	svc := NewYearService(st.Repos, st.Scope, publisher, zap.NewNop())

	next, err := svc.Create(ctx, school.TenantID(), CreateYearInput{
		Name:      "2025-26",
		StartDate: testutil.Day(2025, time.June, 1),
		EndDate:   testutil.Day(2026, time.March, 31),
		CreatedBy: &school.Admin.ID,
	})
	require.NoError(t, err)
	assert.False(t, next.IsActive)

	_, err = svc.Create(ctx, school.TenantID(), CreateYearInput{
		Name:      "2025-26",
		StartDate: testutil.Day(2025, time.June, 1),
		EndDate:   testutil.Day(2026, time.March, 31),
	})
	assert.True(t, shared.IsAlreadyExists(err), "year names are unique per organization")

	activated, err := svc.Activate(ctx, school.TenantID(), next.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	years, err := svc.List(ctx, school.TenantID())
	require.NoError(t, err)
	active := 0
	for _, y := range years {
		if y.IsActive {
			active++
			assert.Equal(t, next.ID, y.ID)
		}
	}
	assert.Equal(t, 1, active)
	assert.Equal(t, []string{organization.EventTypeAcademicYearActivated}, publisher.Types())

	t.Run("activating the active year is a no-op", func(t *testing.T) {
		_, err := svc.Activate(ctx, school.TenantID(), next.ID)
		require.NoError(t, err)
		assert.Len(t, publisher.Types(), 1)
	})

	t.Run("year of another organization", func(t *testing.T) {
		other := st.SeedSchool(t, "HUDA")
		_, err := svc.Activate(ctx, school.TenantID(), other.Year.ID)
		assert.True(t, shared.IsNotFound(err))

		still, err := svc.Get(ctx, other.TenantID(), other.Year.ID)
		require.NoError(t, err)
		assert.True(t, still.IsActive, "the other organization is untouched")
	})
}

func TestYearService_CreateRejectsInvertedDates(t *testing.T) {
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	svc := NewYearService(st.Repos, st.Scope, testutil.NewRecordingPublisher(), zap.NewNop())

	_, err := svc.Create(testutil.Context(t), school.TenantID(), CreateYearInput{
		Name:      "2025-26",
		StartDate: testutil.Day(2026, time.March, 31),
		EndDate:   testutil.Day(2025, time.June, 1),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestScopeResolver(t *testing.T) {
	ctx := testutil.Context(t)
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	other := st.SeedSchool(t, "HUDA")
	resolver := NewScopeResolver(st.Repos, zap.NewNop())

	scope, err := resolver.ResolveScope(ctx, " noor ", school.Admin.ID)
	require.NoError(t, err)
	assert.Equal(t, school.TenantID(), scope.TenantID())
	year, err := scope.RequireActiveYear()
	require.NoError(t, err)
	assert.Equal(t, school.Year.ID, year.ID)

	t.Run("user of another organization", func(t *testing.T) {
		_, err := resolver.ResolveScope(ctx, "NOOR", other.Admin.ID)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("unknown organization", func(t *testing.T) {
		_, err := resolver.ResolveScope(ctx, "GHOST", school.Admin.ID)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("inactive organization", func(t *testing.T) {
		other.Org.Deactivate()
		require.NoError(t, st.Repos.Organizations().Save(ctx, other.Org))
		_, err := resolver.ResolveScope(ctx, "HUDA", other.Admin.ID)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("no active year", func(t *testing.T) {
		school.Year.IsActive = false
		require.NoError(t, st.Repos.AcademicYears().Save(ctx, school.Year))

		scope, err := resolver.ResolveTenant(ctx, school.TenantID())
		require.NoError(t, err)
		assert.Nil(t, scope.ActiveYear)
		_, err = scope.RequireActiveYear()
		assert.ErrorIs(t, err, organization.ErrNoActiveAcademicYear)
	})
}

func TestCatalogService(t *testing.T) {
	ctx := testutil.Context(t)
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	svc := NewCatalogService(st.Repos, zap.NewNop())

	branch, err := svc.CreateBranch(ctx, school.TenantID(), CreateBranchInput{Code: "nooreast", Name: "East Campus", Phone: "+97444000000"})
	require.NoError(t, err)
	assert.Equal(t, "NOOREAST", branch.Code)

	_, err = svc.CreateBranch(ctx, school.TenantID(), CreateBranchInput{Code: "NOOREAST", Name: "Duplicate"})
	assert.True(t, shared.IsAlreadyExists(err))

	_, err = svc.CreateBranch(ctx, school.TenantID(), CreateBranchInput{Code: "NO-1", Name: "Bad code"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	branches, err := svc.ListBranches(ctx, school.TenantID(), true)
	require.NoError(t, err)
	assert.Len(t, branches, 2)

	_, err = svc.CreateClassLevel(ctx, school.TenantID(), "Class 3", 3)
	require.NoError(t, err)
	_, err = svc.CreateClassLevel(ctx, school.TenantID(), "Class 2", 2)
	require.NoError(t, err)
	classes, err := svc.ListClassLevels(ctx, school.TenantID(), false)
	require.NoError(t, err)
	require.Len(t, classes, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{classes[0].Level, classes[1].Level, classes[2].Level})

	_, err = svc.CreateDivision(ctx, school.TenantID(), "B")
	require.NoError(t, err)
	divisions, err := svc.ListDivisions(ctx, school.TenantID(), true)
	require.NoError(t, err)
	assert.Len(t, divisions, 2)

	other := st.SeedSchool(t, "HUDA")
	otherBranches, err := svc.ListBranches(ctx, other.TenantID(), false)
	require.NoError(t, err)
	assert.Len(t, otherBranches, 1, "catalogs are per organization")

	t.Run("update branch", func(t *testing.T) {
		name, off := "East Campus Annex", false
		updated, err := svc.UpdateBranch(ctx, school.TenantID(), branch.ID, UpdateBranchInput{Name: &name, IsActive: &off})
		require.NoError(t, err)
		assert.Equal(t, "East Campus Annex", updated.Name)
		assert.Equal(t, "NOOREAST", updated.Code)
		assert.Equal(t, "+97444000000", updated.Phone, "unset fields are kept")

		active, err := svc.ListBranches(ctx, school.TenantID(), true)
		require.NoError(t, err)
		assert.Len(t, active, 1)

		_, err = svc.UpdateBranch(ctx, other.TenantID(), branch.ID, UpdateBranchInput{Name: &name})
		assert.True(t, shared.IsNotFound(err), "branches of another organization are invisible")
	})

	t.Run("update class level", func(t *testing.T) {
		level := 4
		updated, err := svc.UpdateClassLevel(ctx, school.TenantID(), classes[1].ID, UpdateClassLevelInput{Level: &level})
		require.NoError(t, err)
		assert.Equal(t, "Class 2", updated.Name)
		assert.Equal(t, 4, updated.Level)

		bad := 0
		_, err = svc.UpdateClassLevel(ctx, school.TenantID(), classes[1].ID, UpdateClassLevelInput{Level: &bad})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("update division", func(t *testing.T) {
		name, off := "c", false
		updated, err := svc.UpdateDivision(ctx, school.TenantID(), school.Division.ID, UpdateDivisionInput{Name: &name, IsActive: &off})
		require.NoError(t, err)
		assert.Equal(t, "C", updated.Name)
		assert.False(t, updated.IsActive)

		active, err := svc.ListDivisions(ctx, school.TenantID(), true)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})
}

func TestOrganizationService_Onboard(t *testing.T) {
	ctx := testutil.Context(t)
	st := testutil.NewStore(t)
	svc := NewOrganizationService(st.Repos, st.Scope, zap.NewNop())

	org, admin, err := svc.Onboard(ctx, OnboardInput{
		Code:          "kic",
		Name:          "Kerala Islamic Centre",
		Email:         "office@kic.test",
		AdminEmail:    "Admin@KIC.test",
		AdminPassword: "admin-pass-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "KIC", org.Code)
	assert.Equal(t, identity.RoleAdmin, admin.Role)
	assert.Equal(t, org.ID, admin.TenantID)
	assert.Equal(t, "admin@kic.test", admin.Email)

	stored, err := st.Repos.Organizations().FindByCode(ctx, "KIC")
	require.NoError(t, err)
	assert.Equal(t, org.ID, stored.ID)

	t.Run("code taken", func(t *testing.T) {
		_, _, err := svc.Onboard(ctx, OnboardInput{Code: "KIC", Name: "Copy", AdminEmail: "second@kic.test", AdminPassword: "admin-pass-1"})
		assert.True(t, shared.IsAlreadyExists(err))
	})

	t.Run("admin email taken", func(t *testing.T) {
		_, _, err := svc.Onboard(ctx, OnboardInput{Code: "HUDA", Name: "Huda", AdminEmail: "admin@kic.test", AdminPassword: "admin-pass-1"})
		assert.True(t, shared.IsAlreadyExists(err))

		_, err = st.Repos.Organizations().FindByCode(ctx, "HUDA")
		assert.True(t, shared.IsNotFound(err), "nothing is created when onboarding fails")
	})

	t.Run("unknown user in scope resolution", func(t *testing.T) {
		_, err := NewScopeResolver(st.Repos, zap.NewNop()).ResolveScope(ctx, "KIC", uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})
}
