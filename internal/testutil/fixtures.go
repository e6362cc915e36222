package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/staff"
	"github.com/madrasa/backend/internal/domain/student"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// TestPassword is the password of every seeded user
const TestPassword = "secret123"

// School is one seeded organization with an active year, a branch, a
// class and a division
type School struct {
	Org      *organization.Organization
	Branch   *organization.Branch
	Year     *organization.AcademicYear
	Class    *organization.ClassLevel
	Division *organization.Division
	Admin    *identity.User
}

// TenantID returns the organization ID
func (s *School) TenantID() uuid.UUID {
	return s.Org.ID
}

// AdminActor returns an org-wide actor for the seeded admin
func (s *School) AdminActor() identity.Actor {
	return identity.Actor{UserID: s.Admin.ID, TenantID: s.Org.ID, Role: identity.RoleAdmin}
}

// ActorFor returns an actor for user
func ActorFor(user *identity.User) identity.Actor {
	return identity.Actor{UserID: user.ID, TenantID: user.TenantID, Role: user.Role, BranchID: user.BranchID}
}

// SeedSchool creates an organization whose active year runs from
// 1 June 2024 to 31 March 2025. code must start with four letters.
func (st *Store) SeedSchool(t *testing.T, code string) *School {
	t.Helper()
	ctx := context.Background()

	org, err := organization.NewOrganization(code, "Madrasa "+code)
	require.NoError(t, err)
	require.NoError(t, st.Repos.Organizations().Save(ctx, org))

	branchCode := code + "MAIN"
	if len(branchCode) > 10 {
		branchCode = branchCode[:10]
	}
	branch, err := organization.NewBranch(org.ID, branchCode, "Main Campus")
	require.NoError(t, err)
	require.NoError(t, st.Repos.Branches().Save(ctx, branch))

	year := st.SeedYear(t, org.ID, "2024-25", Day(2024, time.June, 1), Day(2025, time.March, 31), true)

	class, err := organization.NewClassLevel(org.ID, "Class 1", 1)
	require.NoError(t, err)
	require.NoError(t, st.Repos.ClassLevels().Save(ctx, class))

	division, err := organization.NewDivision(org.ID, "A")
	require.NoError(t, err)
	require.NoError(t, st.Repos.Divisions().Save(ctx, division))

	school := &School{Org: org, Branch: branch, Year: year, Class: class, Division: division}
	school.Admin = st.SeedUser(t, org.ID, "admin@"+code+".test", identity.RoleAdmin, nil)
	return school
}

// SeedYear creates an academic year, optionally marked active
func (st *Store) SeedYear(t *testing.T, tenantID uuid.UUID, name string, start, end time.Time, active bool) *organization.AcademicYear {
	t.Helper()
	year, err := organization.NewAcademicYear(tenantID, name, start, end)
	require.NoError(t, err)
	if active {
		year.MarkActivated()
		year.ClearDomainEvents()
	}
	require.NoError(t, st.Repos.AcademicYears().Save(context.Background(), year))
	return year
}

// SeedUser creates an active user with TestPassword
func (st *Store) SeedUser(t *testing.T, tenantID uuid.UUID, email string, role identity.Role, branchID *uuid.UUID) *identity.User {
	t.Helper()
	user, err := identity.NewUser(tenantID, email, TestPassword, role)
	require.NoError(t, err)
	user.AssignBranch(branchID)
	require.NoError(t, st.Repos.Users().Save(context.Background(), user))
	return user
}

// SeedStudent creates an active student enrolled in the school's active
// year, class and division
func (st *Store) SeedStudent(t *testing.T, school *School, admission string, category student.Category) (*student.StudentProfile, *student.StudentEnrollment) {
	t.Helper()
	ctx := context.Background()

	user := st.SeedUser(t, school.Org.ID, fmt.Sprintf("%s@%s.test", admission, school.Org.Code), identity.RoleStudent, &school.Branch.ID)
	profile, err := identity.NewUserProfile(user.ID, identity.ProfileInput{
		FullName:     "student " + admission,
		Gender:       identity.GenderMale,
		DOB:          Day(2015, time.January, 10),
		IDCardType:   identity.IDCardQID,
		IDCardNumber: "ID-" + admission,
	})
	require.NoError(t, err)
	require.NoError(t, st.Repos.Profiles().Save(ctx, profile))

	sp, err := student.NewStudentProfile(school.Org.ID, user.ID, school.Branch.ID, category)
	require.NoError(t, err)
	require.NoError(t, sp.AssignAdmissionNumber(admission))
	sp.Activate(school.Admin.ID, school.Year.StartDate)
	require.NoError(t, st.Repos.Students().Save(ctx, sp))

	enrollment, err := student.NewStudentEnrollment(school.Org.ID, sp.ID, school.Year.ID, school.Class.ID, school.Division.ID, school.Year.StartDate)
	require.NoError(t, err)
	require.NoError(t, st.Repos.Enrollments().Save(ctx, enrollment))
	return sp, enrollment
}

// SeedTeacher creates an active teacher in the school's branch
func (st *Store) SeedTeacher(t *testing.T, school *School, email string) (*identity.User, *staff.StaffProfile) {
	t.Helper()
	user := st.SeedUser(t, school.Org.ID, email, identity.RoleTeacher, &school.Branch.ID)
	profile, err := staff.NewStaffProfile(school.Org.ID, user.ID, staff.CategoryPermanent, decimal.NewFromInt(15000))
	require.NoError(t, err)
	profile.AssignBranch(&school.Branch.ID)
	require.NoError(t, profile.SetStatus(staff.StatusActive))
	require.NoError(t, profile.AssignStaffNumber(fmt.Sprintf("STF-%s", user.ID.String()[:8])))
	require.NoError(t, st.Repos.Staff().Save(context.Background(), profile))
	return user, profile
}

// SeedFee creates a fee type and an auto-creating structure for the
// school's active year
func (st *Store) SeedFee(t *testing.T, school *School, name string, trigger fee.Trigger, chargeMonth *int, amount int64) (*fee.FeeType, *fee.FeeStructure) {
	t.Helper()
	ctx := context.Background()

	category := fee.CategoryOther
	switch trigger {
	case fee.TriggerMonthly:
		category = fee.CategoryMonthly
	case fee.TriggerOnAdmission:
		category = fee.CategoryAdmission
	}
	ft, err := fee.NewFeeType(school.Org.ID, name, category, trigger, chargeMonth, trigger == fee.TriggerMonthly)
	require.NoError(t, err)
	require.NoError(t, st.Repos.FeeTypes().Save(ctx, ft))

	structure, err := fee.NewFeeStructure(school.Org.ID, fee.StructureInput{
		AcademicYearID:      school.Year.ID,
		FeeTypeID:           ft.ID,
		Amount:              decimal.NewFromInt(amount),
		EffectiveFrom:       school.Year.StartDate,
		EffectiveTo:         school.Year.EndDate,
		AutoCreateDue:       true,
		DueDaysAfterTrigger: 10,
	})
	require.NoError(t, err)
	require.NoError(t, st.Repos.FeeStructures().Save(ctx, structure))
	return ft, structure
}
