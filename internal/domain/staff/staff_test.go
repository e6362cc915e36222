package staff

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/numbering"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStaffProfile(t *testing.T) {
	s, err := NewStaffProfile(uuid.New(), uuid.New(), CategoryPermanent, decimal.RequireFromString("3500.456"))
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, s.Status)
	assert.True(t, decimal.RequireFromString("3500.46").Equal(s.MonthlySalary))

	_, err = NewStaffProfile(uuid.New(), uuid.New(), CategoryPermanent, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = NewStaffProfile(uuid.New(), uuid.New(), "CONTRACT", decimal.Zero)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestStaffProfile_AssignStaffNumber(t *testing.T) {
	s, _ := NewStaffProfile(uuid.New(), uuid.New(), CategoryTemporary, decimal.Zero)
	require.NoError(t, s.AssignStaffNumber("KIC001"))
	assert.ErrorIs(t, s.AssignStaffNumber("KIC002"), numbering.ErrIdentifierAlreadyAssigned)
	assert.Equal(t, "KIC001", s.StaffNumber)
}

func TestTeacherAssignment_CloseFor(t *testing.T) {
	tenantID := uuid.New()
	slot := SlotKey{BranchID: uuid.New(), AcademicYearID: uuid.New(), ClassID: uuid.New(), DivisionID: uuid.New()}

	prev, err := NewTeacherAssignment(tenantID, uuid.New(), slot, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "", "")
	require.NoError(t, err)
	assert.True(t, prev.IsOpen())
	assert.True(t, prev.IsPrimary)

	next, err := NewTeacherAssignment(tenantID, uuid.New(), slot, time.Date(2024, 9, 15, 8, 30, 0, 0, time.UTC), AssignmentSubstitute, ReasonLeave)
	require.NoError(t, err)
	assert.False(t, next.IsPrimary)

	prev.CloseFor(next)
	assert.False(t, prev.IsOpen())
	require.NotNil(t, prev.EndDate)
	assert.Equal(t, shared.Date(2024, time.September, 15), *prev.EndDate)
	assert.Equal(t, &next.ID, prev.ReplacedByID)
	assert.Equal(t, slot, next.Slot())
}

func TestNewTeacherAssignment_Validation(t *testing.T) {
	slot := SlotKey{BranchID: uuid.New(), AcademicYearID: uuid.New(), ClassID: uuid.New(), DivisionID: uuid.New()}
	start := time.Now()

	_, err := NewTeacherAssignment(uuid.New(), uuid.Nil, slot, start, "", "")
	assert.Error(t, err)

	_, err = NewTeacherAssignment(uuid.New(), uuid.New(), SlotKey{}, start, "", "")
	assert.Error(t, err)

	_, err = NewTeacherAssignment(uuid.New(), uuid.New(), slot, start, "MENTOR", "")
	assert.Error(t, err)

	_, err = NewTeacherAssignment(uuid.New(), uuid.New(), slot, start, AssignmentAssistant, "BORED")
	assert.Error(t, err)
}
