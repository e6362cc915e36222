package fee

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNewFeeType(t *testing.T) {
	tenantID := uuid.New()

	ft, err := NewFeeType(tenantID, " Monthly Tuition ", CategoryMonthly, TriggerMonthly, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "Monthly Tuition", ft.Name)
	assert.True(t, ft.IsMonthlyRecurring())

	_, err = NewFeeType(tenantID, "Books", CategoryBooks, TriggerAnnual, nil, false)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	annual, err := NewFeeType(tenantID, "Books", CategoryBooks, TriggerAnnual, intPtr(6), false)
	require.NoError(t, err)
	assert.True(t, annual.ChargedIn(6))
	assert.False(t, annual.ChargedIn(7))
	assert.False(t, annual.IsMonthlyRecurring())

	_, err = NewFeeType(tenantID, "Exam", CategoryExam, TriggerAnnual, intPtr(13), false)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	manual, err := NewFeeType(tenantID, "Trip", CategoryOther, "", nil, false)
	require.NoError(t, err)
	assert.Equal(t, TriggerManual, manual.ChargeTrigger)
}

func TestApplicableTo_Matches(t *testing.T) {
	assert.True(t, ApplicableAll.Matches(student.CategoryTemporary))
	assert.True(t, ApplicablePermanent.Matches(student.CategoryPermanent))
	assert.False(t, ApplicablePermanent.Matches(student.CategoryTemporary))
	assert.False(t, ApplicableTemporary.Matches(student.CategoryPermanent))
}

func TestLookupOrder(t *testing.T) {
	branchID, classID := uuid.New(), uuid.New()
	order := LookupOrder(branchID, classID)
	require.Len(t, order, 4)

	assert.Equal(t, branchID, *order[0].BranchID)
	assert.Equal(t, classID, *order[0].ClassID)
	assert.Equal(t, branchID, *order[1].BranchID)
	assert.Nil(t, order[1].ClassID)
	assert.Nil(t, order[2].BranchID)
	assert.Equal(t, classID, *order[2].ClassID)
	assert.Nil(t, order[3].BranchID)
	assert.Nil(t, order[3].ClassID)
}

func newStructure(t *testing.T, amount int64, applicable ApplicableTo, from, to time.Time) FeeStructure {
	t.Helper()
	s, err := NewFeeStructure(uuid.New(), StructureInput{
		AcademicYearID: uuid.New(),
		FeeTypeID:      uuid.New(),
		Amount:         decimal.NewFromInt(amount),
		ApplicableTo:   applicable,
		EffectiveFrom:  from,
		EffectiveTo:    to,
		AutoCreateDue:  true,
	})
	require.NoError(t, err)
	return *s
}

func TestPickApplicable(t *testing.T) {
	yearStart := shared.Date(2024, time.April, 1)
	yearEnd := shared.Date(2025, time.March, 31)
	day := shared.Date(2024, time.September, 1)

	t.Run("category filter", func(t *testing.T) {
		temp := newStructure(t, 50, ApplicableTemporary, yearStart, yearEnd)
		all := newStructure(t, 100, ApplicableAll, yearStart, yearEnd)
		got := PickApplicable([]FeeStructure{temp, all}, student.CategoryPermanent, day)
		require.NotNil(t, got)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
	})

	t.Run("validity window", func(t *testing.T) {
		expired := newStructure(t, 70, ApplicableAll, yearStart, shared.Date(2024, time.June, 30))
		assert.Nil(t, PickApplicable([]FeeStructure{expired}, student.CategoryPermanent, day))
	})

	t.Run("inactive ignored", func(t *testing.T) {
		s := newStructure(t, 70, ApplicableAll, yearStart, yearEnd)
		s.Deactivate()
		assert.Nil(t, PickApplicable([]FeeStructure{s}, student.CategoryPermanent, day))
	})

	t.Run("latest effective_from wins", func(t *testing.T) {
		old := newStructure(t, 100, ApplicableAll, yearStart, yearEnd)
		revised := newStructure(t, 120, ApplicableAll, shared.Date(2024, time.August, 1), yearEnd)
		got := PickApplicable([]FeeStructure{old, revised}, student.CategoryPermanent, day)
		require.NotNil(t, got)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(120)))
	})
}

func TestFeeStructure_DueDate(t *testing.T) {
	s := newStructure(t, 200, ApplicableAll, shared.Date(2024, 4, 1), shared.Date(2025, 3, 31))
	s.DueDaysAfterTrigger = 10
	assert.Equal(t, shared.Date(2024, time.September, 11), s.DueDate(time.Date(2024, 9, 1, 0, 5, 0, 0, time.UTC)))
}

func newDue(t *testing.T, total int64) *StudentFeeDue {
	t.Helper()
	d, err := NewStudentFeeDue(uuid.New(), DueInput{
		StudentID:      uuid.New(),
		AcademicYearID: uuid.New(),
		FeeTypeID:      uuid.New(),
		Month:          9,
		Total:          decimal.NewFromInt(total),
		DueDate:        shared.Date(2024, time.September, 10),
		Source:         SourceAutoMonthly,
	})
	require.NoError(t, err)
	return d
}

func assertDueInvariant(t *testing.T, d *StudentFeeDue) {
	t.Helper()
	assert.True(t, d.DueAmount.Equal(d.TotalAmount.Sub(d.PaidAmount)),
		"due %s != total %s - paid %s", d.DueAmount, d.TotalAmount, d.PaidAmount)
}

func TestStudentFeeDue_Payments(t *testing.T) {
	d := newDue(t, 200)
	assert.Equal(t, OriginAuto, d.Origin)
	assert.True(t, d.DueAmount.Equal(decimal.NewFromInt(200)))
	assertDueInvariant(t, d)

	require.NoError(t, d.ApplyPayment(decimal.NewFromInt(75), shared.Date(2024, 9, 5)))
	assertDueInvariant(t, d)
	assert.True(t, d.DueAmount.Equal(decimal.NewFromInt(125)))
	assert.True(t, d.TotalAmount.Equal(decimal.NewFromInt(200)))
	require.NotNil(t, d.LastPaymentDate)

	err := d.ApplyPayment(decimal.NewFromInt(126), shared.Date(2024, 9, 6))
	assert.ErrorIs(t, err, ErrPaymentExceedsDue)
	assertDueInvariant(t, d)

	require.NoError(t, d.ApplyPayment(decimal.NewFromInt(125), shared.Date(2024, 9, 6)))
	assert.True(t, d.IsSettled())
	assertDueInvariant(t, d)

	require.NoError(t, d.ReversePayment(decimal.NewFromInt(125)))
	assert.True(t, d.DueAmount.Equal(decimal.NewFromInt(125)))
	assert.Error(t, d.ReversePayment(decimal.NewFromInt(1000)))
	assertDueInvariant(t, d)
}

func TestStudentFeeDue_AdjustTotal(t *testing.T) {
	d := newDue(t, 200)
	require.NoError(t, d.ApplyPayment(decimal.NewFromInt(50), shared.Date(2024, 9, 5)))

	assert.Error(t, d.AdjustTotal(decimal.NewFromInt(40)))
	require.NoError(t, d.AdjustTotal(decimal.NewFromInt(150)))
	assert.Equal(t, SourceAdminOverride, d.CreationSource)
	assert.Equal(t, OriginAuto, d.Origin)
	assert.True(t, d.DueAmount.Equal(decimal.NewFromInt(100)))
	assertDueInvariant(t, d)
}

func TestStudentFeeDue_IsOverdue(t *testing.T) {
	d := newDue(t, 200)
	assert.False(t, d.IsOverdue(shared.Date(2024, 9, 10)))
	assert.True(t, d.IsOverdue(shared.Date(2024, 9, 11)))

	require.NoError(t, d.ApplyPayment(decimal.NewFromInt(200), shared.Date(2024, 9, 11)))
	assert.False(t, d.IsOverdue(shared.Date(2024, 9, 20)))
}

func TestNewStudentFeeDue_Origin(t *testing.T) {
	in := DueInput{
		StudentID:      uuid.New(),
		AcademicYearID: uuid.New(),
		FeeTypeID:      uuid.New(),
		Total:          decimal.NewFromInt(10),
		DueDate:        time.Now(),
	}
	for source, origin := range map[CreationSource]Origin{
		SourceAutoAdmission:  OriginAuto,
		SourceAutoEnrollment: OriginAuto,
		SourceAutoAnnual:     OriginAuto,
		SourceManual:         OriginManual,
		SourceAdminOverride:  OriginManual,
	} {
		in.Source = source
		d, err := NewStudentFeeDue(uuid.New(), in)
		require.NoError(t, err)
		assert.Equal(t, origin, d.Origin, source)
	}

	in.Source = "IMPORTED"
	_, err := NewStudentFeeDue(uuid.New(), in)
	assert.Error(t, err)

	in.Source = SourceManual
	in.Total = decimal.Zero
	_, err = NewStudentFeeDue(uuid.New(), in)
	assert.Error(t, err)
}

func TestFeeCollection(t *testing.T) {
	c, err := NewFeeCollection(uuid.New(), uuid.New(), uuid.New(), uuid.New(), time.Now(), PaymentCash)
	require.NoError(t, err)

	_, err = c.AddItem(uuid.New(), decimal.NewFromInt(200), intPtr(9), intPtr(2024))
	require.NoError(t, err)
	_, err = c.AddItem(uuid.New(), decimal.RequireFromString("50.50"), nil, nil)
	require.NoError(t, err)
	_, err = c.AddItem(uuid.New(), decimal.Zero, nil, nil)
	assert.Error(t, err)
	_, err = c.AddItem(uuid.New(), decimal.NewFromInt(1), intPtr(13), nil)
	assert.Error(t, err)

	assert.Len(t, c.Items, 2)
	assert.True(t, c.TotalAmount.Equal(decimal.RequireFromString("250.50")))
	assert.Equal(t, c.ID, c.Items[0].FeeCollectionID)

	require.NoError(t, c.AssignReceiptNumber("KIC-2024-09-0001"))
	assert.Error(t, c.AssignReceiptNumber("KIC-2024-09-0002"))

	require.NoError(t, c.Approve(uuid.New(), time.Now()))
	assert.ErrorIs(t, c.Approve(uuid.New(), time.Now()), shared.ErrInvalidState)
	require.NoError(t, c.Cancel("bounced cheque"))
	assert.Equal(t, CollectionCancelled, c.Status)
	assert.ErrorIs(t, c.Cancel(""), shared.ErrInvalidState)
}
