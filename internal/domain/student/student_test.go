package student

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/numbering"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.September, 1, 10, 0, 0, 0, time.UTC)

func validInput() RegistrationInput {
	return RegistrationInput{
		StudentName:  "Ahmed Ali",
		Gender:       identity.GenderMale,
		DOB:          time.Date(2015, time.March, 4, 0, 0, 0, 0, time.UTC),
		StudyType:    CategoryPermanent,
		IDCardType:   identity.IDCardQID,
		IDCardNumber: "28435612345",
		FatherName:   "Ali Hassan",
		ParentMobile: "+97455512345",
		Email:        "Parent@Example.com ",
		MotherName:   "Fatima",
	}
}

func TestNewStudentRegistration(t *testing.T) {
	r, err := NewStudentRegistration(uuid.New(), validInput(), now)
	require.NoError(t, err)
	assert.Equal(t, RegistrationPending, r.Status)
	assert.Equal(t, AdmissionNew, r.AdmissionType)
	assert.Equal(t, "parent@example.com", r.Email)
	assert.False(t, r.HasAcademicHistory())

	tests := []struct {
		name   string
		mutate func(*RegistrationInput)
		field  string
	}{
		{"missing name", func(in *RegistrationInput) { in.StudentName = " " }, "student_name"},
		{"bad gender", func(in *RegistrationInput) { in.Gender = "X" }, "gender"},
		{"future dob", func(in *RegistrationInput) { in.DOB = now.AddDate(0, 0, 1) }, "dob"},
		{"bad study type", func(in *RegistrationInput) { in.StudyType = "DAY" }, "study_type"},
		{"bad id type", func(in *RegistrationInput) { in.IDCardType = "AADHAR" }, "id_card_type"},
		{"missing mobile", func(in *RegistrationInput) { in.ParentMobile = "" }, "parent_mobile"},
		{"bad email", func(in *RegistrationInput) { in.Email = "nope" }, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := NewStudentRegistration(uuid.New(), in, now)
			require.Error(t, err)
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			require.NotEmpty(t, de.Fields)
			assert.Equal(t, tt.field, de.Fields[0].Field)
		})
	}
}

func TestStudentRegistration_Review(t *testing.T) {
	reviewer := uuid.New()

	t.Run("approve once", func(t *testing.T) {
		r, _ := NewStudentRegistration(uuid.New(), validInput(), now)
		studentID := uuid.New()
		require.NoError(t, r.Approve(reviewer, studentID, "WAKR0001", now))
		assert.Equal(t, RegistrationApproved, r.Status)
		assert.Equal(t, &studentID, r.StudentID)
		require.Len(t, r.GetDomainEvents(), 1)
		ev, ok := r.GetDomainEvents()[0].(*RegistrationApprovedEvent)
		require.True(t, ok)
		assert.Equal(t, "WAKR0001", ev.AdmissionNumber)

		err := r.Approve(reviewer, uuid.New(), "WAKR0002", now)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, &studentID, r.StudentID)
	})

	t.Run("reject needs reason", func(t *testing.T) {
		r, _ := NewStudentRegistration(uuid.New(), validInput(), now)
		assert.Error(t, r.Reject(reviewer, " ", now))
		require.NoError(t, r.Reject(reviewer, "Class full", now))
		assert.Equal(t, RegistrationRejected, r.Status)
		assert.ErrorIs(t, r.Approve(reviewer, uuid.New(), "X", now), shared.ErrInvalidState)
	})

	t.Run("request info can repeat", func(t *testing.T) {
		r, _ := NewStudentRegistration(uuid.New(), validInput(), now)
		require.NoError(t, r.RequestInfo(reviewer, "Send TC", now))
		require.NoError(t, r.RequestInfo(reviewer, "Send TC copy", now))
		assert.Equal(t, "Send TC copy", r.InfoRequestMessage)
		assert.ErrorIs(t, r.Approve(reviewer, uuid.New(), "X", now), shared.ErrInvalidState)
	})
}

func TestStudentProfile_AssignAdmissionNumber(t *testing.T) {
	s, err := NewStudentProfile(uuid.New(), uuid.New(), uuid.New(), CategoryPermanent)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, s.Status)

	require.NoError(t, s.AssignAdmissionNumber("WAKR0006"))
	err = s.AssignAdmissionNumber("WAKR0007")
	assert.ErrorIs(t, err, numbering.ErrIdentifierAlreadyAssigned)
	assert.Equal(t, "WAKR0006", s.AdmissionNumber)

	by := uuid.New()
	s.Activate(by, now)
	assert.True(t, s.IsActive())
	assert.Equal(t, &by, s.ActivatedBy)
}

func TestStudentEnrollment_Transition(t *testing.T) {
	newEnrollment := func() *StudentEnrollment {
		e, err := NewStudentEnrollment(uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New(), now)
		require.NoError(t, err)
		return e
	}

	for _, to := range []EnrollmentStatus{EnrollmentPromoted, EnrollmentDetained, EnrollmentTransferred, EnrollmentDropped, EnrollmentCompleted} {
		t.Run(string(to), func(t *testing.T) {
			e := newEnrollment()
			require.NoError(t, e.Transition(to, now))
			assert.Equal(t, to, e.Status)
			require.NotNil(t, e.CompletionDate)
			assert.Equal(t, shared.DateOf(now), *e.CompletionDate)

			assert.ErrorIs(t, e.Transition(EnrollmentDropped, now), shared.ErrInvalidState)
		})
	}

	t.Run("cannot move back to enrolled", func(t *testing.T) {
		e := newEnrollment()
		err := e.Transition(EnrollmentEnrolled, now)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestNewUserAddress(t *testing.T) {
	userID := uuid.New()
	assert.Nil(t, NewUserAddress(userID, AddressQatar, AddressDetails{}))

	a := NewUserAddress(userID, AddressIndia, AddressDetails{State: "Kerala", Place: "Tirur"})
	require.NotNil(t, a)
	assert.Equal(t, "Kerala", a.IndiaState)
	assert.Equal(t, "Tirur", a.IndiaPlace)
	assert.Empty(t, a.QatarPlace)
}

func TestStudentProfile_SetCategory(t *testing.T) {
	s, err := NewStudentProfile(uuid.New(), uuid.New(), uuid.New(), CategoryPermanent)
	require.NoError(t, err)

	require.NoError(t, s.SetCategory(CategoryTemporary))
	assert.Equal(t, CategoryTemporary, s.Category)
	assert.ErrorIs(t, s.SetCategory("WEEKEND"), shared.ErrInvalidInput)
	assert.Equal(t, CategoryTemporary, s.Category)
}

func TestNewStudentFamily(t *testing.T) {
	details := FamilyDetails{
		FatherName:   " Ali Hassan ",
		MotherName:   "Fatima",
		ParentMobile: "+97455512345",
		Email:        "Parent@Example.com",
	}
	f, err := NewStudentFamily(uuid.New(), details)
	require.NoError(t, err)
	assert.Equal(t, "Ali Hassan", f.FatherName)
	assert.Equal(t, "parent@example.com", f.Email)

	missing := details
	missing.ParentMobile = " "
	_, err = NewStudentFamily(uuid.New(), missing)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
