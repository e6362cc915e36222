package student

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/shared"
)

// RegistrationStatus is the review status of an online registration
type RegistrationStatus string

const (
	RegistrationPending       RegistrationStatus = "PENDING"
	RegistrationApproved      RegistrationStatus = "APPROVED"
	RegistrationRejected      RegistrationStatus = "REJECTED"
	RegistrationInfoRequested RegistrationStatus = "INFO_REQUESTED"
)

// IsValid checks if the status is known
func (s RegistrationStatus) IsValid() bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected, RegistrationInfoRequested:
		return true
	}
	return false
}

// AdmissionType distinguishes new admissions from updates of existing students
type AdmissionType string

const (
	AdmissionNew            AdmissionType = "NEW"
	AdmissionExistingUpdate AdmissionType = "EXISTING_UPDATE"
)

// IsValid checks if the admission type is known
func (t AdmissionType) IsValid() bool {
	return t == AdmissionNew || t == AdmissionExistingUpdate
}

// StudentRegistration is an online registration form waiting for review.
// Approval converts it into a student; the status guard keeps that
// conversion from running twice.
type StudentRegistration struct {
	shared.TenantAggregateRoot
	SubmittedAt        time.Time           `gorm:"not null;index"`
	AdmissionType      AdmissionType       `gorm:"type:varchar(20);not null"`
	StudentName        string              `gorm:"type:varchar(200);not null"`
	Gender             identity.Gender     `gorm:"type:varchar(10);not null"`
	DOB                time.Time           `gorm:"column:dob;type:date;not null"`
	StudyType          Category            `gorm:"type:varchar(20);not null"`
	IDCardType         identity.IDCardType `gorm:"type:varchar(10);not null"`
	IDCardNumber       string              `gorm:"type:varchar(50);not null"`
	PhotoKey           string              `gorm:"type:varchar(500)"`
	FatherName         string              `gorm:"type:varchar(200);not null"`
	ParentMobile       string              `gorm:"type:varchar(20);not null"`
	FatherWhatsApp     string              `gorm:"column:father_whatsapp;type:varchar(20)"`
	Email              string              `gorm:"type:varchar(254);not null"`
	MotherName         string              `gorm:"type:varchar(200);not null"`
	SiblingsDetails    string              `gorm:"type:text"`
	QatarAddress       AddressDetails      `gorm:"type:jsonb;serializer:json"`
	IndiaAddress       AddressDetails      `gorm:"type:jsonb;serializer:json"`
	ClassToAdmitID     *uuid.UUID          `gorm:"type:uuid"`
	InterestedBranchID *uuid.UUID          `gorm:"type:uuid;index"`
	CompletedClasses   string              `gorm:"type:varchar(100)"`
	PreviousMadrasa    string              `gorm:"type:varchar(200)"`
	TCNumber           string              `gorm:"column:tc_number;type:varchar(50)"`
	AadharNumber       string              `gorm:"type:varchar(12)"`
	Status             RegistrationStatus  `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	RejectionReason    string              `gorm:"type:text"`
	InfoRequestMessage string              `gorm:"type:text"`
	ReviewedBy         *uuid.UUID          `gorm:"type:uuid"`
	ReviewedAt         *time.Time
	StudentID          *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (StudentRegistration) TableName() string {
	return "student_registrations"
}

// RegistrationInput carries a submitted registration form
type RegistrationInput struct {
	AdmissionType      AdmissionType
	StudentName        string
	Gender             identity.Gender
	DOB                time.Time
	StudyType          Category
	IDCardType         identity.IDCardType
	IDCardNumber       string
	PhotoKey           string
	FatherName         string
	ParentMobile       string
	FatherWhatsApp     string
	Email              string
	MotherName         string
	SiblingsDetails    string
	QatarAddress       AddressDetails
	IndiaAddress       AddressDetails
	ClassToAdmitID     *uuid.UUID
	InterestedBranchID *uuid.UUID
	CompletedClasses   string
	PreviousMadrasa    string
	TCNumber           string
	AadharNumber       string
}

// NewStudentRegistration validates a submitted form and creates a PENDING registration
func NewStudentRegistration(tenantID uuid.UUID, in RegistrationInput, now time.Time) (*StudentRegistration, error) {
	in.StudentName = strings.TrimSpace(in.StudentName)
	in.FatherName = strings.TrimSpace(in.FatherName)
	in.MotherName = strings.TrimSpace(in.MotherName)
	in.Email = identity.NormalizeEmail(in.Email)

	if in.AdmissionType == "" {
		in.AdmissionType = AdmissionNew
	}
	if !in.AdmissionType.IsValid() {
		return nil, shared.NewValidationError("admission_type", "Admission type must be NEW or EXISTING_UPDATE")
	}
	if in.StudentName == "" {
		return nil, shared.NewValidationError("student_name", "Student name is required")
	}
	if !in.Gender.IsValid() {
		return nil, shared.NewValidationError("gender", "Gender must be MALE or FEMALE")
	}
	if in.DOB.IsZero() || !in.DOB.Before(now) {
		return nil, shared.NewValidationError("dob", "Date of birth must be in the past")
	}
	if !in.StudyType.IsValid() {
		return nil, shared.NewValidationError("study_type", "Study type must be PERMANENT or TEMPORARY")
	}
	if !in.IDCardType.IsValid() {
		return nil, shared.NewValidationError("id_card_type", "ID card type must be QID or PASSPORT")
	}
	if strings.TrimSpace(in.IDCardNumber) == "" {
		return nil, shared.NewValidationError("id_card_number", "ID card number is required")
	}
	if in.FatherName == "" {
		return nil, shared.NewValidationError("father_name", "Father name is required")
	}
	if in.MotherName == "" {
		return nil, shared.NewValidationError("mother_name", "Mother name is required")
	}
	if strings.TrimSpace(in.ParentMobile) == "" {
		return nil, shared.NewValidationError("parent_mobile", "Parent mobile is required")
	}
	if err := identity.ValidateEmail(in.Email); err != nil {
		return nil, err
	}
	if len(in.AadharNumber) > 12 {
		return nil, shared.NewValidationError("aadhar_number", "Aadhar number cannot exceed 12 characters")
	}

	return &StudentRegistration{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SubmittedAt:         now,
		AdmissionType:       in.AdmissionType,
		StudentName:         in.StudentName,
		Gender:              in.Gender,
		DOB:                 shared.DateOf(in.DOB),
		StudyType:           in.StudyType,
		IDCardType:          in.IDCardType,
		IDCardNumber:        strings.TrimSpace(in.IDCardNumber),
		PhotoKey:            in.PhotoKey,
		FatherName:          in.FatherName,
		ParentMobile:        strings.TrimSpace(in.ParentMobile),
		FatherWhatsApp:      strings.TrimSpace(in.FatherWhatsApp),
		Email:               in.Email,
		MotherName:          in.MotherName,
		SiblingsDetails:     in.SiblingsDetails,
		QatarAddress:        in.QatarAddress,
		IndiaAddress:        in.IndiaAddress,
		ClassToAdmitID:      in.ClassToAdmitID,
		InterestedBranchID:  in.InterestedBranchID,
		CompletedClasses:    in.CompletedClasses,
		PreviousMadrasa:     in.PreviousMadrasa,
		TCNumber:            in.TCNumber,
		AadharNumber:        in.AadharNumber,
		Status:              RegistrationPending,
	}, nil
}

// IsPending reports whether the registration is awaiting a decision
func (r *StudentRegistration) IsPending() bool {
	return r.Status == RegistrationPending
}

// HasAcademicHistory reports whether the form carries previous-study data
func (r *StudentRegistration) HasAcademicHistory() bool {
	return strings.TrimSpace(r.PreviousMadrasa) != "" || strings.TrimSpace(r.CompletedClasses) != ""
}

// Approve marks the registration APPROVED and links the created student
func (r *StudentRegistration) Approve(reviewer uuid.UUID, studentID uuid.UUID, admissionNumber string, at time.Time) error {
	if !r.IsPending() {
		return shared.ErrInvalidState.WithField("status", "only PENDING registrations can be approved")
	}
	r.Status = RegistrationApproved
	r.StudentID = &studentID
	r.review(reviewer, at)
	r.AddDomainEvent(NewRegistrationApprovedEvent(r, admissionNumber))
	return nil
}

// Reject marks the registration REJECTED with a reason
func (r *StudentRegistration) Reject(reviewer uuid.UUID, reason string, at time.Time) error {
	if !r.IsPending() {
		return shared.ErrInvalidState.WithField("status", "only PENDING registrations can be rejected")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("reason", "Rejection reason is required")
	}
	r.Status = RegistrationRejected
	r.RejectionReason = reason
	r.review(reviewer, at)
	r.AddDomainEvent(NewRegistrationRejectedEvent(r))
	return nil
}

// RequestInfo asks the parent for more information. It may be repeated
// while the registration waits for the answer.
func (r *StudentRegistration) RequestInfo(reviewer uuid.UUID, message string, at time.Time) error {
	if r.Status != RegistrationPending && r.Status != RegistrationInfoRequested {
		return shared.ErrInvalidState.WithField("status", "information can only be requested on PENDING registrations")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return shared.NewValidationError("message", "Message is required")
	}
	r.Status = RegistrationInfoRequested
	r.InfoRequestMessage = message
	r.review(reviewer, at)
	r.AddDomainEvent(NewRegistrationInfoRequestedEvent(r))
	return nil
}

func (r *StudentRegistration) review(reviewer uuid.UUID, at time.Time) {
	r.ReviewedBy = &reviewer
	r.ReviewedAt = &at
	r.IncrementVersion()
}
