package student

import (
	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

const (
	AggregateTypeRegistration = "StudentRegistration"

	EventTypeRegistrationApproved      = "RegistrationApproved"
	EventTypeRegistrationRejected      = "RegistrationRejected"
	EventTypeRegistrationInfoRequested = "RegistrationInfoRequested"
)

// RegistrationEvent carries what a parent notification needs
type RegistrationEvent struct {
	shared.BaseDomainEvent
	RegistrationID uuid.UUID `json:"registration_id"`
	StudentName    string    `json:"student_name"`
	ParentName     string    `json:"parent_name"`
	Email          string    `json:"email"`
}

// RegistrationApprovedEvent is raised when a registration becomes a student
type RegistrationApprovedEvent struct {
	RegistrationEvent
	StudentID       uuid.UUID `json:"student_id"`
	AdmissionNumber string    `json:"admission_number"`
}

// EventType returns the event type name
func (e *RegistrationApprovedEvent) EventType() string {
	return EventTypeRegistrationApproved
}

// RegistrationRejectedEvent is raised when a registration is rejected
type RegistrationRejectedEvent struct {
	RegistrationEvent
	Reason string `json:"reason"`
}

// EventType returns the event type name
func (e *RegistrationRejectedEvent) EventType() string {
	return EventTypeRegistrationRejected
}

// RegistrationInfoRequestedEvent is raised when a reviewer asks for more information
type RegistrationInfoRequestedEvent struct {
	RegistrationEvent
	Message string `json:"message"`
}

// EventType returns the event type name
func (e *RegistrationInfoRequestedEvent) EventType() string {
	return EventTypeRegistrationInfoRequested
}

func newRegistrationEvent(eventType string, r *StudentRegistration) RegistrationEvent {
	return RegistrationEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeRegistration, r.ID, r.TenantID),
		RegistrationID:  r.ID,
		StudentName:     r.StudentName,
		ParentName:      r.FatherName,
		Email:           r.Email,
	}
}

// NewRegistrationApprovedEvent creates a new RegistrationApprovedEvent
func NewRegistrationApprovedEvent(r *StudentRegistration, admissionNumber string) *RegistrationApprovedEvent {
	e := &RegistrationApprovedEvent{
		RegistrationEvent: newRegistrationEvent(EventTypeRegistrationApproved, r),
		AdmissionNumber:   admissionNumber,
	}
	if r.StudentID != nil {
		e.StudentID = *r.StudentID
	}
	return e
}

// NewRegistrationRejectedEvent creates a new RegistrationRejectedEvent
func NewRegistrationRejectedEvent(r *StudentRegistration) *RegistrationRejectedEvent {
	return &RegistrationRejectedEvent{
		RegistrationEvent: newRegistrationEvent(EventTypeRegistrationRejected, r),
		Reason:            r.RejectionReason,
	}
}

// NewRegistrationInfoRequestedEvent creates a new RegistrationInfoRequestedEvent
func NewRegistrationInfoRequestedEvent(r *StudentRegistration) *RegistrationInfoRequestedEvent {
	return &RegistrationInfoRequestedEvent{
		RegistrationEvent: newRegistrationEvent(EventTypeRegistrationInfoRequested, r),
		Message:           r.InfoRequestMessage,
	}
}
