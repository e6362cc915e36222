package organization

import (
	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

const (
	AggregateTypeAcademicYear = "AcademicYear"

	EventTypeAcademicYearActivated = "AcademicYearActivated"
)

// AcademicYearActivatedEvent is raised when a year becomes the active one
type AcademicYearActivatedEvent struct {
	shared.BaseDomainEvent
	AcademicYearID uuid.UUID `json:"academic_year_id"`
	Name           string    `json:"name"`
}

// EventType returns the event type name
func (e *AcademicYearActivatedEvent) EventType() string {
	return EventTypeAcademicYearActivated
}

// NewAcademicYearActivatedEvent creates a new AcademicYearActivatedEvent
func NewAcademicYearActivatedEvent(y *AcademicYear) *AcademicYearActivatedEvent {
	return &AcademicYearActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAcademicYearActivated, AggregateTypeAcademicYear, y.ID, y.TenantID),
		AcademicYearID:  y.ID,
		Name:            y.Name,
	}
}
