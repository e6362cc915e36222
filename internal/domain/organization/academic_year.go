package organization

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

// ErrNoActiveAcademicYear is returned when an operation needs the
// organization's active year and none is set.
var ErrNoActiveAcademicYear = shared.NewDomainError("NO_ACTIVE_ACADEMIC_YEAR", "No active academic year found")

// ErrAcademicYearClosed is returned when a change targets a year that is no
// longer active
var ErrAcademicYearClosed = shared.NewDomainError("ACADEMIC_YEAR_CLOSED", "Academic year is closed")

// AcademicYear is one school year of an organization. At most one year per
// organization is active; activation goes through the repository's
// Activate so siblings are switched off in the same transaction.
type AcademicYear struct {
	shared.TenantAggregateRoot
	Name      string    `gorm:"type:varchar(50);not null"`
	StartDate time.Time `gorm:"type:date;not null"`
	EndDate   time.Time `gorm:"type:date;not null"`
	IsActive  bool      `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (AcademicYear) TableName() string {
	return "academic_years"
}

// NewAcademicYear creates an inactive academic year
func NewAcademicYear(tenantID uuid.UUID, name string, start, end time.Time) (*AcademicYear, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("name", "Academic year name is required")
	}
	if len(name) > 50 {
		return nil, shared.NewValidationError("name", "Academic year name cannot exceed 50 characters")
	}
	start, end = shared.DateOf(start), shared.DateOf(end)
	if !start.Before(end) {
		return nil, shared.NewValidationError("end_date", "End date must be after start date")
	}

	return &AcademicYear{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		StartDate:           start,
		EndDate:             end,
	}, nil
}

// Contains reports whether day falls inside the year
func (y *AcademicYear) Contains(day time.Time) bool {
	return shared.WithinDates(day, y.StartDate, y.EndDate)
}

// IsCurrent reports whether the year is active and contains day
func (y *AcademicYear) IsCurrent(day time.Time) bool {
	return y.IsActive && y.Contains(day)
}

// MarkActivated flips the flag and records the event. Callers must have
// deactivated every sibling in the same transaction.
func (y *AcademicYear) MarkActivated() {
	if y.IsActive {
		return
	}
	y.IsActive = true
	y.IncrementVersion()
	y.AddDomainEvent(NewAcademicYearActivatedEvent(y))
}

// EnsureOpen fails when the year has been closed
func (y *AcademicYear) EnsureOpen() error {
	if !y.IsActive {
		return ErrAcademicYearClosed
	}
	return nil
}
