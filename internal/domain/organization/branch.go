package organization

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

var branchCodePattern = regexp.MustCompile(`^[A-Z]{4}[A-Z0-9]{0,6}$`)

// Branch is a physical campus of an organization. Its code namespaces
// admission numbers.
type Branch struct {
	shared.TenantAggregateRoot
	Name          string     `gorm:"type:varchar(200);not null"`
	Code          string     `gorm:"type:varchar(10);not null;index"`
	Phone         string     `gorm:"type:varchar(20)"`
	Email         string     `gorm:"type:varchar(200)"`
	Address       string     `gorm:"type:text"`
	HeadTeacherID *uuid.UUID `gorm:"type:uuid"`
	IsActive      bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Branch) TableName() string {
	return "branches"
}

// NewBranch creates an active branch. The code must start with four letters.
func NewBranch(tenantID uuid.UUID, code, name string) (*Branch, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !branchCodePattern.MatchString(code) {
		return nil, shared.NewValidationError("code", "Branch code must start with 4 letters and be at most 10 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("name", "Branch name is required")
	}

	return &Branch{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Code:                code,
		IsActive:            true,
	}, nil
}

// AdmissionPrefix returns the 4-letter namespace used for admission numbers
func (b *Branch) AdmissionPrefix() string {
	return b.Code[:4]
}

// AssignHeadTeacher sets the branch head teacher
func (b *Branch) AssignHeadTeacher(userID uuid.UUID) {
	b.HeadTeacherID = &userID
	b.IncrementVersion()
}

// Rename changes the display name. The code is fixed once admission
// numbers have been issued under it.
func (b *Branch) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("name", "Branch name is required")
	}
	b.Name = name
	b.IncrementVersion()
	return nil
}

// SetActive shows or hides the branch in selection lists
func (b *Branch) SetActive(active bool) {
	b.IsActive = active
	b.IncrementVersion()
}
