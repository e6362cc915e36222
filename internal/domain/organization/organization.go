package organization

import (
	"regexp"
	"strings"

	"github.com/madrasa/backend/internal/domain/shared"
)

var orgCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{2,19}$`)

// Organization is the tenant root. Its ID is the tenant ID carried by
// every other aggregate.
type Organization struct {
	shared.BaseAggregateRoot
	Name     string `gorm:"type:varchar(200);not null"`
	Code     string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Email    string `gorm:"type:varchar(200)"`
	Phone    string `gorm:"type:varchar(20)"`
	Address  string `gorm:"type:text"`
	Settings string `gorm:"type:text"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Organization) TableName() string {
	return "organizations"
}

// NewOrganization creates an active organization. The code is stored
// upper-cased and prefixes staff and receipt numbers.
func NewOrganization(code, name string) (*Organization, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !orgCodePattern.MatchString(code) {
		return nil, shared.NewValidationError("code", "Organization code must be 3-20 letters or digits, starting with a letter")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("name", "Organization name is required")
	}
	if len(name) > 200 {
		return nil, shared.NewValidationError("name", "Organization name cannot exceed 200 characters")
	}

	return &Organization{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Code:              code,
		Settings:          "{}",
		IsActive:          true,
	}, nil
}

// SetContact updates the contact details
func (o *Organization) SetContact(email, phone, address string) {
	o.Email = strings.TrimSpace(email)
	o.Phone = strings.TrimSpace(phone)
	o.Address = address
	o.IncrementVersion()
}

// Deactivate disables the organization. Its users can no longer resolve it.
func (o *Organization) Deactivate() {
	o.IsActive = false
	o.IncrementVersion()
}

// Activate re-enables the organization
func (o *Organization) Activate() {
	o.IsActive = true
	o.IncrementVersion()
}
