package organization

import (
	"strings"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

// ClassLevel is a reusable class (e.g. "Class I") of an organization.
// It is not tied to an academic year.
type ClassLevel struct {
	shared.TenantAggregateRoot
	Name     string `gorm:"type:varchar(50);not null"`
	Level    int    `gorm:"not null"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ClassLevel) TableName() string {
	return "class_levels"
}

// NewClassLevel creates an active class level
func NewClassLevel(tenantID uuid.UUID, name string, level int) (*ClassLevel, error) {
	name, err := classFields(name, level)
	if err != nil {
		return nil, err
	}
	return &ClassLevel{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Level:               level,
		IsActive:            true,
	}, nil
}

// Change sets the name and ordering level
func (c *ClassLevel) Change(name string, level int) error {
	name, err := classFields(name, level)
	if err != nil {
		return err
	}
	c.Name = name
	c.Level = level
	c.IncrementVersion()
	return nil
}

func classFields(name string, level int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", shared.NewValidationError("name", "Class name is required")
	}
	if level < 1 || level > 20 {
		return "", shared.NewValidationError("level", "Class level must be between 1 and 20")
	}
	return name, nil
}

// SetActive shows or hides the class level in selection lists
func (c *ClassLevel) SetActive(active bool) {
	c.IsActive = active
	c.IncrementVersion()
}

// Division is a section within a class (e.g. "A")
type Division struct {
	shared.TenantAggregateRoot
	Name     string `gorm:"type:varchar(20);not null"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Division) TableName() string {
	return "divisions"
}

// NewDivision creates an active division
func NewDivision(tenantID uuid.UUID, name string) (*Division, error) {
	name, err := divisionName(name)
	if err != nil {
		return nil, err
	}
	return &Division{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		IsActive:            true,
	}, nil
}

// Rename sets the division name, upper-cased
func (d *Division) Rename(name string) error {
	name, err := divisionName(name)
	if err != nil {
		return err
	}
	d.Name = name
	d.IncrementVersion()
	return nil
}

func divisionName(name string) (string, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return "", shared.NewValidationError("name", "Division name is required")
	}
	if len(name) > 20 {
		return "", shared.NewValidationError("name", "Division name cannot exceed 20 characters")
	}
	return name, nil
}

// SetActive shows or hides the division in selection lists
func (d *Division) SetActive(active bool) {
	d.IsActive = active
	d.IncrementVersion()
}
