package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

// Gender of a person
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// IsValid checks if the gender is known
func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// IDCardType is the kind of identity document on file
type IDCardType string

const (
	IDCardQID      IDCardType = "QID"
	IDCardPassport IDCardType = "PASSPORT"
)

// IsValid checks if the card type is known
func (t IDCardType) IsValid() bool {
	return t == IDCardQID || t == IDCardPassport
}

// UserProfile holds personal details shared by staff and students
type UserProfile struct {
	shared.BaseEntity
	UserID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	FullName     string     `gorm:"type:varchar(200);not null"`
	Gender       Gender     `gorm:"type:varchar(10);not null"`
	DOB          time.Time  `gorm:"column:dob;type:date;not null"`
	IDCardType   IDCardType `gorm:"type:varchar(10);not null"`
	IDCardNumber string     `gorm:"type:varchar(50);not null"`
	Mobile       string     `gorm:"type:varchar(20)"`
	WhatsApp     string     `gorm:"column:whatsapp;type:varchar(20)"`
	PhotoKey     string     `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (UserProfile) TableName() string {
	return "user_profiles"
}

// ProfileInput carries the personal details of a new profile
type ProfileInput struct {
	FullName     string
	Gender       Gender
	DOB          time.Time
	IDCardType   IDCardType
	IDCardNumber string
	Mobile       string
	WhatsApp     string
	PhotoKey     string
}

// NewUserProfile validates and creates a profile for userID
func NewUserProfile(userID uuid.UUID, in ProfileInput) (*UserProfile, error) {
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, shared.NewValidationError("full_name", "Full name is required")
	}
	if !in.Gender.IsValid() {
		return nil, shared.NewValidationError("gender", "Gender must be MALE or FEMALE")
	}
	if in.DOB.IsZero() || in.DOB.After(time.Now()) {
		return nil, shared.NewValidationError("dob", "Date of birth must be in the past")
	}
	if !in.IDCardType.IsValid() {
		return nil, shared.NewValidationError("id_card_type", "Unknown ID card type")
	}
	if strings.TrimSpace(in.IDCardNumber) == "" {
		return nil, shared.NewValidationError("id_card_number", "ID card number is required")
	}

	return &UserProfile{
		BaseEntity:   shared.NewBaseEntity(),
		UserID:       userID,
		FullName:     name,
		Gender:       in.Gender,
		DOB:          shared.DateOf(in.DOB),
		IDCardType:   in.IDCardType,
		IDCardNumber: strings.TrimSpace(in.IDCardNumber),
		Mobile:       strings.TrimSpace(in.Mobile),
		WhatsApp:     strings.TrimSpace(in.WhatsApp),
		PhotoKey:     in.PhotoKey,
	}, nil
}

// ProfileChanges lists the contact details to change. Nil fields are kept.
type ProfileChanges struct {
	FullName *string
	Mobile   *string
	WhatsApp *string
}

// Apply changes the contact details of the profile
func (p *UserProfile) Apply(c ProfileChanges) error {
	if c.FullName != nil {
		name := strings.TrimSpace(*c.FullName)
		if name == "" {
			return shared.NewValidationError("full_name", "Full name is required")
		}
		p.FullName = name
	}
	if c.Mobile != nil {
		p.Mobile = strings.TrimSpace(*c.Mobile)
	}
	if c.WhatsApp != nil {
		p.WhatsApp = strings.TrimSpace(*c.WhatsApp)
	}
	p.Touch()
	return nil
}

// AgeOn returns the completed years of age on the given day
func (p *UserProfile) AgeOn(day time.Time) int {
	day = shared.DateOf(day)
	age := day.Year() - p.DOB.Year()
	if day.Month() < p.DOB.Month() || (day.Month() == p.DOB.Month() && day.Day() < p.DOB.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
