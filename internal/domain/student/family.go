package student

import (
	"strings"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

// StudentFamily holds the parents' details of a student
type StudentFamily struct {
	shared.BaseEntity
	StudentID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	FatherName      string    `gorm:"type:varchar(200);not null"`
	ParentMobile    string    `gorm:"type:varchar(20);not null"`
	FatherWhatsApp  string    `gorm:"column:father_whatsapp;type:varchar(20)"`
	Email           string    `gorm:"type:varchar(254);not null"`
	MotherName      string    `gorm:"type:varchar(200);not null"`
	SiblingsDetails string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (StudentFamily) TableName() string {
	return "student_families"
}

// FamilyDetails are the parents' details entered by the office
type FamilyDetails struct {
	FatherName      string
	MotherName      string
	ParentMobile    string
	FatherWhatsApp  string
	Email           string
	SiblingsDetails string
}

// NewStudentFamily validates and creates the family record of a student
func NewStudentFamily(studentID uuid.UUID, d FamilyDetails) (*StudentFamily, error) {
	f := &StudentFamily{
		BaseEntity:      shared.NewBaseEntity(),
		StudentID:       studentID,
		FatherName:      strings.TrimSpace(d.FatherName),
		ParentMobile:    strings.TrimSpace(d.ParentMobile),
		FatherWhatsApp:  strings.TrimSpace(d.FatherWhatsApp),
		Email:           strings.ToLower(strings.TrimSpace(d.Email)),
		MotherName:      strings.TrimSpace(d.MotherName),
		SiblingsDetails: strings.TrimSpace(d.SiblingsDetails),
	}
	switch {
	case f.FatherName == "":
		return nil, shared.NewValidationError("father_name", "Father name is required")
	case f.MotherName == "":
		return nil, shared.NewValidationError("mother_name", "Mother name is required")
	case f.ParentMobile == "":
		return nil, shared.NewValidationError("parent_mobile", "Parent mobile is required")
	}
	return f, nil
}

// NewFamilyFromRegistration copies the family section of an approved form
func NewFamilyFromRegistration(studentID uuid.UUID, r *StudentRegistration) *StudentFamily {
	return &StudentFamily{
		BaseEntity:      shared.NewBaseEntity(),
		StudentID:       studentID,
		FatherName:      r.FatherName,
		ParentMobile:    r.ParentMobile,
		FatherWhatsApp:  r.FatherWhatsApp,
		Email:           r.Email,
		MotherName:      r.MotherName,
		SiblingsDetails: r.SiblingsDetails,
	}
}

// AddressType is the country an address belongs to
type AddressType string

const (
	AddressQatar AddressType = "QATAR"
	AddressIndia AddressType = "INDIA"
)

// AddressDetails is the free-form address captured on forms. Qatar
// addresses use the place..zone fields, Indian ones state..contact.
type AddressDetails struct {
	Place      string `json:"place,omitempty"`
	Landmark   string `json:"landmark,omitempty"`
	BuildingNo string `json:"building_no,omitempty"`
	StreetNo   string `json:"street_no,omitempty"`
	ZoneNo     string `json:"zone_no,omitempty"`
	State      string `json:"state,omitempty"`
	District   string `json:"district,omitempty"`
	Panchayath string `json:"panchayath,omitempty"`
	HouseName  string `json:"house_name,omitempty"`
	Contact    string `json:"contact,omitempty"`
}

// IsEmpty reports whether no field is filled in
func (a AddressDetails) IsEmpty() bool {
	return strings.TrimSpace(a.Place+a.Landmark+a.BuildingNo+a.StreetNo+a.ZoneNo+
		a.State+a.District+a.Panchayath+a.HouseName+a.Contact) == ""
}

// UserAddress is one stored address of a user
type UserAddress struct {
	shared.BaseEntity
	UserID          uuid.UUID   `gorm:"type:uuid;not null;index"`
	AddressType     AddressType `gorm:"type:varchar(10);not null"`
	QatarPlace      string      `gorm:"type:varchar(200)"`
	QatarLandmark   string      `gorm:"type:varchar(200)"`
	QatarBuildingNo string      `gorm:"type:varchar(50)"`
	QatarStreetNo   string      `gorm:"type:varchar(50)"`
	QatarZoneNo     string      `gorm:"type:varchar(50)"`
	IndiaState      string      `gorm:"type:varchar(100)"`
	IndiaDistrict   string      `gorm:"type:varchar(100)"`
	IndiaPanchayath string      `gorm:"type:varchar(100)"`
	IndiaPlace      string      `gorm:"type:varchar(100)"`
	IndiaHouseName  string      `gorm:"type:varchar(200)"`
	IndiaContact    string      `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (UserAddress) TableName() string {
	return "user_addresses"
}

// NewUserAddress maps form details onto an address of the given type.
// It returns nil when the details are empty.
func NewUserAddress(userID uuid.UUID, kind AddressType, d AddressDetails) *UserAddress {
	if d.IsEmpty() {
		return nil
	}
	a := &UserAddress{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		AddressType: kind,
	}
	switch kind {
	case AddressQatar:
		a.QatarPlace = d.Place
		a.QatarLandmark = d.Landmark
		a.QatarBuildingNo = d.BuildingNo
		a.QatarStreetNo = d.StreetNo
		a.QatarZoneNo = d.ZoneNo
	case AddressIndia:
		a.IndiaState = d.State
		a.IndiaDistrict = d.District
		a.IndiaPanchayath = d.Panchayath
		a.IndiaPlace = d.Place
		a.IndiaHouseName = d.HouseName
		a.IndiaContact = d.Contact
	}
	return a
}

// StudentAcademicHistory records where a student studied before joining
type StudentAcademicHistory struct {
	shared.BaseEntity
	StudentID        uuid.UUID `gorm:"type:uuid;not null;index"`
	PreviousClass    string    `gorm:"type:varchar(100)"`
	PreviousMadrasa  string    `gorm:"type:varchar(200)"`
	TCNumber         string    `gorm:"column:tc_number;type:varchar(50)"`
	CompletedClasses string    `gorm:"type:varchar(100)"`
	Year             *int
	Notes            string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (StudentAcademicHistory) TableName() string {
	return "student_academic_histories"
}

// NewAcademicHistoryFromRegistration returns nil when the form has no previous-study data
func NewAcademicHistoryFromRegistration(studentID uuid.UUID, r *StudentRegistration) *StudentAcademicHistory {
	if !r.HasAcademicHistory() {
		return nil
	}
	return &StudentAcademicHistory{
		BaseEntity:       shared.NewBaseEntity(),
		StudentID:        studentID,
		PreviousMadrasa:  r.PreviousMadrasa,
		TCNumber:         r.TCNumber,
		CompletedClasses: r.CompletedClasses,
	}
}
