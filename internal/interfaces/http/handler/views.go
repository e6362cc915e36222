package handler

import (
	"time"

	"github.com/google/uuid"
	appfee "github.com/madrasa/backend/internal/application/fee"
	appstudent "github.com/madrasa/backend/internal/application/student"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/staff"
	"github.com/madrasa/backend/internal/domain/student"
	"github.com/shopspring/decimal"
)

// dateLayout is the wire format of calendar dates
const dateLayout = time.DateOnly

func dateOf(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := dateOf(*t)
	return &s
}

// Academic

type AcademicYearView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	IsActive  bool      `json:"is_active"`
}

func academicYearView(y *organization.AcademicYear) AcademicYearView {
	return AcademicYearView{ID: y.ID, Name: y.Name, StartDate: dateOf(y.StartDate), EndDate: dateOf(y.EndDate), IsActive: y.IsActive}
}

type BranchView struct {
	ID            uuid.UUID  `json:"id"`
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone,omitempty"`
	Email         string     `json:"email,omitempty"`
	Address       string     `json:"address,omitempty"`
	HeadTeacherID *uuid.UUID `json:"head_teacher_id,omitempty"`
	IsActive      bool       `json:"is_active"`
}

func branchView(b *organization.Branch) BranchView {
	return BranchView{
		ID: b.ID, Code: b.Code, Name: b.Name, Phone: b.Phone, Email: b.Email,
		Address: b.Address, HeadTeacherID: b.HeadTeacherID, IsActive: b.IsActive,
	}
}

type ClassLevelView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Level    int       `json:"level"`
	IsActive bool      `json:"is_active"`
}

type DivisionView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"is_active"`
}

// Fees

type FeeTypeView struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	Category      fee.Category `json:"category"`
	ChargeTrigger fee.Trigger  `json:"charge_trigger"`
	ChargeMonth   *int         `json:"charge_month,omitempty"`
	IsRecurring   bool         `json:"is_recurring"`
	IsActive      bool         `json:"is_active"`
}

func feeTypeView(t *fee.FeeType) FeeTypeView {
	return FeeTypeView{
		ID: t.ID, Name: t.Name, Description: t.Description, Category: t.Category,
		ChargeTrigger: t.ChargeTrigger, ChargeMonth: t.ChargeMonth,
		IsRecurring: t.IsRecurring, IsActive: t.IsActive,
	}
}

type FeeStructureView struct {
	ID                  uuid.UUID        `json:"id"`
	AcademicYearID      uuid.UUID        `json:"academic_year_id"`
	FeeTypeID           uuid.UUID        `json:"fee_type_id"`
	BranchID            *uuid.UUID       `json:"branch_id,omitempty"`
	ClassID             *uuid.UUID       `json:"class_id,omitempty"`
	Amount              decimal.Decimal  `json:"amount"`
	ApplicableTo        fee.ApplicableTo `json:"applicable_to"`
	EffectiveFrom       string           `json:"effective_from"`
	EffectiveTo         string           `json:"effective_to"`
	AutoCreateDue       bool             `json:"auto_create_due"`
	DueDaysAfterTrigger int              `json:"due_days_after_trigger"`
	IsActive            bool             `json:"is_active"`
}

func feeStructureView(s *fee.FeeStructure) FeeStructureView {
	return FeeStructureView{
		ID: s.ID, AcademicYearID: s.AcademicYearID, FeeTypeID: s.FeeTypeID,
		BranchID: s.BranchID, ClassID: s.ClassID, Amount: s.Amount, ApplicableTo: s.ApplicableTo,
		EffectiveFrom: dateOf(s.EffectiveFrom), EffectiveTo: dateOf(s.EffectiveTo),
		AutoCreateDue: s.AutoCreateDue, DueDaysAfterTrigger: s.DueDaysAfterTrigger, IsActive: s.IsActive,
	}
}

type FeeConfigurationView struct {
	ID             uuid.UUID       `json:"id"`
	StudentID      uuid.UUID       `json:"student_id"`
	AcademicYearID uuid.UUID       `json:"academic_year_id"`
	FeeTypeID      uuid.UUID       `json:"fee_type_id"`
	Amount         decimal.Decimal `json:"amount"`
	OverrideReason string          `json:"override_reason,omitempty"`
	UpdatedBy      *uuid.UUID      `json:"updated_by,omitempty"`
}

type FeeDueView struct {
	ID                      uuid.UUID          `json:"id"`
	StudentID               uuid.UUID          `json:"student_id"`
	AcademicYearID          uuid.UUID          `json:"academic_year_id"`
	FeeTypeID               uuid.UUID          `json:"fee_type_id"`
	Month                   int                `json:"month"`
	Origin                  fee.Origin         `json:"origin"`
	TriggeredByEnrollmentID *uuid.UUID         `json:"triggered_by_enrollment_id,omitempty"`
	TotalAmount             decimal.Decimal    `json:"total_amount"`
	PaidAmount              decimal.Decimal    `json:"paid_amount"`
	DueAmount               decimal.Decimal    `json:"due_amount"`
	DueDate                 string             `json:"due_date"`
	CreationSource          fee.CreationSource `json:"creation_source"`
	LastPaymentDate         *string            `json:"last_payment_date,omitempty"`
}

func feeDueView(d *fee.StudentFeeDue) FeeDueView {
	return FeeDueView{
		ID: d.ID, StudentID: d.StudentID, AcademicYearID: d.AcademicYearID, FeeTypeID: d.FeeTypeID,
		Month: d.Month, Origin: d.Origin, TriggeredByEnrollmentID: d.TriggeredByEnrollmentID,
		TotalAmount: d.TotalAmount, PaidAmount: d.PaidAmount, DueAmount: d.DueAmount,
		DueDate: dateOf(d.DueDate), CreationSource: d.CreationSource, LastPaymentDate: datePtr(d.LastPaymentDate),
	}
}

type CollectionItemView struct {
	FeeTypeID uuid.UUID       `json:"fee_type_id"`
	Amount    decimal.Decimal `json:"amount"`
	Month     *int            `json:"month,omitempty"`
	Year      *int            `json:"year,omitempty"`
	DueID     *uuid.UUID      `json:"due_id,omitempty"`
}

type CollectionView struct {
	ID              uuid.UUID            `json:"id"`
	ReceiptNumber   string               `json:"receipt_number"`
	StudentID       uuid.UUID            `json:"student_id"`
	AcademicYearID  uuid.UUID            `json:"academic_year_id"`
	EnrollmentID    *uuid.UUID           `json:"enrollment_id,omitempty"`
	CollectionDate  string               `json:"collection_date"`
	CollectedByID   uuid.UUID            `json:"collected_by_id"`
	PaymentMethod   fee.PaymentMethod    `json:"payment_method"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	ReferenceNumber string               `json:"reference_number,omitempty"`
	Remarks         string               `json:"remarks,omitempty"`
	Status          fee.CollectionStatus `json:"status"`
	ApprovedByID    *uuid.UUID           `json:"approved_by_id,omitempty"`
	ApprovedAt      *time.Time           `json:"approved_at,omitempty"`
	Items           []CollectionItemView `json:"items"`
}

func collectionView(c *fee.FeeCollection) CollectionView {
	v := CollectionView{
		ID: c.ID, ReceiptNumber: c.ReceiptNumber, StudentID: c.StudentID, AcademicYearID: c.AcademicYearID,
		EnrollmentID: c.EnrollmentID, CollectionDate: dateOf(c.CollectionDate), CollectedByID: c.CollectedByID,
		PaymentMethod: c.PaymentMethod, TotalAmount: c.TotalAmount, ReferenceNumber: c.ReferenceNumber,
		Remarks: c.Remarks, Status: c.Status, ApprovedByID: c.ApprovedByID, ApprovedAt: c.ApprovedAt,
		Items: make([]CollectionItemView, 0, len(c.Items)),
	}
	for _, it := range c.Items {
		v.Items = append(v.Items, CollectionItemView{
			FeeTypeID: it.FeeTypeID, Amount: it.Amount, Month: it.Month, Year: it.Year, DueID: it.DueID,
		})
	}
	return v
}

type BatchView struct {
	Job   string             `json:"job"`
	AsOf  string             `json:"as_of"`
	Stats appfee.BatchResult `json:"stats"`
}

// Students

type EnrollmentView struct {
	ID                   uuid.UUID                `json:"id"`
	StudentID            uuid.UUID                `json:"student_id"`
	AcademicYearID       uuid.UUID                `json:"academic_year_id"`
	ClassID              uuid.UUID                `json:"class_id"`
	DivisionID           uuid.UUID                `json:"division_id"`
	Status               student.EnrollmentStatus `json:"status"`
	EnrollmentDate       string                   `json:"enrollment_date"`
	CompletionDate       *string                  `json:"completion_date,omitempty"`
	PromotedToID         *uuid.UUID               `json:"promoted_to_id,omitempty"`
	AttendancePercentage *decimal.Decimal         `json:"attendance_percentage,omitempty"`
	FinalResult          string                   `json:"final_result,omitempty"`
	Remarks              string                   `json:"remarks,omitempty"`
}

func enrollmentView(e *student.StudentEnrollment) EnrollmentView {
	return EnrollmentView{
		ID: e.ID, StudentID: e.StudentID, AcademicYearID: e.AcademicYearID, ClassID: e.ClassID,
		DivisionID: e.DivisionID, Status: e.Status, EnrollmentDate: dateOf(e.EnrollmentDate),
		CompletionDate: datePtr(e.CompletionDate), PromotedToID: e.PromotedToID,
		AttendancePercentage: e.AttendancePercentage, FinalResult: e.FinalResult, Remarks: e.Remarks,
	}
}

type TransitionView struct {
	Closed      *EnrollmentView `json:"closed,omitempty"`
	Next        *EnrollmentView `json:"next,omitempty"`
	DuesCreated int             `json:"dues_created"`
}

func transitionView(r *appstudent.TransitionResult) TransitionView {
	v := TransitionView{DuesCreated: r.DuesCreated}
	if r.Closed != nil {
		closed := enrollmentView(r.Closed)
		v.Closed = &closed
	}
	if r.Next != nil {
		next := enrollmentView(r.Next)
		v.Next = &next
	}
	return v
}

type ProfileView struct {
	FullName     string              `json:"full_name"`
	Gender       identity.Gender     `json:"gender"`
	DOB          string              `json:"dob"`
	IDCardType   identity.IDCardType `json:"id_card_type"`
	IDCardNumber string              `json:"id_card_number"`
	Mobile       string              `json:"mobile,omitempty"`
	WhatsApp     string              `json:"whatsapp,omitempty"`
	PhotoKey     string              `json:"photo_key,omitempty"`
}

func profileView(p *identity.UserProfile) *ProfileView {
	if p == nil {
		return nil
	}
	return &ProfileView{
		FullName: p.FullName, Gender: p.Gender, DOB: dateOf(p.DOB), IDCardType: p.IDCardType,
		IDCardNumber: p.IDCardNumber, Mobile: p.Mobile, WhatsApp: p.WhatsApp, PhotoKey: p.PhotoKey,
	}
}

type FamilyView struct {
	FatherName      string `json:"father_name"`
	ParentMobile    string `json:"parent_mobile"`
	FatherWhatsApp  string `json:"father_whatsapp,omitempty"`
	Email           string `json:"email"`
	MotherName      string `json:"mother_name"`
	SiblingsDetails string `json:"siblings_details,omitempty"`
}

type AddressView struct {
	Type    student.AddressType    `json:"type"`
	Details student.AddressDetails `json:"details"`
}

func addressView(a *student.UserAddress) AddressView {
	v := AddressView{Type: a.AddressType}
	if a.AddressType == student.AddressQatar {
		v.Details = student.AddressDetails{
			Place: a.QatarPlace, Landmark: a.QatarLandmark, BuildingNo: a.QatarBuildingNo,
			StreetNo: a.QatarStreetNo, ZoneNo: a.QatarZoneNo,
		}
		return v
	}
	v.Details = student.AddressDetails{
		State: a.IndiaState, District: a.IndiaDistrict, Panchayath: a.IndiaPanchayath,
		Place: a.IndiaPlace, HouseName: a.IndiaHouseName, Contact: a.IndiaContact,
	}
	return v
}

type HistoryView struct {
	PreviousClass    string `json:"previous_class,omitempty"`
	PreviousMadrasa  string `json:"previous_madrasa,omitempty"`
	TCNumber         string `json:"tc_number,omitempty"`
	CompletedClasses string `json:"completed_classes,omitempty"`
	Year             *int   `json:"year,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

type StudentView struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	RegistrationID  *uuid.UUID       `json:"registration_id,omitempty"`
	AdmissionNumber string           `json:"admission_number"`
	Category        student.Category `json:"category"`
	Status          student.Status   `json:"status"`
	BranchID        uuid.UUID        `json:"branch_id"`
	HasSiblings     bool             `json:"has_siblings"`
	Notes           string           `json:"notes,omitempty"`
	ActivatedAt     *time.Time       `json:"activated_at,omitempty"`
	Profile         *ProfileView     `json:"profile,omitempty"`
	Family          *FamilyView      `json:"family,omitempty"`
	Addresses       []AddressView    `json:"addresses"`
	History         []HistoryView    `json:"academic_history"`
	Enrollments     []EnrollmentView `json:"enrollments"`
}

type AdmissionView struct {
	Student     StudentView `json:"student"`
	DuesCreated int         `json:"dues_created"`
}

func studentView(d *appstudent.StudentDetail) StudentView {
	s := d.Student
	v := StudentView{
		ID: s.ID, UserID: s.UserID, RegistrationID: s.RegistrationID, AdmissionNumber: s.AdmissionNumber,
		Category: s.Category, Status: s.Status, BranchID: s.BranchID, HasSiblings: s.HasSiblings,
		Notes: s.Notes, ActivatedAt: s.ActivatedAt, Profile: profileView(d.Profile),
		Addresses:   make([]AddressView, 0, len(d.Addresses)),
		History:     make([]HistoryView, 0, len(d.History)),
		Enrollments: make([]EnrollmentView, 0, len(d.Enrollments)),
	}
	if f := d.Family; f != nil {
		v.Family = &FamilyView{
			FatherName: f.FatherName, ParentMobile: f.ParentMobile, FatherWhatsApp: f.FatherWhatsApp,
			Email: f.Email, MotherName: f.MotherName, SiblingsDetails: f.SiblingsDetails,
		}
	}
	for i := range d.Addresses {
		v.Addresses = append(v.Addresses, addressView(&d.Addresses[i]))
	}
	for _, h := range d.History {
		v.History = append(v.History, HistoryView{
			PreviousClass: h.PreviousClass, PreviousMadrasa: h.PreviousMadrasa, TCNumber: h.TCNumber,
			CompletedClasses: h.CompletedClasses, Year: h.Year, Notes: h.Notes,
		})
	}
	for i := range d.Enrollments {
		v.Enrollments = append(v.Enrollments, enrollmentView(&d.Enrollments[i]))
	}
	return v
}

type RegistrationView struct {
	ID                 uuid.UUID                  `json:"id"`
	SubmittedAt        time.Time                  `json:"submitted_at"`
	AdmissionType      student.AdmissionType      `json:"admission_type"`
	StudentName        string                     `json:"student_name"`
	Gender             identity.Gender            `json:"gender"`
	DOB                string                     `json:"dob"`
	StudyType          student.Category           `json:"study_type"`
	IDCardType         identity.IDCardType        `json:"id_card_type"`
	IDCardNumber       string                     `json:"id_card_number"`
	FatherName         string                     `json:"father_name"`
	ParentMobile       string                     `json:"parent_mobile"`
	FatherWhatsApp     string                     `json:"father_whatsapp,omitempty"`
	Email              string                     `json:"email"`
	MotherName         string                     `json:"mother_name"`
	SiblingsDetails    string                     `json:"siblings_details,omitempty"`
	QatarAddress       student.AddressDetails     `json:"qatar_address"`
	IndiaAddress       student.AddressDetails     `json:"india_address"`
	ClassToAdmitID     *uuid.UUID                 `json:"class_to_admit_id,omitempty"`
	InterestedBranchID *uuid.UUID                 `json:"interested_branch_id,omitempty"`
	CompletedClasses   string                     `json:"completed_classes,omitempty"`
	PreviousMadrasa    string                     `json:"previous_madrasa,omitempty"`
	TCNumber           string                     `json:"tc_number,omitempty"`
	Status             student.RegistrationStatus `json:"status"`
	RejectionReason    string                     `json:"rejection_reason,omitempty"`
	InfoRequestMessage string                     `json:"info_request_message,omitempty"`
	ReviewedBy         *uuid.UUID                 `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time                 `json:"reviewed_at,omitempty"`
	StudentID          *uuid.UUID                 `json:"student_id,omitempty"`
}

func registrationView(r *student.StudentRegistration) RegistrationView {
	return RegistrationView{
		ID: r.ID, SubmittedAt: r.SubmittedAt, AdmissionType: r.AdmissionType, StudentName: r.StudentName,
		Gender: r.Gender, DOB: dateOf(r.DOB), StudyType: r.StudyType, IDCardType: r.IDCardType,
		IDCardNumber: r.IDCardNumber, FatherName: r.FatherName, ParentMobile: r.ParentMobile,
		FatherWhatsApp: r.FatherWhatsApp, Email: r.Email, MotherName: r.MotherName,
		SiblingsDetails: r.SiblingsDetails, QatarAddress: r.QatarAddress, IndiaAddress: r.IndiaAddress,
		ClassToAdmitID: r.ClassToAdmitID, InterestedBranchID: r.InterestedBranchID,
		CompletedClasses: r.CompletedClasses, PreviousMadrasa: r.PreviousMadrasa, TCNumber: r.TCNumber,
		Status: r.Status, RejectionReason: r.RejectionReason, InfoRequestMessage: r.InfoRequestMessage,
		ReviewedBy: r.ReviewedBy, ReviewedAt: r.ReviewedAt, StudentID: r.StudentID,
	}
}

type ApprovalView struct {
	Registration    RegistrationView `json:"registration"`
	StudentID       uuid.UUID        `json:"student_id"`
	UserID          uuid.UUID        `json:"user_id"`
	EnrollmentID    uuid.UUID        `json:"enrollment_id"`
	AdmissionNumber string           `json:"admission_number"`
	Status          student.Status   `json:"status"`
	DuesCreated     int              `json:"dues_created"`
}

// Staff

type StaffView struct {
	ID                       uuid.UUID       `json:"id"`
	UserID                   uuid.UUID       `json:"user_id"`
	StaffNumber              string          `json:"staff_number"`
	Category                 staff.Category  `json:"category"`
	Status                   staff.Status    `json:"status"`
	BranchID                 *uuid.UUID      `json:"branch_id,omitempty"`
	AssignedHeadTeacherID    *uuid.UUID      `json:"assigned_head_teacher_id,omitempty"`
	MonthlySalary            decimal.Decimal `json:"monthly_salary"`
	ReligiousAcademicDetails string          `json:"religious_academic_details,omitempty"`
	AcademicDetails          string          `json:"academic_details,omitempty"`
	PreviousMadrasa          string          `json:"previous_madrasa,omitempty"`
	MSRNumber                string          `json:"msr_number,omitempty"`
	Notes                    string          `json:"notes,omitempty"`
}

func staffView(s *staff.StaffProfile) StaffView {
	return StaffView{
		ID: s.ID, UserID: s.UserID, StaffNumber: s.StaffNumber, Category: s.Category, Status: s.Status,
		BranchID: s.BranchID, AssignedHeadTeacherID: s.AssignedHeadTeacherID, MonthlySalary: s.MonthlySalary,
		ReligiousAcademicDetails: s.ReligiousAcademicDetails, AcademicDetails: s.AcademicDetails,
		PreviousMadrasa: s.PreviousMadrasa, MSRNumber: s.MSRNumber, Notes: s.Notes,
	}
}

type AssignmentView struct {
	ID             uuid.UUID            `json:"id"`
	TeacherID      uuid.UUID            `json:"teacher_id"`
	BranchID       uuid.UUID            `json:"branch_id"`
	AcademicYearID uuid.UUID            `json:"academic_year_id"`
	ClassID        uuid.UUID            `json:"class_id"`
	DivisionID     uuid.UUID            `json:"division_id"`
	StartDate      string               `json:"start_date"`
	EndDate        *string              `json:"end_date,omitempty"`
	AssignmentType staff.AssignmentType `json:"assignment_type"`
	ChangeReason   staff.ChangeReason   `json:"change_reason,omitempty"`
	ReplacedByID   *uuid.UUID           `json:"replaced_by_id,omitempty"`
	IsPrimary      bool                 `json:"is_primary"`
	IsActive       bool                 `json:"is_active"`
	Remarks        string               `json:"remarks,omitempty"`
}

func assignmentView(a *staff.TeacherAssignment) AssignmentView {
	return AssignmentView{
		ID: a.ID, TeacherID: a.TeacherID, BranchID: a.BranchID, AcademicYearID: a.AcademicYearID,
		ClassID: a.ClassID, DivisionID: a.DivisionID, StartDate: dateOf(a.StartDate), EndDate: datePtr(a.EndDate),
		AssignmentType: a.AssignmentType, ChangeReason: a.ChangeReason, ReplacedByID: a.ReplacedByID,
		IsPrimary: a.IsPrimary, IsActive: a.IsActive, Remarks: a.Remarks,
	}
}

// Documents

type DocumentView struct {
	ID          uuid.UUID                 `json:"id"`
	OwnerType   string                    `json:"owner_type"`
	OwnerID     uuid.UUID                 `json:"owner_id"`
	Kind        notification.DocumentKind `json:"kind"`
	FileName    string                    `json:"file_name"`
	ContentType string                    `json:"content_type"`
	Size        int64                     `json:"size"`
	CreatedAt   time.Time                 `json:"created_at"`
}

func documentView(d *notification.DocumentUpload) DocumentView {
	return DocumentView{
		ID: d.ID, OwnerType: d.OwnerType, OwnerID: d.OwnerID, Kind: d.Kind, FileName: d.FileName,
		ContentType: d.ContentType, Size: d.Size, CreatedAt: d.CreatedAt,
	}
}

type LinkView struct {
	URL       string        `json:"url"`
	ExpiresAt time.Time     `json:"expires_at"`
	Document  *DocumentView `json:"document,omitempty"`
}

// mapSlice applies view to every element of in
func mapSlice[T, V any](in []T, view func(*T) V) []V {
	out := make([]V, 0, len(in))
	for i := range in {
		out = append(out, view(&in[i]))
	}
	return out
}
