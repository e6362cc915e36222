package fee

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Batch job names
const (
	JobMonthly = "monthly_dues"
	JobAnnual  = "annual_dues"
)

// BatchResult summarizes a due creation run
type BatchResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Add accumulates another result
func (r *BatchResult) Add(o BatchResult) {
	r.Created += o.Created
	r.Skipped += o.Skipped
	r.Errors += o.Errors
}

// SkipReason says why no due was written for a student and fee type
type SkipReason string

const (
	SkipExists        SkipReason = "exists"
	SkipNoStructure   SkipReason = "no_structure"
	SkipAutoCreateOff SkipReason = "auto_create_off"
	SkipZeroAmount    SkipReason = "zero_amount"
	SkipConflict      SkipReason = "conflict"
)

// BatchRecorder receives batch outcomes, typically for metrics
type BatchRecorder interface {
	RecordDueBatch(ctx context.Context, job string, result BatchResult)
	RecordDueSkipped(ctx context.Context, job string, reason SkipReason)
	RecordRemindersQueued(ctx context.Context, count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordDueBatch(context.Context, string, BatchResult) {}
func (nopRecorder) RecordDueSkipped(context.Context, string, SkipReason) {}
func (nopRecorder) RecordRemindersQueued(context.Context, int) {}

// DueEngine materializes StudentFeeDue rows idempotently
type DueEngine struct {
	repos    txn.Repositories
	resolver *Resolver
	recorder BatchRecorder
	logger   *zap.Logger
}

// NewDueEngine creates a new DueEngine. recorder may be nil.
func NewDueEngine(repos txn.Repositories, resolver *Resolver, recorder BatchRecorder, logger *zap.Logger) *DueEngine {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &DueEngine{repos: repos, resolver: resolver, recorder: recorder, logger: logger}
}

// autoDue is one (student, fee type) pair to evaluate
type autoDue struct {
	student    *student.StudentProfile
	enrollment *student.StudentEnrollment
	feeType    *fee.FeeType
	month      int
	source     fee.CreationSource
	day        time.Time
}

// createAuto writes one automatic due unless it exists or no fee applies
func (e *DueEngine) createAuto(ctx context.Context, repos txn.Repositories, req autoDue) (bool, SkipReason, error) {
	subject := SubjectOf(req.student, req.enrollment)
	key := fee.DueKey{
		TenantID:       subject.TenantID,
		StudentID:      subject.StudentID,
		AcademicYearID: subject.AcademicYearID,
		FeeTypeID:      req.feeType.ID,
		Month:          req.month,
		Origin:         fee.OriginAuto,
	}
	exists, err := repos.Dues().Exists(ctx, key)
	if err != nil {
		return false, "", err
	}
	if exists {
		return false, SkipExists, nil
	}

	charge, err := e.resolver.Charge(ctx, repos, subject, req.feeType.ID, req.day)
	if err != nil {
		return false, "", err
	}
	switch {
	case charge.Structure == nil:
		return false, SkipNoStructure, nil
	case !charge.Structure.AutoCreateDue:
		return false, SkipAutoCreateOff, nil
	case !charge.Amount.IsPositive():
		return false, SkipZeroAmount, nil
	}

	enrollmentID := req.enrollment.ID
	due, err := fee.NewStudentFeeDue(subject.TenantID, fee.DueInput{
		StudentID:             subject.StudentID,
		AcademicYearID:        subject.AcademicYearID,
		FeeTypeID:             req.feeType.ID,
		Month:                 req.month,
		Total:                 charge.Amount,
		DueDate:               charge.Structure.DueDate(req.day),
		Source:                req.source,
		TriggeredByEnrollment: &enrollmentID,
	})
	if err != nil {
		return false, "", err
	}
	created, err := repos.Dues().CreateIfAbsent(ctx, due)
	if err != nil {
		return false, "", err
	}
	if !created {
		return false, SkipConflict, nil
	}
	return true, "", nil
}

// RunMonthly creates this month's dues for every ENROLLED student of the
// tenant's active year and every recurring MONTHLY fee type. A failing
// student is logged and counted; the batch goes on.
func (e *DueEngine) RunMonthly(ctx context.Context, tenantID uuid.UUID, today time.Time) (BatchResult, error) {
	day := shared.DateOf(today)
	feeTypes, err := e.repos.FeeTypes().FindActiveByTrigger(ctx, tenantID, fee.TriggerMonthly)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to load monthly fee types: %w", err)
	}
	recurring := feeTypes[:0]
	for _, ft := range feeTypes {
		if ft.IsMonthlyRecurring() {
			recurring = append(recurring, ft)
		}
	}
	return e.runBatch(ctx, JobMonthly, tenantID, day, recurring, int(day.Month()), fee.SourceAutoMonthly)
}

// RunAnnual creates the dues of ANNUAL fee types charged in today's month.
// Annual dues carry no month and are created once per year.
func (e *DueEngine) RunAnnual(ctx context.Context, tenantID uuid.UUID, today time.Time) (BatchResult, error) {
	day := shared.DateOf(today)
	feeTypes, err := e.repos.FeeTypes().FindActiveByTrigger(ctx, tenantID, fee.TriggerAnnual)
	if err != nil {
		return BatchResult{}, fmt.Errorf("failed to load annual fee types: %w", err)
	}
	charged := feeTypes[:0]
	for _, ft := range feeTypes {
		if ft.ChargedIn(int(day.Month())) {
			charged = append(charged, ft)
		}
	}
	return e.runBatch(ctx, JobAnnual, tenantID, day, charged, fee.NoMonth, fee.SourceAutoAnnual)
}

func (e *DueEngine) runBatch(ctx context.Context, job string, tenantID uuid.UUID, day time.Time, feeTypes []fee.FeeType, month int, source fee.CreationSource) (BatchResult, error) {
	var result BatchResult
	log := e.logger.With(
		zap.String("job", job),
		zap.String("tenant_id", tenantID.String()),
		zap.Time("date", day),
	)

	year, err := e.repos.AcademicYears().FindActive(ctx, tenantID)
	if shared.IsNotFound(err) {
		log.Info("No active academic year, nothing to do")
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("failed to load active academic year: %w", err)
	}
	if !year.Contains(day) {
		log.Info("Active academic year does not cover the run date", zap.String("academic_year", year.Name))
		return result, nil
	}
	if len(feeTypes) == 0 {
		log.Debug("No fee types to charge")
		return result, nil
	}

	enrollments, err := e.repos.Enrollments().FindEnrolledForYear(ctx, tenantID, year.ID)
	if err != nil {
		return result, fmt.Errorf("failed to load enrollments: %w", err)
	}
	students, err := e.loadStudents(ctx, tenantID, enrollments)
	if err != nil {
		return result, err
	}

	for i := range feeTypes {
		ft := &feeTypes[i]
		var perType BatchResult
		for j := range enrollments {
			enrollment := &enrollments[j]
			s, ok := students[enrollment.StudentID]
			if !ok {
				perType.Errors++
				log.Error("Enrollment without student", zap.String("enrollment_id", enrollment.ID.String()))
				continue
			}
			created, reason, err := e.createAuto(ctx, e.repos, autoDue{
				student:    s,
				enrollment: enrollment,
				feeType:    ft,
				month:      month,
				source:     source,
				day:        day,
			})
			switch {
			case err != nil:
				perType.Errors++
				log.Error("Failed to create fee due",
					zap.String("admission_number", s.AdmissionNumber),
					zap.String("fee_type", ft.Name),
					zap.Error(err),
				)
			case created:
				perType.Created++
			default:
				perType.Skipped++
				e.recorder.RecordDueSkipped(ctx, job, reason)
			}
		}
		log.Info("Fee type processed",
			zap.String("fee_type", ft.Name),
			zap.Int("created", perType.Created),
			zap.Int("skipped", perType.Skipped),
			zap.Int("errors", perType.Errors),
		)
		result.Add(perType)
	}

	e.recorder.RecordDueBatch(ctx, job, result)
	log.Info("Fee due batch complete",
		zap.String("academic_year", year.Name),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

func (e *DueEngine) loadStudents(ctx context.Context, tenantID uuid.UUID, enrollments []student.StudentEnrollment) (map[uuid.UUID]*student.StudentProfile, error) {
	ids := make([]uuid.UUID, 0, len(enrollments))
	for _, en := range enrollments {
		ids = append(ids, en.StudentID)
	}
	list, err := e.repos.Students().FindByIDsForTenant(ctx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}
	byID := make(map[uuid.UUID]*student.StudentProfile, len(list))
	for i := range list {
		byID[list[i].ID] = &list[i]
	}
	return byID, nil
}

// OnAdmission creates the ON_ADMISSION dues of a newly admitted student.
// It runs on the caller's transaction; any error aborts it.
func (e *DueEngine) OnAdmission(ctx context.Context, repos txn.Repositories, s *student.StudentProfile, enrollment *student.StudentEnrollment, on time.Time) (BatchResult, error) {
	return e.onTrigger(ctx, repos, fee.TriggerOnAdmission, fee.SourceAutoAdmission, s, enrollment, on)
}

// OnEnrollment creates the ON_ENROLLMENT dues of a new enrollment row.
// It runs on the caller's transaction; any error aborts it.
func (e *DueEngine) OnEnrollment(ctx context.Context, repos txn.Repositories, s *student.StudentProfile, enrollment *student.StudentEnrollment, on time.Time) (BatchResult, error) {
	return e.onTrigger(ctx, repos, fee.TriggerOnEnrollment, fee.SourceAutoEnrollment, s, enrollment, on)
}

func (e *DueEngine) onTrigger(ctx context.Context, repos txn.Repositories, trigger fee.Trigger, source fee.CreationSource, s *student.StudentProfile, enrollment *student.StudentEnrollment, on time.Time) (BatchResult, error) {
	var result BatchResult
	feeTypes, err := repos.FeeTypes().FindActiveByTrigger(ctx, s.TenantID, trigger)
	if err != nil {
		return result, fmt.Errorf("failed to load %s fee types: %w", trigger, err)
	}
	for i := range feeTypes {
		created, reason, err := e.createAuto(ctx, repos, autoDue{
			student:    s,
			enrollment: enrollment,
			feeType:    &feeTypes[i],
			month:      fee.NoMonth,
			source:     source,
			day:        shared.DateOf(on),
		})
		if err != nil {
			return result, fmt.Errorf("failed to create %s due for %s: %w", feeTypes[i].Name, s.AdmissionNumber, err)
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
			e.logger.Debug("Triggered due skipped",
				zap.String("trigger", string(trigger)),
				zap.String("fee_type", feeTypes[i].Name),
				zap.String("reason", string(reason)),
			)
		}
	}
	return result, nil
}

// ManualDueInput contains the fields of an admin-created due
type ManualDueInput struct {
	StudentID      uuid.UUID
	AcademicYearID uuid.UUID
	FeeTypeID      uuid.UUID
	Month          int
	// Amount is resolved from structures and overrides when zero
	Amount    decimal.Decimal
	DueDate   time.Time
	Override  bool
	CreatedBy *uuid.UUID
}

// CreateManual creates a due on an admin's request. Manual dues skip the
// automatic existence check but a second manual due with the same key is
// rejected with ALREADY_EXISTS.
func (e *DueEngine) CreateManual(ctx context.Context, tenantID uuid.UUID, input ManualDueInput) (*fee.StudentFeeDue, error) {
	s, err := e.repos.Students().FindByIDForTenant(ctx, tenantID, input.StudentID)
	if err != nil {
		return nil, err
	}
	year, err := e.repos.AcademicYears().FindByIDForTenant(ctx, tenantID, input.AcademicYearID)
	if err != nil {
		return nil, err
	}
	if err := year.EnsureOpen(); err != nil {
		return nil, err
	}
	if _, err := e.repos.FeeTypes().FindByIDForTenant(ctx, tenantID, input.FeeTypeID); err != nil {
		return nil, err
	}

	dueDate := input.DueDate
	if dueDate.IsZero() {
		dueDate = shared.Today()
	}
	amount := input.Amount
	if !amount.IsPositive() {
		enrollment, err := e.repos.Enrollments().FindByStudentAndYear(ctx, tenantID, s.ID, year.ID)
		if err != nil {
			return nil, err
		}
		if amount, err = e.resolver.Amount(ctx, e.repos, SubjectOf(s, enrollment), input.FeeTypeID, dueDate); err != nil {
			return nil, err
		}
	}

	source := fee.SourceManual
	if input.Override {
		source = fee.SourceAdminOverride
	}
	due, err := fee.NewStudentFeeDue(tenantID, fee.DueInput{
		StudentID:      s.ID,
		AcademicYearID: year.ID,
		FeeTypeID:      input.FeeTypeID,
		Month:          input.Month,
		Total:          amount,
		DueDate:        dueDate,
		Source:         source,
	})
	if err != nil {
		return nil, err
	}
	if input.CreatedBy != nil {
		due.SetCreatedBy(*input.CreatedBy)
	}
	if err := e.repos.Dues().Create(ctx, due); err != nil {
		return nil, err
	}

	e.logger.Info("Manual fee due created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("admission_number", s.AdmissionNumber),
		zap.String("source", string(source)),
		zap.String("amount", due.TotalAmount.String()),
	)
	return due, nil
}

// AdjustDue changes the total of an existing due as an admin override
func (e *DueEngine) AdjustDue(ctx context.Context, tenantID, dueID uuid.UUID, total decimal.Decimal) (*fee.StudentFeeDue, error) {
	due, err := e.repos.Dues().FindByIDForTenant(ctx, tenantID, dueID)
	if err != nil {
		return nil, err
	}
	if err := due.AdjustTotal(total); err != nil {
		return nil, err
	}
	if err := e.repos.Dues().Save(ctx, due); err != nil {
		return nil, err
	}
	return due, nil
}

// ListForStudent returns a student's dues, optionally for one year
func (e *DueEngine) ListForStudent(ctx context.Context, tenantID, studentID uuid.UUID, yearID *uuid.UUID) ([]fee.StudentFeeDue, error) {
	if _, err := e.repos.Students().FindByIDForTenant(ctx, tenantID, studentID); err != nil {
		return nil, err
	}
	return e.repos.Dues().ListForStudent(ctx, tenantID, studentID, yearID)
}
