package fee

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const reminderGuardTTL = 26 * time.Hour

// ReminderLine is one overdue due in a reminder email
type ReminderLine struct {
	FeeType string `json:"fee_type"`
	Month   string `json:"month,omitempty"`
	DueDate string `json:"due_date"`
	Amount  string `json:"amount"`
}

// ReminderContext is the template data of a fee reminder
type ReminderContext struct {
	StudentName     string         `json:"student_name"`
	AdmissionNumber string         `json:"admission_number"`
	ParentName      string         `json:"parent_name"`
	Dues            []ReminderLine `json:"dues"`
	TotalOverdue    string         `json:"total_overdue"`
}

// ReminderService queues overdue fee reminders to families
type ReminderService struct {
	repos    txn.Repositories
	txScope  txn.TransactionScope
	guard    shared.RunGuard
	recorder BatchRecorder
	logger   *zap.Logger
	caser    cases.Caser
}

// NewReminderService creates a new ReminderService. guard and recorder may be nil.
func NewReminderService(repos txn.Repositories, txScope txn.TransactionScope, guard shared.RunGuard, recorder BatchRecorder, logger *zap.Logger) *ReminderService {
	if guard == nil {
		guard = shared.NoopRunGuard{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &ReminderService{
		repos:    repos,
		txScope:  txScope,
		guard:    guard,
		recorder: recorder,
		logger:   logger,
		caser:    cases.Title(language.English),
	}
}

// ReminderKey is the guard key of one tenant's reminders for a day
func ReminderKey(tenantID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("fee_reminders:%s:%s", tenantID, shared.DateOf(day).Format("2006-01-02"))
}

// SendFeeReminders queues one email per student with overdue dues and
// returns how many were queued. A second call for the same day queues
// nothing. The emails are written in one transaction; when that fails the
// day's claim is released so a retry can run.
func (s *ReminderService) SendFeeReminders(ctx context.Context, tenantID uuid.UUID, today time.Time) (int, error) {
	today = shared.DateOf(today)
	key := ReminderKey(tenantID, today)
	claimed, err := s.guard.Claim(ctx, key, reminderGuardTTL)
	if err != nil {
		return 0, fmt.Errorf("failed to claim reminder run: %w", err)
	}
	if !claimed {
		s.logger.Info("Fee reminders already sent today",
			zap.String("tenant_id", tenantID.String()),
			zap.Time("date", today),
		)
		return 0, nil
	}

	emails, students, err := s.buildReminders(ctx, tenantID, today)
	if err == nil && len(emails) > 0 {
		err = s.txScope.Execute(ctx, func(repos txn.Repositories) error {
			for _, email := range emails {
				if err := repos.Emails().Create(ctx, email); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err != nil {
		s.release(ctx, key)
		return 0, err
	}

	s.recorder.RecordRemindersQueued(ctx, len(emails))
	s.logger.Info("Fee reminders queued",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("students", students),
		zap.Int("queued", len(emails)),
	)
	return len(emails), nil
}

// buildReminders renders the reminder of every overdue student with a
// family email. It also returns how many students were overdue.
func (s *ReminderService) buildReminders(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]*notification.EmailNotification, int, error) {
	dues, err := s.repos.Dues().FindOverdue(ctx, tenantID, today)
	if err != nil || len(dues) == 0 {
		return nil, 0, err
	}

	byStudent := make(map[uuid.UUID][]fee.StudentFeeDue)
	var studentIDs []uuid.UUID
	for _, d := range dues {
		if _, ok := byStudent[d.StudentID]; !ok {
			studentIDs = append(studentIDs, d.StudentID)
		}
		byStudent[d.StudentID] = append(byStudent[d.StudentID], d)
	}

	lookup, err := s.loadRecipients(ctx, tenantID, studentIDs)
	if err != nil {
		return nil, 0, err
	}
	feeNames, err := feeTypeNames(ctx, s.repos, tenantID)
	if err != nil {
		return nil, 0, err
	}

	emails := make([]*notification.EmailNotification, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		r, ok := lookup[studentID]
		if !ok || r.email == "" {
			s.logger.Warn("No family email for overdue student",
				zap.String("student_id", studentID.String()),
				zap.String("admission_number", r.admissionNumber),
			)
			continue
		}
		data := s.buildContext(r, byStudent[studentID], feeNames)
		subject := fmt.Sprintf("Fee reminder for %s", data.StudentName)
		email, err := notification.NewEmailNotification(tenantID, r.email, subject, notification.TemplateFeeReminder, data)
		if err != nil {
			s.logger.Error("Failed to build fee reminder",
				zap.String("admission_number", r.admissionNumber),
				zap.Error(err),
			)
			continue
		}
		emails = append(emails, email)
	}
	return emails, len(studentIDs), nil
}

func (s *ReminderService) release(ctx context.Context, key string) {
	r, ok := s.guard.(shared.RunReleaser)
	if !ok {
		return
	}
	if err := r.Release(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("Failed to release reminder claim", zap.String("key", key), zap.Error(err))
	}
}

type recipient struct {
	name            string
	admissionNumber string
	parentName      string
	email           string
}

func (s *ReminderService) loadRecipients(ctx context.Context, tenantID uuid.UUID, studentIDs []uuid.UUID) (map[uuid.UUID]recipient, error) {
	students, err := s.repos.Students().FindByIDsForTenant(ctx, tenantID, studentIDs)
	if err != nil {
		return nil, err
	}
	userIDs := make([]uuid.UUID, 0, len(students))
	for _, st := range students {
		userIDs = append(userIDs, st.UserID)
	}
	profiles, err := s.repos.Profiles().FindByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(profiles))
	for _, p := range profiles {
		names[p.UserID] = p.FullName
	}
	families, err := s.repos.StudentDetails().FindFamilies(ctx, studentIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]recipient, len(students))
	for _, st := range students {
		out[st.ID] = recipient{name: names[st.UserID], admissionNumber: st.AdmissionNumber}
	}
	for _, f := range families {
		r, ok := out[f.StudentID]
		if !ok {
			continue
		}
		r.parentName = f.FatherName
		r.email = f.Email
		out[f.StudentID] = r
	}
	return out, nil
}

func (s *ReminderService) buildContext(r recipient, dues []fee.StudentFeeDue, feeNames map[uuid.UUID]string) ReminderContext {
	sort.Slice(dues, func(i, j int) bool { return dues[i].DueDate.Before(dues[j].DueDate) })
	total := decimal.Zero
	lines := make([]ReminderLine, 0, len(dues))
	for _, d := range dues {
		line := ReminderLine{
			FeeType: feeNames[d.FeeTypeID],
			DueDate: d.DueDate.Format("2006-01-02"),
			Amount:  d.DueAmount.StringFixed(2),
		}
		if d.Month != fee.NoMonth {
			line.Month = time.Month(d.Month).String()
		}
		lines = append(lines, line)
		total = total.Add(d.DueAmount)
	}
	return ReminderContext{
		StudentName:     s.caser.String(strings.ToLower(r.name)),
		AdmissionNumber: r.admissionNumber,
		ParentName:      s.caser.String(strings.ToLower(r.parentName)),
		Dues:            lines,
		TotalOverdue:    total.StringFixed(2),
	}
}
