package notification

import (
	"context"
	"fmt"

	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"go.uber.org/zap"
)

// RegistrationEmail is the template data of every registration email
type RegistrationEmail struct {
	Organization    string `json:"organization"`
	StudentName     string `json:"student_name"`
	ParentName      string `json:"parent_name"`
	AdmissionNumber string `json:"admission_number,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Message         string `json:"message,omitempty"`
}

// RegistrationNotifier queues a parent email for every registration decision
type RegistrationNotifier struct {
	repos  txn.Repositories
	logger *zap.Logger
}

// NewRegistrationNotifier creates a new RegistrationNotifier
func NewRegistrationNotifier(repos txn.Repositories, logger *zap.Logger) *RegistrationNotifier {
	return &RegistrationNotifier{repos: repos, logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *RegistrationNotifier) EventTypes() []string {
	return []string{
		student.EventTypeRegistrationApproved,
		student.EventTypeRegistrationRejected,
		student.EventTypeRegistrationInfoRequested,
	}
}

// Handle implements shared.EventHandler
func (h *RegistrationNotifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	var (
		base     student.RegistrationEvent
		data     RegistrationEmail
		template string
		subject  string
	)
	switch e := event.(type) {
	case *student.RegistrationApprovedEvent:
		base = e.RegistrationEvent
		data.AdmissionNumber = e.AdmissionNumber
		template = notification.TemplateRegistrationApproved
		subject = "Admission confirmed for %s"
	case *student.RegistrationRejectedEvent:
		base = e.RegistrationEvent
		data.Reason = e.Reason
		template = notification.TemplateRegistrationRejected
		subject = "Registration update for %s"
	case *student.RegistrationInfoRequestedEvent:
		base = e.RegistrationEvent
		data.Message = e.Message
		template = notification.TemplateRegistrationInfo
		subject = "More information needed for %s"
	default:
		return nil
	}

	data.StudentName = base.StudentName
	data.ParentName = base.ParentName
	if org, err := h.repos.Organizations().FindByID(ctx, event.TenantID()); err == nil {
		data.Organization = org.Name
	} else if !shared.IsNotFound(err) {
		return err
	}

	email, err := notification.NewEmailNotification(event.TenantID(), base.Email, fmt.Sprintf(subject, base.StudentName), template, data)
	if err != nil {
		return err
	}
	if err := h.repos.Emails().Create(ctx, email); err != nil {
		return fmt.Errorf("failed to queue %s email: %w", template, err)
	}
	h.logger.Info("Registration email queued",
		zap.String("registration_id", base.RegistrationID.String()),
		zap.String("template", template),
	)
	return nil
}

var _ shared.EventHandler = (*RegistrationNotifier)(nil)
