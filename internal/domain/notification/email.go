// Package notification holds queued outbound emails and uploaded documents.
package notification

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

// EmailStatus is the delivery status of a queued email
type EmailStatus string

const (
	EmailPending EmailStatus = "PENDING"
	EmailSent    EmailStatus = "SENT"
	EmailFailed  EmailStatus = "FAILED"
)

// Template names understood by the dispatcher
const (
	TemplateFeeReminder          = "fee_reminder"
	TemplateRegistrationApproved = "registration_approved"
	TemplateRegistrationRejected = "registration_rejected"
	TemplateRegistrationInfo     = "registration_info_requested"
	TemplatePasswordReset        = "password_reset"
)

// EmailNotification is an email waiting to be sent, or the record of one
// that was. The dispatcher renders Template with ContextData.
type EmailNotification struct {
	shared.TenantAggregateRoot
	Recipient    string      `gorm:"type:varchar(254);not null"`
	Subject      string      `gorm:"type:varchar(300);not null"`
	Template     string      `gorm:"column:template_name;type:varchar(100);not null"`
	ContextData  string      `gorm:"type:jsonb;not null;default:'{}'"`
	Status       EmailStatus `gorm:"type:varchar(10);not null;default:'PENDING';index"`
	Attempts     int         `gorm:"not null;default:0"`
	SentAt       *time.Time
	ErrorMessage string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (EmailNotification) TableName() string {
	return "email_notifications"
}

// NewEmailNotification queues an email. data is stored as JSON.
func NewEmailNotification(tenantID uuid.UUID, recipient, subject, template string, data any) (*EmailNotification, error) {
	recipient = strings.ToLower(strings.TrimSpace(recipient))
	if recipient == "" {
		return nil, shared.NewValidationError("recipient", "Recipient is required")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, shared.NewValidationError("subject", "Subject is required")
	}
	if template == "" {
		return nil, shared.NewValidationError("template", "Template is required")
	}
	raw := []byte("{}")
	if data != nil {
		var err error
		if raw, err = json.Marshal(data); err != nil {
			return nil, shared.NewValidationError("context_data", "Context data must be JSON encodable")
		}
	}
	return &EmailNotification{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Recipient:           recipient,
		Subject:             strings.TrimSpace(subject),
		Template:            template,
		ContextData:         string(raw),
		Status:              EmailPending,
	}, nil
}

// DecodeContext unmarshals the context data into v
func (n *EmailNotification) DecodeContext(v any) error {
	return json.Unmarshal([]byte(n.ContextData), v)
}

// MarkSent records a successful delivery
func (n *EmailNotification) MarkSent(at time.Time) {
	n.Status = EmailSent
	n.SentAt = &at
	n.Attempts++
	n.ErrorMessage = ""
	n.IncrementVersion()
}

// MarkFailed records a failed delivery attempt
func (n *EmailNotification) MarkFailed(err error) {
	n.Status = EmailFailed
	n.Attempts++
	if err != nil {
		n.ErrorMessage = err.Error()
	}
	n.IncrementVersion()
}
