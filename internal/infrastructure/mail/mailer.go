package mail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/madrasa/backend/internal/application/notification"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridMailer delivers messages through the SendGrid v3 API
type SendGridMailer struct {
	key    string
	host   string
	from   *sgmail.Email
	send   func(ctx context.Context, req rest.Request) (*rest.Response, error)
	logger *zap.Logger
}

// NewSendGridMailer creates a mailer sending as cfg.FromName <cfg.FromEmail>
func NewSendGridMailer(cfg config.MailConfig, logger *zap.Logger) *SendGridMailer {
	return &SendGridMailer{
		key:  cfg.SendGridKey,
		host: sendgridHost,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		send:   sendWithContext,
		logger: logger,
	}
}

// sendWithContext is sendgrid.MakeRequest with the request bound to ctx
func sendWithContext(ctx context.Context, req rest.Request) (*rest.Response, error) {
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, err
	}
	res, err := sendgrid.DefaultClient.HTTPClient.Do(httpReq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(res)
}

func (m *SendGridMailer) build(msg *notification.Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail("", msg.To))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(
		sgmail.NewContent("text/plain", msg.Text),
		sgmail.NewContent("text/html", msg.HTML),
	)
	return v3
}

// Send implements notification.Mailer. Any non-2xx status is an error.
func (m *SendGridMailer) Send(ctx context.Context, msg *notification.Message) error {
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.build(msg))

	res, err := m.send(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to call sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid rejected message to %s: status %d: %s", msg.To, res.StatusCode, res.Body)
	}
	m.logger.Debug("Email sent", zap.String("to", msg.To), zap.Int("status", res.StatusCode))
	return nil
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send implements notification.Mailer
func (m *LogMailer) Send(_ context.Context, msg *notification.Message) error {
	m.logger.Info("Email (not sent, no mail provider configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}

// NewMailer picks SendGrid when an API key is configured
func NewMailer(cfg config.MailConfig, logger *zap.Logger) notification.Mailer {
	if cfg.SendGridKey == "" {
		logger.Warn("No SendGrid key configured, emails will only be logged")
		return NewLogMailer(logger)
	}
	return NewSendGridMailer(cfg, logger)
}

var (
	_ notification.Mailer = (*SendGridMailer)(nil)
	_ notification.Mailer = (*LogMailer)(nil)
)
