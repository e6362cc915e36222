package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	appnotification "github.com/madrasa/backend/internal/application/notification"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func queued(t *testing.T, template, subject string, data any) *notification.EmailNotification {
	t.Helper()
	n, err := notification.NewEmailNotification(uuid.New(), "parent@example.com", subject, template, data)
	require.NoError(t, err)
	return n
}

func TestTemplateRenderer_KnowsEveryTemplate(t *testing.T) {
	r, err := NewTemplateRenderer("Madrasa")
	require.NoError(t, err)

	for _, name := range []string{
		notification.TemplateFeeReminder,
		notification.TemplateRegistrationApproved,
		notification.TemplateRegistrationRejected,
		notification.TemplateRegistrationInfo,
		notification.TemplatePasswordReset,
	} {
		assert.True(t, r.Has(name), name)
	}
	assert.False(t, r.Has("_base"))
}

func TestTemplateRenderer_Render(t *testing.T) {
	r, err := NewTemplateRenderer("Madrasa")
	require.NoError(t, err)

	t.Run("registration approved", func(t *testing.T) {
		msg, err := r.Render(queued(t, notification.TemplateRegistrationApproved, "Admission confirmed for Aisha", appnotification.RegistrationEmail{
			Organization:    "Darul Huda",
			StudentName:     "Aisha",
			ParentName:      "Fathima",
			AdmissionNumber: "DH-2024-0001",
		}))
		require.NoError(t, err)

		assert.Equal(t, "parent@example.com", msg.To)
		assert.Equal(t, "Admission confirmed for Aisha", msg.Subject)
		assert.Contains(t, msg.HTML, "<strong>DH-2024-0001</strong>")
		assert.Contains(t, msg.HTML, "sent by Darul Huda")
		assert.Contains(t, msg.Text, "Dear Fathima,")
		assert.Contains(t, msg.Text, "Admission number: DH-2024-0001")
	})

	t.Run("rejection without reason", func(t *testing.T) {
		msg, err := r.Render(queued(t, notification.TemplateRegistrationRejected, "Registration update", map[string]any{
			"student_name": "Omar",
		}))
		require.NoError(t, err)
		assert.Contains(t, msg.Text, "Dear Parent,")
		assert.NotContains(t, msg.Text, "Reason:")
		assert.Contains(t, msg.Text, "sent by Madrasa")
	})

	t.Run("password reset", func(t *testing.T) {
		msg, err := r.Render(queued(t, notification.TemplatePasswordReset, "Reset your password", map[string]any{
			"name":       "Yusuf",
			"reset_link": "https://office.example.com/reset?token=abc",
			"expires_at": "2024-09-01 11:00 UTC",
		}))
		require.NoError(t, err)
		assert.Contains(t, msg.HTML, `href="https://office.example.com/reset?token=abc"`)
		assert.Contains(t, msg.Text, "Dear Yusuf,")
		assert.NotContains(t, msg.Text, "Reset code:")

		msg, err = r.Render(queued(t, notification.TemplatePasswordReset, "Reset your password", map[string]any{
			"token": "abc.def.ghi",
		}))
		require.NoError(t, err)
		assert.Contains(t, msg.Text, "Reset code: abc.def.ghi")
	})

	t.Run("fee reminder lists dues", func(t *testing.T) {
		msg, err := r.Render(queued(t, notification.TemplateFeeReminder, "Fee reminder", map[string]any{
			"student_name":     "Omar",
			"admission_number": "DH-2024-0002",
			"total_overdue":    "1500.00",
			"dues": []map[string]any{
				{"fee_type": "Tuition", "month": "November", "due_date": "2024-11-10", "amount": "500.00"},
				{"fee_type": "Books", "due_date": "2024-06-10", "amount": "1000.00"},
			},
		}))
		require.NoError(t, err)
		assert.Contains(t, msg.Text, "- Tuition (November), due 2024-11-10: 500.00")
		assert.Contains(t, msg.Text, "- Books, due 2024-06-10: 1000.00")
		assert.Contains(t, msg.HTML, "<td>-</td>")
		assert.Contains(t, msg.HTML, "<strong>1500.00</strong>")
	})

	t.Run("html is escaped", func(t *testing.T) {
		msg, err := r.Render(queued(t, notification.TemplateRegistrationInfo, "More information needed", map[string]any{
			"student_name": "<b>x</b>",
			"message":      "Upload the birth certificate",
		}))
		require.NoError(t, err)
		assert.Contains(t, msg.HTML, "&lt;b&gt;x&lt;/b&gt;")
		assert.Contains(t, msg.Text, "Upload the birth certificate")
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := r.Render(queued(t, "missing", "x", nil))
		assert.Error(t, err)
	})
}

func TestSendGridMailer_Send(t *testing.T) {
	cfg := config.MailConfig{SendGridKey: "SG.test", FromName: "Darul Huda", FromEmail: "office@darulhuda.test"}
	msg := &appnotification.Message{To: "parent@example.com", Subject: "Fee reminder", HTML: "<p>hi</p>", Text: "hi"}

	t.Run("posts a v3 payload", func(t *testing.T) {
		m := NewSendGridMailer(cfg, zap.NewNop())
		var captured rest.Request
		m.send = func(_ context.Context, req rest.Request) (*rest.Response, error) {
			captured = req
			return &rest.Response{StatusCode: http.StatusAccepted}, nil
		}

		require.NoError(t, m.Send(context.Background(), msg))
		assert.Equal(t, rest.Method(http.MethodPost), captured.Method)
		assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", captured.BaseURL)
		assert.Equal(t, "Bearer SG.test", captured.Headers["Authorization"])

		var body struct {
			From struct {
				Email string `json:"email"`
				Name  string `json:"name"`
			} `json:"from"`
			Personalizations []struct {
				To []struct {
					Email string `json:"email"`
				} `json:"to"`
				Subject string `json:"subject"`
			} `json:"personalizations"`
			Content []struct {
				Type  string `json:"type"`
				Value string `json:"value"`
			} `json:"content"`
		}
		require.NoError(t, json.Unmarshal(captured.Body, &body))
		assert.Equal(t, "office@darulhuda.test", body.From.Email)
		require.Len(t, body.Personalizations, 1)
		assert.Equal(t, "parent@example.com", body.Personalizations[0].To[0].Email)
		assert.Equal(t, "Fee reminder", body.Personalizations[0].Subject)
		require.Len(t, body.Content, 2)
		assert.Equal(t, "text/plain", body.Content[0].Type)
	})

	t.Run("rejected status is an error", func(t *testing.T) {
		m := NewSendGridMailer(cfg, zap.NewNop())
		m.send = func(context.Context, rest.Request) (*rest.Response, error) {
			return &rest.Response{StatusCode: http.StatusBadRequest, Body: `{"errors":[{"message":"bad"}]}`}, nil
		}
		err := m.Send(context.Background(), msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 400")
	})

	t.Run("default transport honours the context", func(t *testing.T) {
		var hits int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			assert.Equal(t, "/v3/mail/send", r.URL.Path)
			assert.Equal(t, "Bearer SG.test", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		m := NewSendGridMailer(cfg, zap.NewNop())
		m.host = srv.URL
		require.NoError(t, m.Send(context.Background(), msg))
		assert.Equal(t, 1, hits)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := m.Send(ctx, msg)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, hits)
	})

	t.Run("transport error", func(t *testing.T) {
		m := NewSendGridMailer(cfg, zap.NewNop())
		m.send = func(context.Context, rest.Request) (*rest.Response, error) {
			return nil, errors.New("dial tcp: timeout")
		}
		assert.Error(t, m.Send(context.Background(), msg))
	})
}

func TestNewMailer(t *testing.T) {
	assert.IsType(t, &LogMailer{}, NewMailer(config.MailConfig{}, zap.NewNop()))
	assert.IsType(t, &SendGridMailer{}, NewMailer(config.MailConfig{SendGridKey: "k"}, zap.NewNop()))
	assert.NoError(t, NewLogMailer(zap.NewNop()).Send(context.Background(), &appnotification.Message{To: "a@b.c"}))
}
