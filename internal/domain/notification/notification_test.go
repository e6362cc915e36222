package notification

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailNotification_Lifecycle(t *testing.T) {
	data := map[string]any{"student": "Ahmed", "total": "200.00"}
	n, err := NewEmailNotification(uuid.New(), " Parent@Example.com", "Fee reminder", TemplateFeeReminder, data)
	require.NoError(t, err)
	assert.Equal(t, "parent@example.com", n.Recipient)
	assert.Equal(t, EmailPending, n.Status)

	var decoded map[string]string
	require.NoError(t, n.DecodeContext(&decoded))
	assert.Equal(t, "Ahmed", decoded["student"])

	n.MarkFailed(errors.New("smtp timeout"))
	assert.Equal(t, EmailFailed, n.Status)
	assert.Equal(t, "smtp timeout", n.ErrorMessage)
	assert.Equal(t, 1, n.Attempts)

	n.MarkSent(time.Now())
	assert.Equal(t, EmailSent, n.Status)
	assert.Empty(t, n.ErrorMessage)
	assert.NotNil(t, n.SentAt)
}

func TestNewEmailNotification_Validation(t *testing.T) {
	_, err := NewEmailNotification(uuid.New(), "", "s", TemplateFeeReminder, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = NewEmailNotification(uuid.New(), "a@b.co", " ", TemplateFeeReminder, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = NewEmailNotification(uuid.New(), "a@b.co", "s", TemplateFeeReminder, make(chan int))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	n, err := NewEmailNotification(uuid.New(), "a@b.co", "s", TemplateFeeReminder, nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", n.ContextData)
}

func TestNewDocumentUpload(t *testing.T) {
	tenantID, ownerID := uuid.New(), uuid.New()

	doc, err := NewDocumentUpload(tenantID, "Registration", ownerID, DocumentPhoto, "../../etc/Photo.JPG", "image/jpeg", 2048)
	require.NoError(t, err)
	assert.Equal(t, "Photo.JPG", doc.FileName)
	assert.True(t, strings.HasPrefix(doc.StorageKey, tenantID.String()+"/registration/"+ownerID.String()+"/photo/"))
	assert.True(t, strings.HasSuffix(doc.StorageKey, ".jpg"))

	tests := []struct {
		name        string
		contentType string
		size        int64
	}{
		{"unsupported type", "application/zip", 10},
		{"empty", "image/png", 0},
		{"too large", "application/pdf", MaxDocumentSize + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDocumentUpload(tenantID, "registration", ownerID, DocumentIDCard, "id.pdf", tt.contentType, tt.size)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}
