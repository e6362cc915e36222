package printing

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/madrasa/backend/internal/application/fee"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleReceipt() *fee.ReceiptDocument {
	return &fee.ReceiptDocument{
		OrganizationName: "Darul Huda",
		OrganizationCode: "DH",
		ReceiptNumber:    "RCP-2024-0007",
		CollectionDate:   time.Date(2024, time.December, 5, 0, 0, 0, 0, time.UTC),
		StudentName:      "ahmed KUTTY",
		AdmissionNumber:  "DH-2024-0003",
		PaymentMethod:    "CASH",
		Status:           "APPROVED",
		Lines: []fee.ReceiptLine{
			{FeeType: "Tuition", Month: "december", Year: 2024, Amount: "500.00"},
			{FeeType: "Admission", Amount: "1000.00"},
		},
		Total: "1500.00",
	}
}

func TestReceiptTemplate_Render(t *testing.T) {
	tmpl, err := NewReceiptTemplate()
	require.NoError(t, err)

	html, err := tmpl.Render(sampleReceipt())
	require.NoError(t, err)

	assert.Contains(t, html, "RCP-2024-0007")
	assert.Contains(t, html, "05 Dec 2024")
	assert.Contains(t, html, "Ahmed Kutty")
	assert.Contains(t, html, "by Cash")
	assert.Contains(t, html, "December 2024")
	assert.Contains(t, html, "<td>-</td>")
	assert.Contains(t, html, "1500.00")
	assert.NotContains(t, html, "reference")
}

func TestReceiptTemplate_EscapesInput(t *testing.T) {
	tmpl, err := NewReceiptTemplate()
	require.NoError(t, err)

	doc := sampleReceipt()
	doc.StudentName = "<script>alert(1)</script>"
	html, err := tmpl.Render(doc)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert")
}

func TestChromeRenderer_RenderReceipt(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chrome test in short mode")
	}
	var chromePath string
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			chromePath = p
			break
		}
	}
	if chromePath == "" {
		t.Skip("no chrome binary on PATH")
	}

	renderer, err := NewChromeRenderer(config.PrintingConfig{ChromePath: chromePath, RenderTimeout: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	defer renderer.Close()

	pdf, err := renderer.RenderReceipt(context.Background(), sampleReceipt())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestChromeRenderer_CancelledWhileWaiting(t *testing.T) {
	renderer, err := NewChromeRenderer(config.PrintingConfig{MaxConcurrent: 1}, nil)
	require.NoError(t, err)
	defer renderer.Close()

	renderer.slots <- struct{}{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = renderer.RenderReceipt(ctx, sampleReceipt())
	assert.ErrorIs(t, err, context.Canceled)
}
