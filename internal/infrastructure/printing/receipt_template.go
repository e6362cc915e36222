// Package printing renders fee receipts to PDF through headless Chrome.
package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/madrasa/backend/internal/application/fee"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const receiptLayout = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Receipt {{.ReceiptNumber}}</title>
<style>
  body { font-family: "Noto Sans", Arial, sans-serif; font-size: 12px; margin: 0; }
  h1 { font-size: 18px; margin: 0; }
  .muted { color: #555; }
  .head { display: flex; justify-content: space-between; border-bottom: 2px solid #222; padding-bottom: 8px; }
  table { width: 100%; border-collapse: collapse; margin-top: 12px; }
  th, td { border-bottom: 1px solid #ccc; padding: 6px 4px; text-align: left; }
  td.amount, th.amount { text-align: right; }
  tfoot td { font-weight: bold; border-top: 2px solid #222; }
  .stamp { margin-top: 8px; font-weight: bold; color: {{if eq .Status "APPROVED"}}#1b5e20{{else}}#b71c1c{{end}}; }
</style>
</head>
<body>
<div class="head">
  <div>
    <h1>{{.OrganizationName}}</h1>
    <div class="muted">{{.OrganizationCode}}</div>
  </div>
  <div>
    <div>Receipt <strong>{{.ReceiptNumber}}</strong></div>
    <div class="muted">{{date .CollectionDate}}</div>
  </div>
</div>
<p>
  Received from <strong>{{title .StudentName}}</strong> (admission {{.AdmissionNumber}})
  by {{title (lower .PaymentMethod)}}{{if .ReferenceNumber}}, reference {{.ReferenceNumber}}{{end}}.
</p>
<table>
  <thead><tr><th>#</th><th>Fee</th><th>Period</th><th class="amount">Amount</th></tr></thead>
  <tbody>
  {{range $i, $l := .Lines}}
    <tr><td>{{inc $i}}</td><td>{{$l.FeeType}}</td><td>{{period $l}}</td><td class="amount">{{$l.Amount}}</td></tr>
  {{end}}
  </tbody>
  <tfoot><tr><td colspan="3">Total</td><td class="amount">{{.Total}}</td></tr></tfoot>
</table>
<div class="stamp">{{.Status}}</div>
</body>
</html>`

// ReceiptTemplate turns a receipt into an HTML page
type ReceiptTemplate struct {
	tmpl *template.Template
}

// NewReceiptTemplate parses the receipt layout
func NewReceiptTemplate() (*ReceiptTemplate, error) {
	caser := cases.Title(language.English)
	funcs := template.FuncMap{
		"title": func(s string) string { return caser.String(s) },
		"lower": strings.ToLower,
		"inc":   func(i int) int { return i + 1 },
		"date":  func(t interface{ Format(string) string }) string { return t.Format("02 Jan 2006") },
		"period": func(l fee.ReceiptLine) string {
			switch {
			case l.Month != "" && l.Year > 0:
				return fmt.Sprintf("%s %d", caser.String(l.Month), l.Year)
			case l.Year > 0:
				return fmt.Sprintf("%d", l.Year)
			}
			return "-"
		},
	}
	tmpl, err := template.New("receipt").Funcs(funcs).Parse(receiptLayout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse receipt template: %w", err)
	}
	return &ReceiptTemplate{tmpl: tmpl}, nil
}

// Render executes the template
func (t *ReceiptTemplate) Render(doc *fee.ReceiptDocument) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render receipt %s: %w", doc.ReceiptNumber, err)
	}
	return buf.String(), nil
}
