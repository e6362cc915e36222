// Package mail renders queued emails from embedded templates and delivers
// them through SendGrid, or to the log when no API key is configured.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"path"
	"strings"
	texttmpl "text/template"

	appnotification "github.com/madrasa/backend/internal/application/notification"
	"github.com/madrasa/backend/internal/domain/notification"
)

//go:embed templates/*
var templateFS embed.FS

type templatePair struct {
	html *htmltmpl.Template
	text *texttmpl.Template
}

// TemplateRenderer renders an EmailNotification with the template named by
// its Template field. Each template has a .gohtml and a .txt part wrapped
// by the matching _base layout.
type TemplateRenderer struct {
	templates    map[string]templatePair
	organization string
}

// templateData is what every template sees. Data is the notification's
// decoded context.
type templateData struct {
	Subject      string
	Organization string
	Data         map[string]any
}

// NewTemplateRenderer parses the embedded templates. fallbackOrg names the
// sender when a notification's context carries no organization.
func NewTemplateRenderer(fallbackOrg string) (*TemplateRenderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, err
	}

	r := &TemplateRenderer{templates: make(map[string]templatePair), organization: fallbackOrg}
	for _, file := range names {
		base := path.Base(file)
		if strings.HasPrefix(base, "_") {
			continue
		}
		name := strings.TrimSuffix(base, ".gohtml")

		html, err := htmltmpl.ParseFS(templateFS, "templates/_base.gohtml", file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		text, err := texttmpl.ParseFS(templateFS, "templates/_base.txt", "templates/"+name+".txt")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s.txt: %w", name, err)
		}
		r.templates[name] = templatePair{html: html, text: text}
	}
	return r, nil
}

// Has reports whether a template exists
func (r *TemplateRenderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Render implements notification.Renderer
func (r *TemplateRenderer) Render(n *notification.EmailNotification) (*appnotification.Message, error) {
	pair, ok := r.templates[n.Template]
	if !ok {
		return nil, fmt.Errorf("unknown email template %q", n.Template)
	}

	data := templateData{Subject: n.Subject, Organization: r.organization}
	if err := n.DecodeContext(&data.Data); err != nil {
		return nil, fmt.Errorf("failed to decode context of email %s: %w", n.ID, err)
	}
	if org, ok := data.Data["organization"].(string); ok && org != "" {
		data.Organization = org
	}

	var html, text bytes.Buffer
	if err := pair.html.ExecuteTemplate(&html, "base", data); err != nil {
		return nil, fmt.Errorf("failed to render %s html: %w", n.Template, err)
	}
	if err := pair.text.ExecuteTemplate(&text, "base", data); err != nil {
		return nil, fmt.Errorf("failed to render %s text: %w", n.Template, err)
	}

	return &appnotification.Message{
		To:      n.Recipient,
		Subject: n.Subject,
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()) + "\n",
	}, nil
}

var _ appnotification.Renderer = (*TemplateRenderer)(nil)
