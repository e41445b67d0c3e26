// Package dispatch provides EmailDispatcher implementations: a console
// logger for development, an SMTP sender, and a Postmark client. All of
// them render the same embedded templates so the message content does not
// depend on the transport.
package dispatch

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/authcore-go/authcore"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

var subjects = map[authcore.TemplateID]string{
	authcore.TemplateVerifyEmail:   "Verify your email address",
	authcore.TemplatePasswordReset: "Reset your password",
}

// render produces the subject and HTML body for a template id.
func render(id authcore.TemplateID, params map[string]string) (subject, body string, err error) {
	subject, ok := subjects[id]
	if !ok {
		return "", "", fmt.Errorf("unknown email template: %s", id)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(id)+".html.tmpl", params); err != nil {
		return "", "", fmt.Errorf("failed to render email template %s: %w", id, err)
	}
	return subject, buf.String(), nil
}
