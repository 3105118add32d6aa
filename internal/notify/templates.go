package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/abduss/artifactdrive/internal/ticket"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(
	`Thank you for contacting us. We have received your support ticket and will respond as soon as possible.

Ticket ID: #{{.ID}}
Category:  {{.Category}}
Title:     {{.Title}}
Created:   {{.CreatedAt.Format "2006-01-02 15:04"}} UTC

We typically respond within 24-48 hours.
`))

var alertTmpl = template.Must(template.New("alert").Parse(
	`A new support ticket was submitted.

Ticket ID:   #{{.ID}}
From:        {{.Email}}
Category:    {{.Category}}
Priority:    {{.Priority}}
Title:       {{.Title}}
Attachments: {{len .Attachments}}{{range .Attachments}}
  - {{.OriginalFileName}} ({{.ContentType}}){{end}}

{{.Description}}
`))

// message is a rendered email.
type message struct {
	To      string
	Subject string
	Body    string
}

func confirmationMessage(t ticket.Ticket) (message, error) {
	body, err := render(confirmationTmpl, t)
	if err != nil {
		return message{}, err
	}
	return message{
		To:      t.Email,
		Subject: fmt.Sprintf("Support Ticket #%d Received", t.ID),
		Body:    body,
	}, nil
}

func alertMessage(t ticket.Ticket, to string) (message, error) {
	body, err := render(alertTmpl, t)
	if err != nil {
		return message{}, err
	}
	return message{
		To:      to,
		Subject: fmt.Sprintf("Support Ticket #%d Received: %s", t.ID, t.Title),
		Body:    body,
	}, nil
}

func render(tmpl *template.Template, t ticket.Ticket) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, t); err != nil {
		return "", fmt.Errorf("render %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// headerValue strips line breaks so caller-supplied text cannot add headers.
func headerValue(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
