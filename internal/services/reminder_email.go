package services

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/google/uuid"

	"contract-service/internal/models"
)

const reminderSubjectTemplate = `Reminder: {{.ContractTitle}} ({{.Counterparty}})`

const reminderBodyTemplate = `Hello,

This is a reminder for the contract "{{.ContractTitle}}" with {{.Counterparty}}.
{{if .EndDate}}The contract ends on {{formatDate .EndDate}}.{{end}}
{{- if .TerminationDeadline}}
The termination notice deadline is {{formatDate .TerminationDeadline}}.
{{- end}}
{{- if .Notes}}

Notes: {{.Notes}}
{{- end}}

{{if .ActionURL}}View the contract: {{.ActionURL}}{{end}}
`

const reminderBodyHTMLTemplate = `<p>Hello,</p>
<p>This is a reminder for the contract <strong>{{.ContractTitle}}</strong> with {{.Counterparty}}.</p>
{{if .EndDate}}<p>The contract ends on <strong>{{formatDate .EndDate}}</strong>.</p>{{end}}
{{if .TerminationDeadline}}<p>The termination notice deadline is <strong>{{formatDate .TerminationDeadline}}</strong>.</p>{{end}}
{{if .Notes}}<p>Notes: {{.Notes}}</p>{{end}}
{{if .ActionURL}}<p><a href="{{.ActionURL}}">View the contract</a></p>{{end}}
`

type reminderEmailContext struct {
	ContractTitle       string
	Counterparty        string
	EndDate             *time.Time
	TerminationDeadline *time.Time
	Notes               string
	ActionURL           string
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2 January 2006")
}

// ReminderEmailRenderer renders reminder emails for dispatch.
type ReminderEmailRenderer struct {
	baseURL string
	subject *texttemplate.Template
	body    *texttemplate.Template
	html    *htmltemplate.Template
}

// NewReminderEmailRenderer creates a new renderer. BaseURL is used to build
// the contract action link.
func NewReminderEmailRenderer(baseURL string) *ReminderEmailRenderer {
	funcs := map[string]interface{}{"formatDate": formatDate}
	return &ReminderEmailRenderer{
		baseURL: baseURL,
		subject: texttemplate.Must(texttemplate.New("subject").Funcs(funcs).Parse(reminderSubjectTemplate)),
		body:    texttemplate.Must(texttemplate.New("body").Funcs(funcs).Parse(reminderBodyTemplate)),
		html:    htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(reminderBodyHTMLTemplate)),
	}
}

// Render builds the email subject and bodies for a due reminder.
func (r *ReminderEmailRenderer) Render(reminder *models.Reminder, contract *models.Contract) (subject, body, bodyHTML string, err error) {
	end := contract.EndDate
	tmplCtx := reminderEmailContext{
		ContractTitle:       contract.Title,
		Counterparty:        contract.Counterparty,
		EndDate:             &end,
		TerminationDeadline: contract.TerminationDeadline(),
		Notes:               reminder.Notes,
	}
	if r.baseURL != "" {
		tmplCtx.ActionURL = fmt.Sprintf("%s/contracts/%s", r.baseURL, contract.ID)
	}

	var buf bytes.Buffer
	if err = r.subject.Execute(&buf, tmplCtx); err != nil {
		return "", "", "", err
	}
	subject = buf.String()

	buf.Reset()
	if err = r.body.Execute(&buf, tmplCtx); err != nil {
		return "", "", "", err
	}
	body = buf.String()

	buf.Reset()
	if err = r.html.Execute(&buf, tmplCtx); err != nil {
		return "", "", "", err
	}
	bodyHTML = buf.String()

	return subject, body, bodyHTML, nil
}

// ActionURL builds the in-app action link for a contract.
func (r *ReminderEmailRenderer) ActionURL(contractID uuid.UUID) string {
	if r.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/contracts/%s", r.baseURL, contractID.String())
}
