package services

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// SMTPProvider implements email sending via plain SMTP. Kept as the final
// fallback for deployments without SES or SendGrid credentials.
type SMTPProvider struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPProvider creates a new SMTP email provider
func NewSMTPProvider(config *ProviderConfig) *SMTPProvider {
	return &SMTPProvider{
		host:     config.SMTPHost,
		port:     fmt.Sprintf("%d", config.SMTPPort),
		username: config.SMTPUsername,
		password: config.SMTPPassword,
		from:     config.SMTPFrom,
	}
}

// Send sends an email via SMTP
func (p *SMTPProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	from := p.from
	if message.From != "" {
		from = message.From
	}

	headers := map[string]string{
		"From":         from,
		"To":           message.To,
		"Subject":      message.Subject,
		"MIME-Version": "1.0",
	}

	var body string
	if message.BodyHTML != "" {
		headers["Content-Type"] = "text/html; charset=utf-8"
		body = message.BodyHTML
	} else {
		headers["Content-Type"] = "text/plain; charset=utf-8"
		body = message.Body
	}

	var b strings.Builder
	for k, v := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	b.WriteString("\r\n")
	b.WriteString(body)

	auth := smtp.PlainAuth("", p.username, p.password, p.host)
	addr := net.JoinHostPort(p.host, p.port)

	if err := smtp.SendMail(addr, auth, p.from, []string{message.To}, []byte(b.String())); err != nil {
		return &SendResult{
			ProviderName: "SMTP",
			Success:      false,
			Error:        err,
		}, err
	}

	return &SendResult{
		ProviderName: "SMTP",
		Success:      true,
	}, nil
}

// GetName returns the provider name
func (p *SMTPProvider) GetName() string {
	return "SMTP"
}

// SupportsChannel returns the supported channel
func (p *SMTPProvider) SupportsChannel() string {
	return "EMAIL"
}
