package services

import (
	"context"
)

// Provider delivers a message over one channel. Delivery mechanics stay
// behind this boundary; the dispatcher only sees Send.
type Provider interface {
	Send(ctx context.Context, message *Message) (*SendResult, error)
	GetName() string
	SupportsChannel() string
}

// Message represents an email to be sent
type Message struct {
	To       string
	Subject  string
	Body     string
	BodyHTML string
	From     string
	FromName string
	Metadata map[string]interface{}
}

// SendResult represents the result of a send operation
type SendResult struct {
	ProviderID   string
	ProviderName string
	Success      bool
	Error        error
}

// ProviderConfig represents provider configuration
type ProviderConfig struct {
	// AWS credentials (shared with the document store)
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// AWS SES (primary email)
	SESFrom     string
	SESFromName string

	// SendGrid (fallback email)
	SendGridAPIKey string
	SendGridFrom   string

	// Generic SMTP (final fallback)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}
