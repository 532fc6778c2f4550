package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// FailoverEmailProvider tries a chain of email providers in order until one
// succeeds. Priority: SES -> SendGrid -> SMTP.
type FailoverEmailProvider struct {
	providers      []Provider
	enableFailover bool
	retryDelay     time.Duration
	logger         *logrus.Logger
}

// FailoverConfig configures the failover behavior
type FailoverConfig struct {
	EnableFailover bool
	RetryDelay     time.Duration
}

// NewFailoverEmailProvider creates a new failover email provider.
// Providers are tried in order: first is primary, the rest are fallbacks.
// Nil providers are filtered out.
func NewFailoverEmailProvider(providers []Provider, config *FailoverConfig, logger *logrus.Logger) *FailoverEmailProvider {
	if config == nil {
		config = &FailoverConfig{
			EnableFailover: true,
			RetryDelay:     2 * time.Second,
		}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	valid := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			valid = append(valid, p)
		}
	}

	return &FailoverEmailProvider{
		providers:      valid,
		enableFailover: config.EnableFailover,
		retryDelay:     config.RetryDelay,
		logger:         logger,
	}
}

// Send sends an email, falling over to the next provider on failure.
func (f *FailoverEmailProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	if len(f.providers) == 0 {
		err := fmt.Errorf("no email providers configured")
		return &SendResult{ProviderName: "Failover", Success: false, Error: err}, err
	}

	var lastErr error
	for i, provider := range f.providers {
		if ctx.Err() != nil {
			return &SendResult{ProviderName: "Failover", Success: false, Error: ctx.Err()}, ctx.Err()
		}

		if i > 0 {
			select {
			case <-ctx.Done():
				return &SendResult{ProviderName: "Failover", Success: false, Error: ctx.Err()}, ctx.Err()
			case <-time.After(f.retryDelay):
			}
		}

		result, err := provider.Send(ctx, message)
		if err == nil && result.Success {
			if i > 0 {
				f.logger.WithFields(logrus.Fields{
					"provider": provider.GetName(),
					"fallback": i,
				}).Info("email sent via fallback provider")
			}
			return result, nil
		}

		if err != nil {
			lastErr = err
		} else if result != nil && result.Error != nil {
			lastErr = result.Error
		}
		f.logger.WithError(lastErr).WithField("provider", provider.GetName()).Warn("email provider failed")

		if !f.enableFailover {
			break
		}
	}

	err := fmt.Errorf("all email providers failed: %w", lastErr)
	return &SendResult{ProviderName: f.GetName(), Success: false, Error: err}, err
}

// GetName returns the chain description, e.g. "Failover(AWS SES -> SendGrid)"
func (f *FailoverEmailProvider) GetName() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.GetName()
	}
	return fmt.Sprintf("Failover(%s)", strings.Join(names, " -> "))
}

// SupportsChannel returns the supported channel
func (f *FailoverEmailProvider) SupportsChannel() string {
	return "EMAIL"
}
