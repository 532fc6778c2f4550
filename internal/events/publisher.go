package events

import (
	"context"
	"encoding/json"
	"fmt"

	natsio "github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"contract-service/internal/nats"
)

// Event types published on the bus.
const (
	ContractCreated = "contract.created"
	ContractUpdated = "contract.updated"
	ContractDeleted = "contract.deleted"
	ReminderCreated = "reminder.created"
	ReminderSent    = "reminder.sent"
	ReminderFailed  = "reminder.failed"
)

// Event is the envelope published for every lifecycle change.
type Event struct {
	Type     string      `json:"type"`
	TenantID string      `json:"tenant_id"`
	Payload  interface{} `json:"payload"`
}

// Publisher publishes lifecycle events to NATS JetStream. A nil Publisher
// is a no-op so the service runs without a broker.
type Publisher struct {
	client *nats.Client
	logger *logrus.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(client *nats.Client, logger *logrus.Logger) *Publisher {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Publisher{client: client, logger: logger}
}

// Publish publishes one event on subject contracts.{tenant}.{type}.
// Publish failures are logged, never propagated: the bus is an observer of
// state changes, not a participant in them.
func (p *Publisher) Publish(ctx context.Context, eventType, tenantID string, payload interface{}) {
	if p == nil || p.client == nil || !p.client.IsConnected() {
		return
	}

	data, err := json.Marshal(Event{Type: eventType, TenantID: tenantID, Payload: payload})
	if err != nil {
		p.logger.WithError(err).Error("failed to marshal event")
		return
	}

	subject := fmt.Sprintf("contracts.%s.%s", tenantID, eventType)
	if _, err := p.client.JetStream().Publish(subject, data, natsio.Context(ctx)); err != nil {
		p.logger.WithFields(logrus.Fields{
			"subject": subject,
			"type":    eventType,
		}).WithError(err).Error("failed to publish event")
		return
	}

	p.logger.WithFields(logrus.Fields{
		"subject": subject,
		"type":    eventType,
	}).Debug("published event")
}
