// Package dispatch finds due reminders and fans out their delivery.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contract-service/internal/events"
	"contract-service/internal/models"
	"contract-service/internal/services"
	"contract-service/internal/tenant"
)

// Terminal dispatch errors. Configuration problems are not retried:
// retrying cannot fix missing data.
var (
	ErrContractMissing = errors.New("reminder contract no longer exists")
	ErrNoRecipients    = errors.New("reminder has no resolvable recipients")
)

// ReminderStore is the slice of the reminder repository dispatch needs.
type ReminderStore interface {
	GetByID(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Reminder, error)
	GetDue(ctx context.Context, tctx tenant.Context, now time.Time, limit int) ([]models.Reminder, error)
	ClaimPending(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseStale(ctx context.Context, before time.Time) (int64, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

// ContractStore is the slice of the contract repository dispatch needs.
type ContractStore interface {
	GetByID(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Contract, error)
}

// Resolver expands a reminder's recipient rows into delivery targets.
type Resolver interface {
	Resolve(ctx context.Context, reminder *models.Reminder) ([]services.ResolvedRecipient, error)
}

// InAppDeliverer writes in-app inbox rows.
type InAppDeliverer interface {
	Deliver(ctx context.Context, companyID, userID uuid.UUID, payload services.InAppPayload) error
}

// Config bounds the retry policy.
type Config struct {
	// MaxAttempts is the total number of delivery attempts, including the
	// first one.
	MaxAttempts int
	// RetryBackoff holds the waits between attempts.
	RetryBackoff []time.Duration
	// DeliveryTimeout bounds each individual delivery call.
	DeliveryTimeout time.Duration
}

// RetryWindow is an upper bound on how long one dispatch spends retrying:
// every backoff plus a delivery-timeout bound per attempt. A DISPATCHING
// claim older than this belongs to a dispatch that will never finish.
func (c Config) RetryWindow() time.Duration {
	window := time.Duration(0)
	for _, backoff := range c.RetryBackoff {
		window += backoff
	}
	timeout := c.DeliveryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return window + time.Duration(c.MaxAttempts)*timeout
}

// DefaultConfig matches the documented policy: 3 total attempts with
// 60s/300s/600s backoff and a 30s per-delivery timeout.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		RetryBackoff:    []time.Duration{60 * time.Second, 300 * time.Second, 600 * time.Second},
		DeliveryTimeout: 30 * time.Second,
	}
}

// Dispatcher processes one due reminder at a time: claim, resolve, fan out,
// transition. It always runs as the privileged system actor.
type Dispatcher struct {
	reminders ReminderStore
	contracts ContractStore
	resolver  Resolver
	email     services.Provider
	inApp     InAppDeliverer
	renderer  *services.ReminderEmailRenderer
	publisher *events.Publisher
	config    Config
	logger    *logrus.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(
	reminders ReminderStore,
	contracts ContractStore,
	resolver Resolver,
	email services.Provider,
	inApp InAppDeliverer,
	renderer *services.ReminderEmailRenderer,
	publisher *events.Publisher,
	config Config,
	logger *logrus.Logger,
) *Dispatcher {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		reminders: reminders,
		contracts: contracts,
		resolver:  resolver,
		email:     email,
		inApp:     inApp,
		renderer:  renderer,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
}

// Dispatch attempts delivery of one reminder. A reminder that is no longer
// PENDING is skipped silently: that is the expected outcome of a concurrent
// dispatch, not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, id uuid.UUID) error {
	log := d.logger.WithField("reminder_id", id)

	// Atomic conditional claim. Zero rows affected means another dispatch
	// already advanced the status; there is nothing to do.
	claimed, err := d.reminders.ClaimPending(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to claim reminder: %w", err)
	}
	if !claimed {
		log.Debug("reminder no longer pending, skipping")
		return nil
	}

	sys := tenant.System()
	reminder, err := d.reminders.GetByID(ctx, sys, id)
	if err != nil {
		return fmt.Errorf("failed to load reminder: %w", err)
	}
	if reminder == nil {
		return fmt.Errorf("claimed reminder %s disappeared", id)
	}

	contract, err := d.contracts.GetByID(ctx, sys, reminder.ContractID)
	if err != nil {
		return fmt.Errorf("failed to load contract: %w", err)
	}
	if contract == nil {
		// Data integrity problem, not transient: fail without retrying.
		d.fail(ctx, reminder, ErrContractMissing)
		return ErrContractMissing
	}

	// Delivery is retried as a unit: a failure partway through repeats the
	// whole fan-out on the next attempt, without skipping recipients that
	// already received a copy. Recipient resolution shares the retry
	// budget: a user-lookup blip is as transient as a provider outage.
	var recipients []services.ResolvedRecipient
	var lastErr error
	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := d.wait(ctx, attempt-2); err != nil {
				lastErr = err
				break
			}
		}

		if recipients == nil {
			resolved, err := d.resolver.Resolve(ctx, reminder)
			if err != nil {
				lastErr = fmt.Errorf("failed to resolve recipients: %w", err)
				log.WithError(lastErr).WithFields(logrus.Fields{
					"attempt":      attempt,
					"max_attempts": d.config.MaxAttempts,
				}).Warn("recipient resolution failed")
				continue
			}
			if len(resolved) == 0 {
				// Nothing to notify; a configuration error, not transient.
				d.fail(ctx, reminder, ErrNoRecipients)
				return ErrNoRecipients
			}
			recipients = resolved
		}

		lastErr = d.deliverAll(ctx, reminder, contract, recipients)
		if lastErr == nil {
			now := time.Now()
			if err := d.reminders.MarkSent(ctx, reminder.ID, now); err != nil {
				return fmt.Errorf("failed to mark reminder sent: %w", err)
			}
			d.publisher.Publish(ctx, events.ReminderSent, reminder.CompanyID.String(), reminder)
			log.WithField("recipients", len(recipients)).Info("reminder dispatched")
			return nil
		}

		log.WithError(lastErr).WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": d.config.MaxAttempts,
		}).Warn("reminder delivery attempt failed")
	}

	if ctx.Err() != nil {
		// Interrupted with retry budget remaining. The claim stays in
		// DISPATCHING; the sweeper's stale-claim requeue returns it to
		// PENDING rather than losing it to a terminal FAILED.
		return fmt.Errorf("dispatch interrupted: %w", ctx.Err())
	}

	d.fail(ctx, reminder, lastErr)
	return fmt.Errorf("delivery failed after %d attempts: %w", d.config.MaxAttempts, lastErr)
}

// wait sleeps out the backoff before a retry, honoring cancellation.
func (d *Dispatcher) wait(ctx context.Context, backoffIdx int) error {
	if backoffIdx < 0 || backoffIdx >= len(d.config.RetryBackoff) {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.config.RetryBackoff[backoffIdx]):
		return nil
	}
}

// deliverAll performs one full fan-out: every resolved recipient crossed
// with every channel applicable to it. External recipients can only receive
// email; internal users receive whichever of EMAIL and IN_APP the reminder
// configures. The first delivery error aborts the attempt.
func (d *Dispatcher) deliverAll(ctx context.Context, reminder *models.Reminder, contract *models.Contract, recipients []services.ResolvedRecipient) error {
	var subject, body, bodyHTML string
	if reminder.Channels.Contains(models.ChannelEmail) {
		var err error
		subject, body, bodyHTML, err = d.renderer.Render(reminder, contract)
		if err != nil {
			return fmt.Errorf("failed to render reminder email: %w", err)
		}
	}

	for _, recipient := range recipients {
		if reminder.Channels.Contains(models.ChannelEmail) {
			if err := d.sendEmail(ctx, recipient.Address(), subject, body, bodyHTML); err != nil {
				return err
			}
		}
		if recipient.Type == models.RecipientUser && reminder.Channels.Contains(models.ChannelInApp) {
			if err := d.sendInApp(ctx, reminder, contract, recipient); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, to, subject, body, bodyHTML string) error {
	if d.email == nil {
		return fmt.Errorf("no email provider configured")
	}

	ctx, cancel := context.WithTimeout(ctx, d.deliveryTimeout())
	defer cancel()

	_, err := d.email.Send(ctx, &services.Message{
		To:       to,
		Subject:  subject,
		Body:     body,
		BodyHTML: bodyHTML,
	})
	if err != nil {
		return fmt.Errorf("email to %s failed: %w", to, err)
	}
	return nil
}

func (d *Dispatcher) sendInApp(ctx context.Context, reminder *models.Reminder, contract *models.Contract, recipient services.ResolvedRecipient) error {
	if d.inApp == nil {
		return fmt.Errorf("no in-app deliverer configured")
	}

	ctx, cancel := context.WithTimeout(ctx, d.deliveryTimeout())
	defer cancel()

	actionURL := ""
	if d.renderer != nil {
		actionURL = d.renderer.ActionURL(contract.ID)
	}

	err := d.inApp.Deliver(ctx, reminder.CompanyID, recipient.User.ID, services.InAppPayload{
		Type:      models.NotificationReminderDue,
		Title:     fmt.Sprintf("Reminder: %s", contract.Title),
		Message:   fmt.Sprintf("The contract with %s needs attention.", contract.Counterparty),
		ActionURL: actionURL,
		Metadata: map[string]interface{}{
			"reminder_id": reminder.ID.String(),
			"contract_id": contract.ID.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("in-app delivery to %s failed: %w", recipient.User.ID, err)
	}
	return nil
}

func (d *Dispatcher) deliveryTimeout() time.Duration {
	if d.config.DeliveryTimeout > 0 {
		return d.config.DeliveryTimeout
	}
	return 30 * time.Second
}

// fail transitions the reminder to the terminal FAILED state. The cause
// lands in the logs; no error detail is surfaced to end users.
func (d *Dispatcher) fail(ctx context.Context, reminder *models.Reminder, cause error) {
	log := d.logger.WithField("reminder_id", reminder.ID).WithError(cause)
	if err := d.reminders.MarkFailed(ctx, reminder.ID); err != nil {
		log.WithField("mark_error", err).Error("failed to mark reminder failed")
		return
	}
	d.publisher.Publish(ctx, events.ReminderFailed, reminder.CompanyID.String(), reminder)
	log.Warn("reminder failed")
}
