package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contract-service/internal/events"
	"contract-service/internal/models"
	"contract-service/internal/repository"
	"contract-service/internal/tenant"
)

// ReminderInput carries the writable reminder fields.
type ReminderInput struct {
	ContractID  *uuid.UUID
	TriggerType *models.ReminderTriggerType
	DaysBefore  *int
	CustomDate  *time.Time
	SendTime    *string
	Channels    models.ChannelList
	Notes       *string

	// Recipients, when non-nil, replaces the recipient list wholesale.
	Recipients []RecipientInput
}

// RecipientInput is one requested delivery target.
type RecipientInput struct {
	Type   models.RecipientType
	UserID *uuid.UUID
	Email  string
}

// ReminderService owns the reminder write path. The trigger datetime is
// derived here whenever its inputs change, never accepted from the caller.
type ReminderService struct {
	reminders repository.ReminderRepository
	contracts repository.ContractRepository
	publisher *events.Publisher
	logger    *logrus.Logger
}

// NewReminderService creates a new reminder service
func NewReminderService(
	reminders repository.ReminderRepository,
	contracts repository.ContractRepository,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *ReminderService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReminderService{
		reminders: reminders,
		contracts: contracts,
		publisher: publisher,
		logger:    logger,
	}
}

// validateReminder checks the trigger policy invariants: days_before is
// required for the two "before" kinds, custom_date for CUSTOM_DATE, and the
// channel set must be non-empty.
func validateReminder(r *models.Reminder) error {
	switch r.TriggerType {
	case models.TriggerBeforeEndDate, models.TriggerBeforeTerminationDeadline:
		if r.DaysBefore == nil {
			return invalid("daysBefore", "required for this trigger type")
		}
		if *r.DaysBefore < 0 {
			return invalid("daysBefore", "must not be negative")
		}
	case models.TriggerCustomDate:
		if r.CustomDate == nil {
			return invalid("customDate", "required for this trigger type")
		}
	default:
		return invalid("triggerType", "unknown trigger type")
	}

	if len(r.Channels) == 0 {
		return invalid("channels", "at least one channel is required")
	}
	for _, ch := range r.Channels {
		if ch != models.ChannelEmail && ch != models.ChannelInApp {
			return invalid("channels", fmt.Sprintf("unknown channel %q", ch))
		}
	}

	if r.SendTime == "" {
		r.SendTime = models.DefaultSendTime
	}
	if _, err := time.Parse("15:04", r.SendTime); err != nil {
		return invalid("sendTime", "must be HH:MM")
	}
	return nil
}

func buildRecipients(inputs []RecipientInput) ([]models.ReminderRecipient, error) {
	recipients := make([]models.ReminderRecipient, 0, len(inputs))
	for _, in := range inputs {
		switch in.Type {
		case models.RecipientUser:
			if in.UserID == nil {
				return nil, invalid("recipients", "userId required for USER recipients")
			}
			recipients = append(recipients, models.ReminderRecipient{
				RecipientType: models.RecipientUser,
				UserID:        in.UserID,
			})
		case models.RecipientExternal:
			if in.Email == "" {
				return nil, invalid("recipients", "email required for EXTERNAL recipients")
			}
			recipients = append(recipients, models.ReminderRecipient{
				RecipientType: models.RecipientExternal,
				Email:         in.Email,
			})
		default:
			return nil, invalid("recipients", "unknown recipient type")
		}
	}
	return recipients, nil
}

// Create creates a reminder with its recipients and derives the trigger
// datetime from the owning contract.
func (s *ReminderService) Create(ctx context.Context, tctx tenant.Context, input ReminderInput) (*models.Reminder, error) {
	if input.ContractID == nil {
		return nil, invalid("contractId", "required")
	}
	contract, err := s.contracts.GetByID(ctx, tctx, *input.ContractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrNotFound
	}

	reminder := &models.Reminder{
		CompanyID:  contract.CompanyID,
		ContractID: contract.ID,
		Status:     models.ReminderPending,
	}
	if input.TriggerType != nil {
		reminder.TriggerType = *input.TriggerType
	}
	reminder.DaysBefore = input.DaysBefore
	reminder.CustomDate = input.CustomDate
	if input.SendTime != nil {
		reminder.SendTime = *input.SendTime
	}
	reminder.Channels = input.Channels
	if input.Notes != nil {
		reminder.Notes = *input.Notes
	}

	if err := validateReminder(reminder); err != nil {
		return nil, err
	}

	recipients, err := buildRecipients(input.Recipients)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, invalid("recipients", "at least one recipient is required")
	}
	reminder.Recipients = recipients

	reminder.TriggerDatetime = models.ComputeTriggerDatetime(reminder, contract)

	if err := s.reminders.Create(ctx, tctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	s.publisher.Publish(ctx, events.ReminderCreated, reminder.CompanyID.String(), reminder)
	return reminder, nil
}

// Update applies changes, replaces recipients when a list is supplied, and
// recomputes the trigger datetime whenever a trigger input changed or the
// datetime is still unset.
func (s *ReminderService) Update(ctx context.Context, tctx tenant.Context, id uuid.UUID, input ReminderInput) (*models.Reminder, error) {
	reminder, err := s.reminders.GetByID(ctx, tctx, id)
	if err != nil {
		return nil, err
	}
	if reminder == nil {
		return nil, ErrNotFound
	}

	triggerChanged := false
	if input.TriggerType != nil && *input.TriggerType != reminder.TriggerType {
		reminder.TriggerType = *input.TriggerType
		triggerChanged = true
	}
	if input.DaysBefore != nil {
		reminder.DaysBefore = input.DaysBefore
		triggerChanged = true
	}
	if input.CustomDate != nil {
		reminder.CustomDate = input.CustomDate
		triggerChanged = true
	}
	if input.SendTime != nil && *input.SendTime != reminder.SendTime {
		reminder.SendTime = *input.SendTime
		triggerChanged = true
	}
	if input.Channels != nil {
		reminder.Channels = input.Channels
	}
	if input.Notes != nil {
		reminder.Notes = *input.Notes
	}

	if err := validateReminder(reminder); err != nil {
		return nil, err
	}

	var recipients []models.ReminderRecipient
	if input.Recipients != nil {
		recipients, err = buildRecipients(input.Recipients)
		if err != nil {
			return nil, err
		}
		if len(recipients) == 0 {
			return nil, invalid("recipients", "at least one recipient is required")
		}
	}

	if triggerChanged || reminder.TriggerDatetime == nil {
		contract, err := s.contracts.GetByID(ctx, tctx, reminder.ContractID)
		if err != nil {
			return nil, err
		}
		reminder.TriggerDatetime = models.ComputeTriggerDatetime(reminder, contract)
	}

	if err := s.reminders.Update(ctx, tctx, reminder, recipients); err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}
	return reminder, nil
}

// Get returns one reminder within the caller's scope.
func (s *ReminderService) Get(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Reminder, error) {
	reminder, err := s.reminders.GetByID(ctx, tctx, id)
	if err != nil {
		return nil, err
	}
	if reminder == nil {
		return nil, ErrNotFound
	}
	return reminder, nil
}

// List returns reminders within the caller's scope.
func (s *ReminderService) List(ctx context.Context, tctx tenant.Context, filters repository.ReminderFilters) ([]models.Reminder, int64, error) {
	return s.reminders.List(ctx, tctx, filters)
}

// Delete soft-deletes a reminder.
func (s *ReminderService) Delete(ctx context.Context, tctx tenant.Context, id uuid.UUID) error {
	reminder, err := s.reminders.GetByID(ctx, tctx, id)
	if err != nil {
		return err
	}
	if reminder == nil {
		return ErrNotFound
	}
	return s.reminders.Delete(ctx, tctx, id)
}

// MarkHandled moves a SENT reminder to the terminal HANDLED state.
func (s *ReminderService) MarkHandled(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Reminder, error) {
	reminder, err := s.reminders.GetByID(ctx, tctx, id)
	if err != nil {
		return nil, err
	}
	if reminder == nil {
		return nil, ErrNotFound
	}
	if !reminder.CanMarkHandled() {
		return nil, ErrInvalidTransition
	}

	if err := s.reminders.MarkHandled(ctx, tctx, id, tctx.UserID); err != nil {
		return nil, fmt.Errorf("failed to mark reminder handled: %w", err)
	}
	return s.reminders.GetByID(ctx, tctx, id)
}
