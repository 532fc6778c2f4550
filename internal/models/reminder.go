package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderTriggerType determines how a reminder's trigger datetime is derived
type ReminderTriggerType string

const (
	TriggerBeforeEndDate             ReminderTriggerType = "BEFORE_END_DATE"
	TriggerBeforeTerminationDeadline ReminderTriggerType = "BEFORE_TERMINATION_DEADLINE"
	TriggerCustomDate                ReminderTriggerType = "CUSTOM_DATE"
)

// ReminderStatus represents the dispatch state of a reminder
type ReminderStatus string

const (
	ReminderPending ReminderStatus = "PENDING"
	// ReminderDispatching is held while a dispatch attempt is in flight;
	// the transition PENDING -> DISPATCHING is an atomic claim so two
	// concurrent sweeps never dispatch the same reminder.
	ReminderDispatching ReminderStatus = "DISPATCHING"
	ReminderSent        ReminderStatus = "SENT"
	ReminderHandled     ReminderStatus = "HANDLED"
	ReminderFailed      ReminderStatus = "FAILED"
)

// ReminderChannel is a delivery channel for a reminder
type ReminderChannel string

const (
	ChannelEmail ReminderChannel = "EMAIL"
	ChannelInApp ReminderChannel = "IN_APP"
)

// ChannelList is a set of delivery channels stored as a jsonb array.
type ChannelList []ReminderChannel

// Value implements driver.Valuer
func (l ChannelList) Value() (driver.Value, error) {
	if l == nil {
		l = ChannelList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *ChannelList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported channel list type %T", value)
	}
	return json.Unmarshal(data, l)
}

// Contains reports whether the channel is configured.
func (l ChannelList) Contains(ch ReminderChannel) bool {
	for _, c := range l {
		if c == ch {
			return true
		}
	}
	return false
}

// DefaultSendTime is applied when a reminder is created without a time of day.
const DefaultSendTime = "09:00"

// Reminder notifies staff before a contract deadline
type Reminder struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompanyID  uuid.UUID `json:"companyId" gorm:"type:uuid;not null;index"`
	ContractID uuid.UUID `json:"contractId" gorm:"type:uuid;not null;index"`

	TriggerType ReminderTriggerType `json:"triggerType" gorm:"type:varchar(40);not null"`
	// DaysBefore is required for the two "before" trigger kinds.
	DaysBefore *int `json:"daysBefore"`
	// CustomDate is required for CUSTOM_DATE.
	CustomDate *time.Time `json:"customDate"`
	// SendTime is the time of day in HH:MM.
	SendTime string `json:"sendTime" gorm:"type:varchar(5);not null;default:'09:00'"`

	// TriggerDatetime is derived from the trigger policy and the contract
	// dates; nil means the reminder can never become due.
	TriggerDatetime *time.Time `json:"triggerDatetime" gorm:"index"`

	Channels ChannelList    `json:"channels" gorm:"type:jsonb;not null"`
	Status   ReminderStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`

	SentAt    *time.Time `json:"sentAt"`
	HandledAt *time.Time `json:"handledAt"`
	HandledBy *uuid.UUID `json:"handledBy" gorm:"type:uuid"`
	Notes     string     `json:"notes" gorm:"type:text"`

	Recipients []ReminderRecipient `json:"recipients" gorm:"foreignKey:ReminderID"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Reminder) TableName() string {
	return "reminders"
}

// RecipientType discriminates internal users from raw external addresses
type RecipientType string

const (
	RecipientUser     RecipientType = "USER"
	RecipientExternal RecipientType = "EXTERNAL"
)

// ReminderRecipient is one abstract delivery target of a reminder.
// UserID is required iff the type is USER, Email iff EXTERNAL.
type ReminderRecipient struct {
	ID            uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ReminderID    uuid.UUID     `json:"reminderId" gorm:"type:uuid;not null;index"`
	RecipientType RecipientType `json:"recipientType" gorm:"type:varchar(20);not null"`
	UserID        *uuid.UUID    `json:"userId" gorm:"type:uuid"`
	Email         string        `json:"email" gorm:"type:varchar(255)"`

	CreatedAt time.Time `json:"createdAt"`
}

func (ReminderRecipient) TableName() string {
	return "reminder_recipients"
}

// parseSendTime parses an HH:MM time of day.
func parseSendTime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid send time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// ComputeTriggerDatetime derives the moment the reminder becomes due from
// its trigger policy and the contract dates. It returns nil when the inputs
// are incomplete: missing contract, missing days_before or custom_date, or
// a deadline-relative trigger on a contract with no derivable deadline.
// The calculation is idempotent; stored date and time values are used as
// given, with no timezone shifting.
func ComputeTriggerDatetime(r *Reminder, contract *Contract) *time.Time {
	var target *time.Time

	switch r.TriggerType {
	case TriggerBeforeEndDate:
		if contract == nil || r.DaysBefore == nil {
			return nil
		}
		t := dateOf(contract.EndDate).AddDate(0, 0, -*r.DaysBefore)
		target = &t
	case TriggerBeforeTerminationDeadline:
		if contract == nil || r.DaysBefore == nil {
			return nil
		}
		deadline := contract.TerminationDeadline()
		if deadline == nil {
			return nil
		}
		t := deadline.AddDate(0, 0, -*r.DaysBefore)
		target = &t
	case TriggerCustomDate:
		target = r.CustomDate
	default:
		return nil
	}

	if target == nil {
		return nil
	}

	sendTime := r.SendTime
	if sendTime == "" {
		sendTime = DefaultSendTime
	}
	hour, minute, err := parseSendTime(sendTime)
	if err != nil {
		return nil
	}

	dt := time.Date(target.Year(), target.Month(), target.Day(), hour, minute, 0, 0, target.Location())
	return &dt
}

// CanMarkHandled reports whether the handled transition is allowed.
// HANDLED is terminal and only reachable from SENT.
func (r *Reminder) CanMarkHandled() bool {
	return r.Status == ReminderSent
}
