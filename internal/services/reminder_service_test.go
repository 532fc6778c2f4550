package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"contract-service/internal/models"
)

func TestValidateReminder_Valid(t *testing.T) {
	custom := day(2025, time.August, 12)

	testCases := []struct {
		name     string
		reminder models.Reminder
	}{
		{
			"before end date",
			models.Reminder{
				TriggerType: models.TriggerBeforeEndDate,
				DaysBefore:  intPtr(30),
				Channels:    models.ChannelList{models.ChannelEmail},
			},
		},
		{
			"before termination deadline",
			models.Reminder{
				TriggerType: models.TriggerBeforeTerminationDeadline,
				DaysBefore:  intPtr(0),
				Channels:    models.ChannelList{models.ChannelEmail, models.ChannelInApp},
			},
		},
		{
			"custom date",
			models.Reminder{
				TriggerType: models.TriggerCustomDate,
				CustomDate:  &custom,
				Channels:    models.ChannelList{models.ChannelInApp},
				SendTime:    "17:45",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateReminder(&tc.reminder); err != nil {
				t.Errorf("validateReminder returned %v", err)
			}
		})
	}
}

func TestValidateReminder_DefaultsSendTime(t *testing.T) {
	r := models.Reminder{
		TriggerType: models.TriggerBeforeEndDate,
		DaysBefore:  intPtr(30),
		Channels:    models.ChannelList{models.ChannelEmail},
	}
	if err := validateReminder(&r); err != nil {
		t.Fatalf("validateReminder returned %v", err)
	}
	if r.SendTime != models.DefaultSendTime {
		t.Errorf("SendTime = %q, want %q", r.SendTime, models.DefaultSendTime)
	}
}

func TestValidateReminder_Invalid(t *testing.T) {
	custom := day(2025, time.August, 12)

	testCases := []struct {
		name     string
		reminder models.Reminder
	}{
		{
			"before end date without days",
			models.Reminder{
				TriggerType: models.TriggerBeforeEndDate,
				Channels:    models.ChannelList{models.ChannelEmail},
			},
		},
		{
			"negative days before",
			models.Reminder{
				TriggerType: models.TriggerBeforeEndDate,
				DaysBefore:  intPtr(-5),
				Channels:    models.ChannelList{models.ChannelEmail},
			},
		},
		{
			"custom trigger without date",
			models.Reminder{
				TriggerType: models.TriggerCustomDate,
				Channels:    models.ChannelList{models.ChannelEmail},
			},
		},
		{
			"unknown trigger type",
			models.Reminder{
				TriggerType: "WHENEVER",
				Channels:    models.ChannelList{models.ChannelEmail},
			},
		},
		{
			"no channels",
			models.Reminder{
				TriggerType: models.TriggerCustomDate,
				CustomDate:  &custom,
			},
		},
		{
			"unknown channel",
			models.Reminder{
				TriggerType: models.TriggerCustomDate,
				CustomDate:  &custom,
				Channels:    models.ChannelList{"CARRIER_PIGEON"},
			},
		},
		{
			"bad send time",
			models.Reminder{
				TriggerType: models.TriggerCustomDate,
				CustomDate:  &custom,
				Channels:    models.ChannelList{models.ChannelEmail},
				SendTime:    "25:99",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateReminder(&tc.reminder)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestBuildRecipients(t *testing.T) {
	userID := uuid.New()

	recipients, err := buildRecipients([]RecipientInput{
		{Type: models.RecipientUser, UserID: &userID},
		{Type: models.RecipientExternal, Email: "legal@example.com"},
	})
	if err != nil {
		t.Fatalf("buildRecipients returned %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("got %d recipients, want 2", len(recipients))
	}
	if recipients[0].RecipientType != models.RecipientUser || recipients[0].UserID == nil {
		t.Errorf("first recipient malformed: %+v", recipients[0])
	}
	if recipients[1].RecipientType != models.RecipientExternal || recipients[1].Email != "legal@example.com" {
		t.Errorf("second recipient malformed: %+v", recipients[1])
	}
}

func TestBuildRecipients_Structural(t *testing.T) {
	testCases := []struct {
		name   string
		inputs []RecipientInput
	}{
		{"user without id", []RecipientInput{{Type: models.RecipientUser}}},
		{"external without email", []RecipientInput{{Type: models.RecipientExternal}}},
		{"unknown type", []RecipientInput{{Type: "GROUP"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := buildRecipients(tc.inputs); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
