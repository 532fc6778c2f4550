package models

import (
	"testing"
	"time"
)

func intPtr(i int) *int { return &i }

func TestComputeTriggerDatetime_BeforeEndDate(t *testing.T) {
	contract := &Contract{EndDate: date(2025, time.June, 30)}
	r := &Reminder{
		TriggerType: TriggerBeforeEndDate,
		DaysBefore:  intPtr(30),
		SendTime:    "09:00",
	}

	// 30 calendar days before 2025-06-30 is 2025-05-31.
	want := time.Date(2025, time.May, 31, 9, 0, 0, 0, time.UTC)
	got := ComputeTriggerDatetime(r, contract)
	if got == nil || !got.Equal(want) {
		t.Errorf("ComputeTriggerDatetime() = %v, want %s", got, want)
	}
}

func TestComputeTriggerDatetime_BeforeTerminationDeadline(t *testing.T) {
	// Deadline derives from notice days: 2025-06-30 minus 60 = 2025-05-01,
	// then 15 days before that.
	contract := &Contract{
		EndDate:               date(2025, time.June, 30),
		TerminationNoticeDays: intPtr(60),
	}
	r := &Reminder{
		TriggerType: TriggerBeforeTerminationDeadline,
		DaysBefore:  intPtr(15),
		SendTime:    "09:00",
	}

	want := time.Date(2025, time.April, 16, 9, 0, 0, 0, time.UTC)
	got := ComputeTriggerDatetime(r, contract)
	if got == nil || !got.Equal(want) {
		t.Errorf("ComputeTriggerDatetime() = %v, want %s", got, want)
	}
}

func TestComputeTriggerDatetime_CustomDate(t *testing.T) {
	custom := date(2025, time.August, 12)
	r := &Reminder{
		TriggerType: TriggerCustomDate,
		CustomDate:  &custom,
		SendTime:    "14:30",
	}

	want := time.Date(2025, time.August, 12, 14, 30, 0, 0, time.UTC)
	got := ComputeTriggerDatetime(r, nil)
	if got == nil || !got.Equal(want) {
		t.Errorf("ComputeTriggerDatetime() = %v, want %s", got, want)
	}
}

func TestComputeTriggerDatetime_DefaultSendTime(t *testing.T) {
	custom := date(2025, time.August, 12)
	r := &Reminder{
		TriggerType: TriggerCustomDate,
		CustomDate:  &custom,
	}

	got := ComputeTriggerDatetime(r, nil)
	if got == nil || got.Hour() != 9 || got.Minute() != 0 {
		t.Errorf("ComputeTriggerDatetime() = %v, want 09:00 time of day", got)
	}
}

func TestComputeTriggerDatetime_IncompleteInputs(t *testing.T) {
	contract := &Contract{EndDate: date(2025, time.June, 30)}

	testCases := []struct {
		name     string
		reminder *Reminder
		contract *Contract
	}{
		{
			"before end date without contract",
			&Reminder{TriggerType: TriggerBeforeEndDate, DaysBefore: intPtr(30)},
			nil,
		},
		{
			"before end date without days",
			&Reminder{TriggerType: TriggerBeforeEndDate},
			contract,
		},
		{
			"before deadline on contract without deadline",
			&Reminder{TriggerType: TriggerBeforeTerminationDeadline, DaysBefore: intPtr(15)},
			contract,
		},
		{
			"custom date without date",
			&Reminder{TriggerType: TriggerCustomDate},
			contract,
		},
		{
			"unknown trigger type",
			&Reminder{TriggerType: "SOMETIME"},
			contract,
		},
		{
			"unparseable send time",
			&Reminder{TriggerType: TriggerBeforeEndDate, DaysBefore: intPtr(30), SendTime: "9am"},
			contract,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeTriggerDatetime(tc.reminder, tc.contract); got != nil {
				t.Errorf("ComputeTriggerDatetime() = %v, want nil", got)
			}
		})
	}
}

func TestComputeTriggerDatetime_Idempotent(t *testing.T) {
	contract := &Contract{EndDate: date(2025, time.June, 30)}
	r := &Reminder{
		TriggerType: TriggerBeforeEndDate,
		DaysBefore:  intPtr(30),
		SendTime:    "09:00",
	}

	first := ComputeTriggerDatetime(r, contract)
	r.TriggerDatetime = first
	second := ComputeTriggerDatetime(r, contract)

	if first == nil || second == nil || !first.Equal(*second) {
		t.Errorf("recomputation changed the trigger: %v then %v", first, second)
	}
}

func TestChannelListContains(t *testing.T) {
	l := ChannelList{ChannelEmail}
	if !l.Contains(ChannelEmail) {
		t.Error("expected EMAIL to be contained")
	}
	if l.Contains(ChannelInApp) {
		t.Error("did not expect IN_APP to be contained")
	}
	if (ChannelList)(nil).Contains(ChannelEmail) {
		t.Error("nil list should contain nothing")
	}
}

func TestChannelListScan(t *testing.T) {
	var l ChannelList
	if err := l.Scan([]byte(`["EMAIL","IN_APP"]`)); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(l) != 2 || l[0] != ChannelEmail || l[1] != ChannelInApp {
		t.Errorf("Scan produced %v", l)
	}

	if err := l.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestCanMarkHandled(t *testing.T) {
	testCases := []struct {
		status ReminderStatus
		want   bool
	}{
		{ReminderPending, false},
		{ReminderDispatching, false},
		{ReminderSent, true},
		{ReminderHandled, false},
		{ReminderFailed, false},
	}

	for _, tc := range testCases {
		r := &Reminder{Status: tc.status}
		if got := r.CanMarkHandled(); got != tc.want {
			t.Errorf("CanMarkHandled() with status %s = %v, want %v", tc.status, got, tc.want)
		}
	}
}
