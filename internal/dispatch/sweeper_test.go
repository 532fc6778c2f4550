package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"contract-service/internal/models"
	"contract-service/internal/services"
)

func TestSweeper_Run(t *testing.T) {
	contractID := uuid.New()
	orphanID := uuid.New()

	healthy := dueReminder(contractID, models.ChannelEmail)
	// Points at a contract that no longer exists, so its dispatch fails.
	orphan := dueReminder(orphanID, models.ChannelEmail)
	// Already handled, must not be picked up.
	done := dueReminder(contractID, models.ChannelEmail)
	done.Status = models.ReminderHandled

	reminders := newFakeReminderStore(healthy, orphan, done)
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{contractID: testContract(contractID)}}
	resolver := &fakeResolver{recipients: []services.ResolvedRecipient{
		{Type: models.RecipientExternal, Email: "legal@example.com"},
	}}
	email := &fakeEmailProvider{}

	d := newTestDispatcher(reminders, contracts, resolver, email, &fakeInApp{}, testConfig())
	sweeper := NewSweeper(reminders, d, 4, 100, quietLogger())

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if report.Found != 2 {
		t.Errorf("Found = %d, want 2", report.Found)
	}
	if report.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", report.Succeeded)
	}
	if report.Failed != 1 {
		t.Errorf("Failed = %d, want 1", report.Failed)
	}

	if got := reminders.status(healthy.ID); got != models.ReminderSent {
		t.Errorf("healthy reminder status = %s, want SENT", got)
	}
	if got := reminders.status(orphan.ID); got != models.ReminderFailed {
		t.Errorf("orphan reminder status = %s, want FAILED", got)
	}
	if got := reminders.status(done.ID); got != models.ReminderHandled {
		t.Errorf("handled reminder status = %s, want untouched HANDLED", got)
	}
}

func TestSweeper_RequeuesStaleClaims(t *testing.T) {
	contractID := uuid.New()

	// Claimed long ago by a dispatcher that never finished; the sweep
	// must return it to the queue and deliver it.
	stale := dueReminder(contractID, models.ChannelEmail)
	stale.Status = models.ReminderDispatching
	stale.UpdatedAt = time.Now().Add(-24 * time.Hour)

	// Freshly claimed by a concurrent dispatch; must stay claimed.
	fresh := dueReminder(contractID, models.ChannelEmail)
	fresh.Status = models.ReminderDispatching
	fresh.UpdatedAt = time.Now()

	reminders := newFakeReminderStore(stale, fresh)
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{contractID: testContract(contractID)}}
	resolver := &fakeResolver{recipients: []services.ResolvedRecipient{
		{Type: models.RecipientExternal, Email: "legal@example.com"},
	}}
	email := &fakeEmailProvider{}

	d := newTestDispatcher(reminders, contracts, resolver, email, &fakeInApp{}, testConfig())
	sweeper := NewSweeper(reminders, d, 2, 100, quietLogger())

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if report.Found != 1 {
		t.Errorf("Found = %d, want 1 (only the requeued reminder is due)", report.Found)
	}
	if got := reminders.status(stale.ID); got != models.ReminderSent {
		t.Errorf("stale reminder status = %s, want SENT", got)
	}
	if got := reminders.status(fresh.ID); got != models.ReminderDispatching {
		t.Errorf("fresh claim status = %s, want untouched DISPATCHING", got)
	}
}

func TestSweeper_Empty(t *testing.T) {
	reminders := newFakeReminderStore()
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{}}
	d := newTestDispatcher(reminders, contracts, &fakeResolver{}, &fakeEmailProvider{}, &fakeInApp{}, testConfig())
	sweeper := NewSweeper(reminders, d, 4, 100, quietLogger())

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if report.Found != 0 || report.Succeeded != 0 || report.Failed != 0 {
		t.Errorf("report = %+v, want all zeroes", report)
	}
}
