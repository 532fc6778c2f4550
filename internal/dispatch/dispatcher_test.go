package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contract-service/internal/events"
	"contract-service/internal/models"
	"contract-service/internal/services"
	"contract-service/internal/tenant"
)

type fakeReminderStore struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]*models.Reminder
}

func newFakeReminderStore(reminders ...*models.Reminder) *fakeReminderStore {
	s := &fakeReminderStore{reminders: make(map[uuid.UUID]*models.Reminder)}
	for _, r := range reminders {
		s.reminders[r.ID] = r
	}
	return s
}

func (s *fakeReminderStore) GetByID(_ context.Context, _ tenant.Context, id uuid.UUID) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (s *fakeReminderStore) GetDue(_ context.Context, _ tenant.Context, now time.Time, limit int) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.Reminder
	for _, r := range s.reminders {
		if r.Status == models.ReminderPending && r.TriggerDatetime != nil && !r.TriggerDatetime.After(now) {
			due = append(due, *r)
		}
		if limit > 0 && len(due) == limit {
			break
		}
	}
	return due, nil
}

func (s *fakeReminderStore) ClaimPending(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok || r.Status != models.ReminderPending {
		return false, nil
	}
	r.Status = models.ReminderDispatching
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *fakeReminderStore) ReleaseStale(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var released int64
	for _, r := range s.reminders {
		if r.Status == models.ReminderDispatching && r.UpdatedAt.Before(before) {
			r.Status = models.ReminderPending
			r.UpdatedAt = time.Now()
			released++
		}
	}
	return released, nil
}

func (s *fakeReminderStore) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[id].Status = models.ReminderSent
	s.reminders[id].SentAt = &at
	return nil
}

func (s *fakeReminderStore) MarkFailed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[id].Status = models.ReminderFailed
	return nil
}

func (s *fakeReminderStore) status(id uuid.UUID) models.ReminderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reminders[id].Status
}

type fakeContractStore struct {
	contracts map[uuid.UUID]*models.Contract
}

func (s *fakeContractStore) GetByID(_ context.Context, _ tenant.Context, id uuid.UUID) (*models.Contract, error) {
	return s.contracts[id], nil
}

type fakeResolver struct {
	recipients []services.ResolvedRecipient
	failures   int
}

func (f *fakeResolver) Resolve(_ context.Context, _ *models.Reminder) ([]services.ResolvedRecipient, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("user lookup unavailable")
	}
	return f.recipients, nil
}

type fakeEmailProvider struct {
	mu       sync.Mutex
	sent     []string
	failures int
}

func (f *fakeEmailProvider) Send(_ context.Context, msg *services.Message) (*services.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg.To)
	return &services.SendResult{Success: true}, nil
}

func (f *fakeEmailProvider) GetName() string { return "fake" }

func (f *fakeEmailProvider) SupportsChannel() string { return "EMAIL" }

func (f *fakeEmailProvider) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeInApp struct {
	mu        sync.Mutex
	delivered []uuid.UUID
}

func (f *fakeInApp) Deliver(_ context.Context, _, userID uuid.UUID, _ services.InAppPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, userID)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testConfig() Config {
	return Config{
		MaxAttempts:     3,
		RetryBackoff:    []time.Duration{time.Millisecond, time.Millisecond},
		DeliveryTimeout: time.Second,
	}
}

func dueReminder(contractID uuid.UUID, channels ...models.ReminderChannel) *models.Reminder {
	due := time.Now().Add(-time.Minute)
	return &models.Reminder{
		ID:              uuid.New(),
		CompanyID:       uuid.New(),
		ContractID:      contractID,
		TriggerType:     models.TriggerBeforeEndDate,
		Status:          models.ReminderPending,
		TriggerDatetime: &due,
		Channels:        channels,
		SendTime:        "09:00",
	}
}

func testContract(id uuid.UUID) *models.Contract {
	return &models.Contract{
		ID:           id,
		Title:        "Office lease",
		Counterparty: "Acme Properties",
		EndDate:      time.Now().AddDate(0, 1, 0),
	}
}

func newTestDispatcher(
	reminders *fakeReminderStore,
	contracts *fakeContractStore,
	resolver Resolver,
	email services.Provider,
	inApp InAppDeliverer,
	cfg Config,
) *Dispatcher {
	logger := quietLogger()
	return NewDispatcher(
		reminders,
		contracts,
		resolver,
		email,
		inApp,
		services.NewReminderEmailRenderer("http://app.local"),
		events.NewPublisher(nil, logger),
		cfg,
		logger,
	)
}

func TestDispatch_Success(t *testing.T) {
	contractID := uuid.New()
	userID := uuid.New()
	reminder := dueReminder(contractID, models.ChannelEmail, models.ChannelInApp)

	reminders := newFakeReminderStore(reminder)
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{contractID: testContract(contractID)}}
	resolver := &fakeResolver{recipients: []services.ResolvedRecipient{
		{Type: models.RecipientUser, User: &models.User{ID: userID, Email: "anna@example.com"}},
		{Type: models.RecipientExternal, Email: "legal@example.com"},
	}}
	email := &fakeEmailProvider{}
	inApp := &fakeInApp{}

	d := newTestDispatcher(reminders, contracts, resolver, email, inApp, testConfig())

	if err := d.Dispatch(context.Background(), reminder.ID); err != nil {
		t.Fatalf("Dispatch returned %v", err)
	}

	if got := reminders.status(reminder.ID); got != models.ReminderSent {
		t.Errorf("status = %s, want SENT", got)
	}
	// Both recipients get email; only the internal user gets in-app.
	if email.sentCount() != 2 {
		t.Errorf("sent %d emails, want 2", email.sentCount())
	}
	if len(inApp.delivered) != 1 || inApp.delivered[0] != userID {
		t.Errorf("in-app deliveries = %v, want exactly the internal user", inApp.delivered)
	}
}

func TestDispatch_SkipsWhenNotPending(t *testing.T) {
	contractID := uuid.New()
	reminder := dueReminder(contractID, models.ChannelEmail)
	reminder.Status = models.ReminderSent

	reminders := newFakeReminderStore(reminder)
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{contractID: testContract(contractID)}}
	email := &fakeEmailProvider{}

	d := newTestDispatcher(reminders, contracts, &fakeResolver{}, email, &fakeInApp{}, testConfig())

	if err := d.Dispatch(context.Background(), reminder.ID); err != nil {
		t.Fatalf("Dispatch returned %v", err)
	}
	if email.sentCount() != 0 {
		t.Error("expected no deliveries for an already sent reminder")
	}
	if got := reminders.status(reminder.ID); got != models.ReminderSent {
		t.Errorf("status = %s, want untouched SENT", got)
	}
}

func TestDispatch_MissingContractFailsTerminally(t *testing.T) {
	reminder := dueReminder(uuid.New(), models.ChannelEmail)

	reminders := newFakeReminderStore(reminder)
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{}}
	email := &fakeEmailProvider{}

	d := newTestDispatcher(reminders, contracts, &fakeResolver{}, email, &fakeInApp{}, testConfig())

	err := d.Dispatch(context.Background(), reminder.ID)
	if !errors.Is(err, ErrContractMissing) {
		t.Fatalf("Dispatch returned %v, want ErrContractMissing", err)
	}
	if got := reminders.status(reminder.ID); got != models.ReminderFailed {
		t.Errorf("status = %s, want FAILED", got)
	}
	if email.sentCount() != 0 {
		t.Error("expected no delivery attempts")
	}
}

func TestDispatch_NoRecipientsFailsTerminally(t *testing.T) {
	contractID := uuid.New()
	reminder := dueReminder(contractID, models.ChannelEmail)

	reminders := newFakeReminderStore(reminder)
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{contractID: testContract(contractID)}}
	email := &fakeEmailProvider{}

	d := newTestDispatcher(reminders, contracts, &fakeResolver{recipients: nil}, email, &fakeInApp{}, testConfig())

	err := d.Dispatch(context.Background(), reminder.ID)
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("Dispatch returned %v, want ErrNoRecipients", err)
	}
	if got := reminders.status(reminder.ID); got != models.ReminderFailed {
		t.Errorf("status = %s, want FAILED", got)
	}
}

func TestDispatch_RetriesThenSucceeds(t *testing.T) {
	contractID := uuid.New()
	reminder := dueReminder(contractID, models.ChannelEmail)

	reminders := newFakeReminderStore(reminder)
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{contractID: testContract(contractID)}}
	resolver := &fakeResolver{recipients: []services.ResolvedRecipient{
		{Type: models.RecipientExternal, Email: "legal@example.com"},
	}}
	email := &fakeEmailProvider{failures: 1}

	d := newTestDispatcher(reminders, contracts, resolver, email, &fakeInApp{}, testConfig())

	if err := d.Dispatch(context.Background(), reminder.ID); err != nil {
		t.Fatalf("Dispatch returned %v", err)
	}
	if got := reminders.status(reminder.ID); got != models.ReminderSent {
		t.Errorf("status = %s, want SENT after a retry", got)
	}
	if email.sentCount() != 1 {
		t.Errorf("sent %d emails, want 1", email.sentCount())
	}
}

func TestDispatch_ResolverErrorRetried(t *testing.T) {
	// A user-lookup blip is transient: resolution is retried with the
	// same budget as delivery instead of failing the reminder outright.
	contractID := uuid.New()
	reminder := dueReminder(contractID, models.ChannelEmail)

	reminders := newFakeReminderStore(reminder)
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{contractID: testContract(contractID)}}
	resolver := &fakeResolver{
		recipients: []services.ResolvedRecipient{
			{Type: models.RecipientExternal, Email: "legal@example.com"},
		},
		failures: 1,
	}
	email := &fakeEmailProvider{}

	d := newTestDispatcher(reminders, contracts, resolver, email, &fakeInApp{}, testConfig())

	if err := d.Dispatch(context.Background(), reminder.ID); err != nil {
		t.Fatalf("Dispatch returned %v", err)
	}
	if got := reminders.status(reminder.ID); got != models.ReminderSent {
		t.Errorf("status = %s, want SENT after resolver recovery", got)
	}
	if email.sentCount() != 1 {
		t.Errorf("sent %d emails, want 1", email.sentCount())
	}
}

func TestDispatch_CancellationKeepsRetryBudget(t *testing.T) {
	contractID := uuid.New()
	reminder := dueReminder(contractID, models.ChannelEmail)

	reminders := newFakeReminderStore(reminder)
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{contractID: testContract(contractID)}}
	resolver := &fakeResolver{recipients: []services.ResolvedRecipient{
		{Type: models.RecipientExternal, Email: "legal@example.com"},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider := &cancelingProvider{cancel: cancel}

	d := newTestDispatcher(reminders, contracts, resolver, provider, &fakeInApp{}, testConfig())

	err := d.Dispatch(ctx, reminder.ID)
	if err == nil {
		t.Fatal("expected an error from an interrupted dispatch")
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
	// Two attempts remain, so the reminder must not be terminally FAILED.
	// The claim stays in DISPATCHING for the stale-claim requeue.
	if got := reminders.status(reminder.ID); got != models.ReminderDispatching {
		t.Errorf("status = %s, want DISPATCHING", got)
	}
}

// cancelingProvider simulates the caller disconnecting mid-delivery: the
// first send cancels the dispatch context and fails.
type cancelingProvider struct {
	cancel context.CancelFunc
	calls  int
}

func (p *cancelingProvider) Send(_ context.Context, _ *services.Message) (*services.SendResult, error) {
	p.calls++
	p.cancel()
	return nil, errors.New("connection reset")
}

func (p *cancelingProvider) GetName() string { return "canceling" }

func (p *cancelingProvider) SupportsChannel() string { return "EMAIL" }

func TestDispatch_ExhaustsRetries(t *testing.T) {
	contractID := uuid.New()
	reminder := dueReminder(contractID, models.ChannelEmail)

	reminders := newFakeReminderStore(reminder)
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{contractID: testContract(contractID)}}
	resolver := &fakeResolver{recipients: []services.ResolvedRecipient{
		{Type: models.RecipientExternal, Email: "legal@example.com"},
	}}
	email := &fakeEmailProvider{failures: 100}

	d := newTestDispatcher(reminders, contracts, resolver, email, &fakeInApp{}, testConfig())

	if err := d.Dispatch(context.Background(), reminder.ID); err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if got := reminders.status(reminder.ID); got != models.ReminderFailed {
		t.Errorf("status = %s, want FAILED", got)
	}
}

func TestDispatch_RetriesWholeFanOut(t *testing.T) {
	// A failure partway through the fan-out repeats the entire attempt:
	// the recipient that already got a copy receives a second one.
	contractID := uuid.New()
	reminder := dueReminder(contractID, models.ChannelEmail)

	reminders := newFakeReminderStore(reminder)
	contracts := &fakeContractStore{contracts: map[uuid.UUID]*models.Contract{contractID: testContract(contractID)}}
	resolver := &fakeResolver{recipients: []services.ResolvedRecipient{
		{Type: models.RecipientExternal, Email: "first@example.com"},
		{Type: models.RecipientExternal, Email: "second@example.com"},
	}}
	// First attempt: first succeeds, second fails. Second attempt: both
	// succeed.
	email := &fakeEmailProvider{}
	attempt := 0
	flaky := &flakyProvider{inner: email, failOn: func(to string) bool {
		if to == "second@example.com" && attempt == 0 {
			attempt++
			return true
		}
		return false
	}}

	d := newTestDispatcher(reminders, contracts, resolver, flaky, &fakeInApp{}, testConfig())

	if err := d.Dispatch(context.Background(), reminder.ID); err != nil {
		t.Fatalf("Dispatch returned %v", err)
	}
	if got := reminders.status(reminder.ID); got != models.ReminderSent {
		t.Errorf("status = %s, want SENT", got)
	}
	// first@example.com is delivered on both attempts.
	if email.sentCount() != 3 {
		t.Errorf("sent %d emails, want 3 (duplicate for the first recipient)", email.sentCount())
	}
}

type flakyProvider struct {
	inner  *fakeEmailProvider
	failOn func(to string) bool
}

func (f *flakyProvider) Send(ctx context.Context, msg *services.Message) (*services.SendResult, error) {
	if f.failOn(msg.To) {
		return nil, errors.New("transient failure")
	}
	return f.inner.Send(ctx, msg)
}

func (f *flakyProvider) GetName() string { return "flaky" }

func (f *flakyProvider) SupportsChannel() string { return "EMAIL" }
