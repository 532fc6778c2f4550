package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contract-service/internal/events"
	"contract-service/internal/models"
	"contract-service/internal/repository"
	"contract-service/internal/storage"
	"contract-service/internal/tenant"
)

// ContractInput carries the writable contract fields. Pointer fields
// distinguish "not provided" from "set to empty".
type ContractInput struct {
	Title        *string
	Counterparty *string
	StartDate    *time.Time
	EndDate      *time.Time

	TerminationNoticeDays   *int
	TerminationDeadlineDate *time.Time

	ContractTypeID *uuid.UUID
	ContactID      *uuid.UUID
	Notes          *string

	// CompanyID is honored only for superadmins; scoped actors always
	// write into their own company.
	CompanyID *uuid.UUID
}

// ContractService owns the contract write path. Status is derived here on
// every write, never accepted from the caller.
type ContractService struct {
	contracts repository.ContractRepository
	users     repository.UserRepository
	inApp     *InAppProvider
	documents storage.DocumentStore
	publisher *events.Publisher
	renderer  *ReminderEmailRenderer
	logger    *logrus.Logger
}

// NewContractService creates a new contract service
func NewContractService(
	contracts repository.ContractRepository,
	users repository.UserRepository,
	inApp *InAppProvider,
	documents storage.DocumentStore,
	publisher *events.Publisher,
	renderer *ReminderEmailRenderer,
	logger *logrus.Logger,
) *ContractService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ContractService{
		contracts: contracts,
		users:     users,
		inApp:     inApp,
		documents: documents,
		publisher: publisher,
		renderer:  renderer,
		logger:    logger,
	}
}

// resolveCompany determines which company a write lands in.
func resolveCompany(tctx tenant.Context, requested *uuid.UUID) (uuid.UUID, error) {
	if tctx.Scoped() {
		if tctx.CompanyID == nil {
			return uuid.Nil, ErrForbidden
		}
		return *tctx.CompanyID, nil
	}
	if requested == nil {
		return uuid.Nil, invalid("companyId", "required for superadmin writes")
	}
	return *requested, nil
}

// applyInput copies provided fields onto the contract and enforces the
// write-time invariants: end after start, and the termination notice /
// deadline exclusivity (setting notice-days clears the deadline date; the
// reverse direction is deliberately not enforced).
func applyInput(contract *models.Contract, input ContractInput) error {
	if input.Title != nil {
		contract.Title = *input.Title
	}
	if input.Counterparty != nil {
		contract.Counterparty = *input.Counterparty
	}
	if input.StartDate != nil {
		contract.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		contract.EndDate = *input.EndDate
	}
	if input.ContractTypeID != nil {
		contract.ContractTypeID = input.ContractTypeID
	}
	if input.ContactID != nil {
		contract.ContactID = input.ContactID
	}
	if input.Notes != nil {
		contract.Notes = *input.Notes
	}

	if input.TerminationDeadlineDate != nil {
		contract.TerminationDeadlineDate = input.TerminationDeadlineDate
	}
	if input.TerminationNoticeDays != nil {
		contract.TerminationNoticeDays = input.TerminationNoticeDays
		contract.TerminationDeadlineDate = nil
	}

	if contract.Title == "" {
		return invalid("title", "required")
	}
	if contract.EndDate.IsZero() {
		return invalid("endDate", "required")
	}
	if contract.StartDate != nil && !contract.EndDate.After(*contract.StartDate) {
		return invalid("endDate", "must be after start date")
	}
	if contract.TerminationNoticeDays != nil && *contract.TerminationNoticeDays < 0 {
		return invalid("terminationNoticeDays", "must not be negative")
	}
	return nil
}

// Create creates a contract, derives its status and notifies company members.
func (s *ContractService) Create(ctx context.Context, tctx tenant.Context, input ContractInput) (*models.Contract, error) {
	companyID, err := resolveCompany(tctx, input.CompanyID)
	if err != nil {
		return nil, err
	}

	contract := &models.Contract{CompanyID: companyID}
	if err := applyInput(contract, input); err != nil {
		return nil, err
	}
	contract.Status = contract.ComputeStatus(time.Now())

	if err := s.contracts.Create(ctx, tctx, contract); err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}

	s.publisher.Publish(ctx, events.ContractCreated, companyID.String(), contract)
	s.notifyCompany(ctx, contract, models.NotificationContractCreated,
		fmt.Sprintf("New contract: %s", contract.Title),
		fmt.Sprintf("A contract with %s was added.", contract.Counterparty))

	return contract, nil
}

// Update applies changes and recomputes the derived status.
func (s *ContractService) Update(ctx context.Context, tctx tenant.Context, id uuid.UUID, input ContractInput) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, tctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrNotFound
	}

	if err := applyInput(contract, input); err != nil {
		return nil, err
	}
	// TERMINATED is a manual override; derivation never reassigns it.
	if contract.Status != models.ContractTerminated {
		contract.Status = contract.ComputeStatus(time.Now())
	}

	if err := s.contracts.Update(ctx, tctx, contract); err != nil {
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}

	s.publisher.Publish(ctx, events.ContractUpdated, contract.CompanyID.String(), contract)
	return contract, nil
}

// Terminate marks the contract TERMINATED. This is the only path that
// assigns the status; it is never derived.
func (s *ContractService) Terminate(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, tctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrNotFound
	}

	contract.Status = models.ContractTerminated
	if err := s.contracts.Update(ctx, tctx, contract); err != nil {
		return nil, fmt.Errorf("failed to terminate contract: %w", err)
	}

	s.publisher.Publish(ctx, events.ContractUpdated, contract.CompanyID.String(), contract)
	return contract, nil
}

// Get returns one contract within the caller's scope.
func (s *ContractService) Get(ctx context.Context, tctx tenant.Context, id uuid.UUID, includeDeleted bool) (*models.Contract, error) {
	var contract *models.Contract
	var err error
	if includeDeleted {
		contract, err = s.contracts.GetByIDIncludingDeleted(ctx, tctx, id)
	} else {
		contract, err = s.contracts.GetByID(ctx, tctx, id)
	}
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrNotFound
	}
	return contract, nil
}

// List returns contracts within the caller's scope.
func (s *ContractService) List(ctx context.Context, tctx tenant.Context, filters repository.ContractFilters) ([]models.Contract, int64, error) {
	return s.contracts.List(ctx, tctx, filters)
}

// Delete soft-deletes a contract.
func (s *ContractService) Delete(ctx context.Context, tctx tenant.Context, id uuid.UUID) error {
	contract, err := s.contracts.GetByID(ctx, tctx, id)
	if err != nil {
		return err
	}
	if contract == nil {
		return ErrNotFound
	}
	if err := s.contracts.Delete(ctx, tctx, id); err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	s.publisher.Publish(ctx, events.ContractDeleted, contract.CompanyID.String(), contract)
	return nil
}

// AttachDocument stores the uploaded blob and records its handle on the
// contract.
func (s *ContractService) AttachDocument(ctx context.Context, tctx tenant.Context, id uuid.UUID, r io.Reader, filename, contentType string, size int64) (*models.Contract, error) {
	if s.documents == nil {
		return nil, fmt.Errorf("document storage not configured")
	}

	contract, err := s.contracts.GetByID(ctx, tctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrNotFound
	}

	key := fmt.Sprintf("%s/contracts/%s/%s", contract.CompanyID, contract.ID, filename)
	if err := s.documents.Store(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	// Replace an existing attachment; the old blob is removed best-effort.
	if contract.FileKey != "" && contract.FileKey != key {
		if err := s.documents.Delete(ctx, contract.FileKey); err != nil {
			s.logger.WithError(err).WithField("key", contract.FileKey).Warn("failed to delete replaced document")
		}
	}

	contract.FileKey = key
	contract.FileName = filename
	contract.FileSize = size
	contract.FileContentType = contentType

	if err := s.contracts.Update(ctx, tctx, contract); err != nil {
		return nil, fmt.Errorf("failed to record document: %w", err)
	}
	return contract, nil
}

// DetachDocument removes the attached blob and clears its handle.
func (s *ContractService) DetachDocument(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Contract, error) {
	if s.documents == nil {
		return nil, fmt.Errorf("document storage not configured")
	}

	contract, err := s.contracts.GetByID(ctx, tctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrNotFound
	}
	if !contract.HasDocument() {
		return nil, ErrNotFound
	}

	if err := s.documents.Delete(ctx, contract.FileKey); err != nil {
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}

	contract.FileKey = ""
	contract.FileName = ""
	contract.FileSize = 0
	contract.FileContentType = ""

	if err := s.contracts.Update(ctx, tctx, contract); err != nil {
		return nil, fmt.Errorf("failed to clear document: %w", err)
	}
	return contract, nil
}

// DocumentURL returns a short-lived download URL for the attached blob.
func (s *ContractService) DocumentURL(ctx context.Context, tctx tenant.Context, id uuid.UUID, ttl time.Duration) (string, error) {
	if s.documents == nil {
		return "", fmt.Errorf("document storage not configured")
	}

	contract, err := s.contracts.GetByID(ctx, tctx, id)
	if err != nil {
		return "", err
	}
	if contract == nil {
		return "", ErrNotFound
	}
	if !contract.HasDocument() {
		return "", ErrNotFound
	}

	return s.documents.TemporaryDownloadURL(ctx, contract.FileKey, ttl)
}

// notifyCompany drops an in-app notification for every member of the
// contract's company. Failures are logged, never propagated: inbox rows are
// a courtesy, not part of the write.
func (s *ContractService) notifyCompany(ctx context.Context, contract *models.Contract, notifType models.NotificationType, title, message string) {
	if s.inApp == nil {
		return
	}
	members, err := s.users.ListByCompany(ctx, contract.CompanyID)
	if err != nil {
		s.logger.WithError(err).Warn("failed to list company members for notification")
		return
	}

	actionURL := ""
	if s.renderer != nil {
		actionURL = s.renderer.ActionURL(contract.ID)
	}

	for _, member := range members {
		err := s.inApp.Deliver(ctx, contract.CompanyID, member.ID, InAppPayload{
			Type:      notifType,
			Title:     title,
			Message:   message,
			ActionURL: actionURL,
		})
		if err != nil {
			s.logger.WithError(err).WithField("user_id", member.ID).Warn("failed to deliver in-app notification")
		}
	}
}
