package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"contract-service/internal/models"
	"contract-service/internal/tenant"
)

// ContractRepository handles contract database operations
type ContractRepository interface {
	Create(ctx context.Context, tctx tenant.Context, contract *models.Contract) error
	GetByID(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Contract, error)
	GetByIDIncludingDeleted(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Contract, error)
	List(ctx context.Context, tctx tenant.Context, filters ContractFilters) ([]models.Contract, int64, error)
	Update(ctx context.Context, tctx tenant.Context, contract *models.Contract) error
	Delete(ctx context.Context, tctx tenant.Context, id uuid.UUID) error
}

// ContractFilters for listing contracts
type ContractFilters struct {
	Status       string
	ContactID    string
	TypeID       string
	EndingBefore *time.Time
	Search       string
	Limit        int
	Offset       int
}

type contractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, tctx tenant.Context, contract *models.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *contractRepository) GetByID(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := tctx.Scope(r.db.WithContext(ctx)).Where("id = ?", id).First(&contract).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) GetByIDIncludingDeleted(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := tctx.Scope(r.db.WithContext(ctx).Unscoped()).Where("id = ?", id).First(&contract).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

func (r *contractRepository) List(ctx context.Context, tctx tenant.Context, filters ContractFilters) ([]models.Contract, int64, error) {
	var contracts []models.Contract
	var total int64

	query := tctx.Scope(r.db.WithContext(ctx).Model(&models.Contract{}))

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.ContactID != "" {
		query = query.Where("contact_id = ?", filters.ContactID)
	}
	if filters.TypeID != "" {
		query = query.Where("contract_type_id = ?", filters.TypeID)
	}
	if filters.EndingBefore != nil {
		query = query.Where("end_date <= ?", filters.EndingBefore)
	}
	if filters.Search != "" {
		search := "%" + filters.Search + "%"
		query = query.Where("title ILIKE ? OR counterparty ILIKE ?", search, search)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	err := query.Order("end_date ASC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&contracts).Error

	return contracts, total, err
}

func (r *contractRepository) Update(ctx context.Context, tctx tenant.Context, contract *models.Contract) error {
	return tctx.Scope(r.db.WithContext(ctx)).Save(contract).Error
}

func (r *contractRepository) Delete(ctx context.Context, tctx tenant.Context, id uuid.UUID) error {
	return tctx.Scope(r.db.WithContext(ctx)).Delete(&models.Contract{}, "id = ?", id).Error
}
