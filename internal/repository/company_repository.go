package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"contract-service/internal/models"
	"contract-service/internal/tenant"
)

// CompanyRepository handles company database operations. Companies are the
// tenant roots themselves; creation is a superadmin provisioning operation.
type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	List(ctx context.Context, limit, offset int) ([]models.Company, int64, error)
	Update(ctx context.Context, company *models.Company) error
}

type companyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) Create(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *companyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) List(ctx context.Context, limit, offset int) ([]models.Company, int64, error) {
	var companies []models.Company
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Company{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&companies).Error
	return companies, total, err
}

func (r *companyRepository) Update(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}

// LookupRepository handles the tenant-scoped lookup tables: contract types
// and counterparty contacts.
type LookupRepository interface {
	CreateContractType(ctx context.Context, tctx tenant.Context, ct *models.ContractType) error
	ListContractTypes(ctx context.Context, tctx tenant.Context) ([]models.ContractType, error)
	DeleteContractType(ctx context.Context, tctx tenant.Context, id uuid.UUID) error

	CreateContact(ctx context.Context, tctx tenant.Context, contact *models.Contact) error
	ListContacts(ctx context.Context, tctx tenant.Context) ([]models.Contact, error)
	DeleteContact(ctx context.Context, tctx tenant.Context, id uuid.UUID) error
}

type lookupRepository struct {
	db *gorm.DB
}

// NewLookupRepository creates a new lookup repository
func NewLookupRepository(db *gorm.DB) LookupRepository {
	return &lookupRepository{db: db}
}

func (r *lookupRepository) CreateContractType(ctx context.Context, tctx tenant.Context, ct *models.ContractType) error {
	return r.db.WithContext(ctx).Create(ct).Error
}

func (r *lookupRepository) ListContractTypes(ctx context.Context, tctx tenant.Context) ([]models.ContractType, error) {
	var types []models.ContractType
	err := tctx.Scope(r.db.WithContext(ctx)).Order("name ASC").Find(&types).Error
	return types, err
}

func (r *lookupRepository) DeleteContractType(ctx context.Context, tctx tenant.Context, id uuid.UUID) error {
	return tctx.Scope(r.db.WithContext(ctx)).Delete(&models.ContractType{}, "id = ?", id).Error
}

func (r *lookupRepository) CreateContact(ctx context.Context, tctx tenant.Context, contact *models.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

func (r *lookupRepository) ListContacts(ctx context.Context, tctx tenant.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	err := tctx.Scope(r.db.WithContext(ctx)).Order("name ASC").Find(&contacts).Error
	return contacts, err
}

func (r *lookupRepository) DeleteContact(ctx context.Context, tctx tenant.Context, id uuid.UUID) error {
	return tctx.Scope(r.db.WithContext(ctx)).Delete(&models.Contact{}, "id = ?", id).Error
}
