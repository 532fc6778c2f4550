package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"contract-service/internal/models"
	"contract-service/internal/repository"
)

// CompanyHandler handles company provisioning and the tenant-scoped lookup
// tables (contract types, contacts) plus user administration.
type CompanyHandler struct {
	companies repository.CompanyRepository
	lookups   repository.LookupRepository
	users     repository.UserRepository
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(companies repository.CompanyRepository, lookups repository.LookupRepository, users repository.UserRepository) *CompanyHandler {
	return &CompanyHandler{companies: companies, lookups: lookups, users: users}
}

// CreateCompanyRequest provisions a new tenant.
type CreateCompanyRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateCompany creates a company; superadmin only (enforced by route
// middleware).
func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	company := &models.Company{Name: req.Name, Active: true}
	if err := h.companies.Create(c.Request.Context(), company); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, company)
}

// ListCompanies lists all companies; superadmin only.
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	limit, offset := pagination(c)
	companies, total, err := h.companies.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	listResponse(c, companies, total, limit, offset)
}

// GetCompany returns the caller's own company, or any company for
// superadmins.
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !tctx.CanAccessCompany(id) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	company, err := h.companies.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if company == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, company)
}

// CreateUserRequest adds a user to a company.
type CreateUserRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Name      string  `json:"name" binding:"required"`
	Role      string  `json:"role"`
	CompanyID *string `json:"companyId"`
}

// CreateUser creates a user. Scoped admins create users in their own
// company; superadmins may target any company or create company-less
// superadmins.
func (h *CompanyHandler) CreateUser(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.UserRole(req.Role)
	if role == "" {
		role = models.RoleMember
	}

	user := &models.User{
		Email: req.Email,
		Name:  req.Name,
		Role:  role,
	}

	if tctx.Scoped() {
		if tctx.Role != models.RoleCompanyAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		if role == models.RoleSuperadmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cannot grant superadmin role"})
			return
		}
		user.CompanyID = tctx.CompanyID
	} else {
		companyID, err := parseUUID(req.CompanyID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid companyId"})
			return
		}
		if companyID == nil && role != models.RoleSuperadmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "companyId is required for non-superadmin users"})
			return
		}
		user.CompanyID = companyID
	}

	existing, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
		return
	}

	if err := h.users.Create(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ListUsers lists the caller's company users. Superadmins pass companyId.
func (h *CompanyHandler) ListUsers(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}

	companyID := tctx.CompanyID
	if !tctx.Scoped() {
		raw := c.Query("companyId")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "companyId query parameter is required"})
			return
		}
		parsed, err := parseUUID(&raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid companyId"})
			return
		}
		companyID = parsed
	}
	if companyID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No company to list users for"})
		return
	}

	users, err := h.users.ListByCompany(c.Request.Context(), *companyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

// LookupRequest names a lookup row.
type LookupRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateContractType creates a contract type
func (h *CompanyHandler) CreateContractType(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	if tctx.CompanyID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No company to create lookup in"})
		return
	}

	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contractType := &models.ContractType{
		CompanyID: *tctx.CompanyID,
		Name:      req.Name,
	}
	if err := h.lookups.CreateContractType(c.Request.Context(), tctx, contractType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, contractType)
}

// ListContractTypes lists contract types
func (h *CompanyHandler) ListContractTypes(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}

	contractTypes, err := h.lookups.ListContractTypes(c.Request.Context(), tctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contractTypes})
}

// DeleteContractType deletes a contract type
func (h *CompanyHandler) DeleteContractType(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.lookups.DeleteContractType(c.Request.Context(), tctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contract type deleted"})
}

// CreateContact creates a contact
func (h *CompanyHandler) CreateContact(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	if tctx.CompanyID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No company to create lookup in"})
		return
	}

	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact := &models.Contact{
		CompanyID: *tctx.CompanyID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if err := h.lookups.CreateContact(c.Request.Context(), tctx, contact); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, contact)
}

// ListContacts lists contacts
func (h *CompanyHandler) ListContacts(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}

	contacts, err := h.lookups.ListContacts(c.Request.Context(), tctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contacts})
}

// DeleteContact deletes a contact
func (h *CompanyHandler) DeleteContact(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.lookups.DeleteContact(c.Request.Context(), tctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contact deleted"})
}
