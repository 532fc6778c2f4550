package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"contract-service/internal/repository"
	"contract-service/internal/services"
)

// ContractHandler handles contract-related requests
type ContractHandler struct {
	contracts *services.ContractService
	urlTTL    time.Duration
}

// NewContractHandler creates a new contract handler
func NewContractHandler(contracts *services.ContractService, urlTTL time.Duration) *ContractHandler {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &ContractHandler{contracts: contracts, urlTTL: urlTTL}
}

// ContractRequest carries contract create/update fields. Dates are
// YYYY-MM-DD strings; absent fields are left untouched on update.
type ContractRequest struct {
	Title                   *string `json:"title"`
	Counterparty            *string `json:"counterparty"`
	StartDate               *string `json:"startDate"`
	EndDate                 *string `json:"endDate"`
	TerminationNoticeDays   *int    `json:"terminationNoticeDays"`
	TerminationDeadlineDate *string `json:"terminationDeadlineDate"`
	ContractTypeID          *string `json:"contractTypeId"`
	ContactID               *string `json:"contactId"`
	Notes                   *string `json:"notes"`
	CompanyID               *string `json:"companyId"`
}

func (r ContractRequest) toInput() (services.ContractInput, error) {
	input := services.ContractInput{
		Title:                 r.Title,
		Counterparty:          r.Counterparty,
		TerminationNoticeDays: r.TerminationNoticeDays,
		Notes:                 r.Notes,
	}

	var err error
	if input.StartDate, err = parseDate(r.StartDate); err != nil {
		return input, err
	}
	if input.EndDate, err = parseDate(r.EndDate); err != nil {
		return input, err
	}
	if input.TerminationDeadlineDate, err = parseDate(r.TerminationDeadlineDate); err != nil {
		return input, err
	}
	if input.ContractTypeID, err = parseUUID(r.ContractTypeID); err != nil {
		return input, err
	}
	if input.ContactID, err = parseUUID(r.ContactID); err != nil {
		return input, err
	}
	if input.CompanyID, err = parseUUID(r.CompanyID); err != nil {
		return input, err
	}
	return input, nil
}

// Create creates a contract
func (h *ContractHandler) Create(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}

	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.Create(c.Request.Context(), tctx, input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

// List returns contracts matching the query filters.
func (h *ContractHandler) List(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	filters := repository.ContractFilters{
		Status:    c.Query("status"),
		ContactID: c.Query("contactId"),
		TypeID:    c.Query("typeId"),
		Search:    c.Query("search"),
		Limit:     limit,
		Offset:    offset,
	}
	if raw := c.Query("endingBefore"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endingBefore date"})
			return
		}
		filters.EndingBefore = &t
	}

	contracts, total, err := h.contracts.List(c.Request.Context(), tctx, filters)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	listResponse(c, contracts, total, limit, offset)
}

// Get returns one contract
func (h *ContractHandler) Get(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	includeDeleted := c.Query("includeDeleted") == "true"
	contract, err := h.contracts.Get(c.Request.Context(), tctx, id, includeDeleted)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// Update updates a contract
func (h *ContractHandler) Update(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.Update(c.Request.Context(), tctx, id, input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// Terminate marks a contract terminated.
func (h *ContractHandler) Terminate(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	contract, err := h.contracts.Terminate(c.Request.Context(), tctx, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// Delete soft-deletes a contract
func (h *ContractHandler) Delete(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.contracts.Delete(c.Request.Context(), tctx, id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted"})
}

// AttachDocument uploads the contract document from a multipart form.
func (h *ContractHandler) AttachDocument(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	contract, err := h.contracts.AttachDocument(c.Request.Context(), tctx, id, file, fileHeader.Filename, contentType, fileHeader.Size)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// DetachDocument removes the attached document.
func (h *ContractHandler) DetachDocument(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	contract, err := h.contracts.DetachDocument(c.Request.Context(), tctx, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// DocumentURL returns a short-lived download link for the attached document.
func (h *ContractHandler) DocumentURL(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	url, err := h.contracts.DocumentURL(c.Request.Context(), tctx, id, h.urlTTL)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":       url,
		"expiresIn": int(h.urlTTL.Seconds()),
	})
}
