package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"contract-service/internal/models"
	"contract-service/internal/repository"
	"contract-service/internal/services"
)

// ReminderHandler handles reminder-related requests
type ReminderHandler struct {
	reminders *services.ReminderService
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(reminders *services.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

// ReminderRequest carries reminder create/update fields.
type ReminderRequest struct {
	ContractID  *string            `json:"contractId"`
	TriggerType *string            `json:"triggerType"`
	DaysBefore  *int               `json:"daysBefore"`
	CustomDate  *string            `json:"customDate"`
	SendTime    *string            `json:"sendTime"`
	Channels    []string           `json:"channels"`
	Notes       *string            `json:"notes"`
	Recipients  []RecipientRequest `json:"recipients"`
}

// RecipientRequest is one requested delivery target.
type RecipientRequest struct {
	Type   string  `json:"type"`
	UserID *string `json:"userId"`
	Email  string  `json:"email"`
}

func (r ReminderRequest) toInput() (services.ReminderInput, error) {
	input := services.ReminderInput{
		DaysBefore: r.DaysBefore,
		SendTime:   r.SendTime,
		Notes:      r.Notes,
	}

	var err error
	if input.ContractID, err = parseUUID(r.ContractID); err != nil {
		return input, err
	}
	if input.CustomDate, err = parseDate(r.CustomDate); err != nil {
		return input, err
	}
	if r.TriggerType != nil {
		triggerType := models.ReminderTriggerType(*r.TriggerType)
		input.TriggerType = &triggerType
	}
	for _, channel := range r.Channels {
		input.Channels = append(input.Channels, models.ReminderChannel(channel))
	}
	if r.Recipients != nil {
		input.Recipients = make([]services.RecipientInput, 0, len(r.Recipients))
		for _, recipient := range r.Recipients {
			userID, err := parseUUID(recipient.UserID)
			if err != nil {
				return input, err
			}
			input.Recipients = append(input.Recipients, services.RecipientInput{
				Type:   models.RecipientType(recipient.Type),
				UserID: userID,
				Email:  recipient.Email,
			})
		}
	}
	return input, nil
}

// Create creates a reminder
func (h *ReminderHandler) Create(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}

	var req ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reminder, err := h.reminders.Create(c.Request.Context(), tctx, input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reminder)
}

// List returns reminders matching the query filters.
func (h *ReminderHandler) List(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	filters := repository.ReminderFilters{
		ContractID: c.Query("contractId"),
		Status:     c.Query("status"),
		Limit:      limit,
		Offset:     offset,
	}
	if raw := c.Query("dueBefore"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dueBefore timestamp"})
			return
		}
		filters.DueBefore = &t
	}

	reminders, total, err := h.reminders.List(c.Request.Context(), tctx, filters)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	listResponse(c, reminders, total, limit, offset)
}

// Get returns one reminder
func (h *ReminderHandler) Get(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	reminder, err := h.reminders.Get(c.Request.Context(), tctx, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}

// Update updates a reminder
func (h *ReminderHandler) Update(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reminder, err := h.reminders.Update(c.Request.Context(), tctx, id, input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}

// Delete deletes a reminder
func (h *ReminderHandler) Delete(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.reminders.Delete(c.Request.Context(), tctx, id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reminder deleted"})
}

// MarkHandled acknowledges a sent reminder.
func (h *ReminderHandler) MarkHandled(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	reminder, err := h.reminders.MarkHandled(c.Request.Context(), tctx, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}
