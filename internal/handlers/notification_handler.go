package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"contract-service/internal/repository"
)

// NotificationHandler serves the in-app notification inbox. Every endpoint
// operates on the authenticated user's own notifications.
type NotificationHandler struct {
	notifications repository.NotificationRepository
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	filters := repository.NotificationFilters{
		UnreadOnly: c.Query("unreadOnly") == "true",
		Type:       c.Query("type"),
		Limit:      limit,
		Offset:     offset,
	}

	notifications, total, err := h.notifications.List(c.Request.Context(), tctx, tctx.UserID, filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	listResponse(c, notifications, total, limit, offset)
}

// UnreadCount returns the caller's unread notification count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}

	count, err := h.notifications.UnreadCount(c.Request.Context(), tctx, tctx.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead marks one of the caller's notifications read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), tctx, tctx.UserID, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

// MarkAllRead marks all of the caller's notifications read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	tctx, ok := requireTenant(c)
	if !ok {
		return
	}

	if err := h.notifications.MarkAllRead(c.Request.Context(), tctx, tctx.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked read"})
}
