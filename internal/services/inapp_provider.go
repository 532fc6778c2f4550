package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"contract-service/internal/models"
	"contract-service/internal/repository"
)

// InAppPayload is the structured content of an in-app notification.
type InAppPayload struct {
	Type      models.NotificationType
	Title     string
	Message   string
	ActionURL string
	Metadata  map[string]interface{}
}

// InAppProvider delivers notifications to a user's in-app inbox by
// persisting notification rows.
type InAppProvider struct {
	notifications repository.NotificationRepository
}

// NewInAppProvider creates a new in-app notification provider
func NewInAppProvider(notifications repository.NotificationRepository) *InAppProvider {
	return &InAppProvider{notifications: notifications}
}

// Deliver writes one inbox row for the user.
func (p *InAppProvider) Deliver(ctx context.Context, companyID, userID uuid.UUID, payload InAppPayload) error {
	var metadata datatypes.JSON
	if payload.Metadata != nil {
		data, err := json.Marshal(payload.Metadata)
		if err != nil {
			return err
		}
		metadata = data
	}

	return p.notifications.Create(ctx, &models.Notification{
		CompanyID: companyID,
		UserID:    userID,
		Type:      payload.Type,
		Title:     payload.Title,
		Message:   payload.Message,
		ActionURL: payload.ActionURL,
		Metadata:  metadata,
	})
}
