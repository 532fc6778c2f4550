package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType is the typed discriminator of an in-app notification
type NotificationType string

const (
	NotificationContractCreated  NotificationType = "contract_created"
	NotificationContractExpiring NotificationType = "contract_expiring"
	NotificationReminderCreated  NotificationType = "reminder_created"
	NotificationReminderDue      NotificationType = "reminder_due"
)

// Notification is an in-app inbox row delivered to a company user.
// It is the persistence target of the IN_APP channel.
type Notification struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompanyID uuid.UUID `json:"companyId" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`

	Type      NotificationType `json:"type" gorm:"type:varchar(100);not null;index"`
	Title     string           `json:"title" gorm:"type:varchar(500);not null"`
	Message   string           `json:"message" gorm:"type:text"`
	ActionURL string           `json:"actionUrl" gorm:"type:varchar(2048)"`

	IsRead bool       `json:"isRead" gorm:"default:false;index"`
	ReadAt *time.Time `json:"readAt"`

	Metadata datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}

// MarkRead stamps the row as read.
func (n *Notification) MarkRead() {
	if n.IsRead {
		return
	}
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
}
