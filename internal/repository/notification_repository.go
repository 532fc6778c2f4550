package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"contract-service/internal/cache"
	"contract-service/internal/models"
	"contract-service/internal/tenant"
)

// NotificationRepository handles in-app notification database operations
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, tctx tenant.Context, userID uuid.UUID, filters NotificationFilters) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, tctx tenant.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, tctx tenant.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, tctx tenant.Context, userID uuid.UUID) error
}

// NotificationFilters for listing notifications
type NotificationFilters struct {
	UnreadOnly bool
	Type       string
	Limit      int
	Offset     int
}

type notificationRepository struct {
	db    *gorm.DB
	cache *cache.NotificationCache
}

// NewNotificationRepository creates a new notification repository.
// The cache may be nil.
func NewNotificationRepository(db *gorm.DB, notifCache *cache.NotificationCache) NotificationRepository {
	return &notificationRepository{db: db, cache: notifCache}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return err
	}
	r.cache.InvalidateUnreadCount(ctx, notification.CompanyID, notification.UserID)
	return nil
}

func (r *notificationRepository) List(ctx context.Context, tctx tenant.Context, userID uuid.UUID, filters NotificationFilters) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	query := tctx.Scope(r.db.WithContext(ctx).Model(&models.Notification{})).
		Where("user_id = ?", userID)

	if filters.UnreadOnly {
		query = query.Where("is_read = false")
	}
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
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

	err := query.Order("created_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *notificationRepository) UnreadCount(ctx context.Context, tctx tenant.Context, userID uuid.UUID) (int64, error) {
	if tctx.CompanyID != nil {
		if count, err := r.cache.GetUnreadCount(ctx, *tctx.CompanyID, userID); err == nil {
			return count, nil
		}
	}

	var count int64
	err := tctx.Scope(r.db.WithContext(ctx).Model(&models.Notification{})).
		Where("user_id = ? AND is_read = false", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	if tctx.CompanyID != nil {
		r.cache.SetUnreadCount(ctx, *tctx.CompanyID, userID, count)
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, tctx tenant.Context, userID, id uuid.UUID) error {
	now := time.Now()
	res := tctx.Scope(r.db.WithContext(ctx).Model(&models.Notification{})).
		Where("id = ? AND user_id = ? AND is_read = false", id, userID).
		Updates(map[string]interface{}{
			"is_read":    true,
			"read_at":    now,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if tctx.CompanyID != nil {
		r.cache.InvalidateUnreadCount(ctx, *tctx.CompanyID, userID)
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, tctx tenant.Context, userID uuid.UUID) error {
	now := time.Now()
	err := tctx.Scope(r.db.WithContext(ctx).Model(&models.Notification{})).
		Where("user_id = ? AND is_read = false", userID).
		Updates(map[string]interface{}{
			"is_read":    true,
			"read_at":    now,
			"updated_at": now,
		}).Error
	if err != nil {
		return err
	}
	if tctx.CompanyID != nil {
		r.cache.InvalidateUnreadCount(ctx, *tctx.CompanyID, userID)
	}
	return nil
}
