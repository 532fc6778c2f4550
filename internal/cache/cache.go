package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// unreadTTL bounds staleness if an invalidation is ever missed.
const unreadTTL = 5 * time.Minute

// NotificationCache caches per-user unread counts in redis. All methods are
// safe to call on a nil receiver so the service runs without redis.
type NotificationCache struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewNotificationCache creates a new notification cache
func NewNotificationCache(client *redis.Client, logger *logrus.Logger) *NotificationCache {
	if client == nil {
		return nil
	}
	return &NotificationCache{client: client, logger: logger}
}

func unreadKey(companyID, userID uuid.UUID) string {
	return fmt.Sprintf("notifications:unread:%s:%s", companyID, userID)
}

// GetUnreadCount returns the cached count, or a miss error.
func (c *NotificationCache) GetUnreadCount(ctx context.Context, companyID, userID uuid.UUID) (int64, error) {
	if c == nil {
		return 0, redis.Nil
	}
	val, err := c.client.Get(ctx, unreadKey(companyID, userID)).Result()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// SetUnreadCount stores the count.
func (c *NotificationCache) SetUnreadCount(ctx context.Context, companyID, userID uuid.UUID, count int64) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, unreadKey(companyID, userID), count, unreadTTL).Err(); err != nil {
		c.logger.WithError(err).Debug("failed to cache unread count")
	}
}

// InvalidateUnreadCount drops the cached count after a write.
func (c *NotificationCache) InvalidateUnreadCount(ctx context.Context, companyID, userID uuid.UUID) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, unreadKey(companyID, userID)).Err(); err != nil {
		c.logger.WithError(err).Debug("failed to invalidate unread count")
	}
}
