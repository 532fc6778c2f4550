package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"contract-service/internal/models"
	"contract-service/internal/tenant"
)

// ReminderRepository handles reminder database operations
type ReminderRepository interface {
	Create(ctx context.Context, tctx tenant.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Reminder, error)
	List(ctx context.Context, tctx tenant.Context, filters ReminderFilters) ([]models.Reminder, int64, error)
	// Update saves the reminder. When recipients is non-nil the recipient
	// rows are replaced wholesale (delete-all, recreate) in the same
	// transaction; they are never diffed.
	Update(ctx context.Context, tctx tenant.Context, reminder *models.Reminder, recipients []models.ReminderRecipient) error
	Delete(ctx context.Context, tctx tenant.Context, id uuid.UUID) error

	// GetDue returns reminders with status PENDING whose trigger datetime
	// is at or before now. The sweeper calls it with the privileged system
	// context to see all tenants.
	GetDue(ctx context.Context, tctx tenant.Context, now time.Time, limit int) ([]models.Reminder, error)

	// ClaimPending atomically moves PENDING -> DISPATCHING and reports
	// whether this caller won the claim. A false result means another
	// dispatch already advanced the reminder; that is a no-op, not an error.
	ClaimPending(ctx context.Context, id uuid.UUID) (bool, error)

	// ReleaseStale returns DISPATCHING rows claimed before the cutoff to
	// PENDING. A claim that old belongs to a dispatcher that crashed or
	// lost its terminal write; without this the reminder is stranded,
	// since GetDue only ever selects PENDING.
	ReleaseStale(ctx context.Context, before time.Time) (int64, error)

	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	MarkHandled(ctx context.Context, tctx tenant.Context, id uuid.UUID, by uuid.UUID) error
}

// ReminderFilters for listing reminders
type ReminderFilters struct {
	ContractID string
	Status     string
	DueBefore  *time.Time
	Limit      int
	Offset     int
}

type reminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) Create(ctx context.Context, tctx tenant.Context, reminder *models.Reminder) error {
	// Reminder and its recipient rows are written atomically.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(reminder).Error
	})
}

func (r *reminderRepository) GetByID(ctx context.Context, tctx tenant.Context, id uuid.UUID) (*models.Reminder, error) {
	var reminder models.Reminder
	err := tctx.Scope(r.db.WithContext(ctx)).
		Preload("Recipients").
		Where("id = ?", id).
		First(&reminder).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reminder, nil
}

func (r *reminderRepository) List(ctx context.Context, tctx tenant.Context, filters ReminderFilters) ([]models.Reminder, int64, error) {
	var reminders []models.Reminder
	var total int64

	query := tctx.Scope(r.db.WithContext(ctx).Model(&models.Reminder{}))

	if filters.ContractID != "" {
		query = query.Where("contract_id = ?", filters.ContractID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.DueBefore != nil {
		query = query.Where("trigger_datetime IS NOT NULL AND trigger_datetime <= ?", filters.DueBefore)
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

	err := query.Preload("Recipients").
		Order("trigger_datetime ASC NULLS LAST").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&reminders).Error

	return reminders, total, err
}

func (r *reminderRepository) Update(ctx context.Context, tctx tenant.Context, reminder *models.Reminder, recipients []models.ReminderRecipient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tctx.Scope(tx).Omit("Recipients").Save(reminder).Error; err != nil {
			return err
		}
		if recipients == nil {
			return nil
		}
		if err := tx.Where("reminder_id = ?", reminder.ID).Delete(&models.ReminderRecipient{}).Error; err != nil {
			return err
		}
		for i := range recipients {
			recipients[i].ID = uuid.Nil
			recipients[i].ReminderID = reminder.ID
		}
		if len(recipients) > 0 {
			if err := tx.Create(&recipients).Error; err != nil {
				return err
			}
		}
		reminder.Recipients = recipients
		return nil
	})
}

func (r *reminderRepository) Delete(ctx context.Context, tctx tenant.Context, id uuid.UUID) error {
	return tctx.Scope(r.db.WithContext(ctx)).Delete(&models.Reminder{}, "id = ?", id).Error
}

func (r *reminderRepository) GetDue(ctx context.Context, tctx tenant.Context, now time.Time, limit int) ([]models.Reminder, error) {
	var reminders []models.Reminder
	query := tctx.Scope(r.db.WithContext(ctx)).
		Where("status = ? AND trigger_datetime IS NOT NULL AND trigger_datetime <= ?", models.ReminderPending, now).
		Order("trigger_datetime ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&reminders).Error
	return reminders, err
}

func (r *reminderRepository) ClaimPending(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Reminder{}).
		Where("id = ? AND status = ?", id, models.ReminderPending).
		Updates(map[string]interface{}{
			"status":     models.ReminderDispatching,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reminderRepository) ReleaseStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Reminder{}).
		Where("status = ? AND updated_at < ?", models.ReminderDispatching, before).
		Updates(map[string]interface{}{
			"status":     models.ReminderPending,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *reminderRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.ReminderSent,
			"sent_at":    at,
			"updated_at": time.Now(),
		}).Error
}

func (r *reminderRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.ReminderFailed,
			"updated_at": time.Now(),
		}).Error
}

func (r *reminderRepository) MarkHandled(ctx context.Context, tctx tenant.Context, id uuid.UUID, by uuid.UUID) error {
	now := time.Now()
	res := tctx.Scope(r.db.WithContext(ctx).Model(&models.Reminder{})).
		Where("id = ? AND status = ?", id, models.ReminderSent).
		Updates(map[string]interface{}{
			"status":     models.ReminderHandled,
			"handled_at": now,
			"handled_by": by,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
