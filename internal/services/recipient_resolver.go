package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contract-service/internal/models"
)

// ResolvedRecipient is one concrete delivery target. Exactly one of User or
// Email carries the address: User for internal recipients, Email for raw
// external addresses.
type ResolvedRecipient struct {
	Type  models.RecipientType
	User  *models.User
	Email string
}

// Address returns the email address deliveries go to.
func (r ResolvedRecipient) Address() string {
	if r.Type == models.RecipientUser && r.User != nil {
		return r.User.Email
	}
	return r.Email
}

// UserLookup is the slice of the user store the resolver needs.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RecipientResolver expands a reminder's abstract recipient rows into
// concrete delivery targets.
type RecipientResolver struct {
	users  UserLookup
	logger *logrus.Logger
}

// NewRecipientResolver creates a new recipient resolver
func NewRecipientResolver(users UserLookup, logger *logrus.Logger) *RecipientResolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RecipientResolver{users: users, logger: logger}
}

// Resolve expands the reminder's recipient list. USER rows with a broken or
// missing user reference are skipped silently; EXTERNAL rows are used
// verbatim with no existence validation. Recipients are not deduplicated:
// an address listed twice receives two deliveries.
func (r *RecipientResolver) Resolve(ctx context.Context, reminder *models.Reminder) ([]ResolvedRecipient, error) {
	resolved := make([]ResolvedRecipient, 0, len(reminder.Recipients))

	for _, recipient := range reminder.Recipients {
		switch recipient.RecipientType {
		case models.RecipientUser:
			if recipient.UserID == nil {
				continue
			}
			user, err := r.users.GetByID(ctx, *recipient.UserID)
			if err != nil {
				return nil, err
			}
			if user == nil {
				r.logger.WithFields(logrus.Fields{
					"reminder_id": reminder.ID,
					"user_id":     recipient.UserID,
				}).Debug("skipping recipient with missing user")
				continue
			}
			resolved = append(resolved, ResolvedRecipient{
				Type: models.RecipientUser,
				User: user,
			})
		case models.RecipientExternal:
			if recipient.Email == "" {
				continue
			}
			resolved = append(resolved, ResolvedRecipient{
				Type:  models.RecipientExternal,
				Email: recipient.Email,
			})
		}
	}

	return resolved, nil
}
