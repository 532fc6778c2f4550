package services

import "errors"

var (
	// ErrNotFound is returned when an entity does not exist or is outside
	// the caller's tenant scope.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor's role does not allow the
	// operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition is returned for disallowed status transitions,
	// e.g. marking a reminder handled before it was sent.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError describes a rejected write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
