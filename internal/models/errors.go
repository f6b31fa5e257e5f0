package models

import "errors"

// Error kinds shared by every layer. Callers match them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidState       = errors.New("invalid state")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation error")
	ErrDuplicate          = errors.New("already exists")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrDailyLimitExceeded = errors.New("daily report limit exceeded")
	ErrBackendUnavailable = errors.New("backend unavailable")
)
