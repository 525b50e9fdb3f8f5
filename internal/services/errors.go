package services

import "errors"

// Sentinel errors shared by every service. Handlers translate these into
// HTTP statuses, so services wrap them with fmt.Errorf("%w: ...") instead
// of inventing new ones.
var (
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnavailable        = errors.New("backend unavailable")
)
