package roamly_errors

import (
	"errors"
)

// Error kinds surfaced by the conversation core. Repositories translate
// storage-level failures into these; handlers map them to HTTP statuses.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotParticipant = errors.New("not a chat participant")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAlreadyExists  = errors.New("already exists")
	ErrRateLimited    = errors.New("rate limited")
)
