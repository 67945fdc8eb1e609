package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid workflow state")
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrNotViewed         = errors.New("version not viewed")
	ErrAlreadyLocked     = errors.New("version already locked")
	ErrNotLocked         = errors.New("version not locked by caller")
	ErrLockExpired       = errors.New("lock expired")
	ErrTokenMismatch     = errors.New("lock token mismatch")
	ErrTooMany           = errors.New("too many requests")
	ErrInternal          = errors.New("internal")
)

// AlreadyLockedError carries the holder details so callers can render
// "locked by X until Y" without a second round trip.
type AlreadyLockedError struct {
	HolderID   string
	HolderName string
	ExpiresAt  int64
}

func (e *AlreadyLockedError) Error() string {
	return fmt.Sprintf("version locked by %s until %d", e.HolderName, e.ExpiresAt)
}

func (e *AlreadyLockedError) Is(target error) bool {
	return target == ErrAlreadyLocked
}

// SaveConflictError is returned when a save carries a stale base hash. It
// includes the authoritative server state so the caller can offer the user
// "refresh" vs "force overwrite".
type SaveConflictError struct {
	ServerHash    string
	ServerContent string
}

func (e *SaveConflictError) Error() string {
	return fmt.Sprintf("content modified concurrently, server hash %s", e.ServerHash)
}

func (e *SaveConflictError) Is(target error) bool {
	return target == ErrConflict
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
