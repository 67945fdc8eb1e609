package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrAlreadyLocked
	ErrNotLocked
	ErrLockExpired
	ErrTokenMismatch
	ErrInvalidState
	ErrInvalidTransition
	ErrNotViewed
	ErrUploadFailed
)
