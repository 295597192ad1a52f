package errors

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNotFound            = errors.New("issue not found")
	ErrForbidden           = errors.New("actor is not the ward administrator")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrStoreConflict       = errors.New("concurrent update conflict")
	ErrIdempotencyConflict = errors.New("idempotency key reused with different request")
)
