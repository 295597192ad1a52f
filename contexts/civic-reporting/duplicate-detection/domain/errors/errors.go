package errors

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	ErrEmbeddingRateLimited = errors.New("embedding provider rate limited")
)
