package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNoMatch       = errors.New("no template matched")
	ErrUnavailable   = errors.New("upstream service unavailable")
	ErrInvalidConfig = errors.New("invalid configuration")
)
