package email

import "errors"

var (
	// ErrInvalidResetURL indicates a password reset link that is not an
	// absolute http(s) URL.
	ErrInvalidResetURL = errors.New("invalid password reset url")

	// ErrEmptyBatch indicates SendBatch was called without messages.
	ErrEmptyBatch = errors.New("empty batch")
)
