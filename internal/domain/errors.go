package domain

import "errors"

// Domain validation and lifecycle errors. These are sentinels so callers can
// classify with errors.Is across package boundaries.
var (
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrUnknownMethod        = errors.New("unknown payment method")
)
