package models

import "errors"

// Domain errors shared by services and handlers.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTask         = errors.New("invalid task")
	ErrMissingParams       = errors.New("missing params")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTransition   = errors.New("invalid status transition")

	// ErrStore wraps any datastore failure; ErrStoreTimeout is the retryable subset.
	ErrStore        = errors.New("store error")
	ErrStoreTimeout = errors.New("store timeout")
)
