package service

import "errors"

// Common errors used across the service.
var (
	// ErrNotStarted is returned when an operation arrives before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrInvalidObservation is returned when a submitted observation
	// fails validation. The underlying field error is wrapped.
	ErrInvalidObservation = errors.New("invalid observation")
)
