package model

import "errors"

// Sentinel kinds for observation validation.
var (
	ErrMissingParticipant = errors.New("missing participant id")
	ErrMissingActivityID  = errors.New("missing external activity id")
	ErrInvalidStart       = errors.New("invalid activity start timestamp")
	ErrMissingSegment     = errors.New("missing segment id")
	ErrInvalidElapsed     = errors.New("missing or invalid elapsed time")
)
