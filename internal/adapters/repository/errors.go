package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrWeekNotFound    = errors.New("week not found")
	ErrResultNotFound  = errors.New("result not found")
	ErrSeasonNotFound  = errors.New("season not found")
	ErrSegmentNotFound = errors.New("segment not found")
)
