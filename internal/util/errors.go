package util

import "errors"

// Sentinel errors for the failure modes of a generation run
var (
	// ErrInvalidTrack indicates a library row failed validation (missing
	// tempo, unparsable key, bad cue points). Absorbed during index load.
	ErrInvalidTrack = errors.New("invalid track record")

	// ErrExhausted indicates no candidate satisfies the constraints even
	// after all tolerance escalations. Triggers degradation, not failure.
	ErrExhausted = errors.New("candidate pool exhausted")

	// ErrTimeout indicates the run exceeded its time budget
	ErrTimeout = errors.New("time budget exceeded")

	// ErrEmptyLibrary indicates zero valid tracks are available
	ErrEmptyLibrary = errors.New("empty library")

	// ErrPlanWrite indicates the atomic write of the plan outputs failed
	ErrPlanWrite = errors.New("plan write failed")

	// ErrLocked indicates another process holds the run lock
	ErrLocked = errors.New("metadata store locked by another run")

	// ErrInvalidConfig indicates configuration failed bounds validation
	ErrInvalidConfig = errors.New("invalid configuration")
)
