package domain

import "errors"

var (
	// ErrNotFound is returned when a history entry or queue item id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned for a video status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid video status transition")
	// ErrNotRetryable is returned when a failed video cannot be retried.
	ErrNotRetryable = errors.New("video item is not retryable")
)
