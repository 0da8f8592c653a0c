package sim

import "errors"

var (
	// ErrStaleBody wraps command failures against bodies removed before the
	// command was consumed
	ErrStaleBody = errors.New("command targets a removed body")
	// ErrNotFound is returned for handles that do not name a live entity
	ErrNotFound = errors.New("entity not found")
	// ErrInvalidShape rejects unknown shape kinds and non-positive scales
	ErrInvalidShape = errors.New("invalid shape")
	// ErrClosed is returned when submitting to a closed link
	ErrClosed = errors.New("link closed")
	// ErrQueueFull is returned by TrySubmitCommand when no slot is free
	ErrQueueFull = errors.New("command queue full")
)
