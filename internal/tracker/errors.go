package tracker

import "errors"

var (
	// ErrNotInitialized is returned by mutating operations called before
	// Initialize.
	ErrNotInitialized = errors.New("offline tracker is not initialized")

	// ErrQueueLocked is returned by Initialize when another process holds
	// the queue file lock.
	ErrQueueLocked = errors.New("offline queue is locked by another process")

	// ErrClosed is returned by operations called after Close.
	ErrClosed = errors.New("offline tracker is closed")

	// ErrInvalidPath is returned when a change path cannot be applied.
	ErrInvalidPath = errors.New("invalid change path")
)
