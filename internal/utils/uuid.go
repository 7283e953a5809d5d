package utils

import "github.com/google/uuid"

// NewID issues a time-ordered identifier for changes, operations, history
// entries, devices and trace ids. It returns a UUIDv7, falling back to a
// random UUIDv4 when the clock source fails.
func NewID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
