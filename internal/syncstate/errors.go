package syncstate

import (
	"errors"
	"fmt"
)

var (
	// ErrSyncInProgress is returned by StartSync while another operation is
	// active.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrIllegalState is matched by every *IllegalStateError.
	ErrIllegalState = errors.New("illegal state transition")
)

// IllegalStateError reports a transition method called from a state that
// does not permit it. It is a caller bug and must not be retried.
type IllegalStateError struct {
	Op   string
	From State
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("%s: cannot %s from state %q", ErrIllegalState, e.Op, e.From)
}

// Is makes errors.Is(err, ErrIllegalState) succeed.
func (e *IllegalStateError) Is(target error) bool {
	return target == ErrIllegalState
}
