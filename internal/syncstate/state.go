package syncstate

import "time"

// State is a sync state machine state.
type State string

const (
	StateIdle               State = "idle"
	StateSyncing            State = "syncing"
	StateUploading          State = "uploading"
	StateDownloading        State = "downloading"
	StateResolvingConflicts State = "resolving-conflicts"
	StateError              State = "error"
	StateOffline            State = "offline"
)

// Active reports whether an operation is in flight in s.
func (s State) Active() bool {
	switch s {
	case StateSyncing, StateUploading, StateDownloading, StateResolvingConflicts:
		return true
	default:
		return false
	}
}

// allowedFrom lists the states each phase transition may start from.
var allowedFrom = map[State][]State{
	StateDownloading:        {StateSyncing},
	StateUploading:          {StateSyncing, StateDownloading, StateResolvingConflicts},
	StateResolvingConflicts: {StateSyncing, StateDownloading},
}

func canTransition(from, to State) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Transition is a single state change, as delivered to observers and kept in
// the history ring.
type Transition struct {
	From        State     `json:"from"`
	To          State     `json:"to"`
	OperationID string    `json:"operation_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}

// Observer receives transitions synchronously, strictly in the order they
// happen. An observer may read the manager but must not drive transitions.
type Observer interface {
	OnTransition(Transition)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(Transition)

// OnTransition implements [Observer].
func (f ObserverFunc) OnTransition(t Transition) {
	f(t)
}

// Stats are informational counters.
type Stats struct {
	State       State      `json:"state"`
	Online      bool       `json:"online"`
	TotalSyncs  int        `json:"total_syncs"`
	Successful  int        `json:"successful"`
	Failed      int        `json:"failed"`
	QueueLength int        `json:"queue_length"`
	Evicted     int        `json:"evicted"`
	LastError   string     `json:"last_error,omitempty"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
}
