package tracker

import "github.com/MKhiriev/go-conf-sync/models"

// Event is a tracker notification kind.
type Event string

const (
	EventOnline  Event = "online"
	EventOffline Event = "offline"
	// EventEvicted is emitted when the capacity bound dropped the oldest
	// entries.
	EventEvicted Event = "evicted"
)

// Notification is delivered to observers.
type Notification struct {
	Event Event

	// Evicted holds the dropped entries for EventEvicted.
	Evicted []models.ChangeEntry
}

// Observer receives tracker notifications synchronously, in the order they
// occur. Observers must not call back into the tracker method that emitted
// the notification.
type Observer interface {
	OnTrackerEvent(Notification)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(Notification)

// OnTrackerEvent implements [Observer].
func (f ObserverFunc) OnTrackerEvent(n Notification) {
	f(n)
}
