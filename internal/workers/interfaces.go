// Package workers provides abstractions for managing and running
// background workers in the client.
// It defines the Worker interface and a Workers aggregate that runs
// multiple workers side by side until their context is cancelled.
package workers

import (
	"context"
	"time"

	"github.com/MKhiriev/go-conf-sync/models"
)

// Worker is the interface that must be implemented by any background worker.
// It defines a single Run method that starts the worker's execution.
//
// Implementations block until ctx is cancelled or their work is done.
//
// Example implementation:
//
//	type MyWorker struct{}
//
//	func (w *MyWorker) Run(ctx context.Context) {
//	    <-ctx.Done()
//	}
type Worker interface {
	Run(ctx context.Context)
}

// ChangeTracker receives local configuration edits.
type ChangeTracker interface {
	TrackLocalChange(current, previous models.Config) ([]models.ChangeEntry, error)
}

// SyncJob is a periodic sync that runs on its own goroutine.
type SyncJob interface {
	Start(ctx context.Context, interval time.Duration)
	Stop()
}
