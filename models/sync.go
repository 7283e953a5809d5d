package models

import "time"

// SyncType is the direction of a sync operation.
type SyncType string

const (
	SyncUpload        SyncType = "upload"
	SyncDownload      SyncType = "download"
	SyncBidirectional SyncType = "bidirectional"
)

// SyncStatus is the lifecycle status of a [SyncOperation].
type SyncStatus string

const (
	SyncStatusQueued    SyncStatus = "queued"
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
	SyncStatusCancelled SyncStatus = "cancelled"
)

// SyncOperation is a single sync attempt. At most one non-terminal operation
// exists per state manager at any time.
type SyncOperation struct {
	ID          string     `json:"id"`
	Type        SyncType   `json:"type"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      SyncStatus `json:"status"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// QueuedOperation is a sync request recorded while offline. Payload is what
// the entry point needs to replay it (for uploads and bidirectional syncs,
// the local configuration).
type QueuedOperation struct {
	ID       string    `json:"id"`
	Type     SyncType  `json:"type"`
	Payload  any       `json:"payload,omitempty"`
	QueuedAt time.Time `json:"queued_at"`
}
