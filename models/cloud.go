package models

import "time"

// SyncAction names what a bidirectional sync ended up doing.
type SyncAction string

const (
	SyncActionUploaded   SyncAction = "uploaded"
	SyncActionDownloaded SyncAction = "downloaded"
	SyncActionMerged     SyncAction = "merged"
	SyncActionConflict   SyncAction = "conflict"
	SyncActionInSync     SyncAction = "in-sync"
	SyncActionQueued     SyncAction = "queued"
)

// SyncForce pins a bidirectional sync to one direction.
type SyncForce string

const (
	ForceNone     SyncForce = ""
	ForceUpload   SyncForce = "upload"
	ForceDownload SyncForce = "download"
)

// UploadOptions tune a single upload.
type UploadOptions struct {
	// ChangedPaths is recorded in the history entry. When empty the paths
	// of the pending tracker entries are used.
	ChangedPaths []string `json:"changed_paths,omitempty"`
}

// UploadResult is returned by an upload. Queued is set when the device was
// offline and the upload was deferred.
type UploadResult struct {
	Success     bool   `json:"success"`
	Queued      bool   `json:"queued,omitempty"`
	OperationID string `json:"operation_id"`
	Version     int64  `json:"version"`
	Size        int64  `json:"size"`
	Encrypted   bool   `json:"encrypted"`
}

// DownloadOptions tune a single download.
type DownloadOptions struct {
	// ApplyPending replays unsynced local changes on top of the downloaded
	// configuration.
	ApplyPending bool `json:"apply_pending,omitempty"`
}

// DownloadResult is returned by a download. A missing remote record is a
// success with a nil Config and Version 0.
type DownloadResult struct {
	Success        bool      `json:"success"`
	Queued         bool      `json:"queued,omitempty"`
	OperationID    string    `json:"operation_id"`
	Config         Config    `json:"config"`
	Version        int64     `json:"version"`
	LastModified   time.Time `json:"last_modified,omitempty"`
	LastModifiedBy string    `json:"last_modified_by,omitempty"`
	Encrypted      bool      `json:"encrypted"`
}

// SyncOptions tune a bidirectional sync.
type SyncOptions struct {
	Force SyncForce `json:"force,omitempty"`
}

// SyncResult is returned by a bidirectional sync. A conflict that needs
// manual resolution is reported with Success false and Action conflict; it
// is not an error.
type SyncResult struct {
	Success     bool       `json:"success"`
	Action      SyncAction `json:"action"`
	OperationID string     `json:"operation_id"`
	Version     int64      `json:"version"`

	// Config is the configuration both sides hold after the sync.
	Config Config `json:"config,omitempty"`

	Conflicts     []Conflict `json:"conflicts,omitempty"`
	ConflictCount int        `json:"conflict_count"`
	AutoResolved  int        `json:"auto_resolved"`

	// Resolved is the partially merged tree of a manual conflict.
	Resolved Config `json:"resolved,omitempty"`

	Message string `json:"message,omitempty"`
}
