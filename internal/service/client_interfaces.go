package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/syncstate"
	"github.com/MKhiriev/go-conf-sync/internal/tracker"
	"github.com/MKhiriev/go-conf-sync/models"
)

// CloudSyncManager is the client-side contract for synchronising one user's
// configuration with the remote store. It is the only component that
// performs I/O; the change tracker, the conflict resolver and the sync state
// machine are composed behind it.
//
// Every method except Initialize returns [ErrNotInitialized] until
// Initialize succeeded, and again after Close.
type CloudSyncManager interface {
	// Initialize binds the manager to userID, loads the device identity and
	// (with encryption enabled) the key derived from passphrase, loads the
	// offline queue and registers the device with the remote store.
	// Registration failures are logged and retried on the next operation.
	Initialize(ctx context.Context, userID, passphrase string) error

	// Upload writes cfg as the next remote version. While offline the
	// upload is queued and the result has Queued set.
	Upload(ctx context.Context, cfg models.Config, opts models.UploadOptions) (models.UploadResult, error)

	// Download reads, decrypts and verifies the remote record. A missing
	// record is not an error. A hash mismatch fails with [ErrIntegrity].
	Download(ctx context.Context, opts models.DownloadOptions) (models.DownloadResult, error)

	// Sync reconciles local with the remote record: newer side wins outside
	// the timestamp tolerance, equal content is a no-op and everything else
	// goes through the conflict resolver.
	Sync(ctx context.Context, local models.Config, opts models.SyncOptions) (models.SyncResult, error)

	Status() CloudSyncStatus

	History(ctx context.Context, opts models.HistoryOptions) ([]models.HistoryEntry, error)
	Devices(ctx context.Context) ([]models.Device, error)

	// TrackLocalChange records the difference between previous and
	// current in the offline queue. A nil previous diffs against the last
	// tracked snapshot.
	TrackLocalChange(current, previous models.Config) ([]models.ChangeEntry, error)

	OfflineStats() (tracker.Stats, error)
	PendingChanges() ([]models.ChangeEntry, error)
	MarkChangesSynced(ids []string) (int, error)

	// SetOnlineStatus updates connectivity. Coming back online replays the
	// queued operations in order; their errors are joined and returned.
	SetOnlineStatus(ctx context.Context, online bool) error

	Close() error
}

// CloudSyncStatus is a point-in-time view of a [CloudSyncManager].
type CloudSyncStatus struct {
	Initialized bool   `json:"initialized"`
	UserID      string `json:"user_id,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
	Encrypted   bool   `json:"encrypted"`

	State   syncstate.State `json:"state"`
	Online  bool            `json:"online"`
	Syncing bool            `json:"syncing"`

	// CurrentOperation is set while an operation is in flight.
	CurrentOperation *models.SyncOperation `json:"current_operation,omitempty"`

	Sync    syncstate.Stats `json:"sync"`
	Offline tracker.Stats   `json:"offline"`
}

// ClientSyncJob defines the contract for a background worker that
// periodically syncs the local configuration with the remote store.
type ClientSyncJob interface {
	// Start launches the background sync goroutine. It syncs every interval,
	// defaulting to 5 minutes if interval is zero or negative. Any previously
	// running job is stopped before the new one begins.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the background goroutine to exit and blocks until it has
	// fully terminated.
	Stop()
}

// LocalConfigSource yields the current local configuration for a periodic
// sync and accepts the configuration a sync settled on.
type LocalConfigSource interface {
	Load(ctx context.Context) (models.Config, error)
	Store(ctx context.Context, cfg models.Config) error
}
