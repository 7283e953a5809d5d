package store

import (
	"context"

	"github.com/MKhiriev/go-conf-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// UserRepository stores remote store accounts.
type UserRepository interface {
	// GetOrCreateUser inserts the user if missing and returns the stored row.
	GetOrCreateUser(ctx context.Context, userID string) (models.User, error)
}

// RecordRepository stores the single live configuration record per user.
type RecordRepository interface {
	// GetRecord returns [ErrRecordNotFound] when the user has no record.
	GetRecord(ctx context.Context, userID string) (models.RemoteConfigRecord, error)

	// PutRecord writes record if and only if record.Version is the stored
	// version plus one (1 for a first write). Otherwise it returns
	// [ErrVersionConflict] and writes nothing.
	PutRecord(ctx context.Context, record models.RemoteConfigRecord) error
}

// HistoryRepository stores immutable upload audit entries.
type HistoryRepository interface {
	AppendHistoryEntry(ctx context.Context, entry models.HistoryEntry) error

	// GetHistory returns entries newest first.
	GetHistory(ctx context.Context, userID string, opts models.HistoryOptions) ([]models.HistoryEntry, error)
}

// DeviceRepository stores the devices of a user's sync group.
type DeviceRepository interface {
	// RegisterDevice upserts device, keeping existing counters.
	RegisterDevice(ctx context.Context, device models.Device) (models.Device, error)

	// UpdateDeviceStats returns [ErrDeviceNotFound] for unknown devices.
	UpdateDeviceStats(ctx context.Context, userID, deviceID string, update models.DeviceStatsUpdate) error

	ListDevices(ctx context.Context, userID string) ([]models.Device, error)
}

// ErrorClassificator decides whether a database error is worth retrying.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
