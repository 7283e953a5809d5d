package service

import (
	"context"

	"github.com/MKhiriev/go-conf-sync/models"
)

// AuthService identifies remote store callers. Accounts are keyed by a
// caller-chosen user id and created on first contact.
type AuthService interface {
	GetOrCreateUser(ctx context.Context, userID string) (models.User, error)
	CreateToken(ctx context.Context, user models.User) (models.Token, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

// RecordService serves the live configuration record and its history.
type RecordService interface {
	// GetRecord returns nil and no error when the user has no record yet.
	GetRecord(ctx context.Context, userID string) (*models.RemoteConfigRecord, error)

	// PutRecord stores record if its version is exactly the stored version
	// plus one; otherwise it fails with store.ErrVersionConflict.
	PutRecord(ctx context.Context, userID string, record models.RemoteConfigRecord) error

	AppendHistoryEntry(ctx context.Context, userID string, entry models.HistoryEntry) error
	GetHistory(ctx context.Context, userID string, opts models.HistoryOptions) ([]models.HistoryEntry, error)
}

// DeviceService manages the devices of a user's sync group.
type DeviceService interface {
	RegisterDevice(ctx context.Context, device models.Device) (models.Device, error)
	UpdateDeviceStats(ctx context.Context, userID, deviceID string, update models.DeviceStatsUpdate) error
	ListDevices(ctx context.Context, userID string) ([]models.Device, error)
}

type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}

// RecordServiceWrapper defines middleware composition for RecordService.
// Implementations wrap an existing RecordService to add behavior such as
// logging or validating.
type RecordServiceWrapper interface {
	Wrap(RecordService) RecordService
}

// DeviceServiceWrapper is the [DeviceService] counterpart of
// [RecordServiceWrapper].
type DeviceServiceWrapper interface {
	Wrap(DeviceService) DeviceService
}
