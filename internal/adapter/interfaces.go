// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the client's view of the remote store that holds
// each user's configuration record, its history and the registered devices.
//
// The primary abstraction is [RemoteStore], which decouples the sync service
// from the underlying protocol. The package ships an HTTP/REST implementation
// ([NewHTTPRemoteStore]) and an in-process one ([NewMemoryRemoteStore]) used
// for local mode and tests.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic error
// handling (e.g. [ErrVersionConflict] for 409, [ErrUnauthorized] for 401).
package adapter

import (
	"context"

	"github.com/MKhiriev/go-conf-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_store_mock.go -package=mock

// RemoteStore is the remote storage collaborator of the sync service.
// Implementations are responsible for serialisation, authentication and
// mapping transport-level errors to the sentinel values of this package.
type RemoteStore interface {
	// GetOrCreateUser makes sure an account exists for userID and returns it.
	GetOrCreateUser(ctx context.Context, userID string) (models.User, error)

	// GetUserRecord returns the live configuration record of userID, or nil
	// (and no error) when nothing was uploaded yet.
	GetUserRecord(ctx context.Context, userID string) (*models.RemoteConfigRecord, error)

	// PutUserRecord atomically replaces the record of userID. It is a
	// compare-and-set on the version: record.Version must be exactly the
	// stored version plus one (1 when no record exists), otherwise
	// [ErrVersionConflict] is returned and nothing is written.
	PutUserRecord(ctx context.Context, userID string, record models.RemoteConfigRecord) error

	// AppendHistoryEntry stores an immutable audit entry.
	AppendHistoryEntry(ctx context.Context, userID string, entry models.HistoryEntry) error

	// GetHistory returns audit entries, newest first.
	GetHistory(ctx context.Context, userID string, opts models.HistoryOptions) ([]models.HistoryEntry, error)

	// RegisterDevice creates or refreshes a device. Existing stats are kept.
	RegisterDevice(ctx context.Context, device models.Device) (models.Device, error)

	// UpdateDeviceStats adds the counters of update to the device and records
	// its last sync. Returns [ErrNotFound] for an unknown device.
	UpdateDeviceStats(ctx context.Context, userID, deviceID string, update models.DeviceStatsUpdate) error

	// ListDevices returns every device of userID ordered by DeviceID.
	ListDevices(ctx context.Context, userID string) ([]models.Device, error)
}
