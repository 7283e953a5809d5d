// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// Device is a registered participant in a user's sync group.
type Device struct {
	// DeviceID is stable across restarts of the same installation.
	DeviceID string `json:"device_id"`

	// UserID is the owner of the device.
	UserID string `json:"user_id"`

	// Name is a human-readable label, usually the host name.
	Name string `json:"name"`

	Platform PlatformInfo `json:"platform"`

	// LastSyncAt is nil until the first completed operation.
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`

	// LastSyncVersion is the remote version seen by the last operation.
	LastSyncVersion int64 `json:"last_sync_version"`

	Stats DeviceStats `json:"stats"`
}

// PlatformInfo describes the runtime a device runs on.
type PlatformInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Hostname      string `json:"hostname"`
	ClientVersion string `json:"client_version,omitempty"`
}

// DeviceStats counts completed operations per direction.
type DeviceStats struct {
	Uploads   int64 `json:"uploads"`
	Downloads int64 `json:"downloads"`
}

// DeviceStatsUpdate is an increment applied to a device after an operation.
type DeviceStatsUpdate struct {
	Uploads         int64     `json:"uploads"`
	Downloads       int64     `json:"downloads"`
	LastSyncAt      time.Time `json:"last_sync_at"`
	LastSyncVersion int64     `json:"last_sync_version"`
}
