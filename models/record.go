// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// RemoteConfigRecord is the single live configuration document stored for a
// user in the remote store.
//
// Version increases by exactly one on every successful upload. A missing
// record is equivalent to Version 0 ("no remote state yet").
type RemoteConfigRecord struct {
	// UserID is the owner of the record.
	UserID string `json:"user_id"`

	// Version is the monotonically increasing record version.
	Version int64 `json:"version"`

	// LastModified is the time the record was written.
	LastModified time.Time `json:"last_modified"`

	// LastModifiedBy is the DeviceID of the device that wrote the record.
	LastModifiedBy string `json:"last_modified_by"`

	// Payload is the serialized configuration, encrypted when Encryption is
	// non-nil.
	Payload []byte `json:"payload"`

	// Encryption carries the cipher metadata needed to decrypt Payload. It is
	// nil for plaintext records.
	Encryption *EncryptionInfo `json:"encryption,omitempty"`

	// ContentHash is the hex digest of the decrypted, serialized payload.
	ContentHash string `json:"content_hash"`

	// Size is the length of the plaintext payload in bytes.
	Size int64 `json:"size"`

	// Metadata holds free-form annotations (client version, platform).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Encrypted reports whether the record payload is ciphertext.
func (r RemoteConfigRecord) Encrypted() bool {
	return r.Encryption != nil
}

// EncryptionInfo describes how a record payload was encrypted.
type EncryptionInfo struct {
	Algorithm string `json:"algorithm"`
	IV        []byte `json:"iv"`
	AuthTag   []byte `json:"auth_tag"`
	KeyID     string `json:"key_id"`
}

// HistoryEntry is an immutable audit record appended after every successful
// upload.
type HistoryEntry struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	PreviousVersion int64     `json:"previous_version"`
	Version         int64     `json:"version"`
	DeviceID        string    `json:"device_id"`
	ChangedPaths    []string  `json:"changed_paths"`
	ContentHash     string    `json:"content_hash"`
	CreatedAt       time.Time `json:"created_at"`
}

// HistoryOptions narrows a history query. Zero values mean "no limit" and
// "from the beginning". Entries are returned newest first.
type HistoryOptions struct {
	Limit        int   `json:"limit,omitempty"`
	SinceVersion int64 `json:"since_version,omitempty"`
}
