package models

import "time"

// RootPath is the change path that addresses the whole document. A change
// with this path always has type [ChangeReplace].
const RootPath = "$root"

// ChangeType classifies a tracked local edit.
type ChangeType string

const (
	ChangeCreate  ChangeType = "create"
	ChangeUpdate  ChangeType = "update"
	ChangeDelete  ChangeType = "delete"
	ChangeReplace ChangeType = "replace"
)

// ChangeEntry is a single local edit queued by the offline tracker.
//
// Entries are kept in insertion order, which is also their causal order.
// Synced flips to true only after the remote store acknowledged an upload
// that contained the change.
type ChangeEntry struct {
	// ID is unique for the lifetime of the queue.
	ID string `json:"id"`

	Type ChangeType `json:"type"`

	// Path is a dot-separated key path into the configuration tree, built
	// with [JoinPath], or [RootPath] for a whole-document replace.
	Path string `json:"path"`

	// Value is the new value at Path. It is nil for deletes.
	Value any `json:"value,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	Synced    bool      `json:"synced"`
}
