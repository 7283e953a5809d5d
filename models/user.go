package models

import "time"

// User is the remote account that owns a configuration record, its history
// and its devices. Only the identity shape is modelled here.
type User struct {
	// UserID is the caller-chosen identifier of the account.
	UserID string `json:"user_id"`

	// CreatedAt is the time the account was first seen by the remote store.
	CreatedAt time.Time `json:"created_at"`
}
