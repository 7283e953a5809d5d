// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

// Client is a sync daemon for one user's configuration document.
type Client interface {
	// Run initializes cloud sync, keeps the local file and the remote store
	// in step until a shutdown signal arrives, then releases the key and
	// the offline queue.
	Run() error
}
