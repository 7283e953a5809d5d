// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the sync client runtime.
//
// It wires the cloud sync manager to the local config file, runs an initial
// sync and then keeps the file watcher and the periodic sync job running
// until the process is signalled.
package client
