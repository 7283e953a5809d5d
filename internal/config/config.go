// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"os"
	"time"
)

// StructuredConfig is the top-level configuration container for the
// go-conf-sync client and remote store server. It aggregates all
// sub-configurations and is populated by merging values from a .env file,
// environment variables, command-line flags and an optional JSON or YAML
// file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds identity, security and versioning settings.
	App App `envPrefix:"APP_"`

	// Sync holds the tuning knobs of the sync engine (tracker, resolver and
	// state manager).
	Sync Sync `envPrefix:"SYNC_"`

	// Storage holds configuration for the server database and the client's
	// local state directory.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds network address and timeout settings for the remote store
	// HTTP server.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the client's view of the remote store server.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds the intervals of client background workers.
	Workers Workers `envPrefix:"WORKERS_"`

	// FilePath is the optional path to a JSON or YAML configuration file.
	// The format is chosen by extension (.yaml and .yml are YAML, anything
	// else is JSON).
	// Populated via the CONFIG environment variable or the -c / -config flag.
	FilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// TokenSignKey is the secret key used to sign and verify JWT tokens.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim embedded in every issued JWT token.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration specifies how long a JWT token remains valid.
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// HashKey is the HMAC key shared by client and server for record upload
	// integrity checking (the HashSHA256 header).
	// Env: APP_HASH_KEY
	HashKey string `env:"HASH_KEY"`

	// Version is the semantic version string of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION"`

	// UserID identifies the account whose configuration the client syncs.
	// Env: APP_USER_ID
	UserID string `env:"USER_ID"`

	// DeviceName overrides the host name as the device label.
	// Env: APP_DEVICE_NAME
	DeviceName string `env:"DEVICE_NAME"`

	// Encrypt enables end-to-end encryption of uploaded payloads.
	// Env: APP_ENCRYPT
	Encrypt bool `env:"ENCRYPT"`

	// Passphrase, when set, derives the encryption key instead of using a
	// random key stored in the state directory.
	// Env: APP_PASSPHRASE
	Passphrase string `env:"PASSPHRASE"`
}

// Sync holds sync engine settings.
type Sync struct {
	// Strategy is the conflict resolution strategy (remote-wins, local-wins,
	// most-recent, auto, merge, manual).
	// Env: SYNC_STRATEGY
	Strategy string `env:"STRATEGY"`

	// ArrayMerge is the array policy used by auto resolution (union, local,
	// remote).
	// Env: SYNC_ARRAY_MERGE
	ArrayMerge string `env:"ARRAY_MERGE"`

	// MaxChanges bounds the offline change queue.
	// Env: SYNC_MAX_CHANGES
	MaxChanges int `env:"MAX_CHANGES"`

	// FullSnapshot makes the tracker record whole-document replaces instead
	// of granular per-path changes.
	// Env: SYNC_FULL_SNAPSHOT
	FullSnapshot bool `env:"FULL_SNAPSHOT"`

	// LockFile takes a process-level lock on the offline queue file.
	// Env: SYNC_LOCK_FILE
	LockFile bool `env:"LOCK_FILE"`

	// MaxQueueSize bounds the offline operation queue of the state manager.
	// Env: SYNC_MAX_QUEUE_SIZE
	MaxQueueSize int `env:"MAX_QUEUE_SIZE"`

	// HistorySize bounds the in-memory operation history.
	// Env: SYNC_HISTORY_SIZE
	HistorySize int `env:"HISTORY_SIZE"`

	// TimestampTolerance is the window within which local and remote
	// modification times are considered equal.
	// Env: SYNC_TIMESTAMP_TOLERANCE
	TimestampTolerance time.Duration `env:"TIMESTAMP_TOLERANCE"`
}

// Storage groups the configuration for all storage backends.
type Storage struct {
	// DB holds the remote store database connection settings.
	DB DB `envPrefix:"DB_"`

	// Local holds client-side file locations.
	Local Local `envPrefix:"LOCAL_"`
}

// Server holds network and timeout settings for the inbound transport layer.
type Server struct {
	// HTTPAddress is the TCP address on which the HTTP server listens,
	// in "host:port" format (e.g. "0.0.0.0:8080").
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the maximum duration allowed for a single inbound
	// request before the server cancels it (e.g. "30s", "1m").
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// DB holds connection settings for the relational database backend.
type DB struct {
	// DSN is the Data Source Name. A "postgres://" or "postgresql://" DSN
	// selects PostgreSQL; anything else is opened with SQLite.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Local holds client file locations.
type Local struct {
	// StateDir holds the offline queue, key material and device identity.
	// Env: STORAGE_LOCAL_STATE_DIR
	StateDir string `env:"STATE_DIR"`

	// ConfigFile is the local configuration document kept in sync.
	// Env: STORAGE_LOCAL_CONFIG_FILE
	ConfigFile string `env:"CONFIG_FILE"`

	// LogFile is the client log destination.
	// Env: STORAGE_LOCAL_LOG_FILE
	LogFile string `env:"LOG_FILE"`
}

// Adapter holds the client's remote store connection settings.
type Adapter struct {
	// HTTPAddress is the base address of the remote store server.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds every remote call (e.g. "30s", "1m").
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds configuration for background worker processes.
type Workers struct {
	// SyncInterval is the period of the background sync job.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// WatchInterval is how often the local configuration file is polled.
	// Env: WORKERS_WATCH_INTERVAL
	WatchInterval time.Duration `env:"WATCH_INTERVAL"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources. For every field the first
// source that sets it wins:
//  1. Environment variables (after loading a .env file, if present)
//  2. Command-line flags
//  3. JSON or YAML file (path resolved from sources 1 and 2)
//  4. Built-in defaults
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withDotEnv(".env").
		withEnv().
		withFlags(os.Args[1:]).
		withFile().
		withDefaults().
		build()
}
