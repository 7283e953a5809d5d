package config

import (
	"fmt"
	"time"
)

// ClientApp holds client-side identity and security settings derived from
// the shared structured config.
type ClientApp struct {
	// HashKey is the HMAC key used by the client for payload integrity checks.
	HashKey string
	// UserID is the account whose configuration is synced.
	UserID string
	// DeviceName labels this installation; empty means the host name.
	DeviceName string
	// Encrypt turns on end-to-end payload encryption.
	Encrypt bool
	// Passphrase optionally derives the encryption key.
	Passphrase string
	// Version is reported in device platform info and record metadata.
	Version string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// HTTPAddress is the remote store base address.
	HTTPAddress string
	// RequestTimeout bounds every remote call.
	RequestTimeout time.Duration
}

// ClientSync contains sync engine tuning.
type ClientSync struct {
	Strategy           string
	ArrayMerge         string
	MaxChanges         int
	FullSnapshot       bool
	LockFile           bool
	MaxQueueSize       int
	HistorySize        int
	TimestampTolerance time.Duration
}

// ClientStorage groups client file locations.
type ClientStorage struct {
	// StateDir holds the offline queue, key and device files.
	StateDir string
	// ConfigFile is the local configuration document kept in sync.
	ConfigFile string
	// LogFile is the client log destination.
	LogFile string
	// DSN, when set and no remote address is configured, makes the client
	// talk to the remote store database directly.
	DSN string
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often the background sync job runs.
	SyncInterval time.Duration
	// WatchInterval defines how often the local config file is polled.
	WatchInterval time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	App     ClientApp
	Adapter ClientAdapter
	Sync    ClientSync
	Storage ClientStorage
	Workers ClientWorkers
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := NewClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

// NewClientConfig maps the fields relevant to the client runtime.
func NewClientConfig(cfg *StructuredConfig) *ClientConfig {
	return &ClientConfig{
		App: ClientApp{
			HashKey:    cfg.App.HashKey,
			UserID:     cfg.App.UserID,
			DeviceName: cfg.App.DeviceName,
			Encrypt:    cfg.App.Encrypt,
			Passphrase: cfg.App.Passphrase,
			Version:    cfg.App.Version,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Sync: ClientSync{
			Strategy:           cfg.Sync.Strategy,
			ArrayMerge:         cfg.Sync.ArrayMerge,
			MaxChanges:         cfg.Sync.MaxChanges,
			FullSnapshot:       cfg.Sync.FullSnapshot,
			LockFile:           cfg.Sync.LockFile,
			MaxQueueSize:       cfg.Sync.MaxQueueSize,
			HistorySize:        cfg.Sync.HistorySize,
			TimestampTolerance: cfg.Sync.TimestampTolerance,
		},
		Storage: ClientStorage{
			StateDir:   cfg.Storage.Local.StateDir,
			ConfigFile: cfg.Storage.Local.ConfigFile,
			LogFile:    cfg.Storage.Local.LogFile,
			DSN:        cfg.Storage.DB.DSN,
		},
		Workers: ClientWorkers{
			SyncInterval:  cfg.Workers.SyncInterval,
			WatchInterval: cfg.Workers.WatchInterval,
		},
	}
}
