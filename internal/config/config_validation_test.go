package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validClientConfig() *ClientConfig {
	cfg := NewClientConfig(defaults())
	cfg.App.UserID = "alice"
	cfg.App.HashKey = "secret"
	cfg.Adapter.HTTPAddress = "http://localhost:8080"
	cfg.Storage.ConfigFile = "/tmp/app.json"
	return cfg
}

func validServerConfig() *ServerConfig {
	cfg := NewServerConfig(defaults())
	cfg.App.TokenSignKey = "sign"
	cfg.App.HashKey = "secret"
	cfg.Storage.DSN = "file::memory:?cache=shared"
	return cfg
}

// ── ClientConfig ──────────────────────────────────────────────────────────────

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ClientConfig)
		wantErr error
	}{
		{name: "valid", mutate: func(c *ClientConfig) {}},
		{name: "missing user", mutate: func(c *ClientConfig) { c.App.UserID = "" }, wantErr: ErrInvalidAppConfigs},
		{name: "missing hash key", mutate: func(c *ClientConfig) { c.App.HashKey = "" }, wantErr: ErrInvalidAppConfigs},
		{name: "missing remote", mutate: func(c *ClientConfig) { c.Adapter.HTTPAddress = "" }, wantErr: ErrInvalidAdapterConfigs},
		{name: "direct database", mutate: func(c *ClientConfig) { c.Adapter.HTTPAddress = ""; c.Storage.DSN = "file:confsync.db" }},
		{name: "zero timeout", mutate: func(c *ClientConfig) { c.Adapter.RequestTimeout = 0 }, wantErr: ErrInvalidAdapterConfigs},
		{name: "missing state dir", mutate: func(c *ClientConfig) { c.Storage.StateDir = "" }, wantErr: ErrInvalidStorageConfigs},
		{name: "missing config file", mutate: func(c *ClientConfig) { c.Storage.ConfigFile = "" }, wantErr: ErrInvalidStorageConfigs},
		{name: "zero sync interval", mutate: func(c *ClientConfig) { c.Workers.SyncInterval = 0 }, wantErr: ErrInvalidWorkerConfigs},
		{name: "unknown strategy", mutate: func(c *ClientConfig) { c.Sync.Strategy = "coin-flip" }, wantErr: ErrInvalidSyncConfigs},
		{name: "unknown array policy", mutate: func(c *ClientConfig) { c.Sync.ArrayMerge = "zip" }, wantErr: ErrInvalidSyncConfigs},
		{name: "negative queue", mutate: func(c *ClientConfig) { c.Sync.MaxQueueSize = -1 }, wantErr: ErrInvalidSyncConfigs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validClientConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewClientConfig_MapsFields(t *testing.T) {
	src := defaults()
	src.App.UserID = "bob"
	src.App.Encrypt = true
	src.Adapter.HTTPAddress = "http://remote"
	src.Storage.Local.ConfigFile = "/etc/app.json"
	src.Sync.LockFile = true
	src.Storage.DB.DSN = "postgres://localhost/confsync"

	cfg := NewClientConfig(src)

	assert.Equal(t, "bob", cfg.App.UserID)
	assert.True(t, cfg.App.Encrypt)
	assert.Equal(t, "http://remote", cfg.Adapter.HTTPAddress)
	assert.Equal(t, DefaultRequestTimeout, cfg.Adapter.RequestTimeout)
	assert.Equal(t, "/etc/app.json", cfg.Storage.ConfigFile)
	assert.Equal(t, DefaultStateDir, cfg.Storage.StateDir)
	assert.True(t, cfg.Sync.LockFile)
	assert.Equal(t, "postgres://localhost/confsync", cfg.Storage.DSN)
	assert.Equal(t, DefaultMaxQueueSize, cfg.Sync.MaxQueueSize)
	assert.Equal(t, time.Second, cfg.Sync.TimestampTolerance)
}

// ── ServerConfig ──────────────────────────────────────────────────────────────

func TestServerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ServerConfig)
		wantErr error
	}{
		{name: "valid", mutate: func(c *ServerConfig) {}},
		{name: "missing sign key", mutate: func(c *ServerConfig) { c.App.TokenSignKey = "" }, wantErr: ErrInvalidAppConfigs},
		{name: "missing hash key", mutate: func(c *ServerConfig) { c.App.HashKey = "" }, wantErr: ErrInvalidAppConfigs},
		{name: "missing dsn", mutate: func(c *ServerConfig) { c.Storage.DSN = "" }, wantErr: ErrInvalidStorageConfigs},
		{name: "missing address", mutate: func(c *ServerConfig) { c.Server.HTTPAddress = "" }, wantErr: ErrInvalidServerConfigs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validServerConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ── StructuredConfig ──────────────────────────────────────────────────────────

func TestStructuredConfig_Validate_RejectsUnknownStrategy(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{Sync: Sync{Strategy: "nope"}})

	_, err := b.build()

	assert.ErrorIs(t, err, ErrInvalidSyncConfigs)
}
