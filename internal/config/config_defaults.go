package config

import "time"

// Default values applied to fields no other source sets.
const (
	DefaultTokenIssuer        = "go-conf-sync"
	DefaultTokenDuration      = 24 * time.Hour
	DefaultHTTPAddress        = "localhost:8080"
	DefaultRequestTimeout     = 30 * time.Second
	DefaultStrategy           = "auto"
	DefaultArrayMerge         = "union"
	DefaultMaxChanges         = 1000
	DefaultMaxQueueSize       = 100
	DefaultHistorySize        = 50
	DefaultTimestampTolerance = time.Second
	DefaultStateDir           = ".confsync"
	DefaultSyncInterval       = 5 * time.Minute
	DefaultWatchInterval      = 2 * time.Second
)

func defaults() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			TokenIssuer:   DefaultTokenIssuer,
			TokenDuration: DefaultTokenDuration,
		},
		Sync: Sync{
			Strategy:           DefaultStrategy,
			ArrayMerge:         DefaultArrayMerge,
			MaxChanges:         DefaultMaxChanges,
			MaxQueueSize:       DefaultMaxQueueSize,
			HistorySize:        DefaultHistorySize,
			TimestampTolerance: DefaultTimestampTolerance,
		},
		Storage: Storage{
			Local: Local{StateDir: DefaultStateDir},
		},
		Server: Server{
			HTTPAddress:    DefaultHTTPAddress,
			RequestTimeout: DefaultRequestTimeout,
		},
		Adapter: Adapter{
			RequestTimeout: DefaultRequestTimeout,
		},
		Workers: Workers{
			SyncInterval:  DefaultSyncInterval,
			WatchInterval: DefaultWatchInterval,
		},
	}
}
