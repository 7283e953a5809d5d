// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"

	"github.com/MKhiriev/go-conf-sync/internal/resolver"
)

// validate checks the values that are set. Required fields are checked by
// the client and server views, since each runtime needs a different subset.
func (cfg *StructuredConfig) validate() error {
	return validateSync(cfg.Sync.Strategy, cfg.Sync.ArrayMerge, cfg.Sync.MaxChanges, cfg.Sync.MaxQueueSize, cfg.Sync.HistorySize)
}

func validateSync(strategy, arrayMerge string, maxChanges, maxQueue, historySize int) error {
	if strategy != "" && !resolver.Strategy(strategy).IsValid() {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidSyncConfigs, strategy)
	}
	if arrayMerge != "" && !resolver.ArrayMergePolicy(arrayMerge).IsValid() {
		return fmt.Errorf("%w: unknown array merge policy %q", ErrInvalidSyncConfigs, arrayMerge)
	}
	if maxChanges < 0 || maxQueue < 0 || historySize < 0 {
		return fmt.Errorf("%w: sizes must not be negative", ErrInvalidSyncConfigs)
	}
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.App.UserID == "" {
		return ErrInvalidAppConfigs
	}

	if cfg.App.HashKey == "" {
		return ErrInvalidAppConfigs
	}

	if (cfg.Adapter.HTTPAddress == "" && cfg.Storage.DSN == "") || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Storage.StateDir == "" || cfg.Storage.ConfigFile == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Workers.SyncInterval <= 0 || cfg.Workers.WatchInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	return validateSync(cfg.Sync.Strategy, cfg.Sync.ArrayMerge, cfg.Sync.MaxChanges, cfg.Sync.MaxQueueSize, cfg.Sync.HistorySize)
}

func (cfg *ServerConfig) validate() error {
	if cfg.App.TokenSignKey == "" || cfg.App.HashKey == "" || cfg.App.TokenDuration <= 0 {
		return ErrInvalidAppConfigs
	}

	if cfg.Storage.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Server.HTTPAddress == "" || cfg.Server.RequestTimeout <= 0 {
		return ErrInvalidServerConfigs
	}

	return nil
}
