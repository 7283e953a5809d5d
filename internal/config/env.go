// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv fills cfg from the process environment. Client and server read
// the same variable set, grouped by prefix (APP_, SYNC_, STORAGE_DB_,
// STORAGE_LOCAL_, SERVER_, ADAPTER_, WORKERS_). Unset variables leave the
// field untouched, so values loaded from .env survive.
func parseEnv(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("read go-conf-sync environment: %w", err)
	}
	return nil
}
