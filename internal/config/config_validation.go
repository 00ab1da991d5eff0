// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package config

import (
	"fmt"
	"strings"
)

// validate checks the defaulted [ClientConfig] before it is used at startup.
func (cfg *ClientConfig) validate() error {
	if cfg.App.MasterPassword == "" {
		return fmt.Errorf("%w: master password is required", ErrInvalidAppConfigs)
	}

	if cfg.Storage.RetainDays < 0 {
		return fmt.Errorf("%w: retain days %d", ErrInvalidStorageConfigs, cfg.Storage.RetainDays)
	}
	seen := make(map[string]struct{}, len(cfg.Storage.Collections))
	for _, name := range cfg.Storage.Collections {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty collection name", ErrInvalidStorageConfigs)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate collection %q", ErrInvalidStorageConfigs, name)
		}
		seen[name] = struct{}{}
	}

	if cfg.Remote.DSN == "" {
		return fmt.Errorf("%w: dsn is required", ErrInvalidRemoteConfigs)
	}
	if cfg.Remote.MaxOpenConns < 0 {
		return fmt.Errorf("%w: max open conns %d", ErrInvalidRemoteConfigs, cfg.Remote.MaxOpenConns)
	}

	if err := cfg.Sync.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSyncConfigs, err)
	}

	if cfg.Workers.CleanupInterval < 0 {
		return fmt.Errorf("%w: cleanup interval %s", ErrInvalidWorkerConfigs, cfg.Workers.CleanupInterval)
	}

	return nil
}
