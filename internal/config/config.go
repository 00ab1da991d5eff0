// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the sync
// client. It aggregates all sub-configurations and is populated by merging
// values from environment variables, command-line flags, and an optional JSON
// file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds the device identity and the master password that unlocks
	// the vault.
	App App `envPrefix:"APP_"`

	// Storage holds the location and layout of the local collection files.
	Storage Storage `envPrefix:"STORAGE_"`

	// Remote holds the connection settings of the SQL mirror.
	Remote Remote `envPrefix:"REMOTE_"`

	// Sync holds the synchronisation policy.
	Sync Sync `envPrefix:"SYNC_"`

	// Log holds the rotated log file settings.
	Log Log `envPrefix:"LOG_"`

	// Workers holds configuration for background worker processes.
	Workers Workers `envPrefix:"WORKERS_"`

	// RunOnce makes the client run a single sync pass and exit.
	RunOnce bool `env:"RUN_ONCE"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

type App struct {
	// DeviceID is stamped into every local write. Empty means a generated
	// id persisted in the data directory.
	DeviceID string `env:"DEVICE_ID"`

	// MasterPassword unlocks the vault. It is deliberately not available
	// as a flag.
	MasterPassword string `env:"MASTER_PASSWORD"`
}

// Storage describes where collections live on disk.
type Storage struct {
	DataDir     string   `env:"DATA_DIR"`
	Collections []string `env:"COLLECTIONS" envSeparator:","`
	// RetainDays is the tombstone retention window used by the cleanup
	// worker.
	RetainDays int `env:"RETAIN_DAYS"`
}

// Remote describes the SQL mirror.
type Remote struct {
	// Driver is "pgx" (PostgreSQL) or "sqlite3".
	Driver       string `env:"DRIVER"`
	DSN          string `env:"DSN"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS"`
}

// Sync mirrors models.SyncSettings. The booleans are pointers so that an
// explicit false survives merging.
type Sync struct {
	IsActive         *bool  `env:"ACTIVE"`
	AutoSyncEnabled  *bool  `env:"AUTO"`
	IntervalMinutes  int    `env:"INTERVAL_MINUTES"`
	ConflictStrategy string `env:"CONFLICT_STRATEGY"`
	Direction        string `env:"DIRECTION"`
}

type Log struct {
	File       string `env:"FILE"`
	Level      string `env:"LEVEL"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB"`
	MaxBackups int    `env:"MAX_BACKUPS"`
}

type Workers struct {
	// CleanupInterval is how often tombstones are purged.
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL"`
}

// GetStructuredConfig loads env, flags (from args) and the optional JSON file
// and merges them into one [StructuredConfig].
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withJSON().
		build()
}
