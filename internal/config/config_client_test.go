// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klpod221/kerminal-sub001/models"
)

func minimalConfig() *StructuredConfig {
	return &StructuredConfig{
		App:     App{MasterPassword: "pw"},
		Storage: Storage{DataDir: "/data"},
		Remote:  Remote{DSN: "/share/mirror.db"},
	}
}

func TestNewClientConfig_Defaults(t *testing.T) {
	cfg, err := NewClientConfig(minimalConfig())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/data", "vault.json"), cfg.App.VaultPath)
	assert.Equal(t, DefaultCollections, cfg.Storage.Collections)
	assert.Equal(t, DefaultRetainDays, cfg.Storage.RetainDays)
	assert.Equal(t, DefaultRemoteDriver, cfg.Remote.Driver)
	assert.Equal(t, models.SyncSettings{
		IsActive:            true,
		AutoSyncEnabled:     true,
		SyncIntervalMinutes: DefaultIntervalMinutes,
		ConflictStrategy:    models.LastWriteWins,
		SyncDirection:       models.SyncBoth,
	}, cfg.Sync)
	assert.Equal(t, filepath.Join("/data", "logs", "kerminal-sync.log"), cfg.Log.File)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultCleanupInterval, cfg.Workers.CleanupInterval)
	assert.False(t, cfg.RunOnce)
}

func TestNewClientConfig_DefaultCollectionsAreCopied(t *testing.T) {
	cfg, err := NewClientConfig(minimalConfig())
	require.NoError(t, err)

	cfg.Storage.Collections[0] = "changed"
	assert.Equal(t, "ssh_profiles", DefaultCollections[0])
}

func TestNewClientConfig_MapsSync(t *testing.T) {
	src := minimalConfig()
	src.Sync = Sync{
		IsActive:         boolPtr(false),
		AutoSyncEnabled:  boolPtr(false),
		IntervalMinutes:  60,
		ConflictStrategy: "manual",
		Direction:        "PUSH",
	}

	cfg, err := NewClientConfig(src)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSettings{
		IsActive:            false,
		AutoSyncEnabled:     false,
		SyncIntervalMinutes: 60,
		ConflictStrategy:    models.Manual,
		SyncDirection:       models.SyncPush,
	}, cfg.Sync)
}

func TestNewClientConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *StructuredConfig)
		wantErr error
	}{
		{
			name:    "missing master password",
			mutate:  func(cfg *StructuredConfig) { cfg.App.MasterPassword = "" },
			wantErr: ErrInvalidAppConfigs,
		},
		{
			name:    "negative retention",
			mutate:  func(cfg *StructuredConfig) { cfg.Storage.RetainDays = -1 },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "duplicate collection",
			mutate:  func(cfg *StructuredConfig) { cfg.Storage.Collections = []string{"a", "b", "a"} },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "blank collection",
			mutate:  func(cfg *StructuredConfig) { cfg.Storage.Collections = []string{"a", " "} },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "missing dsn",
			mutate:  func(cfg *StructuredConfig) { cfg.Remote.DSN = "" },
			wantErr: ErrInvalidRemoteConfigs,
		},
		{
			name:    "negative pool",
			mutate:  func(cfg *StructuredConfig) { cfg.Remote.MaxOpenConns = -2 },
			wantErr: ErrInvalidRemoteConfigs,
		},
		{
			name:    "unknown strategy",
			mutate:  func(cfg *StructuredConfig) { cfg.Sync.ConflictStrategy = "CoinFlip" },
			wantErr: ErrInvalidSyncConfigs,
		},
		{
			name:    "unknown direction",
			mutate:  func(cfg *StructuredConfig) { cfg.Sync.Direction = "sideways" },
			wantErr: ErrInvalidSyncConfigs,
		},
		{
			name:    "interval out of range",
			mutate:  func(cfg *StructuredConfig) { cfg.Sync.IntervalMinutes = models.MaxSyncIntervalMinutes + 1 },
			wantErr: models.ErrInvalidSyncInterval,
		},
		{
			name:    "negative cleanup interval",
			mutate:  func(cfg *StructuredConfig) { cfg.Workers.CleanupInterval = -time.Second },
			wantErr: ErrInvalidWorkerConfigs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := minimalConfig()
			tt.mutate(src)

			_, err := NewClientConfig(src)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetClientConfig_FromEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	setEnvVars(t, map[string]string{
		"APP_MASTER_PASSWORD": "pw",
		"REMOTE_DSN":          filepath.Join(dir, "mirror.db"),
	})

	cfg, err := GetClientConfig([]string{"-data-dir", dir, "-once", "-conflict-strategy", "RemoteWins"})
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Storage.DataDir)
	assert.True(t, cfg.RunOnce)
	assert.Equal(t, models.RemoteWins, cfg.Sync.ConflictStrategy)
}

func TestGetClientConfig_PropagatesSourceErrors(t *testing.T) {
	clearEnvVars(t)

	_, err := GetClientConfig([]string{"-sync-interval", "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error get structured config")
}
