package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klpod221/kerminal-sub001/models"
)

// Defaults applied by [GetClientConfig] to fields no source has set.
const (
	DefaultRetainDays      = 30
	DefaultRemoteDriver    = "sqlite3"
	DefaultIntervalMinutes = 5
	DefaultLogLevel        = "info"
	DefaultCleanupInterval = 24 * time.Hour
)

// DefaultCollections are synchronised when none are configured.
var DefaultCollections = []string{
	"ssh_profiles",
	"ssh_groups",
	"ssh_keys",
	"ssh_tunnels",
	"saved_commands",
}

// ClientApp holds client-side application settings.
type ClientApp struct {
	DeviceID       string
	MasterPassword string
	// VaultPath is the wrapped-key file, always inside the data directory.
	VaultPath string
}

// ClientStorage is consumed by store.NewClientStorages.
type ClientStorage struct {
	DataDir     string
	Collections []string
	RetainDays  int
}

// ClientRemote is consumed by adapter.OpenSQLRemote.
type ClientRemote struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

type ClientLog struct {
	File       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	CleanupInterval time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	App     ClientApp
	Storage ClientStorage
	Remote  ClientRemote
	Sync    models.SyncSettings
	Log     ClientLog
	Workers ClientWorkers
	RunOnce bool
}

// GetClientConfig builds and validates the client config from env, args and
// the optional JSON file.
func GetClientConfig(args []string) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	return NewClientConfig(cfg)
}

// NewClientConfig maps a merged [StructuredConfig] to a [ClientConfig],
// filling defaults, and validates the result.
func NewClientConfig(cfg *StructuredConfig) (*ClientConfig, error) {
	dataDir := cfg.Storage.DataDir
	if dataDir == "" {
		dataDir = defaultDataDir()
	}

	collections := cfg.Storage.Collections
	if len(collections) == 0 {
		collections = DefaultCollections
	}

	retainDays := cfg.Storage.RetainDays
	if retainDays == 0 {
		retainDays = DefaultRetainDays
	}

	driver := cfg.Remote.Driver
	if driver == "" {
		driver = DefaultRemoteDriver
	}

	sync, err := newSyncSettings(cfg.Sync)
	if err != nil {
		return nil, err
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(dataDir, "logs", "kerminal-sync.log")
	}
	logLevel := cfg.Log.Level
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	cleanup := cfg.Workers.CleanupInterval
	if cleanup == 0 {
		cleanup = DefaultCleanupInterval
	}

	clientCfg := &ClientConfig{
		App: ClientApp{
			DeviceID:       cfg.App.DeviceID,
			MasterPassword: cfg.App.MasterPassword,
			VaultPath:      filepath.Join(dataDir, "vault.json"),
		},
		Storage: ClientStorage{
			DataDir:     dataDir,
			Collections: append([]string(nil), collections...),
			RetainDays:  retainDays,
		},
		Remote: ClientRemote{
			Driver:       driver,
			DSN:          cfg.Remote.DSN,
			MaxOpenConns: cfg.Remote.MaxOpenConns,
		},
		Sync: sync,
		Log: ClientLog{
			File:       logFile,
			Level:      logLevel,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		},
		Workers: ClientWorkers{CleanupInterval: cleanup},
		RunOnce: cfg.RunOnce,
	}

	return clientCfg, clientCfg.validate()
}

func newSyncSettings(s Sync) (models.SyncSettings, error) {
	settings := models.SyncSettings{
		IsActive:            boolOr(s.IsActive, true),
		AutoSyncEnabled:     boolOr(s.AutoSyncEnabled, true),
		SyncIntervalMinutes: s.IntervalMinutes,
		ConflictStrategy:    models.LastWriteWins,
		SyncDirection:       models.SyncBoth,
	}
	if settings.SyncIntervalMinutes == 0 {
		settings.SyncIntervalMinutes = DefaultIntervalMinutes
	}

	if s.ConflictStrategy != "" {
		strategy, err := models.ParseStrategy(s.ConflictStrategy)
		if err != nil {
			return models.SyncSettings{}, fmt.Errorf("%w: %w", ErrInvalidSyncConfigs, err)
		}
		settings.ConflictStrategy = strategy
	}

	direction, err := models.ParseSyncDirection(s.Direction)
	if err != nil {
		return models.SyncSettings{}, fmt.Errorf("%w: %w", ErrInvalidSyncConfigs, err)
	}
	settings.SyncDirection = direction

	return settings, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "kerminal", "sync")
	}
	return ".kerminal-sync"
}
