package config

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// CollectionList is a comma separated list of collection names.
// It implements the flag.Value interface.
type CollectionList []string

func (l *CollectionList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

// Set splits s on commas, trimming blanks. Empty items are rejected.
func (l *CollectionList) Set(s string) error {
	var out []string
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			return fmt.Errorf("empty collection name in %q", s)
		}
		out = append(out, name)
	}
	*l = out
	return nil
}

// ParseFlags parses configuration flags from args (without the program
// name).
//
// Flags:
//
//	-device-id device identifier
//	-data-dir directory of the local collection files
//	-collections comma separated collection names
//	-retain-days tombstone retention in days
//	-remote-driver mirror driver (pgx or sqlite3)
//	-remote-dsn mirror DSN
//	-remote-max-conns mirror connection pool size
//	-sync-active enable synchronisation
//	-sync-auto enable the periodic sync job
//	-sync-interval auto sync period in minutes
//	-conflict-strategy LocalWins, RemoteWins, LastWriteWins, FirstWriteWins or Manual
//	-direction both, push or pull
//	-log-file log file path
//	-log-level log level
//	-cleanup-interval cleanup period (e.g., "24h")
//	-once run a single sync pass and exit
//	-c/-config json file path with configs
func ParseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("kerminal-sync", flag.ContinueOnError)

	var cfg StructuredConfig
	var collections CollectionList
	var syncActive, syncAuto bool
	var cleanupInterval time.Duration

	fs.StringVar(&cfg.App.DeviceID, "device-id", "", "Device identifier")
	fs.StringVar(&cfg.Storage.DataDir, "data-dir", "", "Local data directory")
	fs.Var(&collections, "collections", "Comma separated collection names")
	fs.IntVar(&cfg.Storage.RetainDays, "retain-days", 0, "Tombstone retention in days")
	fs.StringVar(&cfg.Remote.Driver, "remote-driver", "", "Mirror driver (pgx, sqlite3)")
	fs.StringVar(&cfg.Remote.DSN, "remote-dsn", "", "Mirror DSN")
	fs.IntVar(&cfg.Remote.MaxOpenConns, "remote-max-conns", 0, "Mirror connection pool size")
	fs.BoolVar(&syncActive, "sync-active", true, "Enable synchronisation")
	fs.BoolVar(&syncAuto, "sync-auto", true, "Enable periodic sync")
	fs.IntVar(&cfg.Sync.IntervalMinutes, "sync-interval", 0, "Auto sync period in minutes")
	fs.StringVar(&cfg.Sync.ConflictStrategy, "conflict-strategy", "", "Conflict resolution strategy")
	fs.StringVar(&cfg.Sync.Direction, "direction", "", "Sync direction (both, push, pull)")
	fs.StringVar(&cfg.Log.File, "log-file", "", "Log file path")
	fs.StringVar(&cfg.Log.Level, "log-level", "", "Log level")
	fs.DurationVar(&cleanupInterval, "cleanup-interval", 0, "Cleanup period (e.g., 24h)")
	fs.BoolVar(&cfg.RunOnce, "once", false, "Run a single sync pass and exit")
	fs.StringVar(&cfg.JSONFilePath, "c", "", "JSON config file path")
	fs.StringVar(&cfg.JSONFilePath, "config", "", "JSON config file path (alias)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	// booleans are only carried over when given explicitly, otherwise
	// their default would shadow the JSON file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sync-active":
			cfg.Sync.IsActive = &syncActive
		case "sync-auto":
			cfg.Sync.AutoSyncEnabled = &syncAuto
		}
	})

	cfg.Storage.Collections = collections
	cfg.Workers.CleanupInterval = cleanupInterval

	return &cfg, nil
}
