package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	App struct {
		DeviceID string `json:"device_id"`
	} `json:"app,omitempty"`

	Storage struct {
		DataDir     string   `json:"data_dir"`
		Collections []string `json:"collections"`
		RetainDays  int      `json:"retain_days"`
	} `json:"storage,omitempty"`

	Remote struct {
		Driver       string `json:"driver"`
		DSN          string `json:"dsn"`
		MaxOpenConns int    `json:"max_open_conns"`
	} `json:"remote,omitempty"`

	Sync struct {
		IsActive         *bool  `json:"is_active"`
		AutoSyncEnabled  *bool  `json:"auto_sync_enabled"`
		IntervalMinutes  int    `json:"interval_minutes"`
		ConflictStrategy string `json:"conflict_strategy"`
		Direction        string `json:"direction"`
	} `json:"sync,omitempty"`

	Log struct {
		File       string `json:"file"`
		Level      string `json:"level"`
		MaxSizeMB  int    `json:"max_size_mb"`
		MaxBackups int    `json:"max_backups"`
	} `json:"log,omitempty"`

	Workers struct {
		CleanupInterval Duration `json:"cleanup_interval"`
	} `json:"workers,omitempty"`
}

// parseJSON reads the file at jsonFilePath. The master password is never
// read from JSON.
func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			DeviceID: jsonCfg.App.DeviceID,
		},
		Storage: Storage{
			DataDir:     jsonCfg.Storage.DataDir,
			Collections: jsonCfg.Storage.Collections,
			RetainDays:  jsonCfg.Storage.RetainDays,
		},
		Remote: Remote{
			Driver:       jsonCfg.Remote.Driver,
			DSN:          jsonCfg.Remote.DSN,
			MaxOpenConns: jsonCfg.Remote.MaxOpenConns,
		},
		Sync: Sync{
			IsActive:         jsonCfg.Sync.IsActive,
			AutoSyncEnabled:  jsonCfg.Sync.AutoSyncEnabled,
			IntervalMinutes:  jsonCfg.Sync.IntervalMinutes,
			ConflictStrategy: jsonCfg.Sync.ConflictStrategy,
			Direction:        jsonCfg.Sync.Direction,
		},
		Log: Log{
			File:       jsonCfg.Log.File,
			Level:      jsonCfg.Log.Level,
			MaxSizeMB:  jsonCfg.Log.MaxSizeMB,
			MaxBackups: jsonCfg.Log.MaxBackups,
		},
		Workers: Workers{
			CleanupInterval: time.Duration(jsonCfg.Workers.CleanupInterval),
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
