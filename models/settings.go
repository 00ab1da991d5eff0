// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package models

import (
	"fmt"
	"strings"
	"time"
)

// SyncDirection restricts which way a sync pass moves data.
type SyncDirection string

const (
	SyncBoth SyncDirection = "both"
	SyncPush SyncDirection = "push"
	SyncPull SyncDirection = "pull"
)

// ParseSyncDirection validates a configured direction. Empty input means
// [SyncBoth].
func ParseSyncDirection(s string) (SyncDirection, error) {
	switch SyncDirection(strings.ToLower(strings.TrimSpace(s))) {
	case "", SyncBoth:
		return SyncBoth, nil
	case SyncPush:
		return SyncPush, nil
	case SyncPull:
		return SyncPull, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSyncDirection, s)
}

// Pushes reports whether local changes are sent to the remote side.
func (d SyncDirection) Pushes() bool {
	return d == SyncBoth || d == SyncPush
}

// Pulls reports whether remote changes are applied locally.
func (d SyncDirection) Pulls() bool {
	return d == SyncBoth || d == SyncPull
}

// Sync interval bounds, in minutes.
const (
	MinSyncIntervalMinutes = 1
	MaxSyncIntervalMinutes = 1440
)

// SyncSettings is the synchronisation configuration of a remote source.
type SyncSettings struct {
	IsActive            bool                       `json:"isActive"`
	AutoSyncEnabled     bool                       `json:"autoSyncEnabled"`
	SyncIntervalMinutes int                        `json:"syncIntervalMinutes"`
	ConflictStrategy    ConflictResolutionStrategy `json:"conflictStrategy"`
	SyncDirection       SyncDirection              `json:"syncDirection"`
}

// Validate checks the settings. An unknown strategy or direction is a
// configuration error; there is no silent fallback.
func (s SyncSettings) Validate() error {
	if s.SyncIntervalMinutes < MinSyncIntervalMinutes || s.SyncIntervalMinutes > MaxSyncIntervalMinutes {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidSyncInterval,
			s.SyncIntervalMinutes, MinSyncIntervalMinutes, MaxSyncIntervalMinutes)
	}
	if !s.ConflictStrategy.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, s.ConflictStrategy)
	}
	if _, err := ParseSyncDirection(string(s.SyncDirection)); err != nil {
		return err
	}
	return nil
}

// Interval returns the auto sync period.
func (s SyncSettings) Interval() time.Duration {
	return time.Duration(s.SyncIntervalMinutes) * time.Minute
}
