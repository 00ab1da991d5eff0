// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ConflictResolutionStrategy selects how a sync pass settles an entity that
// was changed on both sides since the last agreed state.
type ConflictResolutionStrategy string

// Canonical wire values.
const (
	LocalWins      ConflictResolutionStrategy = "LocalWins"
	RemoteWins     ConflictResolutionStrategy = "RemoteWins"
	LastWriteWins  ConflictResolutionStrategy = "LastWriteWins"
	FirstWriteWins ConflictResolutionStrategy = "FirstWriteWins"
	Manual         ConflictResolutionStrategy = "Manual"
)

// strategyAliases maps every accepted spelling to its canonical value. The
// lower camel case set is what the global settings screen used to store.
var strategyAliases = map[string]ConflictResolutionStrategy{
	"LocalWins":      LocalWins,
	"RemoteWins":     RemoteWins,
	"LastWriteWins":  LastWriteWins,
	"FirstWriteWins": FirstWriteWins,
	"Manual":         Manual,
	"localWins":      LocalWins,
	"remoteWins":     RemoteWins,
	"lastWriteWins":  LastWriteWins,
	"firstWriteWins": FirstWriteWins,
	"manual":         Manual,
}

// ParseStrategy converts a wire value into a canonical strategy. Both the
// canonical and the lower camel case spelling are accepted; anything else
// yields [ErrUnknownStrategy].
func ParseStrategy(s string) (ConflictResolutionStrategy, error) {
	if strategy, ok := strategyAliases[strings.TrimSpace(s)]; ok {
		return strategy, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Valid reports whether s is one of the canonical strategies.
func (s ConflictResolutionStrategy) Valid() bool {
	switch s {
	case LocalWins, RemoteWins, LastWriteWins, FirstWriteWins, Manual:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (s ConflictResolutionStrategy) String() string {
	return string(s)
}

// UnmarshalJSON accepts every alias and stores the canonical value.
func (s *ConflictResolutionStrategy) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseStrategy(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ConflictChoice is the explicit decision taken for a pending manual
// conflict. It applies to that single occurrence only.
type ConflictChoice string

const (
	ChooseLocal  ConflictChoice = "local"
	ChooseRemote ConflictChoice = "remote"
)

// ParseConflictChoice validates a user supplied choice.
func ParseConflictChoice(s string) (ConflictChoice, error) {
	switch ConflictChoice(strings.ToLower(strings.TrimSpace(s))) {
	case ChooseLocal:
		return ChooseLocal, nil
	case ChooseRemote:
		return ChooseRemote, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownConflictChoice, s)
}

// Conflict is a pair of diverging versions of the same record waiting in the
// pending queue. LocalData and RemoteData hold the at-rest form of the
// records; nil means that side deleted the record.
type Conflict struct {
	EntityType string     `json:"entityType"`
	EntityID   string     `json:"entityId"`
	LocalData  Record     `json:"localData"`
	RemoteData Record     `json:"remoteData"`
	Local      SyncRecord `json:"local"`
	Remote     SyncRecord `json:"remote"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Key identifies the conflict inside the pending queue.
func (c Conflict) Key() string {
	return ConflictKey(c.EntityType, c.EntityID)
}

// ConflictKey builds the queue key for an entity.
func ConflictKey(entityType, entityID string) string {
	return entityType + "/" + entityID
}
