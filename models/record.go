// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package models

import "time"

// IDField is the name of the field every stored record must carry.
const IDField = "id"

// Record is a single item of a collection (an SSH profile, a group, a tunnel
// and so on). Domain fields are opaque to the storage layer; the only field
// it relies on is the string "id".
type Record map[string]any

// ID returns the record identifier, or an empty string when the record has
// no string "id" field.
func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// Clone returns a deep copy of the record. Nested maps and slices are copied
// so that callers can mutate the result without touching the original.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, nested := range val {
			m[k] = cloneValue(nested)
		}
		return m
	case Record:
		return val.Clone()
	case []any:
		s := make([]any, len(val))
		for i, nested := range val {
			s[i] = cloneValue(nested)
		}
		return s
	default:
		return val
	}
}

// VersionStamp is attached to every persisted write of a record.
// Version grows by exactly one per successful write of the same id and never
// decreases or resets.
//
// Timestamp is the time of the last persisted write. ModifiedAt is the time
// the content last changed: writes that leave the hash as it was carry it
// forward, so a rewrite of the whole collection does not make an old edit
// look new.
type VersionStamp struct {
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
	ModifiedAt time.Time `json:"modifiedAt"`
	DeviceID   string    `json:"deviceId"`
	Hash       string    `json:"hash,omitempty"`
}

// ChangedAt returns ModifiedAt, or Timestamp for stamps written before
// ModifiedAt was tracked.
func (v VersionStamp) ChangedAt() time.Time {
	if v.ModifiedAt.IsZero() {
		return v.Timestamp
	}
	return v.ModifiedAt
}

// SyncMetadata tracks the version history of one id, including ids that
// were deleted. IsDeleted is true iff the id is absent from the active
// record set.
type SyncMetadata struct {
	ID        string       `json:"id"`
	Version   VersionStamp `json:"version"`
	IsDeleted bool         `json:"isDeleted"`
	Tombstone *Tombstone   `json:"tombstone,omitempty"`
}

// Tombstone records a deletion so that it can be propagated to other
// devices. Repeated deletes of the same id overwrite the existing entry.
type Tombstone struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	DeletedAt  time.Time `json:"deletedAt"`
	DeletedBy  string    `json:"deletedBy"`
	Version    int64     `json:"version"`
}
