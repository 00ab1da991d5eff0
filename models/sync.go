// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package models

import "time"

// SyncAction classifies a change reported by a modified-since diff.
type SyncAction string

const (
	SyncActionCreate SyncAction = "create"
	SyncActionUpdate SyncAction = "update"
	SyncActionDelete SyncAction = "delete"
)

// SyncRecord is one entry of a modified-since diff. It is the only shape a
// remote transport needs to exchange with the local store. Data is nil for
// deletions and is carried in its at-rest (encrypted) form otherwise.
//
// Seq is the change sequence the remote assigned when it accepted the
// record. It orders remote arrivals independently of any device clock and
// is zero for local diffs.
type SyncRecord struct {
	ID              string     `json:"id"`
	Collection      string     `json:"collection"`
	Action          SyncAction `json:"action"`
	Data            Record     `json:"data,omitempty"`
	Version         int64      `json:"version"`
	PreviousVersion int64      `json:"previousVersion"`
	IsTombstone     bool       `json:"isTombstone"`
	Timestamp       time.Time  `json:"timestamp"`
	ModifiedAt      time.Time  `json:"modifiedAt"`
	DeviceID        string     `json:"deviceId"`
	Hash            string     `json:"hash,omitempty"`
	Seq             int64      `json:"seq,omitempty"`
}

// IsDelete reports whether the record describes a deletion.
func (r SyncRecord) IsDelete() bool {
	return r.Action == SyncActionDelete || r.IsTombstone
}

// Stamp returns the version stamp carried by the sync record.
func (r SyncRecord) Stamp() VersionStamp {
	return VersionStamp{
		Version:    r.Version,
		Timestamp:  r.Timestamp,
		ModifiedAt: r.ModifiedAt,
		DeviceID:   r.DeviceID,
		Hash:       r.Hash,
	}
}

// SyncCheckpoint is the last state of an id that both sides agreed on.
// Local and remote versions are tracked separately because every device
// numbers its own writes.
type SyncCheckpoint struct {
	LocalVersion  int64     `json:"localVersion"`
	LocalHash     string    `json:"localHash,omitempty"`
	RemoteVersion int64     `json:"remoteVersion"`
	RemoteHash    string    `json:"remoteHash,omitempty"`
	SyncedAt      time.Time `json:"syncedAt"`
}

// SyncState is the persisted synchronisation bookkeeping of one collection.
// LastSyncAt is read against the local clock only; RemoteCursor is the
// highest remote change sequence the collection has fully handled.
type SyncState struct {
	LastSyncAt   time.Time                 `json:"lastSyncAt"`
	RemoteCursor int64                     `json:"remoteCursor"`
	Checkpoints  map[string]SyncCheckpoint `json:"checkpoints"`
}

// SyncPlan groups the ids of one collection by the action a sync pass has to
// take for them. Each id lands in exactly one category.
type SyncPlan struct {
	// Push holds local changes the remote side has not seen yet.
	Push []SyncRecord
	// Pull holds remote changes the local side has not seen yet.
	Pull []SyncRecord
	// Confirm holds pairs whose content already matches on both sides;
	// only the checkpoint has to move.
	Confirm []SyncPair
	// Conflicts holds pairs where both sides changed independently.
	Conflicts []SyncPair
	// Blocked holds ids skipped because a manual conflict is pending.
	Blocked []string
}

// IsEmpty reports whether the plan has nothing to do.
func (p SyncPlan) IsEmpty() bool {
	return len(p.Push) == 0 && len(p.Pull) == 0 && len(p.Confirm) == 0 &&
		len(p.Conflicts) == 0 && len(p.Blocked) == 0
}

// SyncPair is the local and remote view of the same id.
type SyncPair struct {
	ID     string
	Local  SyncRecord
	Remote SyncRecord
}

// SyncReport summarises one synchronisation pass over a collection.
type SyncReport struct {
	Collection string    `json:"collection"`
	Pushed     int       `json:"pushed"`
	Pulled     int       `json:"pulled"`
	Confirmed  int       `json:"confirmed"`
	Conflicts  int       `json:"conflicts"`
	Resolved   int       `json:"resolved"`
	Deferred   int       `json:"deferred"`
	Blocked    int       `json:"blocked"`
	Skipped    int       `json:"skipped"`
	Rejected   int       `json:"rejected"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}
