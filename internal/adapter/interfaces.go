// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

// Package adapter provides the remote side of synchronisation.
//
// The primary abstraction is [RemoteSource], which decouples the sync
// service from the store the records are exchanged through. The package
// ships a SQL mirror implementation ([NewSQLRemote]) that works against
// PostgreSQL (pgx) or a shared SQLite file.
//
// Records cross this boundary only in their at-rest form: encrypted fields
// stay encrypted end to end.
package adapter

import (
	"context"

	"github.com/klpod221/kerminal-sub001/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_source_mock.go -package=mock

// RemoteSource exchanges modified-since diffs with the remote store.
type RemoteSource interface {
	// GetChangesAfter returns every record of collection whose change
	// sequence is greater than cursor, ordered by sequence. A zero cursor
	// reads the whole collection. Sequences are assigned by the remote at
	// commit time, so no device clock takes part in the ordering.
	GetChangesAfter(ctx context.Context, collection string, cursor int64) ([]models.SyncRecord, error)

	// Push stores records on the remote. The remote numbers its own
	// versions: the returned records carry the version each one was
	// accepted under and the change sequence of the push, in input order.
	// Timestamp, ModifiedAt and DeviceID are kept as sent so that
	// write-time policies compare original stamps.
	Push(ctx context.Context, collection string, records ...models.SyncRecord) ([]models.SyncRecord, error)
}
