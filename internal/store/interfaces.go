package store

import (
	"context"
	"time"

	"github.com/klpod221/kerminal-sub001/models"
)

// VersionedStore persists one collection of records together with the
// per-record version metadata and the tombstone ledger that synchronisation
// relies on.
//
// Implementations must be safe for concurrent use. Every mutating method
// performs its whole read-modify-write under one exclusive lock.
type VersionedStore interface {
	// Collection returns the collection name the store was opened for.
	Collection() string

	// ReadData returns the active records. A missing or unreadable data file
	// yields an empty collection rather than an error.
	ReadData(ctx context.Context) ([]models.Record, error)

	// WriteData replaces the active record set. Every record carrying an id
	// gets its version bumped by one and a fresh stamp; ids that disappear
	// from the set are tombstoned.
	WriteData(ctx context.Context, records []models.Record) error

	// Mutate runs fn on a private copy of the active records and persists
	// its result exactly like WriteData, without releasing the lock in
	// between. If fn returns an error nothing is written.
	Mutate(ctx context.Context, fn func(records []models.Record) ([]models.Record, error)) error

	// MarkAsDeleted removes id from the active set, upserts its tombstone
	// and flags its metadata as deleted.
	MarkAsDeleted(ctx context.Context, id, deletedBy string) error

	GetTombstones(ctx context.Context) ([]models.Tombstone, error)
	RemoveTombstone(ctx context.Context, id string) error

	GetMetadata(ctx context.Context, id string) (models.SyncMetadata, error)
	GetAllMetadata(ctx context.Context) ([]models.SyncMetadata, error)

	// GetModifiedSince lists every change stamped strictly after since,
	// ordered by timestamp and then id.
	GetModifiedSince(ctx context.Context, since time.Time) ([]models.SyncRecord, error)

	// GenerateHash returns the content hash the store attaches to record.
	GenerateHash(record models.Record) (string, error)

	// Cleanup purges tombstones and deleted metadata older than retainDays.
	// Metadata of active records is never touched. It returns the number of
	// distinct ids whose tombstone, metadata or both were purged.
	Cleanup(ctx context.Context, retainDays int) (int, error)

	LoadSyncState(ctx context.Context) (models.SyncState, error)
	SaveSyncState(ctx context.Context, state models.SyncState) error
}
