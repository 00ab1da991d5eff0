package service

import (
	"context"

	"github.com/klpod221/kerminal-sub001/internal/store"
	"github.com/klpod221/kerminal-sub001/models"
)

// EncryptedCollection is the encryption gate in front of a
// [store.VersionedStore]. Designated fields are encrypted on every write and
// decrypted on every read; every operation first checks that the vault is
// unlocked.
type EncryptedCollection interface {
	Collection() string

	// Store exposes the wrapped store for synchronisation bookkeeping
	// (metadata, modified-since, checkpoints). Records read from it are in
	// their at-rest form.
	Store() store.VersionedStore

	// CheckAccess returns a wrapped crypto.ErrVaultLocked while locked.
	CheckAccess() error

	// ReadData returns decrypted records, or an empty collection while
	// locked. Fields that fail to decrypt are blanked.
	ReadData(ctx context.Context) ([]models.Record, error)

	// WriteData encrypts and replaces the whole collection. Nothing is
	// written if the vault is locked or any field fails to encrypt.
	WriteData(ctx context.Context, records []models.Record) error

	// Create stores a new record, assigning an id when it has none, and
	// returns the plaintext record as stored.
	Create(ctx context.Context, record models.Record) (models.Record, error)

	// Update replaces an existing record.
	Update(ctx context.Context, record models.Record) (models.Record, error)

	// Put creates or replaces a record. Fields already in ciphertext form
	// are stored as they are.
	Put(ctx context.Context, record models.Record) (models.Record, error)

	GetByID(ctx context.Context, id string) (models.Record, error)
	GetAll(ctx context.Context) ([]models.Record, error)

	// Delete tombstones the record through the store so the deletion is
	// propagated by the next sync.
	Delete(ctx context.Context, id string) error

	EncryptRecord(record models.Record) (models.Record, error)
	DecryptRecord(record models.Record) (models.Record, error)
	PlainHash(record models.Record) (string, error)
}

// IDGenerator issues ids for records created without one.
type IDGenerator interface {
	Generate() string
}

// ConflictQueue persists conflicts deferred to the user.
type ConflictQueue interface {
	Add(ctx context.Context, c models.Conflict) error
	Get(ctx context.Context, entityType, entityID string) (models.Conflict, error)
	List(ctx context.Context) ([]models.Conflict, error)
	Remove(ctx context.Context, entityType, entityID string) error
	Pending(ctx context.Context, entityType string) (map[string]struct{}, error)
}

// SyncPlanner compares two modified-since diffs against the checkpoints of
// a collection and decides what a sync pass has to do.
type SyncPlanner interface {
	BuildSyncPlan(
		ctx context.Context,
		local, remote []models.SyncRecord,
		checkpoints map[string]models.SyncCheckpoint,
		blocked map[string]struct{},
	) (models.SyncPlan, error)
}

// ClientSyncService synchronises the local collections with the remote
// source.
type ClientSyncService interface {
	// Sync runs one pass over every collection. A failing collection does
	// not stop the others; their errors are joined.
	Sync(ctx context.Context) ([]models.SyncReport, error)

	// SyncCollection runs one pass over a single collection.
	SyncCollection(ctx context.Context, collection string) (models.SyncReport, error)

	// PendingConflicts lists conflicts waiting for a manual decision.
	PendingConflicts(ctx context.Context) ([]models.Conflict, error)

	// ResolveConflict applies the user's choice to one pending conflict.
	// The choice only affects this conflict.
	ResolveConflict(ctx context.Context, collection, id string, choice models.ConflictChoice) error

	Settings() models.SyncSettings
	UpdateSettings(settings models.SyncSettings) error
}
