package store

import "errors"

// Sentinel errors returned by store methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrRecordNotFound is returned when an operation targets an id that is
	// neither active nor known to the metadata file.
	ErrRecordNotFound = errors.New("record was not found")

	// ErrMetadataNotFound is returned by GetMetadata for ids that were never
	// written (or whose deleted metadata has been cleaned up).
	ErrMetadataNotFound = errors.New("sync metadata was not found")

	// ErrDuplicateID is returned when a snapshot holds the same id twice.
	ErrDuplicateID = errors.New("duplicate record id in snapshot")

	// ErrInvalidCollection is returned for empty collection names and names
	// that would escape the data directory.
	ErrInvalidCollection = errors.New("invalid collection name")

	// ErrInvalidRetention is returned by Cleanup for negative retention.
	ErrInvalidRetention = errors.New("retention days must not be negative")

	// ErrCorruptMetadata is returned by writes when the metadata file exists
	// but cannot be decoded. Reads treat the same file as empty.
	ErrCorruptMetadata = errors.New("metadata file is corrupt")

	// ErrUnknownCollection is returned by ClientStorages for collections
	// that are not configured.
	ErrUnknownCollection = errors.New("collection is not configured")
)

// File operation errors. They wrap the underlying os or encoding error.
var (
	ErrWritingDataFile      = errors.New("failed to write data file")
	ErrWritingMetadataFile  = errors.New("failed to write metadata file")
	ErrWritingTombstoneFile = errors.New("failed to write tombstone file")
	ErrWritingSyncState     = errors.New("failed to write sync state file")
	ErrHashingRecord        = errors.New("failed to hash record")
)
