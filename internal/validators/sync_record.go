package validators

import (
	"context"
	"fmt"

	"github.com/klpod221/kerminal-sub001/models"
)

// Field name constants used to specify which fields should be validated.
// These constants are passed to Validate to restrict validation to a subset
// of fields (field-level scoping).
const (
	// FieldID targets the record identifier.
	FieldID = "id"

	// FieldAction targets the create/update/delete classification.
	FieldAction = "action"

	// FieldVersion targets the version the remote accepted the record under.
	FieldVersion = "version"

	// FieldTimestamp targets the write-time stamp used by time-based policies.
	FieldTimestamp = "timestamp"

	// FieldData targets the record body; required unless the record is a
	// deletion, and its id must match the record id.
	FieldData = "data"

	// FieldRecords targets every element of a record slice.
	FieldRecords = "records"
)

var syncRecordFields = []string{FieldID, FieldAction, FieldVersion, FieldTimestamp, FieldData}

// SyncRecordValidator checks the shape of records received from a remote
// source before they reach the sync planner.
type SyncRecordValidator struct {
}

func NewSyncRecordValidator() Validator {
	return &SyncRecordValidator{}
}

func (v *SyncRecordValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.SyncRecord:
		return v.validateSyncRecord(ctx, value, fields...)
	case *models.SyncRecord:
		return v.validateSyncRecord(ctx, *value, fields...)

	case []models.SyncRecord:
		return v.validateSyncRecords(ctx, value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *SyncRecordValidator) validateSyncRecord(_ context.Context, rec models.SyncRecord, fields ...string) error {
	if len(fields) == 0 {
		fields = syncRecordFields
	}

	for _, f := range fields {
		switch f {
		case FieldID:
			if rec.ID == "" {
				return ErrInvalidID
			}
		case FieldAction:
			switch rec.Action {
			case models.SyncActionCreate, models.SyncActionUpdate, models.SyncActionDelete:
			default:
				if !rec.IsTombstone {
					return fmt.Errorf("%w: %q", ErrInvalidAction, rec.Action)
				}
			}
		case FieldVersion:
			if rec.Version < 1 || rec.PreviousVersion < 0 {
				return fmt.Errorf("%w: %d", ErrInvalidVersion, rec.Version)
			}
		case FieldTimestamp:
			if rec.Timestamp.IsZero() {
				return ErrInvalidTimestamp
			}
		case FieldData:
			if rec.IsDelete() {
				continue
			}
			if rec.Data == nil {
				return ErrEmptyData
			}
			if id := rec.Data.ID(); id != "" && id != rec.ID {
				return fmt.Errorf("%w: %q != %q", ErrMismatchedDataID, id, rec.ID)
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *SyncRecordValidator) validateSyncRecords(ctx context.Context, records []models.SyncRecord, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldRecords}
	}

	for _, f := range fields {
		switch f {
		case FieldRecords:
			if len(records) == 0 {
				return ErrEmptyRecords
			}
			for i, rec := range records {
				if err := v.validateSyncRecord(ctx, rec); err != nil {
					return fmt.Errorf("validation error at index %d: %w", i, err)
				}
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}
