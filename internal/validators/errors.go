package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidID        = errors.New("invalid record id")
	ErrInvalidAction    = errors.New("invalid sync action")
	ErrInvalidVersion   = errors.New("invalid version")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrEmptyData        = errors.New("data is required")
	ErrMismatchedDataID = errors.New("data id does not match record id")
	ErrEmptyRecords     = errors.New("records list cannot be empty")
)
