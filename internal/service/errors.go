package service

import "errors"

var (
	ErrInvalidFieldPath   = errors.New("invalid field path")
	ErrFieldNotString     = errors.New("designated field is not a string")
	ErrMissingID          = errors.New("record has no id")
	ErrRecordExists       = errors.New("record already exists")
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrSyncInProgress     = errors.New("sync already in progress")
	ErrSyncDisabled       = errors.New("sync is disabled")
	ErrConflictNotFound   = errors.New("conflict was not found")
	ErrUnexpectedPushEcho = errors.New("remote did not acknowledge pushed record")
)
