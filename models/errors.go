package models

import "errors"

// Validation errors for values read from configuration or user input.
var (
	ErrUnknownStrategy       = errors.New("unknown conflict resolution strategy")
	ErrUnknownConflictChoice = errors.New("unknown conflict choice")
	ErrUnknownSyncDirection  = errors.New("unknown sync direction")
	ErrInvalidSyncInterval   = errors.New("sync interval out of range")
)
