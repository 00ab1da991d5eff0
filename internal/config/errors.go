package config

import "errors"

// Validation errors returned by [GetClientConfig] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidAppConfigs indicates invalid application-level settings
	// (for example, a missing master password).
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
	// ErrInvalidStorageConfigs indicates invalid storage settings
	// (for example, a duplicated collection or negative retention).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidRemoteConfigs indicates an incomplete mirror connection.
	ErrInvalidRemoteConfigs = errors.New("invalid remote configuration")
	// ErrInvalidSyncConfigs wraps strategy, direction and interval errors.
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidWorkerConfigs indicates invalid background worker settings
	// (for example, a zero cleanup interval).
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
)
