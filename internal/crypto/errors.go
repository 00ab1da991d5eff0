// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package crypto

import "errors"

var (
	// ErrVaultLocked is returned by every key consumer while no master
	// password has been entered (or after the vault was locked again).
	ErrVaultLocked = errors.New("vault is locked")

	// ErrWrongPassword is returned when the wrapped DEK cannot be opened with
	// the KEK derived from the supplied master password.
	ErrWrongPassword = errors.New("wrong master password")

	// ErrInvalidKeyLength is returned when a key is not 32 bytes long.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrMalformedCiphertext is returned when a value does not follow the
	// prefix:iv:tag:ciphertext layout or one of its parts cannot be decoded.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")

	// ErrUnsupportedCipher is returned for ciphertext produced by an
	// algorithm this build does not know.
	ErrUnsupportedCipher = errors.New("unsupported cipher")
)
