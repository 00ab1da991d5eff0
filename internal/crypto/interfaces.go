// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

// Package crypto holds everything that touches key material: deriving the
// key-encryption key from the master password, wrapping the data-encryption
// key, the unlock capability handed to storage, and the per-field cipher.
//
// Key hierarchy:
//
//	Salt, DEK = GenerateSalt() + GenerateDEK()   (first start)
//	KEK       = DeriveKEK(masterPassword, salt)  (every unlock)
//	WrappedDEK = WrapDEK(DEK, KEK)               (stored in vault.json)
//	DEK       = UnwrapDEK(WrappedDEK, KEK)       (every unlock)
//
// Only the DEK ever encrypts record fields; it lives in memory while the
// vault is unlocked and is wiped on Lock.
package crypto

//go:generate mockgen -source=interfaces.go -destination=../mock/key_provider_mock.go -package=mock

// KeyChainService derives and protects keys. It knows nothing about files,
// records or the network.
type KeyChainService interface {
	// GenerateSalt returns 16 random bytes. The salt is not a secret; it is
	// stored next to the wrapped DEK so that equal passwords give different
	// KEKs on different installations.
	GenerateSalt() ([]byte, error)

	// GenerateDEK returns a random 256-bit data-encryption key.
	GenerateDEK() ([]byte, error)

	// DeriveKEK stretches the master password with Argon2id.
	DeriveKEK(masterPassword string, salt []byte) []byte

	// WrapDEK seals the DEK with the KEK using AES-256-GCM.
	// The result is nonce || ciphertext.
	WrapDEK(dek, kek []byte) ([]byte, error)

	// UnwrapDEK reverses WrapDEK. An authentication failure almost always
	// means the KEK came from a wrong master password.
	UnwrapDEK(wrapped, kek []byte) ([]byte, error)
}

// KeyProvider is the unlock capability consumed by the encryption gate.
// EncryptionKey returns a copy of the current data-encryption key, or
// [ErrVaultLocked] when no key is available. Implementations must be safe
// for concurrent use because lock state may change between two calls.
type KeyProvider interface {
	EncryptionKey() ([]byte, error)
}

// FieldCipher encrypts single string values into the self-describing
// four-segment format "prefix:iv:tag:ciphertext".
type FieldCipher interface {
	// Encrypt seals plaintext with key.
	Encrypt(plaintext string, key []byte) (string, error)

	// Decrypt opens a value produced by Encrypt.
	Decrypt(ciphertext string, key []byte) (string, error)

	// IsEncrypted reports whether value has the ciphertext shape. Values
	// that do not are treated as legacy plaintext.
	IsEncrypted(value string) bool
}
