// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize = 16
	keySize  = 32
)

// keyChainService is the private implementation of [KeyChainService].
type keyChainService struct {
	// Argon2id tuning parameters. Stored in the struct so they can be
	// adjusted per deployment target.
	argonTime    uint32
	argonMemory  uint32
	argonThreads uint8
	argonKeyLen  uint32
}

// NewKeyChainService constructs a [KeyChainService] with the Argon2id
// parameters recommended by OWASP (2024):
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
//   - key length:  32 bytes (256 bits)
func NewKeyChainService() KeyChainService {
	return &keyChainService{
		argonTime:    1,
		argonMemory:  64 * 1024, // 64 MiB
		argonThreads: 4,
		argonKeyLen:  keySize,
	}
}

// NewLightKeyChainService returns a [KeyChainService] with a cheap Argon2id
// setting (8 MiB, single thread). Intended for tests and constrained
// devices; vault files written with it are not readable by the default
// service.
func NewLightKeyChainService() KeyChainService {
	return &keyChainService{
		argonTime:    1,
		argonMemory:  8 * 1024,
		argonThreads: 1,
		argonKeyLen:  keySize,
	}
}

func (k *keyChainService) GenerateSalt() ([]byte, error) {
	return randomBytes(saltSize)
}

func (k *keyChainService) GenerateDEK() ([]byte, error) {
	return randomBytes(keySize)
}

// DeriveKEK implements [KeyChainService]. The result exists only in memory
// for the duration of an unlock.
func (k *keyChainService) DeriveKEK(masterPassword string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(masterPassword),
		salt,
		k.argonTime,
		k.argonMemory,
		k.argonThreads,
		k.argonKeyLen,
	)
}

// WrapDEK implements [KeyChainService]. A random nonce is prepended to the
// ciphertext: blob = nonce ‖ ciphertext.
func (k *keyChainService) WrapDEK(dek, kek []byte) ([]byte, error) {
	gcm, err := newGCM(kek)
	if err != nil {
		return nil, err
	}

	nonce, err := randomBytes(gcm.NonceSize())
	if err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, dek, nil), nil
}

// UnwrapDEK implements [KeyChainService]. Authentication failures are
// reported as [ErrWrongPassword].
func (k *keyChainService) UnwrapDEK(wrapped, kek []byte) ([]byte, error) {
	gcm, err := newGCM(kek)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(wrapped) < nonceSize+gcm.Overhead() {
		return nil, fmt.Errorf("wrapped key too short: %w", ErrMalformedCiphertext)
	}

	nonce, ciphertext := wrapped[:nonceSize], wrapped[nonceSize:]

	dek, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", ErrWrongPassword)
	}
	if len(dek) != keySize {
		return nil, fmt.Errorf("unwrapped key has %d bytes: %w", len(dek), ErrInvalidKeyLength)
	}

	return dek, nil
}

// newGCM builds an AES-256-GCM AEAD. Shorter AES keys are rejected so a
// truncated key never silently downgrades to AES-128.
func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("got %d bytes: %w", len(key), ErrInvalidKeyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return gcm, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}
