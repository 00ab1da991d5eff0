// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package crypto

import (
	"fmt"
	"sync"
)

// Vault holds the data-encryption key while the user is signed in. It is
// the [KeyProvider] handed to every encrypted collection. All methods are
// safe for concurrent use.
type Vault struct {
	keychain KeyChainService

	mu  sync.RWMutex
	dek []byte
}

// NewVault returns a locked vault.
func NewVault(keychain KeyChainService) *Vault {
	return &Vault{keychain: keychain}
}

// Initialize creates a fresh salt and DEK, wraps the DEK with a KEK derived
// from masterPassword and leaves the vault unlocked. The returned
// [VaultFile] is what has to be persisted for later unlocks.
func (v *Vault) Initialize(masterPassword string) (VaultFile, error) {
	salt, err := v.keychain.GenerateSalt()
	if err != nil {
		return VaultFile{}, fmt.Errorf("generate salt: %w", err)
	}
	dek, err := v.keychain.GenerateDEK()
	if err != nil {
		return VaultFile{}, fmt.Errorf("generate dek: %w", err)
	}

	kek := v.keychain.DeriveKEK(masterPassword, salt)
	defer wipe(kek)

	wrapped, err := v.keychain.WrapDEK(dek, kek)
	if err != nil {
		return VaultFile{}, fmt.Errorf("wrap dek: %w", err)
	}

	v.setKey(dek)
	return VaultFile{Salt: salt, WrappedDEK: wrapped}, nil
}

// Unlock derives the KEK from masterPassword and opens the wrapped DEK.
// A wrong password yields [ErrWrongPassword] and leaves the lock state
// unchanged.
func (v *Vault) Unlock(masterPassword string, file VaultFile) error {
	kek := v.keychain.DeriveKEK(masterPassword, file.Salt)
	defer wipe(kek)

	dek, err := v.keychain.UnwrapDEK(file.WrappedDEK, kek)
	if err != nil {
		return err
	}

	v.setKey(dek)
	return nil
}

// UnlockWithKey installs an already known DEK, e.g. one restored from the
// OS keyring.
func (v *Vault) UnlockWithKey(dek []byte) error {
	if len(dek) != keySize {
		return fmt.Errorf("got %d bytes: %w", len(dek), ErrInvalidKeyLength)
	}
	v.setKey(append([]byte(nil), dek...))
	return nil
}

// Lock wipes the key from memory. Reads through encrypted collections
// return empty results until the next unlock.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()

	wipe(v.dek)
	v.dek = nil
}

func (v *Vault) IsUnlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.dek != nil
}

// EncryptionKey implements [KeyProvider]. The caller owns the returned copy.
func (v *Vault) EncryptionKey() ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.dek == nil {
		return nil, ErrVaultLocked
	}
	return append([]byte(nil), v.dek...), nil
}

func (v *Vault) setKey(dek []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()

	wipe(v.dek)
	v.dek = dek
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
