package crypto

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVault_LockedByDefault(t *testing.T) {
	v := NewVault(NewLightKeyChainService())

	assert.False(t, v.IsUnlocked())
	_, err := v.EncryptionKey()
	assert.ErrorIs(t, err, ErrVaultLocked)
}

func TestVault_InitializeThenUnlock(t *testing.T) {
	kc := NewLightKeyChainService()

	first := NewVault(kc)
	file, err := first.Initialize("master")
	require.NoError(t, err)
	require.True(t, first.IsUnlocked())

	dek, err := first.EncryptionKey()
	require.NoError(t, err)
	require.Len(t, dek, 32)

	second := NewVault(kc)
	require.NoError(t, second.Unlock("master", file))

	got, err := second.EncryptionKey()
	require.NoError(t, err)
	assert.Equal(t, dek, got)
}

func TestVault_WrongPasswordKeepsLocked(t *testing.T) {
	kc := NewLightKeyChainService()

	file, err := NewVault(kc).Initialize("master")
	require.NoError(t, err)

	v := NewVault(kc)
	err = v.Unlock("nope", file)
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.False(t, v.IsUnlocked())
}

func TestVault_LockWipesKey(t *testing.T) {
	v := NewVault(NewLightKeyChainService())
	require.NoError(t, v.UnlockWithKey(testKey(0x21)))

	require.True(t, v.IsUnlocked())
	v.Lock()

	assert.False(t, v.IsUnlocked())
	_, err := v.EncryptionKey()
	assert.ErrorIs(t, err, ErrVaultLocked)
}

func TestVault_EncryptionKeyReturnsCopy(t *testing.T) {
	v := NewVault(NewLightKeyChainService())
	require.NoError(t, v.UnlockWithKey(testKey(0x22)))

	k1, err := v.EncryptionKey()
	require.NoError(t, err)
	k1[0] = 0xFF

	k2, err := v.EncryptionKey()
	require.NoError(t, err)
	assert.Equal(t, byte(0x22), k2[0])
}

func TestVault_UnlockWithKeyRejectsShortKey(t *testing.T) {
	v := NewVault(NewLightKeyChainService())

	assert.ErrorIs(t, v.UnlockWithKey([]byte("short")), ErrInvalidKeyLength)
	assert.False(t, v.IsUnlocked())
}

func TestVault_ConcurrentLockAndRead(t *testing.T) {
	v := NewVault(NewLightKeyChainService())
	require.NoError(t, v.UnlockWithKey(testKey(0x23)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if key, err := v.EncryptionKey(); err == nil {
				assert.Len(t, key, 32)
			}
		}()
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				v.Lock()
			} else {
				_ = v.UnlockWithKey(testKey(0x23))
			}
		}(i)
	}
	wg.Wait()
}

func TestOpenVault_CreatesThenReopens(t *testing.T) {
	kc := NewLightKeyChainService()
	path := filepath.Join(t.TempDir(), VaultFileName)

	v1 := NewVault(kc)
	created, err := OpenVault(v1, path, "master")
	require.NoError(t, err)
	assert.True(t, created)
	dek, err := v1.EncryptionKey()
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	v2 := NewVault(kc)
	created, err = OpenVault(v2, path, "master")
	require.NoError(t, err)
	assert.False(t, created)
	got, err := v2.EncryptionKey()
	require.NoError(t, err)
	assert.Equal(t, dek, got)

	v3 := NewVault(kc)
	_, err = OpenVault(v3, path, "other")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestOpenVault_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), VaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := OpenVault(NewVault(NewLightKeyChainService()), path, "master")
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}
