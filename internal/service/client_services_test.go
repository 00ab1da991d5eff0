package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klpod221/kerminal-sub001/internal/config"
	"github.com/klpod221/kerminal-sub001/internal/crypto"
	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/internal/store"
	"github.com/klpod221/kerminal-sub001/models"
)

func newTestStorages(t *testing.T, collections ...string) *store.ClientStorages {
	t.Helper()
	storages, err := store.NewClientStorages(config.ClientStorage{
		DataDir:     t.TempDir(),
		Collections: collections,
		RetainDays:  30,
	}, "dev-a", logger.Nop())
	require.NoError(t, err)
	return storages
}

func TestNewClientServices_WiresEveryCollection(t *testing.T) {
	ctx := context.Background()
	storages := newTestStorages(t, "ssh_profiles", "ssh_groups", "custom")
	remote := newMemRemote()

	svcs, err := NewClientServices(storages, unlockedVault(t), remote,
		defaultSettings(models.LastWriteWins),
		map[string][]string{"custom": {"token"}},
		"dev-a", logger.Nop())
	require.NoError(t, err)

	assert.Len(t, svcs.Collections, 3)
	require.NotNil(t, svcs.Conflicts)
	require.NotNil(t, svcs.SyncService)
	require.NotNil(t, svcs.SyncJob)

	profiles, err := svcs.Collection("ssh_profiles")
	require.NoError(t, err)
	_, err = profiles.Create(ctx, models.Record{models.IDField: "h1", "password": "pw", "privateKey": "k"})
	require.NoError(t, err)

	cipher := crypto.NewFieldCipher()
	raw := rawByID(t, profiles, "h1")
	assert.True(t, cipher.IsEncrypted(raw["password"].(string)), "default fields apply")
	assert.True(t, cipher.IsEncrypted(raw["privateKey"].(string)))

	custom, err := svcs.Collection("custom")
	require.NoError(t, err)
	_, err = custom.Create(ctx, models.Record{models.IDField: "c1", "token": "t", "password": "plain"})
	require.NoError(t, err)
	raw = rawByID(t, custom, "c1")
	assert.True(t, cipher.IsEncrypted(raw["token"].(string)))
	assert.Equal(t, "plain", raw["password"], "override replaces the defaults")

	reports, err := svcs.SyncService.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, []string{"ssh_profiles", "ssh_groups", "custom"},
		[]string{reports[0].Collection, reports[1].Collection, reports[2].Collection})
	assert.Equal(t, 1, reports[0].Pushed)
}

func TestNewClientServices_UnknownCollection(t *testing.T) {
	svcs, err := NewClientServices(newTestStorages(t, "ssh_keys"), unlockedVault(t),
		newMemRemote(), defaultSettings(models.Manual), nil, "dev-a", logger.Nop())
	require.NoError(t, err)

	_, err = svcs.Collection("ssh_profiles")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestNewClientServices_InvalidFieldPath(t *testing.T) {
	_, err := NewClientServices(newTestStorages(t, "custom"), unlockedVault(t),
		newMemRemote(), defaultSettings(models.Manual),
		map[string][]string{"custom": {"x..y"}}, "dev-a", logger.Nop())
	assert.ErrorIs(t, err, ErrInvalidFieldPath)
}

func TestNewClientServices_InvalidSettings(t *testing.T) {
	settings := defaultSettings(models.LastWriteWins)
	settings.SyncIntervalMinutes = 0

	_, err := NewClientServices(newTestStorages(t, "ssh_keys"), unlockedVault(t),
		newMemRemote(), settings, nil, "dev-a", logger.Nop())
	assert.ErrorIs(t, err, models.ErrInvalidSyncInterval)
}
