package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/models"
)

func pending(entityType, id string, at time.Time) models.Conflict {
	return models.Conflict{
		EntityType: entityType,
		EntityID:   id,
		LocalData:  models.Record{models.IDField: id, "host": "local"},
		RemoteData: models.Record{models.IDField: id, "host": "remote"},
		CreatedAt:  at,
	}
}

func TestConflictQueue_Lifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	q := NewConflictQueue(dir, logger.Nop())

	list, err := q.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, q.Add(ctx, pending("ssh_profiles", "b", t0.Add(time.Minute))))
	require.NoError(t, q.Add(ctx, pending("ssh_profiles", "a", t0.Add(time.Minute))))
	require.NoError(t, q.Add(ctx, pending("ssh_keys", "k", t0)))

	list, err = q.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "ssh_keys/k", list[0].Key())
	assert.Equal(t, "ssh_profiles/a", list[1].Key())
	assert.Equal(t, "ssh_profiles/b", list[2].Key())

	ids, err := q.Pending(ctx, "ssh_profiles")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, ids)

	// a second conflict for the same entity replaces the first
	newer := pending("ssh_profiles", "a", t0.Add(time.Hour))
	newer.RemoteData["host"] = "remote-2"
	require.NoError(t, q.Add(ctx, newer))

	got, err := q.Get(ctx, "ssh_profiles", "a")
	require.NoError(t, err)
	assert.Equal(t, "remote-2", got.RemoteData["host"])

	// survives a reopen
	reopened := NewConflictQueue(dir, logger.Nop())
	list, err = reopened.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, reopened.Remove(ctx, "ssh_profiles", "a"))
	assert.ErrorIs(t, reopened.Remove(ctx, "ssh_profiles", "a"), ErrConflictNotFound)

	_, err = q.Get(ctx, "ssh_profiles", "a")
	assert.ErrorIs(t, err, ErrConflictNotFound)
}

func TestConflictQueue_CorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConflictsFileName), []byte("{broken"), 0o600))

	q := NewConflictQueue(dir, logger.Nop())
	list, err := q.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, q.Add(context.Background(), pending("ssh_profiles", "a", time.Now())))
	list, err = q.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestConflictQueue_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := NewConflictQueue(t.TempDir(), logger.Nop())
	assert.ErrorIs(t, q.Add(ctx, pending("x", "y", time.Now())), context.Canceled)
	_, err := q.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = q.Pending(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
