package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klpod221/kerminal-sub001/models"
)

func change(id string, version int64, hash string) models.SyncRecord {
	return models.SyncRecord{
		ID:        id,
		Action:    models.SyncActionUpdate,
		Version:   version,
		Hash:      hash,
		Timestamp: time.Unix(version, 0).UTC(),
		Data:      models.Record{models.IDField: id},
	}
}

func deletion(id string, version int64) models.SyncRecord {
	return models.SyncRecord{
		ID:          id,
		Action:      models.SyncActionDelete,
		IsTombstone: true,
		Version:     version,
		Timestamp:   time.Unix(version, 0).UTC(),
	}
}

func planIDs(records []models.SyncRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func pairIDs(pairs []models.SyncPair) []string {
	ids := make([]string, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestBuildSyncPlan(t *testing.T) {
	checkpoints := map[string]models.SyncCheckpoint{
		"echo":      {LocalVersion: 2, LocalHash: "e", RemoteVersion: 1, RemoteHash: "e"},
		"restamp":   {LocalVersion: 2, LocalHash: "r", RemoteVersion: 1, RemoteHash: "r"},
		"pulled":    {LocalVersion: 1, LocalHash: "p0", RemoteVersion: 1, RemoteHash: "p0"},
		"pushed":    {LocalVersion: 1, LocalHash: "u0", RemoteVersion: 1, RemoteHash: "u0"},
		"both":      {LocalVersion: 1, LocalHash: "b0", RemoteVersion: 1, RemoteHash: "b0"},
		"same":      {LocalVersion: 1, LocalHash: "s0", RemoteVersion: 1, RemoteHash: "s0"},
		"bothdel":   {LocalVersion: 1, LocalHash: "d0", RemoteVersion: 1, RemoteHash: "d0"},
		"localdel":  {LocalVersion: 1, LocalHash: "l0", RemoteVersion: 1, RemoteHash: "l0"},
		"remotedel": {LocalVersion: 1, LocalHash: "x0", RemoteVersion: 1, RemoteHash: "x0"},
	}

	local := []models.SyncRecord{
		change("restamp", 5, "r"),
		change("pushed", 2, "u1"),
		change("both", 2, "b-local"),
		change("same", 3, "s1"),
		deletion("bothdel", 2),
		deletion("localdel", 2),
		change("fresh-local", 1, "f"),
		deletion("never-synced", 2),
	}
	remote := []models.SyncRecord{
		change("echo", 1, "e"),
		change("pulled", 2, "p1"),
		change("both", 2, "b-remote"),
		change("same", 2, "s1"),
		deletion("bothdel", 2),
		deletion("remotedel", 2),
		change("fresh-remote", 1, "g"),
	}

	plan, err := NewSyncPlanner().BuildSyncPlan(context.Background(), local, remote, checkpoints, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"fresh-remote", "pulled", "remotedel"}, planIDs(plan.Pull))
	assert.Equal(t, []string{"fresh-local", "localdel", "pushed"}, planIDs(plan.Push))
	assert.Equal(t, []string{"bothdel", "same"}, pairIDs(plan.Confirm))
	assert.Equal(t, []string{"both"}, pairIDs(plan.Conflicts))
	assert.Empty(t, plan.Blocked)

	conflict := plan.Conflicts[0]
	assert.Equal(t, "b-local", conflict.Local.Hash)
	assert.Equal(t, "b-remote", conflict.Remote.Hash)
}

func TestBuildSyncPlan_Blocked(t *testing.T) {
	local := []models.SyncRecord{change("a", 2, "la"), change("b", 1, "lb")}
	remote := []models.SyncRecord{change("a", 3, "ra"), change("c", 1, "rc")}
	blocked := map[string]struct{}{"a": {}, "b": {}, "zzz": {}}

	plan, err := NewSyncPlanner().BuildSyncPlan(context.Background(), local, remote, nil, blocked)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, plan.Blocked)
	assert.Equal(t, []string{"c"}, planIDs(plan.Pull))
	assert.Empty(t, plan.Push)
	assert.Empty(t, plan.Conflicts)
}

func TestBuildSyncPlan_DuplicateIDsKeepHighestVersion(t *testing.T) {
	remote := []models.SyncRecord{change("a", 3, "new"), change("a", 1, "old")}

	plan, err := NewSyncPlanner().BuildSyncPlan(context.Background(), nil, remote, nil, nil)
	require.NoError(t, err)

	require.Len(t, plan.Pull, 1)
	assert.Equal(t, "new", plan.Pull[0].Hash)
}

func TestBuildSyncPlan_Empty(t *testing.T) {
	plan, err := NewSyncPlanner().BuildSyncPlan(context.Background(), nil, nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
}

func TestBuildSyncPlan_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSyncPlanner().BuildSyncPlan(ctx, []models.SyncRecord{change("a", 1, "h")}, nil, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
