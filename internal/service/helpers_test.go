package service

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/klpod221/kerminal-sub001/internal/adapter"
	"github.com/klpod221/kerminal-sub001/internal/crypto"
	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/internal/store"
	"github.com/klpod221/kerminal-sub001/models"
)

const testCollection = "ssh_profiles"

var sharedKey = bytes.Repeat([]byte{0x42}, 32)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func unlockedVault(t *testing.T) *crypto.Vault {
	t.Helper()
	v := crypto.NewVault(crypto.NewLightKeyChainService())
	require.NoError(t, v.UnlockWithKey(sharedKey))
	return v
}

func newTestGate(t *testing.T, dir, deviceID string, clock *fakeClock, keys crypto.KeyProvider) EncryptedCollection {
	t.Helper()
	st, err := store.NewFileStore(dir, testCollection, store.WithClock(clock.Now), store.WithDeviceID(deviceID))
	require.NoError(t, err)

	fields, err := ParseFieldPaths("password", "proxy.password")
	require.NoError(t, err)

	return NewEncryptedCollection(st, keys, fields, WithGateDeviceID(deviceID))
}

func defaultSettings(strategy models.ConflictResolutionStrategy) models.SyncSettings {
	return models.SyncSettings{
		IsActive:            true,
		AutoSyncEnabled:     true,
		SyncIntervalMinutes: 15,
		ConflictStrategy:    strategy,
		SyncDirection:       models.SyncBoth,
	}
}

// device is one installation: its own data dir, store and queue, sharing
// the key and the remote with the others.
type device struct {
	id    string
	dir   string
	vault *crypto.Vault
	gate  EncryptedCollection
	queue ConflictQueue
	svc   *clientSyncService
}

func newDevice(t *testing.T, id string, remote adapter.RemoteSource, clock *fakeClock, settings models.SyncSettings) *device {
	t.Helper()
	dir := t.TempDir()
	vault := unlockedVault(t)
	gate := newTestGate(t, dir, id, clock, vault)
	queue := NewConflictQueue(dir, logger.Nop())

	svc, err := NewClientSyncService([]EncryptedCollection{gate}, remote, queue, settings, logger.Nop())
	require.NoError(t, err)
	impl := svc.(*clientSyncService)
	impl.now = clock.Now

	return &device{id: id, dir: dir, vault: vault, gate: gate, queue: queue, svc: impl}
}

func (d *device) sync(t *testing.T) models.SyncReport {
	t.Helper()
	report, err := d.svc.SyncCollection(context.Background(), testCollection)
	require.NoError(t, err)
	return report
}

func (d *device) get(t *testing.T, id string) models.Record {
	t.Helper()
	r, err := d.gate.GetByID(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (d *device) edit(t *testing.T, id, field string, value any) {
	t.Helper()
	r := d.get(t, id)
	r[field] = value
	_, err := d.gate.Update(context.Background(), r)
	require.NoError(t, err)
}

// memRemote is an in-memory mirror with the same contract as the SQL one:
// it numbers versions itself and orders rows by a change sequence it
// assigns, one per push.
type memRemote struct {
	mu     sync.Mutex
	rows   map[string]map[string]models.SyncRecord
	seq    int64
	pushes int
}

func newMemRemote() *memRemote {
	return &memRemote{rows: make(map[string]map[string]models.SyncRecord)}
}

func (m *memRemote) GetChangesAfter(_ context.Context, collection string, cursor int64) ([]models.SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.SyncRecord, 0, len(m.rows[collection]))
	for _, rec := range m.rows[collection] {
		if rec.Seq > cursor {
			rec.Data = rec.Data.Clone()
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memRemote) Push(_ context.Context, collection string, records ...models.SyncRecord) ([]models.SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(records) == 0 {
		return nil, nil
	}
	if m.rows[collection] == nil {
		m.rows[collection] = make(map[string]models.SyncRecord)
	}
	m.seq++

	accepted := make([]models.SyncRecord, 0, len(records))
	for _, rec := range records {
		prev := m.rows[collection][rec.ID]
		rec.Collection = collection
		rec.PreviousVersion = prev.Version
		rec.Version = prev.Version + 1
		rec.Seq = m.seq
		rec.Data = rec.Data.Clone()
		m.rows[collection][rec.ID] = rec
		accepted = append(accepted, rec)
		m.pushes++
	}
	return accepted, nil
}

func (m *memRemote) get(collection, id string) (models.SyncRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[collection][id]
	return rec, ok
}
