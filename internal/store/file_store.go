// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/internal/utils"
	"github.com/klpod221/kerminal-sub001/models"
)

const (
	dataSuffix      = ".json"
	metadataSuffix  = ".metadata.json"
	tombstoneSuffix = ".tombstones.json"
	syncStateSuffix = ".syncstate.json"
)

// fileStore keeps a collection in four JSON files inside one directory:
//
//	<collection>.json             active records, pretty-printed array
//	<collection>.metadata.json    version metadata per id, deleted ids included
//	<collection>.tombstones.json  deletion ledger
//	<collection>.syncstate.json   sync checkpoints
//
// Each file is replaced atomically. A crash between two files can leave
// them out of step; the next write of the collection repairs that.
type fileStore struct {
	collection string
	dir        string
	deviceID   string
	now        func() time.Time
	writeFile  func(path string, v any) error
	logger     *logger.Logger

	mu sync.RWMutex
}

// NewFileStore opens (lazily) the collection inside dir. Files are created
// on first write.
func NewFileStore(dir, collection string, opts ...Option) (VersionedStore, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	s := &fileStore{
		collection: collection,
		dir:        dir,
		now:        time.Now,
		writeFile:  utils.WriteJSONFile,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("store." + collection)

	return s, nil
}

func validateCollection(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%q: %w", name, ErrInvalidCollection)
	}
	return nil
}

func (s *fileStore) Collection() string {
	return s.collection
}

func (s *fileStore) ReadData(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.readRecords(), nil
}

func (s *fileStore) WriteData(ctx context.Context, records []models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeSnapshot(records)
}

func (s *fileStore) Mutate(ctx context.Context, fn func([]models.Record) ([]models.Record, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.readRecords())
	if err != nil {
		return err
	}

	return s.writeSnapshot(next)
}

func (s *fileStore) MarkAsDeleted(ctx context.Context, id, deletedBy string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.readRecords()
	meta, err := s.loadMetadata()
	if err != nil {
		return err
	}

	idx := indexOf(records, id)
	if _, known := meta[id]; !known && idx < 0 {
		return fmt.Errorf("delete %s/%s: %w", s.collection, id, ErrRecordNotFound)
	}

	tombstones := s.readTombstones()
	s.tombstone(meta, tombstones, id, deletedBy, s.now().UTC())

	if err := s.writeTombstones(tombstones); err != nil {
		return err
	}
	if err := s.writeMetadata(meta); err != nil {
		return err
	}
	if idx >= 0 {
		records = append(records[:idx], records[idx+1:]...)
		if err := s.writeRecords(records); err != nil {
			return err
		}
	}

	s.logger.Debug().
		Str("func", "fileStore.MarkAsDeleted").
		Str("id", id).
		Int64("version", meta[id].Version.Version).
		Msg("record marked as deleted")

	return nil
}

func (s *fileStore) GetTombstones(ctx context.Context) ([]models.Tombstone, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger := s.readTombstones()
	out := make([]models.Tombstone, 0, len(ledger))
	for _, t := range ledger {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeletedAt.Equal(out[j].DeletedAt) {
			return out[i].DeletedAt.Before(out[j].DeletedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (s *fileStore) RemoveTombstone(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.readTombstones()
	if _, ok := ledger[id]; !ok {
		return nil
	}
	delete(ledger, id)

	return s.writeTombstones(ledger)
}

func (s *fileStore) GetMetadata(ctx context.Context, id string) (models.SyncMetadata, error) {
	if err := ctx.Err(); err != nil {
		return models.SyncMetadata{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.readMetadata()[id]
	if !ok {
		return models.SyncMetadata{}, fmt.Errorf("%s/%s: %w", s.collection, id, ErrMetadataNotFound)
	}
	return m, nil
}

func (s *fileStore) GetAllMetadata(ctx context.Context) ([]models.SyncMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedMetadata(s.readMetadata()), nil
}

func (s *fileStore) GetModifiedSince(ctx context.Context, since time.Time) ([]models.SyncRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.readRecords()
	active := make(map[string]models.Record, len(records))
	for _, r := range records {
		if id := r.ID(); id != "" {
			active[id] = r
		}
	}

	var out []models.SyncRecord
	emitted := make(map[string]struct{})

	for id, m := range s.readMetadata() {
		if !m.Version.Timestamp.After(since) {
			continue
		}

		change := models.SyncRecord{
			ID:              id,
			Collection:      s.collection,
			Version:         m.Version.Version,
			PreviousVersion: m.Version.Version - 1,
			Timestamp:       m.Version.Timestamp,
			ModifiedAt:      m.Version.ChangedAt(),
			DeviceID:        m.Version.DeviceID,
			Hash:            m.Version.Hash,
		}

		if m.IsDeleted {
			change.Action = models.SyncActionDelete
			change.IsTombstone = true
			change.Hash = ""
		} else {
			data, ok := active[id]
			if !ok {
				s.logger.Warn().
					Str("func", "fileStore.GetModifiedSince").
					Str("id", id).
					Msg("metadata marks record active but it is missing from the data file")
				continue
			}
			change.Action = models.SyncActionUpdate
			change.Data = data
		}

		out = append(out, change)
		emitted[id] = struct{}{}
	}

	for id, t := range s.readTombstones() {
		if _, done := emitted[id]; done || !t.DeletedAt.After(since) {
			continue
		}
		out = append(out, models.SyncRecord{
			ID:              id,
			Collection:      s.collection,
			Action:          models.SyncActionDelete,
			Version:         t.Version,
			PreviousVersion: t.Version - 1,
			IsTombstone:     true,
			Timestamp:       t.DeletedAt,
			ModifiedAt:      t.DeletedAt,
			DeviceID:        t.DeletedBy,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (s *fileStore) GenerateHash(record models.Record) (string, error) {
	return utils.ContentHash(record)
}

func (s *fileStore) Cleanup(ctx context.Context, retainDays int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if retainDays < 0 {
		return 0, ErrInvalidRetention
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().UTC().Add(-time.Duration(retainDays) * 24 * time.Hour)

	meta, err := s.loadMetadata()
	if err != nil {
		return 0, err
	}
	ledger := s.readTombstones()
	purged := make(map[string]struct{})

	tombstones := 0
	for id, t := range ledger {
		if t.DeletedAt.Before(cutoff) {
			delete(ledger, id)
			purged[id] = struct{}{}
			tombstones++
		}
	}

	metadata := 0
	for id, m := range meta {
		if m.IsDeleted && m.Version.Timestamp.Before(cutoff) {
			delete(meta, id)
			purged[id] = struct{}{}
			metadata++
		}
	}

	if tombstones > 0 {
		if err := s.writeTombstones(ledger); err != nil {
			return 0, err
		}
	}
	if metadata > 0 {
		if err := s.writeMetadata(meta); err != nil {
			return 0, err
		}
	}

	if len(purged) > 0 {
		s.logger.Info().
			Str("func", "fileStore.Cleanup").
			Int("tombstones", tombstones).
			Int("metadata", metadata).
			Time("cutoff", cutoff).
			Msg("purged expired deletions")
	}

	return len(purged), nil
}

func (s *fileStore) LoadSyncState(ctx context.Context) (models.SyncState, error) {
	if err := ctx.Err(); err != nil {
		return models.SyncState{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var state models.SyncState
	s.readJSON(s.path(syncStateSuffix), &state)
	if state.Checkpoints == nil {
		state.Checkpoints = make(map[string]models.SyncCheckpoint)
	}

	return state, nil
}

func (s *fileStore) SaveSyncState(ctx context.Context, state models.SyncState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFile(s.path(syncStateSuffix), state); err != nil {
		return fmt.Errorf("%w: %w", ErrWritingSyncState, err)
	}
	return nil
}

// writeSnapshot must be called with the write lock held.
func (s *fileStore) writeSnapshot(records []models.Record) error {
	now := s.now().UTC()
	meta, err := s.loadMetadata()
	if err != nil {
		return err
	}
	ledger := s.readTombstones()
	ledgerChanged := false

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		id := r.ID()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%s/%s: %w", s.collection, id, ErrDuplicateID)
		}
		seen[id] = struct{}{}

		hash, err := utils.ContentHash(r)
		if err != nil {
			return fmt.Errorf("%w %s: %w", ErrHashingRecord, id, err)
		}

		prev := meta[id]
		if prev.IsDeleted {
			if _, ok := ledger[id]; ok {
				delete(ledger, id)
				ledgerChanged = true
			}
		}

		modifiedAt := now
		if !prev.IsDeleted && prev.Version.Hash == hash && !prev.Version.ModifiedAt.IsZero() {
			modifiedAt = prev.Version.ModifiedAt
		}

		meta[id] = models.SyncMetadata{
			ID: id,
			Version: models.VersionStamp{
				Version:    prev.Version.Version + 1,
				Timestamp:  now,
				ModifiedAt: modifiedAt,
				DeviceID:   s.deviceID,
				Hash:       hash,
			},
		}
	}

	for id, m := range meta {
		if _, present := seen[id]; present || m.IsDeleted {
			continue
		}
		s.tombstone(meta, ledger, id, s.deviceID, now)
		ledgerChanged = true
	}

	if ledgerChanged {
		if err := s.writeTombstones(ledger); err != nil {
			return err
		}
	}
	if err := s.writeMetadata(meta); err != nil {
		return err
	}
	return s.writeRecords(records)
}

// tombstone flags id as deleted in meta and upserts its ledger entry.
func (s *fileStore) tombstone(meta map[string]models.SyncMetadata, ledger map[string]models.Tombstone, id, deletedBy string, at time.Time) {
	if deletedBy == "" {
		deletedBy = s.deviceID
	}
	next := meta[id].Version.Version + 1

	t := models.Tombstone{
		ID:         id,
		Collection: s.collection,
		DeletedAt:  at,
		DeletedBy:  deletedBy,
		Version:    next,
	}
	ledger[id] = t

	meta[id] = models.SyncMetadata{
		ID: id,
		Version: models.VersionStamp{
			Version:    next,
			Timestamp:  at,
			ModifiedAt: at,
			DeviceID:   s.deviceID,
		},
		IsDeleted: true,
		Tombstone: &t,
	}
}

func (s *fileStore) path(suffix string) string {
	return filepath.Join(s.dir, s.collection+suffix)
}

// readJSON decodes path into v. Missing files are silent, unreadable ones
// are logged; in both cases v is left at its zero value.
func (s *fileStore) readJSON(path string, v any) {
	err := utils.ReadJSONFile(path, v)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return
	}

	s.logger.Warn().Err(err).
		Str("func", "fileStore.readJSON").
		Str("path", path).
		Msg("unreadable store file, treating as empty")
}

func (s *fileStore) readRecords() []models.Record {
	var records []models.Record
	s.readJSON(s.path(dataSuffix), &records)
	if records == nil {
		records = []models.Record{}
	}
	return records
}

func (s *fileStore) readMetadata() map[string]models.SyncMetadata {
	var list []models.SyncMetadata
	s.readJSON(s.path(metadataSuffix), &list)

	return metadataByID(list)
}

// loadMetadata is readMetadata for writers. Rewriting a metadata file that
// exists but cannot be decoded would restart every version at 1, so that
// case is an error instead of an empty map.
func (s *fileStore) loadMetadata() (map[string]models.SyncMetadata, error) {
	var list []models.SyncMetadata
	err := utils.ReadJSONFile(s.path(metadataSuffix), &list)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error().Err(err).
			Str("func", "fileStore.loadMetadata").
			Msg("metadata file is unreadable, refusing to write")
		return nil, fmt.Errorf("%s: %w: %w", s.collection, ErrCorruptMetadata, err)
	}

	return metadataByID(list), nil
}

func metadataByID(list []models.SyncMetadata) map[string]models.SyncMetadata {
	meta := make(map[string]models.SyncMetadata, len(list))
	for _, m := range list {
		meta[m.ID] = m
	}
	return meta
}

func (s *fileStore) readTombstones() map[string]models.Tombstone {
	var list []models.Tombstone
	s.readJSON(s.path(tombstoneSuffix), &list)

	ledger := make(map[string]models.Tombstone, len(list))
	for _, t := range list {
		ledger[t.ID] = t
	}
	return ledger
}

func (s *fileStore) writeRecords(records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}
	if err := s.writeFile(s.path(dataSuffix), records); err != nil {
		return fmt.Errorf("%w: %w", ErrWritingDataFile, err)
	}
	return nil
}

func (s *fileStore) writeMetadata(meta map[string]models.SyncMetadata) error {
	if err := s.writeFile(s.path(metadataSuffix), sortedMetadata(meta)); err != nil {
		return fmt.Errorf("%w: %w", ErrWritingMetadataFile, err)
	}
	return nil
}

func (s *fileStore) writeTombstones(ledger map[string]models.Tombstone) error {
	list := make([]models.Tombstone, 0, len(ledger))
	for _, t := range ledger {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	if err := s.writeFile(s.path(tombstoneSuffix), list); err != nil {
		return fmt.Errorf("%w: %w", ErrWritingTombstoneFile, err)
	}
	return nil
}

func sortedMetadata(meta map[string]models.SyncMetadata) []models.SyncMetadata {
	list := make([]models.SyncMetadata, 0, len(meta))
	for _, m := range meta {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func indexOf(records []models.Record, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
