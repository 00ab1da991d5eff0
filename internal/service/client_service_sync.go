package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klpod221/kerminal-sub001/internal/adapter"
	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/internal/store"
	"github.com/klpod221/kerminal-sub001/internal/validators"
	"github.com/klpod221/kerminal-sub001/models"
)

type clientSyncService struct {
	collections map[string]EncryptedCollection
	order       []string
	remote      adapter.RemoteSource
	planner     SyncPlanner
	queue       ConflictQueue
	validator   validators.Validator
	now         func() time.Time
	logger      *logger.Logger

	mu       sync.RWMutex
	settings models.SyncSettings

	busy atomic.Bool
}

// NewClientSyncService wires the collections to remote. settings must be
// valid; see [models.SyncSettings.Validate].
func NewClientSyncService(
	collections []EncryptedCollection,
	remote adapter.RemoteSource,
	queue ConflictQueue,
	settings models.SyncSettings,
	logger *logger.Logger,
) (ClientSyncService, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("sync settings: %w", err)
	}

	s := &clientSyncService{
		collections: make(map[string]EncryptedCollection, len(collections)),
		remote:      remote,
		planner:     NewSyncPlanner(),
		queue:       queue,
		validator:   validators.NewSyncRecordValidator(),
		now:         time.Now,
		logger:      logger.WithComponent("sync"),
		settings:    settings,
	}
	for _, c := range collections {
		s.collections[c.Collection()] = c
		s.order = append(s.order, c.Collection())
	}

	return s, nil
}

func (s *clientSyncService) Settings() models.SyncSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings
}

func (s *clientSyncService) UpdateSettings(settings models.SyncSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("sync settings: %w", err)
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	return nil
}

func (s *clientSyncService) Sync(ctx context.Context) ([]models.SyncReport, error) {
	if err := s.begin(true); err != nil {
		return nil, err
	}
	defer s.busy.Store(false)

	reports := make([]models.SyncReport, 0, len(s.order))
	var errs []error
	for _, name := range s.order {
		report, err := s.syncCollection(ctx, s.collections[name])
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", name, err))
			if ctx.Err() != nil {
				break
			}
		}
	}

	return reports, errors.Join(errs...)
}

func (s *clientSyncService) SyncCollection(ctx context.Context, collection string) (models.SyncReport, error) {
	gate, ok := s.collections[collection]
	if !ok {
		return models.SyncReport{}, fmt.Errorf("%q: %w", collection, ErrUnknownCollection)
	}

	if err := s.begin(true); err != nil {
		return models.SyncReport{}, err
	}
	defer s.busy.Store(false)

	return s.syncCollection(ctx, gate)
}

func (s *clientSyncService) PendingConflicts(ctx context.Context) ([]models.Conflict, error) {
	return s.queue.List(ctx)
}

func (s *clientSyncService) ResolveConflict(ctx context.Context, collection, id string, choice models.ConflictChoice) error {
	if choice != models.ChooseLocal && choice != models.ChooseRemote {
		return fmt.Errorf("%q: %w", choice, models.ErrUnknownConflictChoice)
	}

	gate, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%q: %w", collection, ErrUnknownCollection)
	}

	if err := s.begin(false); err != nil {
		return err
	}
	defer s.busy.Store(false)

	if err := gate.CheckAccess(); err != nil {
		return err
	}

	c, err := s.queue.Get(ctx, collection, id)
	if err != nil {
		return err
	}

	st := gate.Store()
	state, err := st.LoadSyncState(ctx)
	if err != nil {
		return fmt.Errorf("load sync state: %w", err)
	}

	var cp models.SyncCheckpoint
	switch choice {
	case models.ChooseLocal:
		current, err := s.currentLocal(ctx, gate, id)
		if err != nil {
			return err
		}
		local, accepted, err := s.applyLocal(ctx, gate, current)
		if err != nil {
			return err
		}
		cp = s.checkpoint(local, accepted)
	case models.ChooseRemote:
		local, _, err := s.applyRemote(ctx, gate, c.Remote, true)
		if err != nil {
			return err
		}
		cp = s.checkpoint(local, c.Remote)
	}

	state.Checkpoints[id] = cp
	if err := st.SaveSyncState(ctx, state); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}

	if err := s.queue.Remove(ctx, collection, id); err != nil {
		return err
	}

	s.logger.Info().
		Str("func", "clientSyncService.ResolveConflict").
		Str("collection", collection).
		Str("id", id).
		Str("choice", string(choice)).
		Msg("conflict resolved manually")

	return nil
}

// begin claims the busy flag. Overlapping passes are rejected, not queued.
func (s *clientSyncService) begin(requireActive bool) error {
	if requireActive && !s.Settings().IsActive {
		return ErrSyncDisabled
	}
	if !s.busy.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	return nil
}

func (s *clientSyncService) syncCollection(ctx context.Context, gate EncryptedCollection) (models.SyncReport, error) {
	name := gate.Collection()
	report := models.SyncReport{Collection: name, StartedAt: s.now().UTC()}

	if err := gate.CheckAccess(); err != nil {
		return report, err
	}

	st := gate.Store()
	state, err := st.LoadSyncState(ctx)
	if err != nil {
		return report, fmt.Errorf("load sync state: %w", err)
	}

	local, err := st.GetModifiedSince(ctx, state.LastSyncAt)
	if err != nil {
		return report, fmt.Errorf("get local changes: %w", err)
	}

	// The two sides keep separate cursors: local changes by this device's
	// clock, remote changes by the sequence the mirror assigned.
	remote, err := s.remote.GetChangesAfter(ctx, name, state.RemoteCursor)
	if err != nil {
		return report, fmt.Errorf("get remote changes: %w", err)
	}
	remoteCursor := state.RemoteCursor
	for _, r := range remote {
		remoteCursor = max(remoteCursor, r.Seq)
	}
	remote = s.acceptRemote(ctx, name, remote, &report)

	blocked, err := s.queue.Pending(ctx, name)
	if err != nil {
		return report, fmt.Errorf("get pending conflicts: %w", err)
	}

	plan, err := s.planner.BuildSyncPlan(ctx, local, remote, state.Checkpoints, blocked)
	if err != nil {
		return report, fmt.Errorf("build sync plan: %w", err)
	}
	report.Blocked = len(plan.Blocked)

	execErr := s.executePlan(ctx, gate, plan, &state, &report)

	// Anything left behind must be seen again, so the cursor only moves
	// when the pass handled every change it was shown.
	// Our own pushes land above remoteCursor and are read back next pass,
	// where the checkpoints recognise them.
	if execErr == nil && report.Blocked == 0 && report.Deferred == 0 && report.Skipped == 0 {
		state.LastSyncAt = report.StartedAt
		state.RemoteCursor = remoteCursor
	}
	report.FinishedAt = s.now().UTC()

	if err := st.SaveSyncState(context.WithoutCancel(ctx), state); err != nil {
		return report, errors.Join(execErr, fmt.Errorf("save sync state: %w", err))
	}
	if execErr != nil {
		return report, execErr
	}

	s.logger.Info().
		Str("func", "clientSyncService.syncCollection").
		Str("collection", name).
		Int("pushed", report.Pushed).
		Int("pulled", report.Pulled).
		Int("confirmed", report.Confirmed).
		Int("conflicts", report.Conflicts).
		Int("deferred", report.Deferred).
		Int("blocked", report.Blocked).
		Int("skipped", report.Skipped).
		Int("rejected", report.Rejected).
		Msg("collection synchronised")

	return report, nil
}

// acceptRemote drops remote records with a broken shape. They do not hold
// the remote cursor back, so a bad row is reported once instead of
// stalling the collection.
func (s *clientSyncService) acceptRemote(ctx context.Context, name string, records []models.SyncRecord, report *models.SyncReport) []models.SyncRecord {
	accepted := make([]models.SyncRecord, 0, len(records))
	for _, rec := range records {
		if err := s.validator.Validate(ctx, rec); err != nil {
			report.Rejected++
			s.logger.Warn().Err(err).
				Str("func", "clientSyncService.acceptRemote").
				Str("collection", name).
				Str("id", rec.ID).
				Msg("remote record rejected")
			continue
		}
		accepted = append(accepted, rec)
	}
	return accepted
}

// executePlan carries out plan and records a checkpoint for every id it
// settles. It returns the first error; checkpoints made before it stay.
func (s *clientSyncService) executePlan(
	ctx context.Context,
	gate EncryptedCollection,
	plan models.SyncPlan,
	state *models.SyncState,
	report *models.SyncReport,
) error {
	direction := s.Settings().SyncDirection
	strategy := s.Settings().ConflictStrategy
	name := gate.Collection()

	if len(plan.Push) > 0 {
		if !direction.Pushes() {
			report.Skipped += len(plan.Push)
		} else {
			accepted, err := s.push(ctx, name, plan.Push)
			if err != nil {
				return err
			}
			for i, l := range plan.Push {
				state.Checkpoints[l.ID] = s.checkpoint(l.Stamp(), accepted[i])
				report.Pushed++
			}
		}
	}

	for _, r := range plan.Pull {
		if !direction.Pulls() {
			report.Skipped++
			continue
		}
		local, wrote, err := s.applyRemote(ctx, gate, r, false)
		if err != nil {
			return err
		}
		state.Checkpoints[r.ID] = s.checkpoint(local, r)
		if wrote {
			report.Pulled++
		} else {
			report.Confirmed++
		}
	}

	for _, pair := range plan.Confirm {
		state.Checkpoints[pair.ID] = s.checkpoint(pair.Local.Stamp(), pair.Remote)
		report.Confirmed++
	}

	for _, pair := range plan.Conflicts {
		if direction != models.SyncBoth {
			report.Skipped++
			continue
		}

		if s.samePlaintext(gate, pair.Local, pair.Remote) {
			state.Checkpoints[pair.ID] = s.checkpoint(pair.Local.Stamp(), pair.Remote)
			report.Confirmed++
			continue
		}
		report.Conflicts++

		conflict := models.Conflict{
			EntityType: name,
			EntityID:   pair.ID,
			LocalData:  pair.Local.Data,
			RemoteData: pair.Remote.Data,
			Local:      pair.Local,
			Remote:     pair.Remote,
			CreatedAt:  s.now().UTC(),
		}

		resolution, err := ResolveConflict(strategy, conflict)
		if err != nil {
			return err
		}

		if resolution.Deferred {
			if err := s.queue.Add(ctx, conflict); err != nil {
				return fmt.Errorf("queue conflict %s: %w", pair.ID, err)
			}
			report.Deferred++
			s.logger.Warn().
				Str("func", "clientSyncService.executePlan").
				Str("collection", name).
				Str("id", pair.ID).
				Msg("conflict deferred to manual resolution")
			continue
		}

		var cp models.SyncCheckpoint
		if resolution.Winner == SideLocal {
			local, accepted, err := s.applyLocal(ctx, gate, pair.Local)
			if err != nil {
				return err
			}
			cp = s.checkpoint(local, accepted)
		} else {
			local, _, err := s.applyRemote(ctx, gate, pair.Remote, true)
			if err != nil {
				return err
			}
			cp = s.checkpoint(local, pair.Remote)
		}
		state.Checkpoints[pair.ID] = cp
		report.Resolved++

		s.logger.Info().
			Str("func", "clientSyncService.executePlan").
			Str("collection", name).
			Str("id", pair.ID).
			Str("strategy", strategy.String()).
			Str("winner", resolution.Winner.String()).
			Msg("conflict resolved")
	}

	return nil
}

// applyRemote writes r into the local collection. Unless force is set, a
// live record whose content already matches is left untouched. It returns
// the local stamp after the call and whether anything was written.
func (s *clientSyncService) applyRemote(ctx context.Context, gate EncryptedCollection, r models.SyncRecord, force bool) (models.VersionStamp, bool, error) {
	st := gate.Store()

	meta, known, err := s.metadata(ctx, st, r.ID)
	if err != nil {
		return models.VersionStamp{}, false, err
	}
	live := known && !meta.IsDeleted

	if r.IsDelete() {
		if !live {
			return meta.Version, false, nil
		}
		if err := gate.Delete(ctx, r.ID); err != nil {
			return models.VersionStamp{}, false, fmt.Errorf("apply remote delete %s: %w", r.ID, err)
		}
		return s.stampAfterWrite(ctx, st, r.ID)
	}

	if live && !force {
		if meta.Version.Hash == r.Hash {
			return meta.Version, false, nil
		}
		if current, ok, err := s.atRest(ctx, st, r.ID); err == nil && ok {
			if s.samePlaintext(gate, models.SyncRecord{ID: r.ID, Data: current, Hash: meta.Version.Hash}, r) {
				return meta.Version, false, nil
			}
		}
	}

	if _, err := gate.Put(ctx, r.Data); err != nil {
		return models.VersionStamp{}, false, fmt.Errorf("apply remote %s: %w", r.ID, err)
	}
	return s.stampAfterWrite(ctx, st, r.ID)
}

// applyLocal re-writes a live local winner through the gate so the
// resolution is itself versioned, then pushes it. Deletions are pushed as
// they are.
func (s *clientSyncService) applyLocal(ctx context.Context, gate EncryptedCollection, l models.SyncRecord) (models.VersionStamp, models.SyncRecord, error) {
	out := l
	if !l.IsDelete() {
		if _, err := gate.Put(ctx, l.Data); err != nil {
			return models.VersionStamp{}, models.SyncRecord{}, fmt.Errorf("rewrite local winner %s: %w", l.ID, err)
		}
		stamp, _, err := s.stampAfterWrite(ctx, gate.Store(), l.ID)
		if err != nil {
			return models.VersionStamp{}, models.SyncRecord{}, err
		}
		out.Action = models.SyncActionUpdate
		out.Version = stamp.Version
		out.PreviousVersion = stamp.Version - 1
		out.Timestamp = stamp.Timestamp
		out.ModifiedAt = stamp.ModifiedAt
		out.DeviceID = stamp.DeviceID
		out.Hash = stamp.Hash
	}

	accepted, err := s.push(ctx, gate.Collection(), []models.SyncRecord{out})
	if err != nil {
		return models.VersionStamp{}, models.SyncRecord{}, err
	}

	return out.Stamp(), accepted[0], nil
}

// currentLocal describes the present local state of id as a sync record.
func (s *clientSyncService) currentLocal(ctx context.Context, gate EncryptedCollection, id string) (models.SyncRecord, error) {
	st := gate.Store()

	meta, known, err := s.metadata(ctx, st, id)
	if err != nil {
		return models.SyncRecord{}, err
	}

	rec := models.SyncRecord{
		ID:              id,
		Collection:      gate.Collection(),
		Version:         meta.Version.Version,
		PreviousVersion: meta.Version.Version - 1,
		Timestamp:       meta.Version.Timestamp,
		ModifiedAt:      meta.Version.ChangedAt(),
		DeviceID:        meta.Version.DeviceID,
		Hash:            meta.Version.Hash,
	}
	if !known || meta.IsDeleted {
		rec.Action = models.SyncActionDelete
		rec.IsTombstone = true
		rec.Hash = ""
		return rec, nil
	}

	data, ok, err := s.atRest(ctx, st, id)
	if err != nil {
		return models.SyncRecord{}, err
	}
	if !ok {
		return models.SyncRecord{}, fmt.Errorf("%s/%s: %w", gate.Collection(), id, store.ErrRecordNotFound)
	}
	rec.Action = models.SyncActionUpdate
	rec.Data = data

	return rec, nil
}

func (s *clientSyncService) push(ctx context.Context, collection string, records []models.SyncRecord) ([]models.SyncRecord, error) {
	accepted, err := s.remote.Push(ctx, collection, records...)
	if err != nil {
		return nil, fmt.Errorf("push %d records: %w", len(records), err)
	}
	if len(accepted) != len(records) {
		return nil, fmt.Errorf("pushed %d, acknowledged %d: %w", len(records), len(accepted), ErrUnexpectedPushEcho)
	}
	return accepted, nil
}

// samePlaintext compares two live records by their decrypted content.
// Fresh ciphertext differs even when the secret does not.
func (s *clientSyncService) samePlaintext(gate EncryptedCollection, local, remote models.SyncRecord) bool {
	if local.IsDelete() || remote.IsDelete() {
		return local.IsDelete() && remote.IsDelete()
	}
	if local.Hash != "" && local.Hash == remote.Hash {
		return true
	}

	lh, err := gate.PlainHash(local.Data)
	if err != nil {
		s.logger.Debug().Err(err).Str("id", local.ID).Msg("cannot hash local plaintext")
		return false
	}
	rh, err := gate.PlainHash(remote.Data)
	if err != nil {
		s.logger.Debug().Err(err).Str("id", remote.ID).Msg("cannot hash remote plaintext")
		return false
	}
	return lh == rh
}

func (s *clientSyncService) checkpoint(local models.VersionStamp, remote models.SyncRecord) models.SyncCheckpoint {
	return models.SyncCheckpoint{
		LocalVersion:  local.Version,
		LocalHash:     local.Hash,
		RemoteVersion: remote.Version,
		RemoteHash:    remote.Hash,
		SyncedAt:      s.now().UTC(),
	}
}

func (s *clientSyncService) metadata(ctx context.Context, st store.VersionedStore, id string) (models.SyncMetadata, bool, error) {
	meta, err := st.GetMetadata(ctx, id)
	switch {
	case err == nil:
		return meta, true, nil
	case errors.Is(err, store.ErrMetadataNotFound):
		return models.SyncMetadata{}, false, nil
	default:
		return models.SyncMetadata{}, false, fmt.Errorf("get metadata %s: %w", id, err)
	}
}

func (s *clientSyncService) stampAfterWrite(ctx context.Context, st store.VersionedStore, id string) (models.VersionStamp, bool, error) {
	meta, err := st.GetMetadata(ctx, id)
	if err != nil {
		return models.VersionStamp{}, true, fmt.Errorf("read back %s: %w", id, err)
	}
	return meta.Version, true, nil
}

// atRest returns the stored (encrypted) form of id.
func (s *clientSyncService) atRest(ctx context.Context, st store.VersionedStore, id string) (models.Record, bool, error) {
	records, err := st.ReadData(ctx)
	if err != nil {
		return nil, false, err
	}
	if idx := indexByID(records, id); idx >= 0 {
		return records[idx], true, nil
	}
	return nil, false, nil
}
