package service

import (
	"context"
	"sort"

	"github.com/klpod221/kerminal-sub001/models"
)

// syncPlanner is the concrete implementation of SyncPlanner.
// It performs a purely in-memory comparison of two modified-since diffs
// against the stored checkpoints; no storage layer or logger is required
// because the operation is stateless and produces no side effects.
type syncPlanner struct{}

func NewSyncPlanner() SyncPlanner {
	return &syncPlanner{}
}

// BuildSyncPlan implements SyncPlanner.
//
// It builds two O(1) lookup indexes from the input slices, then makes
// two linear passes to classify every id into exactly one category:
//
//   - Pass 1 (over remote): ids the remote reported, whether or not the
//     local diff has them too.
//   - Pass 2 (over local): ids only the local diff reported.
//
// A side counts as changed only if it advanced past its checkpoint (see
// hasAdvanced). Ids in blocked are reported as Blocked and nothing else.
// ctx cancellation is checked at the start of each iteration.
func (p *syncPlanner) BuildSyncPlan(
	ctx context.Context,
	local, remote []models.SyncRecord,
	checkpoints map[string]models.SyncCheckpoint,
	blocked map[string]struct{},
) (models.SyncPlan, error) {
	var plan models.SyncPlan

	localIndex := indexSyncRecords(local)
	remoteIndex := indexSyncRecords(remote)
	blockedSeen := make(map[string]struct{})

	block := func(id string) bool {
		if _, ok := blocked[id]; !ok {
			return false
		}
		if _, dup := blockedSeen[id]; !dup {
			blockedSeen[id] = struct{}{}
			plan.Blocked = append(plan.Blocked, id)
		}
		return true
	}

	// ── Pass 1: ids reported by the remote ──────────────────────────────────
	for _, id := range sortedKeys(remoteIndex) {
		if err := ctx.Err(); err != nil {
			return models.SyncPlan{}, err
		}
		if block(id) {
			continue
		}

		r := remoteIndex[id]
		cp := checkpoints[id]
		l, existsLocally := localIndex[id]

		remoteAdvanced := hasAdvanced(r.Version, r.Hash, cp.RemoteVersion, cp.RemoteHash)
		localAdvanced := existsLocally && hasAdvanced(l.Version, l.Hash, cp.LocalVersion, cp.LocalHash)

		switch {
		case remoteAdvanced && localAdvanced:
			pair := models.SyncPair{ID: id, Local: l, Remote: r}
			if sameContent(l, r) {
				// Both sides made the same change; only the checkpoint moves.
				plan.Confirm = append(plan.Confirm, pair)
			} else {
				plan.Conflicts = append(plan.Conflicts, pair)
			}

		case remoteAdvanced:
			plan.Pull = append(plan.Pull, r)

		case localAdvanced:
			plan.Push = append(plan.Push, l)

		default:
			// Echo of our own push or a re-stamp without content change.
		}
	}

	// ── Pass 2: ids only the local side reported ────────────────────────────
	for _, id := range sortedKeys(localIndex) {
		if err := ctx.Err(); err != nil {
			return models.SyncPlan{}, err
		}
		if _, seen := remoteIndex[id]; seen {
			continue
		}
		if block(id) {
			continue
		}

		l := localIndex[id]
		cp := checkpoints[id]
		if hasAdvanced(l.Version, l.Hash, cp.LocalVersion, cp.LocalHash) {
			plan.Push = append(plan.Push, l)
		}
		// A delete of a record the remote never saw has an empty hash on
		// both sides and is dropped here.
	}

	return plan, nil
}

// indexSyncRecords keys records by id, keeping the highest version when an
// id is reported twice.
func indexSyncRecords(records []models.SyncRecord) map[string]models.SyncRecord {
	idx := make(map[string]models.SyncRecord, len(records))
	for _, r := range records {
		if prev, ok := idx[r.ID]; ok && prev.Version >= r.Version {
			continue
		}
		idx[r.ID] = r
	}
	return idx
}

func sortedKeys(idx map[string]models.SyncRecord) []string {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
