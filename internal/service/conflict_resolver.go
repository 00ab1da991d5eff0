package service

import (
	"fmt"

	"github.com/klpod221/kerminal-sub001/models"
)

// Side names one of the two replicas of a record.
type Side int

const (
	SideLocal Side = iota
	SideRemote
)

func (s Side) String() string {
	if s == SideLocal {
		return "local"
	}
	return "remote"
}

// Resolution is the outcome of applying a strategy to a conflict. When
// Deferred is set Winner is meaningless and nothing may be written.
type Resolution struct {
	Winner   Side
	Deferred bool
}

// Resolver picks a winner for one conflict.
type Resolver func(c models.Conflict) Resolution

var resolvers = map[models.ConflictResolutionStrategy]Resolver{
	models.LocalWins:      resolveLocalWins,
	models.RemoteWins:     resolveRemoteWins,
	models.LastWriteWins:  resolveLastWriteWins,
	models.FirstWriteWins: resolveFirstWriteWins,
	models.Manual:         resolveManual,
}

// ResolveConflict applies strategy to c.
func ResolveConflict(strategy models.ConflictResolutionStrategy, c models.Conflict) (Resolution, error) {
	resolve, ok := resolvers[strategy]
	if !ok {
		return Resolution{}, fmt.Errorf("%q: %w", strategy, models.ErrUnknownStrategy)
	}
	return resolve(c), nil
}

func resolveLocalWins(models.Conflict) Resolution {
	return Resolution{Winner: SideLocal}
}

func resolveRemoteWins(models.Conflict) Resolution {
	return Resolution{Winner: SideRemote}
}

// resolveLastWriteWins keeps the side whose content changed later. Equal
// times fall back to the greater device id, then the greater hash, then
// remote, so that every device picks the same winner.
func resolveLastWriteWins(c models.Conflict) Resolution {
	if compareStamps(c.Local, c.Remote) > 0 {
		return Resolution{Winner: SideLocal}
	}
	return Resolution{Winner: SideRemote}
}

// resolveFirstWriteWins keeps the side whose content changed first. Ties go
// to the smaller device id, then the smaller hash, then local.
func resolveFirstWriteWins(c models.Conflict) Resolution {
	if compareStamps(c.Local, c.Remote) > 0 {
		return Resolution{Winner: SideRemote}
	}
	return Resolution{Winner: SideLocal}
}

func resolveManual(models.Conflict) Resolution {
	return Resolution{Deferred: true}
}

// compareStamps orders two writes by content-change time, then device id
// and hash. The stamp timestamp is not used: a collection rewrite moves it
// for records whose content did not change. It returns -1, 0 or 1.
func compareStamps(a, b models.SyncRecord) int {
	at, bt := a.Stamp().ChangedAt(), b.Stamp().ChangedAt()
	switch {
	case at.Before(bt):
		return -1
	case at.After(bt):
		return 1
	}
	if c := compareStrings(a.DeviceID, b.DeviceID); c != 0 {
		return c
	}
	return compareStrings(a.Hash, b.Hash)
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// hasAdvanced reports whether a side moved past the last agreed state: a
// higher version alone is not enough because every collection rewrite bumps
// versions of untouched records.
func hasAdvanced(version int64, hash string, checkpointVersion int64, checkpointHash string) bool {
	return version > checkpointVersion && hash != checkpointHash
}

// sameContent compares two sides by their at-rest hash. Deletions are equal
// to each other and different from any live record.
func sameContent(local, remote models.SyncRecord) bool {
	switch {
	case local.IsDelete() && remote.IsDelete():
		return true
	case local.IsDelete() != remote.IsDelete():
		return false
	default:
		return local.Hash != "" && local.Hash == remote.Hash
	}
}
