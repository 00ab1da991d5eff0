package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/internal/utils"
	"github.com/klpod221/kerminal-sub001/models"
)

// ConflictsFileName is the pending queue file inside the data directory.
const ConflictsFileName = "conflicts.json"

type fileConflictQueue struct {
	path   string
	logger *logger.Logger

	mu sync.Mutex
}

// NewConflictQueue returns a queue persisted in dataDir/conflicts.json.
// Entries hold records in their at-rest form only.
func NewConflictQueue(dataDir string, logger *logger.Logger) ConflictQueue {
	return &fileConflictQueue{
		path:   filepath.Join(dataDir, ConflictsFileName),
		logger: logger,
	}
}

// Add inserts c, replacing an older entry for the same entity.
func (q *fileConflictQueue) Add(ctx context.Context, c models.Conflict) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.load()
	entries[c.Key()] = c

	return q.save(entries)
}

func (q *fileConflictQueue) Get(ctx context.Context, entityType, entityID string) (models.Conflict, error) {
	if err := ctx.Err(); err != nil {
		return models.Conflict{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	c, ok := q.load()[models.ConflictKey(entityType, entityID)]
	if !ok {
		return models.Conflict{}, fmt.Errorf("%s/%s: %w", entityType, entityID, ErrConflictNotFound)
	}
	return c, nil
}

func (q *fileConflictQueue) List(ctx context.Context) ([]models.Conflict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	return sortedConflicts(q.load()), nil
}

func (q *fileConflictQueue) Remove(ctx context.Context, entityType, entityID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.load()
	key := models.ConflictKey(entityType, entityID)
	if _, ok := entries[key]; !ok {
		return fmt.Errorf("%s: %w", key, ErrConflictNotFound)
	}
	delete(entries, key)

	return q.save(entries)
}

// Pending returns the ids of entityType that wait for a manual decision.
func (q *fileConflictQueue) Pending(ctx context.Context, entityType string) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make(map[string]struct{})
	for _, c := range q.load() {
		if c.EntityType == entityType {
			ids[c.EntityID] = struct{}{}
		}
	}
	return ids, nil
}

func (q *fileConflictQueue) load() map[string]models.Conflict {
	var list []models.Conflict
	if err := utils.ReadJSONFile(q.path, &list); err != nil && !errors.Is(err, os.ErrNotExist) {
		q.logger.Warn().Err(err).
			Str("func", "fileConflictQueue.load").
			Str("path", q.path).
			Msg("unreadable conflict queue, treating as empty")
	}

	entries := make(map[string]models.Conflict, len(list))
	for _, c := range list {
		entries[c.Key()] = c
	}
	return entries
}

func (q *fileConflictQueue) save(entries map[string]models.Conflict) error {
	if err := utils.WriteJSONFile(q.path, sortedConflicts(entries)); err != nil {
		return fmt.Errorf("write conflict queue: %w", err)
	}
	return nil
}

func sortedConflicts(entries map[string]models.Conflict) []models.Conflict {
	list := make([]models.Conflict, 0, len(entries))
	for _, c := range entries {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].Key() < list[j].Key()
	})
	return list
}
