package service

import (
	"fmt"

	"github.com/klpod221/kerminal-sub001/internal/adapter"
	"github.com/klpod221/kerminal-sub001/internal/crypto"
	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/internal/store"
	"github.com/klpod221/kerminal-sub001/models"
)

type ClientServices struct {
	Collections map[string]EncryptedCollection
	Conflicts   ConflictQueue
	SyncService ClientSyncService
	SyncJob     ClientSyncJob
}

// NewClientServices builds an encrypted collection for every configured
// store and the sync machinery on top of them. fields maps a collection to
// its designated paths; collections missing from it fall back to
// [DefaultEncryptedFields].
func NewClientServices(
	storages *store.ClientStorages,
	keys crypto.KeyProvider,
	remote adapter.RemoteSource,
	settings models.SyncSettings,
	fields map[string][]string,
	deviceID string,
	logger *logger.Logger,
) (*ClientServices, error) {
	collections := make(map[string]EncryptedCollection)
	ordered := make([]EncryptedCollection, 0, len(storages.Collections()))

	for _, name := range storages.Collections() {
		st, err := storages.Collection(name)
		if err != nil {
			return nil, err
		}

		paths, ok := fields[name]
		if !ok {
			paths = DefaultEncryptedFields[name]
		}
		visitors, err := ParseFieldPaths(paths...)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", name, err)
		}

		gate := NewEncryptedCollection(st, keys, visitors,
			WithGateDeviceID(deviceID),
			WithGateLogger(logger),
		)
		collections[name] = gate
		ordered = append(ordered, gate)
	}

	queue := NewConflictQueue(storages.DataDir(), logger)

	syncSvc, err := NewClientSyncService(ordered, remote, queue, settings, logger)
	if err != nil {
		return nil, err
	}

	return &ClientServices{
		Collections: collections,
		Conflicts:   queue,
		SyncService: syncSvc,
		SyncJob:     NewClientSyncJob(syncSvc, logger),
	}, nil
}

// Collection returns the encrypted collection called name.
func (s *ClientServices) Collection(name string) (EncryptedCollection, error) {
	c, ok := s.Collections[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownCollection)
	}
	return c, nil
}
