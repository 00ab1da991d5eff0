package store

import (
	"fmt"
	"os"
	"sync"

	"github.com/klpod221/kerminal-sub001/internal/config"
	"github.com/klpod221/kerminal-sub001/internal/logger"
)

// ClientStorages hands out one [VersionedStore] per collection. Going
// through the registry guarantees that all callers touching a collection
// share the same lock.
type ClientStorages struct {
	dataDir     string
	collections []string
	opts        []Option
	logger      *logger.Logger

	mu     sync.Mutex
	stores map[string]VersionedStore
}

// NewClientStorages initialises the client storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Creates cfg.DataDir (0700) if it does not yet exist.
//  2. Opens a store for every configured collection so that invalid names
//     surface at start-up rather than on first sync.
//
// deviceID is stamped into every write made through the returned stores.
func NewClientStorages(cfg config.ClientStorage, deviceID string, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Str("data_dir", cfg.DataDir).Msg("creating new storages...")

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &ClientStorages{
		dataDir:     cfg.DataDir,
		collections: append([]string(nil), cfg.Collections...),
		opts:        []Option{WithDeviceID(deviceID), WithLogger(logger)},
		logger:      logger,
		stores:      make(map[string]VersionedStore, len(cfg.Collections)),
	}

	for _, name := range s.collections {
		if _, err := s.open(name); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Collection returns the store of a configured collection.
func (s *ClientStorages) Collection(name string) (VersionedStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stores[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownCollection)
	}
	return st, nil
}

// Collections returns the configured collection names in configuration order.
func (s *ClientStorages) Collections() []string {
	return append([]string(nil), s.collections...)
}

func (s *ClientStorages) DataDir() string {
	return s.dataDir
}

func (s *ClientStorages) open(name string) (VersionedStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.stores[name]; ok {
		return st, nil
	}

	st, err := NewFileStore(s.dataDir, name, s.opts...)
	if err != nil {
		return nil, err
	}
	s.stores[name] = st

	return st, nil
}
