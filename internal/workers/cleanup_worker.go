// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 klpod221

package workers

import (
	"context"
	"sync"
	"time"

	"github.com/klpod221/kerminal-sub001/internal/logger"
)

type cleanupWorker struct {
	collections []Cleaner
	retainDays  int
	interval    time.Duration
	logger      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCleanupWorker purges tombstones older than retainDays from every
// collection, once right after Start and then every interval.
func NewCleanupWorker(collections []Cleaner, retainDays int, interval time.Duration, logger *logger.Logger) Worker {
	return &cleanupWorker{
		collections: collections,
		retainDays:  retainDays,
		interval:    interval,
		logger:      logger.WithComponent("cleanup-worker"),
	}
}

func (w *cleanupWorker) Start(ctx context.Context) {
	w.Stop()

	w.mu.Lock()
	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		t := time.NewTicker(w.interval)
		defer t.Stop()

		w.cleanup(workerCtx)
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-t.C:
				w.cleanup(workerCtx)
			}
		}
	}()
}

func (w *cleanupWorker) cleanup(ctx context.Context) {
	for _, c := range w.collections {
		if ctx.Err() != nil {
			return
		}

		removed, err := c.Cleanup(ctx, w.retainDays)
		if err != nil {
			w.logger.Err(err).
				Str("func", "cleanupWorker.cleanup").
				Str("collection", c.Collection()).
				Msg("tombstone cleanup failed")
			continue
		}
		if removed > 0 {
			w.logger.Info().
				Str("collection", c.Collection()).
				Int("removed", removed).
				Msg("expired tombstones purged")
		}
	}
}

func (w *cleanupWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}
