package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/klpod221/kerminal-sub001/internal/logger"
)

// DefaultSyncInterval is used when neither Start nor the sync settings give
// a positive interval.
const DefaultSyncInterval = 5 * time.Minute

// ClientSyncJob periodically runs a sync pass in the background.
type ClientSyncJob interface {
	// Start launches the background goroutine. A non-positive interval
	// means the auto sync period of the service settings. Any previously
	// running job is stopped first.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the goroutine to exit and blocks until it has.
	Stop()
}

type clientSyncJob struct {
	syncService ClientSyncService
	logger      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClientSyncJob creates a clientSyncJob that calls syncService.Sync on a
// ticker. The job is idle until Start is called.
func NewClientSyncJob(syncService ClientSyncService, logger *logger.Logger) ClientSyncJob {
	return &clientSyncJob{syncService: syncService, logger: logger.WithComponent("sync-job")}
}

// Start implements ClientSyncJob. The goroutine exits when ctx is cancelled
// or Stop is called.
func (j *clientSyncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = j.syncService.Settings().Interval()
	}
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.tick(jobCtx)
			}
		}
	}()
}

func (j *clientSyncJob) tick(ctx context.Context) {
	_, err := j.syncService.Sync(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress), errors.Is(err, ErrSyncDisabled):
		j.logger.Debug().Err(err).Msg("scheduled sync skipped")
	default:
		j.logger.Err(err).Msg("scheduled sync failed")
	}
}

// Stop implements ClientSyncJob. Safe to call when the job is not running.
func (j *clientSyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
