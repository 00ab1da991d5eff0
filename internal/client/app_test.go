package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/internal/workers"
	"github.com/klpod221/kerminal-sub001/models"
)

type spySyncService struct {
	calls    atomic.Int64
	err      error
	settings models.SyncSettings
}

func (s *spySyncService) Sync(context.Context) ([]models.SyncReport, error) {
	s.calls.Add(1)
	return []models.SyncReport{{Collection: "ssh_profiles", Pulled: 2}}, s.err
}

func (s *spySyncService) SyncCollection(context.Context, string) (models.SyncReport, error) {
	return models.SyncReport{}, nil
}

func (s *spySyncService) PendingConflicts(context.Context) ([]models.Conflict, error) {
	return nil, nil
}

func (s *spySyncService) ResolveConflict(context.Context, string, string, models.ConflictChoice) error {
	return nil
}

func (s *spySyncService) Settings() models.SyncSettings { return s.settings }

func (s *spySyncService) UpdateSettings(settings models.SyncSettings) error {
	s.settings = settings
	return nil
}

type lifecycleWorker struct {
	started atomic.Int64
	stopped atomic.Int64
}

func (w *lifecycleWorker) Start(context.Context) { w.started.Add(1) }
func (w *lifecycleWorker) Stop()                 { w.stopped.Add(1) }

func activeSettings() models.SyncSettings {
	return models.SyncSettings{IsActive: true, AutoSyncEnabled: true, SyncIntervalMinutes: 5}
}

func TestApp_RunOnce(t *testing.T) {
	spy := &spySyncService{settings: activeSettings()}
	w := &lifecycleWorker{}

	app := NewApp(spy, workers.NewWorkers(w), true, logger.Nop())
	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, int64(1), spy.calls.Load())
	assert.Zero(t, w.started.Load(), "run-once never starts workers")
}

func TestApp_RunOnce_ReturnsSyncError(t *testing.T) {
	spy := &spySyncService{settings: activeSettings(), err: errors.New("mirror down")}

	app := NewApp(spy, workers.NewWorkers(), true, logger.Nop())
	err := app.Run(context.Background())
	assert.EqualError(t, err, "mirror down")
}

func TestApp_Run_StartsAndStopsWorkers(t *testing.T) {
	spy := &spySyncService{settings: activeSettings(), err: errors.New("mirror down")}
	w := &lifecycleWorker{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	app := NewApp(spy, workers.NewWorkers(w), false, logger.Nop())
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return w.started.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "initial failure is left to the periodic job")
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, int64(1), w.stopped.Load())
	assert.Equal(t, int64(1), spy.calls.Load())
}

func TestApp_Run_DisabledSkipsInitialPass(t *testing.T) {
	spy := &spySyncService{}

	app := NewApp(spy, workers.NewWorkers(), true, logger.Nop())
	require.NoError(t, app.Run(context.Background()))
	assert.Zero(t, spy.calls.Load())
}
