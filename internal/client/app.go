package client

import (
	"context"

	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/internal/service"
	"github.com/klpod221/kerminal-sub001/internal/workers"
	"github.com/klpod221/kerminal-sub001/models"
)

type App struct {
	syncService service.ClientSyncService
	workers     *workers.Workers
	runOnce     bool
	logger      *logger.Logger
}

// NewApp returns a [Client]. With runOnce set, Run performs a single pass
// and never starts the workers.
func NewApp(syncService service.ClientSyncService, ws *workers.Workers, runOnce bool, logger *logger.Logger) Client {
	return &App{
		syncService: syncService,
		workers:     ws,
		runOnce:     runOnce,
		logger:      logger.WithComponent("app"),
	}
}

func (a *App) Run(ctx context.Context) error {
	err := a.initialSync(ctx)
	if a.runOnce {
		return err
	}

	a.workers.Start(ctx)
	a.logger.Info().Msg("workers started")

	<-ctx.Done()

	a.workers.Stop()
	a.logger.Info().Msg("workers stopped")

	return nil
}

// initialSync runs one pass when sync is active. Outside run-once mode a
// failure is only logged so that the periodic job can retry it.
func (a *App) initialSync(ctx context.Context) error {
	if !a.syncService.Settings().IsActive {
		a.logger.Info().Msg("sync is disabled, skipping initial pass")
		return nil
	}

	reports, err := a.syncService.Sync(ctx)
	for _, r := range reports {
		logReport(a.logger, r)
	}

	if err != nil {
		a.logger.Err(err).Str("func", "App.initialSync").Msg("initial sync failed")
		return err
	}
	return nil
}

func logReport(l *logger.Logger, r models.SyncReport) {
	l.Info().
		Str("collection", r.Collection).
		Int("pushed", r.Pushed).
		Int("pulled", r.Pulled).
		Int("confirmed", r.Confirmed).
		Int("conflicts", r.Conflicts).
		Int("resolved", r.Resolved).
		Int("deferred", r.Deferred).
		Int("blocked", r.Blocked).
		Int("rejected", r.Rejected).
		Dur("took", r.FinishedAt.Sub(r.StartedAt)).
		Msg("sync pass finished")
}
