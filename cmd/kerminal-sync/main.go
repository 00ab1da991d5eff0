package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/klpod221/kerminal-sub001/internal/adapter"
	"github.com/klpod221/kerminal-sub001/internal/client"
	"github.com/klpod221/kerminal-sub001/internal/config"
	"github.com/klpod221/kerminal-sub001/internal/crypto"
	"github.com/klpod221/kerminal-sub001/internal/logger"
	"github.com/klpod221/kerminal-sub001/internal/service"
	"github.com/klpod221/kerminal-sub001/internal/store"
	"github.com/klpod221/kerminal-sub001/internal/workers"
	"github.com/klpod221/kerminal-sub001/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo(models.NewAppBuildInfo(buildVersion, buildDate, buildCommit))

	bootLog := logger.NewLogger("kerminal-sync")
	cfg, err := config.GetClientConfig(os.Args[1:])
	if err != nil {
		bootLog.Fatal().Err(err).Msg("error getting configs")
	}

	log, err := logger.NewClientLogger("kerminal-sync", logger.FileConfig{
		Path:       cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		bootLog.Fatal().Err(err).Msg("error creating logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, log); err != nil {
		stop()
		log.Fatal().Err(err).Msg("client run error")
	}
}

func run(ctx context.Context, cfg *config.ClientConfig, log *logger.Logger) error {
	deviceID, err := client.LoadOrCreateDeviceID(cfg.Storage.DataDir, cfg.App.DeviceID)
	if err != nil {
		return err
	}
	log = &logger.Logger{Logger: log.With().Str("device", deviceID).Logger()}

	vault := crypto.NewVault(crypto.NewKeyChainService())
	created, err := crypto.OpenVault(vault, cfg.App.VaultPath, cfg.App.MasterPassword)
	if err != nil {
		return fmt.Errorf("unlock vault: %w", err)
	}
	defer vault.Lock()
	log.Info().Bool("created", created).Msg("vault unlocked")

	storages, err := store.NewClientStorages(cfg.Storage, deviceID, log)
	if err != nil {
		return fmt.Errorf("create local storage: %w", err)
	}

	db, remote, err := adapter.OpenSQLRemote(ctx, cfg.Remote, log)
	if err != nil {
		return fmt.Errorf("open remote: %w", err)
	}
	defer db.Close()

	services, err := service.NewClientServices(storages, vault, remote, cfg.Sync, nil, deviceID, log)
	if err != nil {
		return fmt.Errorf("create client services: %w", err)
	}

	ws, err := newWorkers(cfg, storages, services, log)
	if err != nil {
		return err
	}

	return client.NewApp(services.SyncService, ws, cfg.RunOnce, log).Run(ctx)
}

func newWorkers(cfg *config.ClientConfig, storages *store.ClientStorages, services *service.ClientServices, log *logger.Logger) (*workers.Workers, error) {
	cleaners := make([]workers.Cleaner, 0, len(storages.Collections()))
	for _, name := range storages.Collections() {
		st, err := storages.Collection(name)
		if err != nil {
			return nil, err
		}
		cleaners = append(cleaners, st)
	}

	list := []workers.Worker{
		workers.NewCleanupWorker(cleaners, cfg.Storage.RetainDays, cfg.Workers.CleanupInterval, log),
	}
	if cfg.Sync.AutoSyncEnabled {
		list = append(list, workers.NewSyncWorker(services.SyncJob, 0))
	}

	return workers.NewWorkers(list...), nil
}

func printBuildInfo(info models.AppBuildInfo) {
	fmt.Printf("Build version: %s\n", orNA(info.BuildVersion()))
	fmt.Printf("Build date: %s\n", orNA(info.BuildDate()))
	fmt.Printf("Build commit: %s\n", orNA(info.BuildCommit()))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
