package client

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-conf-sync/internal/adapter"
	"github.com/MKhiriev/go-conf-sync/internal/config"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/metrics"
	"github.com/MKhiriev/go-conf-sync/internal/service"
	"github.com/MKhiriev/go-conf-sync/internal/workers"
	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/spf13/afero"
)

type App struct {
	cfg      *config.ClientConfig
	services *service.ClientServices
	file     *workers.ConfigFile
	logger   *logger.Logger
}

// NewApp builds the client sync stack over remote. fs holds the config file
// and the state directory; nil means the OS filesystem. m may be nil.
func NewApp(cfg *config.ClientConfig, remote adapter.RemoteStore, fs afero.Fs, m *metrics.Metrics, log *logger.Logger) (*App, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	file, err := workers.NewConfigFile(fs, cfg.Storage.ConfigFile)
	if err != nil {
		return nil, err
	}

	services, err := service.NewClientServices(cfg, remote, file, fs, m, log)
	if err != nil {
		return nil, fmt.Errorf("create client services: %w", err)
	}

	return &App{
		cfg:      cfg,
		services: services,
		file:     file,
		logger:   log,
	}, nil
}

// Run syncs until SIGINT, SIGTERM or SIGQUIT.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	return a.run(ctx)
}

func (a *App) run(ctx context.Context) (err error) {
	if err = a.services.CloudSync.Initialize(ctx, a.cfg.App.UserID, a.cfg.App.Passphrase); err != nil {
		return fmt.Errorf("initialize cloud sync: %w", err)
	}
	defer func() {
		err = errors.Join(err, a.services.CloudSync.Close())
	}()

	if err = a.initialSync(ctx); err != nil {
		// the periodic job retries, an offline start is not fatal
		a.logger.Warn().Err(err).Str("func", "*App.run").Msg("initial sync failed")
	}

	a.logger.Info().
		Str("config_file", a.file.Path()).
		Dur("sync_interval", a.cfg.Workers.SyncInterval).
		Dur("watch_interval", a.cfg.Workers.WatchInterval).
		Msg("client started")

	workers.NewWorkers(
		workers.NewConfigWatcher(a.file, a.services.CloudSync, a.cfg.Workers.WatchInterval, a.logger),
		workers.NewSyncJobWorker(a.services.SyncJob, a.cfg.Workers.SyncInterval),
	).Run(ctx)

	a.logger.Info().Msg("client stopped")
	return nil
}

func (a *App) initialSync(ctx context.Context) error {
	local, err := a.file.Load(ctx)
	if err != nil {
		return fmt.Errorf("load local config: %w", err)
	}

	res, err := a.services.CloudSync.Sync(ctx, local, models.SyncOptions{})
	if err != nil {
		return err
	}

	switch res.Action {
	case models.SyncActionDownloaded, models.SyncActionMerged:
		if err = a.file.Store(ctx, res.Config); err != nil {
			return fmt.Errorf("store synced config: %w", err)
		}
	case models.SyncActionConflict:
		a.logger.Warn().
			Str("func", "*App.initialSync").
			Int("conflicts", res.ConflictCount).
			Msg("initial sync stopped on conflicts that need manual resolution")
	}

	a.logger.Info().
		Str("action", string(res.Action)).
		Int64("version", res.Version).
		Msg("initial sync finished")
	return nil
}
