package service

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/models"
)

// DefaultSyncInterval is used when a job is started without an interval.
const DefaultSyncInterval = 5 * time.Minute

// syncer is the part of [CloudSyncManager] the job drives.
type syncer interface {
	Sync(ctx context.Context, local models.Config, opts models.SyncOptions) (models.SyncResult, error)
}

type clientSyncJob struct {
	manager syncer
	source  LocalConfigSource
	logger  *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClientSyncJob creates a clientSyncJob that loads the local configuration
// from source and syncs it through manager on a ticker. The job is idle until
// Start is called.
func NewClientSyncJob(manager syncer, source LocalConfigSource, log *logger.Logger) ClientSyncJob {
	if log == nil {
		log = logger.Nop()
	}
	return &clientSyncJob{manager: manager, source: source, logger: log}
}

// Start implements ClientSyncJob. It stops any previously running job, then
// launches a background goroutine that syncs every interval. If interval is
// zero or negative it defaults to 5 minutes. The goroutine exits when ctx is
// cancelled or Stop is called.
func (j *clientSyncJob) Start(ctx context.Context, interval time.Duration) {
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
				_ = j.runOnce(jobCtx)
			}
		}
	}()
}

// runOnce performs one load-sync-store round. The result configuration is
// written back only when the remote side changed it.
func (j *clientSyncJob) runOnce(ctx context.Context) error {
	local, err := j.source.Load(ctx)
	if err != nil {
		j.logger.Err(err).Str("func", "*clientSyncJob.runOnce").Msg("load local config")
		return err
	}

	res, err := j.manager.Sync(ctx, local, models.SyncOptions{})
	if err != nil {
		j.logger.Err(err).Str("func", "*clientSyncJob.runOnce").Msg("periodic sync failed")
		return err
	}

	switch res.Action {
	case models.SyncActionDownloaded, models.SyncActionMerged:
		if err = j.source.Store(ctx, res.Config); err != nil {
			j.logger.Err(err).Str("func", "*clientSyncJob.runOnce").Msg("store synced config")
			return err
		}
	case models.SyncActionConflict:
		j.logger.Warn().
			Str("func", "*clientSyncJob.runOnce").
			Int("conflicts", res.ConflictCount).
			Msg("periodic sync stopped on conflicts that need manual resolution")
	}

	j.logger.Debug().
		Str("func", "*clientSyncJob.runOnce").
		Str("action", string(res.Action)).
		Int64("version", res.Version).
		Msg("periodic sync finished")
	return nil
}

// Stop implements ClientSyncJob. It cancels the background goroutine's context and
// blocks until the goroutine has fully exited. Safe to call when the job is not
// running (no-op in that case).
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
