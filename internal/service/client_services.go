package service

import (
	"github.com/MKhiriev/go-conf-sync/internal/adapter"
	"github.com/MKhiriev/go-conf-sync/internal/config"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/metrics"
	"github.com/MKhiriev/go-conf-sync/internal/resolver"
	"github.com/MKhiriev/go-conf-sync/internal/syncstate"
	"github.com/MKhiriev/go-conf-sync/internal/tracker"
	"github.com/spf13/afero"
)

type ClientServices struct {
	CloudSync CloudSyncManager
	SyncJob   ClientSyncJob
}

// NewClientServices assembles the client sync stack from cfg. source feeds
// the periodic sync job; m may be nil.
func NewClientServices(
	cfg *config.ClientConfig,
	remote adapter.RemoteStore,
	source LocalConfigSource,
	fs afero.Fs,
	m *metrics.Metrics,
	log *logger.Logger,
) (*ClientServices, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	tr := tracker.New(tracker.Options{
		MaxChanges:   cfg.Sync.MaxChanges,
		FullSnapshot: cfg.Sync.FullSnapshot,
		AutoSave:     true,
		StateDir:     cfg.Storage.StateDir,
		LockFile:     cfg.Sync.LockFile,
		Fs:           fs,
	}, log)

	state := syncstate.NewManager(syncstate.Options{
		MaxQueueSize:     cfg.Sync.MaxQueueSize,
		HistorySize:      cfg.Sync.HistorySize,
		AutoProcessQueue: true,
	}, log)

	cloud, err := NewCloudSyncService(CloudSyncDeps{
		Remote:  remote,
		Tracker: tr,
		State:   state,
		Metrics: m,
		Fs:      fs,
		Logger:  log,
		Config: CloudSyncConfig{
			StateDir:      cfg.Storage.StateDir,
			DeviceName:    cfg.App.DeviceName,
			ClientVersion: cfg.App.Version,
			Encrypt:       cfg.App.Encrypt,
			Resolver: resolver.Options{
				Strategy:   resolver.Strategy(cfg.Sync.Strategy),
				ArrayMerge: resolver.ArrayMergePolicy(cfg.Sync.ArrayMerge),
			},
			RequestTimeout:     cfg.Adapter.RequestTimeout,
			TimestampTolerance: cfg.Sync.TimestampTolerance,
		},
	})
	if err != nil {
		return nil, err
	}

	return &ClientServices{
		CloudSync: cloud,
		SyncJob:   NewClientSyncJob(cloud, source, log),
	}, nil
}
