package client

import (
	"context"
	"fmt"
	"io"

	"github.com/MKhiriev/go-conf-sync/internal/adapter"
	"github.com/MKhiriev/go-conf-sync/internal/config"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/store"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewRemoteStore picks the remote store for cfg: the HTTP server when an
// address is configured, otherwise the database named by the storage DSN.
// The returned closer releases the database connection.
func NewRemoteStore(ctx context.Context, cfg *config.ClientConfig, log *logger.Logger) (adapter.RemoteStore, io.Closer, error) {
	if cfg.Adapter.HTTPAddress != "" {
		remote, err := adapter.NewHTTPRemoteStore(cfg.Adapter, cfg.App, log)
		if err != nil {
			return nil, nil, fmt.Errorf("create http remote store: %w", err)
		}
		return remote, nopCloser{}, nil
	}

	if cfg.Storage.DSN == "" {
		return nil, nil, ErrNoRemoteStore
	}

	db, err := store.NewConnect(ctx, config.DB{DSN: cfg.Storage.DSN}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect remote store database: %w", err)
	}
	if err = db.Migrate(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate remote store database: %w", err)
	}

	log.Info().Str("dialect", string(db.Dialect())).Msg("using direct database remote store")
	return store.NewRemoteStoreRepository(db, log), db, nil
}
