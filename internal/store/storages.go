package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-conf-sync/internal/config"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
)

// Storages bundles the repositories of the remote store server.
type Storages struct {
	UserRepository    UserRepository
	RecordRepository  RecordRepository
	HistoryRepository HistoryRepository
	DeviceRepository  DeviceRepository

	db *DB
}

// NewStorages connects to the database, applies migrations and wires every
// repository to the connection.
func NewStorages(ctx context.Context, cfg config.DB, log *logger.Logger) (*Storages, error) {
	db, err := NewConnect(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err = db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewStoragesFromDB(db, log), nil
}

// NewStoragesFromDB wires repositories to an open connection.
func NewStoragesFromDB(db *DB, log *logger.Logger) *Storages {
	return &Storages{
		UserRepository:    NewUserRepository(db, log),
		RecordRepository:  NewRecordRepository(db, log),
		HistoryRepository: NewHistoryRepository(db, log),
		DeviceRepository:  NewDeviceRepository(db, log),
		db:                db,
	}
}

// Close releases the database connection.
func (s *Storages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
