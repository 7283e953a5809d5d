package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-conf-sync/internal/adapter"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/models"
)

// remoteStoreRepository serves [adapter.RemoteStore] straight from the
// database, for clients running next to the store without a server in
// between. Store errors are translated to the adapter sentinels so the sync
// service sees the same failures it would see over HTTP.
type remoteStoreRepository struct {
	storages *Storages
	logger   *logger.Logger
}

// NewRemoteStoreRepository returns a SQL-backed [adapter.RemoteStore].
func NewRemoteStoreRepository(db *DB, log *logger.Logger) adapter.RemoteStore {
	return &remoteStoreRepository{
		storages: NewStoragesFromDB(db, log),
		logger:   log,
	}
}

func (r *remoteStoreRepository) GetOrCreateUser(ctx context.Context, userID string) (models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return models.User{}, fmt.Errorf("%w: empty user id", adapter.ErrBadRequest)
	}
	user, err := r.storages.UserRepository.GetOrCreateUser(ctx, userID)
	if err != nil {
		return models.User{}, r.mapError("*remoteStoreRepository.GetOrCreateUser", err)
	}
	return user, nil
}

func (r *remoteStoreRepository) GetUserRecord(ctx context.Context, userID string) (*models.RemoteConfigRecord, error) {
	record, err := r.storages.RecordRepository.GetRecord(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.mapError("*remoteStoreRepository.GetUserRecord", err)
	}
	return &record, nil
}

func (r *remoteStoreRepository) PutUserRecord(ctx context.Context, userID string, record models.RemoteConfigRecord) error {
	record.UserID = userID
	if err := r.storages.RecordRepository.PutRecord(ctx, record); err != nil {
		return r.mapError("*remoteStoreRepository.PutUserRecord", err)
	}
	return nil
}

func (r *remoteStoreRepository) AppendHistoryEntry(ctx context.Context, userID string, entry models.HistoryEntry) error {
	entry.UserID = userID
	if entry.ID == "" {
		entry.ID = utils.NewID()
	}
	if err := r.storages.HistoryRepository.AppendHistoryEntry(ctx, entry); err != nil {
		return r.mapError("*remoteStoreRepository.AppendHistoryEntry", err)
	}
	return nil
}

func (r *remoteStoreRepository) GetHistory(ctx context.Context, userID string, opts models.HistoryOptions) ([]models.HistoryEntry, error) {
	entries, err := r.storages.HistoryRepository.GetHistory(ctx, userID, opts)
	if err != nil {
		return nil, r.mapError("*remoteStoreRepository.GetHistory", err)
	}
	return entries, nil
}

func (r *remoteStoreRepository) RegisterDevice(ctx context.Context, device models.Device) (models.Device, error) {
	if device.DeviceID == "" || device.UserID == "" {
		return models.Device{}, fmt.Errorf("%w: device and user id are required", adapter.ErrBadRequest)
	}
	stored, err := r.storages.DeviceRepository.RegisterDevice(ctx, device)
	if err != nil {
		return models.Device{}, r.mapError("*remoteStoreRepository.RegisterDevice", err)
	}
	return stored, nil
}

func (r *remoteStoreRepository) UpdateDeviceStats(ctx context.Context, userID, deviceID string, update models.DeviceStatsUpdate) error {
	if err := r.storages.DeviceRepository.UpdateDeviceStats(ctx, userID, deviceID, update); err != nil {
		return r.mapError("*remoteStoreRepository.UpdateDeviceStats", err)
	}
	return nil
}

func (r *remoteStoreRepository) ListDevices(ctx context.Context, userID string) ([]models.Device, error) {
	devices, err := r.storages.DeviceRepository.ListDevices(ctx, userID)
	if err != nil {
		return nil, r.mapError("*remoteStoreRepository.ListDevices", err)
	}
	return devices, nil
}

func (r *remoteStoreRepository) mapError(fn string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrVersionConflict):
		return fmt.Errorf("%w: %w", adapter.ErrVersionConflict, err)
	case errors.Is(err, ErrDeviceNotFound), errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrNoUserWasFound):
		return fmt.Errorf("%w: %w", adapter.ErrNotFound, err)
	case errors.Is(err, ErrTransient):
		r.logger.Warn().Err(err).Str("func", fn).Msg("transient database error")
		return fmt.Errorf("%w: %w", adapter.ErrUnavailable, err)
	default:
		r.logger.Err(err).Str("func", fn).Msg("database error")
		return fmt.Errorf("%w: %w", adapter.ErrInternalServerError, err)
	}
}
