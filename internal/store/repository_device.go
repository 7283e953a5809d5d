package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/models"
)

type deviceRepository struct {
	logger *logger.Logger
	db     *DB
}

func NewDeviceRepository(db *DB, logger *logger.Logger) DeviceRepository {
	logger.Debug().Msg("creating device repository")
	return &deviceRepository{
		db:     db,
		logger: logger,
	}
}

// RegisterDevice upserts the device and returns the stored row, counters
// included.
func (r *deviceRepository) RegisterDevice(ctx context.Context, device models.Device) (models.Device, error) {
	log := logger.FromContext(ctx)
	b := r.db.builder()

	query, args, err := buildUpsertDeviceQuery(b, device)
	if err != nil {
		return models.Device{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "*deviceRepository.RegisterDevice").Msg("error upserting device")
		return models.Device{}, r.db.wrap(ErrExecutingStatement, err)
	}

	devices, err := r.selectDevices(ctx, device.UserID, device.DeviceID)
	if err != nil {
		return models.Device{}, err
	}
	if len(devices) == 0 {
		return models.Device{}, ErrDeviceNotFound
	}

	return devices[0], nil
}

func (r *deviceRepository) UpdateDeviceStats(ctx context.Context, userID, deviceID string, update models.DeviceStatsUpdate) error {
	log := logger.FromContext(ctx)

	query, args, err := buildUpdateDeviceStatsQuery(r.db.builder(), userID, deviceID, update)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*deviceRepository.UpdateDeviceStats").Msg("error updating device stats")
		return r.db.wrap(ErrExecutingStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return r.db.wrap(ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

func (r *deviceRepository) ListDevices(ctx context.Context, userID string) ([]models.Device, error) {
	return r.selectDevices(ctx, userID, "")
}

func (r *deviceRepository) selectDevices(ctx context.Context, userID, deviceID string) ([]models.Device, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectDevicesQuery(r.db.builder(), userID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*deviceRepository.selectDevices").Msg("error querying devices")
		return nil, r.db.wrap(ErrExecutingQuery, err)
	}
	defer rows.Close()

	devices := make([]models.Device, 0)
	for rows.Next() {
		var (
			d          models.Device
			platform   string
			lastSyncAt sql.NullTime
		)
		if err = rows.Scan(
			&d.UserID,
			&d.DeviceID,
			&d.Name,
			&platform,
			&lastSyncAt,
			&d.LastSyncVersion,
			&d.Stats.Uploads,
			&d.Stats.Downloads,
		); err != nil {
			return nil, r.db.wrap(ErrScanningRows, err)
		}
		if platform != "" {
			if err = json.Unmarshal([]byte(platform), &d.Platform); err != nil {
				return nil, fmt.Errorf("%w: platform: %w", ErrEncodingColumn, err)
			}
		}
		if lastSyncAt.Valid {
			t := lastSyncAt.Time
			d.LastSyncAt = &t
		}
		devices = append(devices, d)
	}
	if err = rows.Err(); err != nil {
		return nil, r.db.wrap(ErrScanningRows, err)
	}

	return devices, nil
}
