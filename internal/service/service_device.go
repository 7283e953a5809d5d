package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/store"
	"github.com/MKhiriev/go-conf-sync/models"
)

type deviceService struct {
	devices store.DeviceRepository

	logger *logger.Logger
}

func NewDeviceService(devices store.DeviceRepository, logger *logger.Logger) DeviceService {
	return &deviceService{devices: devices, logger: logger}
}

func (s *deviceService) RegisterDevice(ctx context.Context, device models.Device) (models.Device, error) {
	registered, err := s.devices.RegisterDevice(ctx, device)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "*deviceService.RegisterDevice").
			Str("device_id", device.DeviceID).
			Msg("error registering device")
		return models.Device{}, fmt.Errorf("register device: %w", err)
	}

	return registered, nil
}

func (s *deviceService) UpdateDeviceStats(ctx context.Context, userID, deviceID string, update models.DeviceStatsUpdate) error {
	if err := s.devices.UpdateDeviceStats(ctx, userID, deviceID, update); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "*deviceService.UpdateDeviceStats").
			Str("device_id", deviceID).
			Msg("error updating device stats")
		return fmt.Errorf("update device stats: %w", err)
	}

	return nil
}

func (s *deviceService) ListDevices(ctx context.Context, userID string) ([]models.Device, error) {
	devices, err := s.devices.ListDevices(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "*deviceService.ListDevices").
			Str("user_id", userID).
			Msg("error listing devices")
		return nil, fmt.Errorf("list devices: %w", err)
	}

	return devices, nil
}
