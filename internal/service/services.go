package service

import (
	"fmt"

	"github.com/MKhiriev/go-conf-sync/internal/config"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/store"
)

type Services struct {
	AuthService    AuthService
	RecordService  RecordService
	DeviceService  DeviceService
	AppInfoService AppInfoService
}

// NewServices wires the remote store server services. Record and device
// services are wrapped with validation.
func NewServices(storages *store.Storages, cfg *config.ServerConfig, logger *logger.Logger) (*Services, error) {
	appInfo, err := NewAppInfoService(cfg.App, logger)
	if err != nil {
		return nil, fmt.Errorf("create app info service: %w", err)
	}

	records := NewRecordService(storages.RecordRepository, storages.HistoryRepository, logger)
	devices := NewDeviceService(storages.DeviceRepository, logger)

	return &Services{
		AuthService:    NewAuthService(storages.UserRepository, cfg.App, logger),
		RecordService:  NewRecordValidationService().Wrap(records),
		DeviceService:  NewDeviceValidationService().Wrap(devices),
		AppInfoService: appInfo,
	}, nil
}
