package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/internal/validators"
	"github.com/MKhiriev/go-conf-sync/models"
)

// RecordValidationService validates records and history entries before they
// reach the wrapped RecordService. It also rejects documents that name a
// different owner than the authenticated caller.
type RecordValidationService struct {
	inner     RecordService
	validator validators.Validator
}

func NewRecordValidationService() RecordServiceWrapper {
	return &RecordValidationService{
		validator: validators.NewSyncDataValidator(),
	}
}

func (v *RecordValidationService) GetRecord(ctx context.Context, userID string) (*models.RemoteConfigRecord, error) {
	if err := checkOwner(ctx, userID, ""); err != nil {
		return nil, err
	}
	return v.inner.GetRecord(ctx, userID)
}

func (v *RecordValidationService) PutRecord(ctx context.Context, userID string, record models.RemoteConfigRecord) error {
	if err := checkOwner(ctx, userID, record.UserID); err != nil {
		return err
	}

	// the owner is taken from the caller, not from the body
	if err := v.validator.Validate(ctx, record,
		validators.FieldVersion,
		validators.FieldLastModifiedBy,
		validators.FieldContentHash,
		validators.FieldPayload,
		validators.FieldSize,
		validators.FieldEncryption,
	); err != nil {
		return fmt.Errorf("%w: error during record validation before saving: %w", ErrInvalidDataProvided, err)
	}

	return v.inner.PutRecord(ctx, userID, record)
}

func (v *RecordValidationService) AppendHistoryEntry(ctx context.Context, userID string, entry models.HistoryEntry) error {
	if err := checkOwner(ctx, userID, entry.UserID); err != nil {
		return err
	}

	if err := v.validator.Validate(ctx, entry,
		validators.FieldDeviceID,
		validators.FieldVersion,
		validators.FieldPreviousVersion,
		validators.FieldContentHash,
	); err != nil {
		return fmt.Errorf("%w: error during history entry validation: %w", ErrInvalidDataProvided, err)
	}

	return v.inner.AppendHistoryEntry(ctx, userID, entry)
}

func (v *RecordValidationService) GetHistory(ctx context.Context, userID string, opts models.HistoryOptions) ([]models.HistoryEntry, error) {
	if err := checkOwner(ctx, userID, ""); err != nil {
		return nil, err
	}
	if err := v.validator.Validate(ctx, opts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	return v.inner.GetHistory(ctx, userID, opts)
}

func (v *RecordValidationService) Wrap(wrapped RecordService) RecordService {
	v.inner = wrapped
	return v
}

// DeviceValidationService is the device counterpart of
// RecordValidationService.
type DeviceValidationService struct {
	inner     DeviceService
	validator validators.Validator
}

func NewDeviceValidationService() DeviceServiceWrapper {
	return &DeviceValidationService{
		validator: validators.NewSyncDataValidator(),
	}
}

func (v *DeviceValidationService) RegisterDevice(ctx context.Context, device models.Device) (models.Device, error) {
	if err := checkOwner(ctx, device.UserID, ""); err != nil {
		return models.Device{}, err
	}
	if err := v.validator.Validate(ctx, device); err != nil {
		return models.Device{}, fmt.Errorf("%w: error during device validation: %w", ErrInvalidDataProvided, err)
	}

	return v.inner.RegisterDevice(ctx, device)
}

func (v *DeviceValidationService) UpdateDeviceStats(ctx context.Context, userID, deviceID string, update models.DeviceStatsUpdate) error {
	if err := checkOwner(ctx, userID, ""); err != nil {
		return err
	}
	if strings.TrimSpace(deviceID) == "" {
		return ErrValidationNoDeviceID
	}
	if err := v.validator.Validate(ctx, update); err != nil {
		return fmt.Errorf("%w: error during device stats validation: %w", ErrInvalidDataProvided, err)
	}

	return v.inner.UpdateDeviceStats(ctx, userID, deviceID, update)
}

func (v *DeviceValidationService) ListDevices(ctx context.Context, userID string) ([]models.Device, error) {
	if err := checkOwner(ctx, userID, ""); err != nil {
		return nil, err
	}
	return v.inner.ListDevices(ctx, userID)
}

func (v *DeviceValidationService) Wrap(wrapped DeviceService) DeviceService {
	v.inner = wrapped
	return v
}

// checkOwner requires a non-empty userID. When the context carries an
// authenticated user it must equal userID, and so must bodyUserID when set.
func checkOwner(ctx context.Context, userID, bodyUserID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrValidationNoUserID
	}
	if caller, ok := utils.GetUserIDFromContext(ctx); ok && caller != userID {
		return ErrUnauthorizedAccessToDifferentUserData
	}
	if bodyUserID != "" && bodyUserID != userID {
		return ErrUnauthorizedAccessToDifferentUserData
	}
	return nil
}
