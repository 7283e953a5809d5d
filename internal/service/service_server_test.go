package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/config"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/mock"
	"github.com/MKhiriev/go-conf-sync/internal/store"
	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/internal/validators"
	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var serverApp = config.ServerApp{
	TokenSignKey:  "sign-key",
	TokenIssuer:   "go-conf-sync",
	TokenDuration: time.Hour,
	Version:       "1.0.0",
}

func validServerRecord(version int64) models.RemoteConfigRecord {
	payload := []byte(`{"a":1}`)
	return models.RemoteConfigRecord{
		Version:        version,
		LastModifiedBy: "device-1",
		Payload:        payload,
		ContentHash:    strings.Repeat("0f", 32),
		Size:           int64(len(payload)),
	}
}

// ─────────────────────────────────────────────
// authService
// ─────────────────────────────────────────────

func TestAuthService_GetOrCreateUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mock.NewMockUserRepository(ctrl)
	svc := NewAuthService(users, serverApp, logger.Nop())
	ctx := context.Background()

	_, err := svc.GetOrCreateUser(ctx, "   ")
	assert.ErrorIs(t, err, ErrValidationNoUserID)

	users.EXPECT().GetOrCreateUser(gomock.Any(), "alice").Return(models.User{UserID: "alice"}, nil)
	u, err := svc.GetOrCreateUser(ctx, " alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.UserID)

	users.EXPECT().GetOrCreateUser(gomock.Any(), "bob").Return(models.User{}, store.ErrTransient)
	_, err = svc.GetOrCreateUser(ctx, "bob")
	assert.ErrorIs(t, err, store.ErrTransient)
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	svc := NewAuthService(nil, serverApp, logger.Nop())
	ctx := context.Background()

	token, err := svc.CreateToken(ctx, models.User{UserID: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, token.SignedString)

	parsed, err := svc.ParseToken(ctx, token.SignedString)
	require.NoError(t, err)
	assert.Equal(t, "alice", parsed.UserID)

	_, err = svc.ParseToken(ctx, token.SignedString+"x")
	assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)

	other := NewAuthService(nil, config.ServerApp{TokenSignKey: "other", TokenIssuer: "go-conf-sync", TokenDuration: time.Hour}, logger.Nop())
	_, err = other.ParseToken(ctx, token.SignedString)
	assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)
}

func TestAuthService_CreateTokenWithoutUser(t *testing.T) {
	svc := NewAuthService(nil, serverApp, logger.Nop())

	_, err := svc.CreateToken(context.Background(), models.User{})
	assert.ErrorIs(t, err, ErrTokenCreationFailed)
}

// ─────────────────────────────────────────────
// recordService
// ─────────────────────────────────────────────

func TestRecordService_GetRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mock.NewMockRecordRepository(ctrl)
	svc := NewRecordService(records, nil, logger.Nop())
	ctx := context.Background()

	records.EXPECT().GetRecord(gomock.Any(), "alice").Return(models.RemoteConfigRecord{}, store.ErrRecordNotFound)
	rec, err := svc.GetRecord(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, rec, "a missing record is not an error")

	records.EXPECT().GetRecord(gomock.Any(), "alice").Return(models.RemoteConfigRecord{UserID: "alice", Version: 3}, nil)
	rec, err = svc.GetRecord(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Version)

	records.EXPECT().GetRecord(gomock.Any(), "alice").Return(models.RemoteConfigRecord{}, store.ErrExecutingQuery)
	_, err = svc.GetRecord(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrExecutingQuery)
}

func TestRecordService_PutRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mock.NewMockRecordRepository(ctrl)
	svc := NewRecordService(records, nil, logger.Nop())
	ctx := context.Background()

	records.EXPECT().PutRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r models.RemoteConfigRecord) error {
			assert.Equal(t, "alice", r.UserID, "owner comes from the caller")
			return nil
		})
	rec := validServerRecord(1)
	rec.UserID = "mallory"
	require.NoError(t, svc.PutRecord(ctx, "alice", rec))

	records.EXPECT().PutRecord(gomock.Any(), gomock.Any()).Return(store.ErrVersionConflict)
	err := svc.PutRecord(ctx, "alice", validServerRecord(2))
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestRecordService_AppendHistoryEntryFillsDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mock.NewMockHistoryRepository(ctrl)
	svc := NewRecordService(nil, history, logger.Nop())

	history.EXPECT().AppendHistoryEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e models.HistoryEntry) error {
			assert.Equal(t, "alice", e.UserID)
			assert.NotEmpty(t, e.ID)
			assert.False(t, e.CreatedAt.IsZero())
			assert.NotNil(t, e.ChangedPaths)
			return nil
		})

	require.NoError(t, svc.AppendHistoryEntry(context.Background(), "alice", models.HistoryEntry{Version: 1}))
}

func TestRecordService_GetHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mock.NewMockHistoryRepository(ctrl)
	svc := NewRecordService(nil, history, logger.Nop())

	opts := models.HistoryOptions{Limit: 5}
	history.EXPECT().GetHistory(gomock.Any(), "alice", opts).Return([]models.HistoryEntry{{Version: 2}, {Version: 1}}, nil)

	entries, err := svc.GetHistory(context.Background(), "alice", opts)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// ─────────────────────────────────────────────
// deviceService
// ─────────────────────────────────────────────

func TestDeviceService(t *testing.T) {
	ctrl := gomock.NewController(t)
	devices := mock.NewMockDeviceRepository(ctrl)
	svc := NewDeviceService(devices, logger.Nop())
	ctx := context.Background()

	d := models.Device{DeviceID: "d1", UserID: "alice", Name: "laptop"}
	devices.EXPECT().RegisterDevice(gomock.Any(), d).Return(d, nil)
	got, err := svc.RegisterDevice(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	devices.EXPECT().UpdateDeviceStats(gomock.Any(), "alice", "zz", gomock.Any()).Return(store.ErrDeviceNotFound)
	err = svc.UpdateDeviceStats(ctx, "alice", "zz", models.DeviceStatsUpdate{Uploads: 1})
	assert.ErrorIs(t, err, store.ErrDeviceNotFound)

	devices.EXPECT().ListDevices(gomock.Any(), "alice").Return([]models.Device{d}, nil)
	list, err := svc.ListDevices(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// ─────────────────────────────────────────────
// validation wrappers
// ─────────────────────────────────────────────

func TestRecordValidationService(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mock.NewMockRecordRepository(ctrl)
	history := mock.NewMockHistoryRepository(ctrl)
	svc := NewRecordValidationService().Wrap(NewRecordService(records, history, logger.Nop()))
	ctx := utils.WithUserID(context.Background(), "alice")

	t.Run("other user's record", func(t *testing.T) {
		_, err := svc.GetRecord(ctx, "bob")
		assert.ErrorIs(t, err, ErrUnauthorizedAccessToDifferentUserData)
	})

	t.Run("body names another owner", func(t *testing.T) {
		rec := validServerRecord(1)
		rec.UserID = "bob"
		assert.ErrorIs(t, svc.PutRecord(ctx, "alice", rec), ErrUnauthorizedAccessToDifferentUserData)
	})

	t.Run("invalid record", func(t *testing.T) {
		rec := validServerRecord(0)
		err := svc.PutRecord(ctx, "alice", rec)
		assert.ErrorIs(t, err, ErrInvalidDataProvided)
		assert.ErrorIs(t, err, validators.ErrInvalidVersion)
	})

	t.Run("valid record passes through", func(t *testing.T) {
		records.EXPECT().PutRecord(gomock.Any(), gomock.Any()).Return(nil)
		assert.NoError(t, svc.PutRecord(ctx, "alice", validServerRecord(1)))
	})

	t.Run("history gap", func(t *testing.T) {
		err := svc.AppendHistoryEntry(ctx, "alice", models.HistoryEntry{
			DeviceID: "d1", PreviousVersion: 1, Version: 5, ContentHash: strings.Repeat("0f", 32),
		})
		assert.ErrorIs(t, err, validators.ErrInvalidPreviousVersion)
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := svc.GetHistory(ctx, "alice", models.HistoryOptions{Limit: -1})
		assert.ErrorIs(t, err, ErrInvalidDataProvided)
	})

	t.Run("no user", func(t *testing.T) {
		_, err := svc.GetRecord(context.Background(), "")
		assert.ErrorIs(t, err, ErrValidationNoUserID)
	})
}

func TestDeviceValidationService(t *testing.T) {
	ctrl := gomock.NewController(t)
	devices := mock.NewMockDeviceRepository(ctrl)
	svc := NewDeviceValidationService().Wrap(NewDeviceService(devices, logger.Nop()))
	ctx := utils.WithUserID(context.Background(), "alice")

	_, err := svc.RegisterDevice(ctx, models.Device{DeviceID: "d1", UserID: "bob", Name: "x"})
	assert.ErrorIs(t, err, ErrUnauthorizedAccessToDifferentUserData)

	_, err = svc.RegisterDevice(ctx, models.Device{DeviceID: "d1", UserID: "alice"})
	assert.ErrorIs(t, err, validators.ErrInvalidDeviceName)

	assert.ErrorIs(t, svc.UpdateDeviceStats(ctx, "alice", "", models.DeviceStatsUpdate{}), ErrValidationNoDeviceID)
	assert.ErrorIs(t, svc.UpdateDeviceStats(ctx, "alice", "d1", models.DeviceStatsUpdate{Uploads: -1}), ErrInvalidDataProvided)

	devices.EXPECT().ListDevices(gomock.Any(), "alice").Return(nil, nil)
	_, err = svc.ListDevices(ctx, "alice")
	assert.NoError(t, err)
}

// ─────────────────────────────────────────────
// NewServices
// ─────────────────────────────────────────────

func TestNewServices(t *testing.T) {
	ctrl := gomock.NewController(t)
	storages := &store.Storages{
		UserRepository:    mock.NewMockUserRepository(ctrl),
		RecordRepository:  mock.NewMockRecordRepository(ctrl),
		HistoryRepository: mock.NewMockHistoryRepository(ctrl),
		DeviceRepository:  mock.NewMockDeviceRepository(ctrl),
	}

	svcs, err := NewServices(storages, &config.ServerConfig{App: serverApp}, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &RecordValidationService{}, svcs.RecordService)
	assert.IsType(t, &DeviceValidationService{}, svcs.DeviceService)
	assert.Equal(t, "1.0.0", svcs.AppInfoService.GetAppVersion(context.Background()))

	_, err = NewServices(storages, &config.ServerConfig{}, logger.Nop())
	assert.ErrorIs(t, err, ErrVersionIsNotSpecified)
}
