package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/adapter"
	"github.com/MKhiriev/go-conf-sync/internal/crypto"
	"github.com/MKhiriev/go-conf-sync/internal/metrics"
	"github.com/MKhiriev/go-conf-sync/internal/mock"
	"github.com/MKhiriev/go-conf-sync/internal/resolver"
	"github.com/MKhiriev/go-conf-sync/internal/syncstate"
	"github.com/MKhiriev/go-conf-sync/internal/tracker"
	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var sharedKeyMaterial = bytes.Repeat([]byte{7}, 32)

type cloudFixture struct {
	svc     *CloudSyncService
	tracker *tracker.Tracker
	state   *syncstate.Manager
	metrics *metrics.Metrics
	fs      afero.Fs
}

// newCloudFixture builds a service on its own in-memory filesystem, so two
// fixtures sharing a remote behave like two devices.
func newCloudFixture(t *testing.T, remote adapter.RemoteStore, mutate func(*CloudSyncDeps)) *cloudFixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	tr := tracker.New(tracker.Options{AutoSave: true, StateDir: "/state", Fs: fs}, nil)
	st := syncstate.NewManager(syncstate.DefaultOptions(), nil)
	m := metrics.New(prometheus.NewRegistry())

	deps := CloudSyncDeps{
		Remote:  remote,
		Tracker: tr,
		State:   st,
		Metrics: m,
		Fs:      fs,
		Config: CloudSyncConfig{
			StateDir:      "/state",
			DeviceName:    "laptop",
			ClientVersion: "test",
			Resolver:      resolver.DefaultOptions(),
		},
	}
	if mutate != nil {
		mutate(&deps)
	}

	svc, err := NewCloudSyncService(deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return &cloudFixture{svc: svc, tracker: tr, state: st, metrics: m, fs: fs}
}

func initialized(t *testing.T, remote adapter.RemoteStore, mutate func(*CloudSyncDeps)) *cloudFixture {
	t.Helper()
	f := newCloudFixture(t, remote, mutate)
	require.NoError(t, f.svc.Initialize(context.Background(), "alice", ""))
	return f
}

// withSharedKey turns on encryption with a key every device derives the same.
func withSharedKey(t *testing.T) func(*CloudSyncDeps) {
	return func(d *CloudSyncDeps) {
		ctrl := gomock.NewController(t)
		ks := mock.NewMockKeyStore(ctrl)
		ks.EXPECT().LoadOrCreateKey(gomock.Any()).DoAndReturn(func(string) (*crypto.Key, error) {
			return crypto.NewKey(sharedKeyMaterial)
		}).AnyTimes()
		d.KeyStore = ks
		d.Config.Encrypt = true
	}
}

func plaintextRecord(t *testing.T, cfg models.Config, version int64) models.RemoteConfigRecord {
	t.Helper()
	payload, err := models.Marshal(cfg)
	require.NoError(t, err)
	return models.RemoteConfigRecord{
		UserID:       "alice",
		Version:      version,
		LastModified: time.UnixMilli(1000).UTC(),
		Payload:      payload,
		ContentHash:  crypto.Hash(payload),
		Size:         int64(len(payload)),
	}
}

// ── NewCloudSyncService ──────────────────────────────────────────────────────

func TestNewCloudSyncService_RequiresCollaborators(t *testing.T) {
	_, err := NewCloudSyncService(CloudSyncDeps{})
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

// ── Initialize / Close ───────────────────────────────────────────────────────

func TestCloudSync_OperationsBeforeInitialize(t *testing.T) {
	f := newCloudFixture(t, adapter.NewMemoryRemoteStore(), nil)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, models.Config{"a": 1.0}, models.UploadOptions{})
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, err, syncstate.ErrIllegalState)

	_, err = f.svc.Download(ctx, models.DownloadOptions{})
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = f.svc.Sync(ctx, models.Config{}, models.SyncOptions{})
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = f.svc.PendingChanges()
	assert.ErrorIs(t, err, ErrNotInitialized)

	assert.False(t, f.svc.Status().Initialized)
	assert.Equal(t, syncstate.StateIdle, f.svc.Status().State)
}

func TestCloudSync_Initialize(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := newCloudFixture(t, remote, nil)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Initialize(ctx, "  ", ""), ErrValidationNoUserID)

	require.NoError(t, f.svc.Initialize(ctx, "alice", ""))
	require.NoError(t, f.svc.Initialize(ctx, "alice", ""), "re-initialize for the same user is a no-op")
	assert.ErrorIs(t, f.svc.Initialize(ctx, "bob", ""), syncstate.ErrIllegalState)

	status := f.svc.Status()
	assert.True(t, status.Initialized)
	assert.Equal(t, "alice", status.UserID)
	assert.NotEmpty(t, status.DeviceID)
	assert.False(t, status.Encrypted)

	devices, err := remote.ListDevices(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, status.DeviceID, devices[0].DeviceID)
	assert.Equal(t, "laptop", devices[0].Name)
}

func TestCloudSync_DeviceIDIsStable(t *testing.T) {
	fs := afero.NewMemMapFs()
	first, err := loadOrCreateDevice(fs, "/state", "alice", "laptop", "test", time.Now())
	require.NoError(t, err)
	second, err := loadOrCreateDevice(fs, "/state", "alice", "laptop", "test", time.Now())
	require.NoError(t, err)

	assert.Equal(t, first.DeviceID, second.DeviceID)
}

func TestCloudSync_Close(t *testing.T) {
	f := initialized(t, adapter.NewMemoryRemoteStore(), withSharedKey(t))
	ctx := context.Background()

	require.NoError(t, f.svc.Close())
	require.NoError(t, f.svc.Close(), "close is idempotent")

	_, err := f.svc.Upload(ctx, models.Config{"a": 1.0}, models.UploadOptions{})
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, f.svc.Initialize(ctx, "alice", ""), ErrNotInitialized)
	assert.False(t, f.svc.Status().Encrypted)
}

// ── Upload / Download ────────────────────────────────────────────────────────

func TestCloudSync_PlaintextRoundTrip(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := initialized(t, remote, nil)
	ctx := context.Background()

	empty, err := f.svc.Download(ctx, models.DownloadOptions{})
	require.NoError(t, err)
	assert.True(t, empty.Success)
	assert.Equal(t, int64(0), empty.Version)
	assert.Nil(t, empty.Config)

	cfg := models.Config{"theme": "dark", "fontSize": 12.0, "plugins": []any{"git"}}

	up, err := f.svc.Upload(ctx, cfg, models.UploadOptions{ChangedPaths: []string{"theme"}})
	require.NoError(t, err)
	assert.True(t, up.Success)
	assert.False(t, up.Encrypted)
	assert.Equal(t, int64(1), up.Version)
	assert.NotEmpty(t, up.OperationID)

	down, err := f.svc.Download(ctx, models.DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, cfg, down.Config)
	assert.Equal(t, int64(1), down.Version)
	assert.Equal(t, f.svc.Status().DeviceID, down.LastModifiedBy)
	assert.False(t, down.Encrypted)

	up, err = f.svc.Upload(ctx, cfg, models.UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), up.Version, "every upload bumps the version by one")

	history, err := f.svc.History(ctx, models.HistoryOptions{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(2), history[0].Version)
	assert.Equal(t, int64(1), history[0].PreviousVersion)
	assert.Equal(t, []string{"theme"}, history[1].ChangedPaths)

	devices, err := f.svc.Devices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, models.DeviceStats{Uploads: 2, Downloads: 1}, devices[0].Stats)
	assert.Equal(t, int64(2), devices[0].LastSyncVersion)

	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.SyncOperationsTotal.WithLabelValues("upload", metrics.OutcomeSuccess)))
	assert.Equal(t, syncstate.StateIdle, f.svc.Status().State)
}

func TestCloudSync_EncryptedRoundTripAcrossDevices(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	laptop := initialized(t, remote, withSharedKey(t))
	desktop := initialized(t, remote, withSharedKey(t))
	ctx := context.Background()

	require.NotEqual(t, laptop.svc.Status().DeviceID, desktop.svc.Status().DeviceID)

	cfg := models.Config{"token": "super-secret-value", "nested": map[string]any{"x": 1.0}}
	up, err := laptop.svc.Upload(ctx, cfg, models.UploadOptions{})
	require.NoError(t, err)
	assert.True(t, up.Encrypted)

	rec, err := remote.GetUserRecord(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, rec.Encryption)
	assert.Equal(t, crypto.AlgorithmAES256GCM, rec.Encryption.Algorithm)
	assert.Len(t, rec.Encryption.IV, 12)
	assert.Len(t, rec.Encryption.AuthTag, 16)
	assert.NotContains(t, string(rec.Payload), "super-secret-value")

	down, err := desktop.svc.Download(ctx, models.DownloadOptions{})
	require.NoError(t, err)
	assert.True(t, down.Encrypted)
	assert.Equal(t, cfg, down.Config)

	devices, err := desktop.svc.Devices(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 2)
}

func TestCloudSync_EncryptedRecordWithoutKey(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	writer := initialized(t, remote, withSharedKey(t))
	reader := initialized(t, remote, nil)
	ctx := context.Background()

	_, err := writer.svc.Upload(ctx, models.Config{"a": 1.0}, models.UploadOptions{})
	require.NoError(t, err)

	_, err = reader.svc.Download(ctx, models.DownloadOptions{})
	assert.ErrorIs(t, err, ErrEncryptionKeyRequired)
	assert.Equal(t, syncstate.StateError, reader.svc.Status().State)
}

func TestCloudSync_TamperedCiphertext(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := initialized(t, remote, withSharedKey(t))
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, models.Config{"a": 1.0}, models.UploadOptions{})
	require.NoError(t, err)

	rec, err := remote.GetUserRecord(ctx, "alice")
	require.NoError(t, err)
	rec.Payload[0] ^= 0xff
	rec.Version = 2
	require.NoError(t, remote.PutUserRecord(ctx, "alice", *rec))

	_, err = f.svc.Download(ctx, models.DownloadOptions{})
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)

	status := f.svc.Status()
	assert.Equal(t, syncstate.StateError, status.State)
	assert.Equal(t, 1, status.Sync.Failed)
}

func TestCloudSync_EncryptFailureWritesNothing(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	ctrl := gomock.NewController(t)
	cipher := mock.NewMockCipher(ctrl)
	cipher.EXPECT().Hash(gomock.Any()).DoAndReturn(crypto.Hash).AnyTimes()
	cipher.EXPECT().Encrypt(gomock.Any(), gomock.Any()).Return(crypto.Sealed{}, crypto.ErrInvalidKey)

	f := initialized(t, remote, func(d *CloudSyncDeps) {
		withSharedKey(t)(d)
		d.Cipher = cipher
	})

	_, err := f.svc.Upload(context.Background(), models.Config{"a": 1.0}, models.UploadOptions{})
	assert.ErrorIs(t, err, crypto.ErrInvalidKey)

	rec, err := remote.GetUserRecord(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCloudSync_PlaintextHashMismatch(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := initialized(t, remote, nil)
	ctx := context.Background()

	rec := plaintextRecord(t, models.Config{"a": 1.0}, 1)
	rec.ContentHash = "deadbeef"
	require.NoError(t, remote.PutUserRecord(ctx, "alice", rec))

	_, err := f.svc.Download(ctx, models.DownloadOptions{})
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestCloudSync_DownloadAppliesPendingChanges(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := initialized(t, remote, nil)
	ctx := context.Background()

	require.NoError(t, remote.PutUserRecord(ctx, "alice", plaintextRecord(t, models.Config{"a": 1.0, "b": 1.0}, 1)))

	_, err := f.svc.TrackLocalChange(models.Config{"b": 5.0}, models.Config{"b": 1.0})
	require.NoError(t, err)

	down, err := f.svc.Download(ctx, models.DownloadOptions{ApplyPending: true})
	require.NoError(t, err)
	assert.Equal(t, models.Config{"a": 1.0, "b": 5.0}, down.Config)
}

// ── Sync ─────────────────────────────────────────────────────────────────────

func TestCloudSync_SyncWithoutRemoteUploads(t *testing.T) {
	f := initialized(t, adapter.NewMemoryRemoteStore(), nil)

	res, err := f.svc.Sync(context.Background(), models.Config{"a": 1.0}, models.SyncOptions{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, models.SyncActionUploaded, res.Action)
	assert.Equal(t, int64(1), res.Version)
}

func TestCloudSync_SyncInSync(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := initialized(t, remote, nil)
	ctx := context.Background()

	cfg := models.Config{"a": 1.0, models.LastModifiedField: 1000.0}
	require.NoError(t, remote.PutUserRecord(ctx, "alice", plaintextRecord(t, cfg, 1)))

	res, err := f.svc.Sync(ctx, cfg, models.SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.SyncActionInSync, res.Action)
	assert.Equal(t, int64(1), res.Version)
}

func TestCloudSync_SyncConcurrentEditsAreMerged(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	desktop := initialized(t, remote, nil)
	laptop := initialized(t, remote, nil)
	ctx := context.Background()

	_, err := desktop.svc.Upload(ctx, models.Config{"a": 1.0, "b": 3.0, models.LastModifiedField: 1000.0}, models.UploadOptions{})
	require.NoError(t, err)

	res, err := laptop.svc.Sync(ctx, models.Config{"a": 1.0, "b": 2.0, models.LastModifiedField: 1000.0}, models.SyncOptions{})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, models.SyncActionMerged, res.Action)
	assert.Equal(t, 1, res.ConflictCount)
	assert.Equal(t, 1, res.AutoResolved)
	assert.Equal(t, "b", res.Conflicts[0].Path)
	assert.Equal(t, 3.0, res.Config["b"])
	assert.Equal(t, 1.0, res.Config["a"])
	assert.Equal(t, int64(2), res.Version)
	assert.Equal(t, 2.0, res.Config[models.VersionField])

	down, err := desktop.svc.Download(ctx, models.DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, res.Config, down.Config)
}

func TestCloudSync_SyncNewerSideWins(t *testing.T) {
	tests := []struct {
		name   string
		local  float64
		remote float64
		action models.SyncAction
		want   float64
	}{
		{name: "local newer", local: 10_000, remote: 1000, action: models.SyncActionUploaded, want: 1.0},
		{name: "remote newer", local: 1000, remote: 10_000, action: models.SyncActionDownloaded, want: 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := adapter.NewMemoryRemoteStore()
			f := initialized(t, remote, nil)
			ctx := context.Background()

			require.NoError(t, remote.PutUserRecord(ctx, "alice",
				plaintextRecord(t, models.Config{"v": 2.0, models.LastModifiedField: tt.remote}, 1)))

			res, err := f.svc.Sync(ctx, models.Config{"v": 1.0, models.LastModifiedField: tt.local}, models.SyncOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.action, res.Action)
			assert.Equal(t, tt.want, res.Config["v"])
			assert.Empty(t, res.Conflicts)
		})
	}
}

func TestCloudSync_SyncDownloadDropsSupersededChanges(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := initialized(t, remote, nil)
	ctx := context.Background()

	entries, err := f.svc.TrackLocalChange(models.Config{"v": 1.0}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	require.NoError(t, remote.PutUserRecord(ctx, "alice",
		plaintextRecord(t, models.Config{"v": 2.0, models.LastModifiedField: 10_000.0}, 1)))

	res, err := f.svc.Sync(ctx, models.Config{"v": 1.0, models.LastModifiedField: 1000.0}, models.SyncOptions{})
	require.NoError(t, err)
	require.Equal(t, models.SyncActionDownloaded, res.Action)

	pending, err := f.svc.PendingChanges()
	require.NoError(t, err)
	assert.Empty(t, pending)
	for _, c := range f.tracker.Changes() {
		assert.NotEqual(t, entries[0].ID, c.ID)
	}

	rec, err := remote.GetUserRecord(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Version, "superseded edits are never uploaded")
}

func TestCloudSync_SyncWithinToleranceIsConcurrent(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := initialized(t, remote, nil)
	ctx := context.Background()

	require.NoError(t, remote.PutUserRecord(ctx, "alice",
		plaintextRecord(t, models.Config{"v": 2.0, models.LastModifiedField: 1500.0}, 1)))

	res, err := f.svc.Sync(ctx, models.Config{"v": 1.0, models.LastModifiedField: 1000.0}, models.SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.SyncActionMerged, res.Action)
}

func TestCloudSync_SyncForce(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := initialized(t, remote, nil)
	ctx := context.Background()

	require.NoError(t, remote.PutUserRecord(ctx, "alice", plaintextRecord(t, models.Config{"v": 2.0}, 1)))

	res, err := f.svc.Sync(ctx, models.Config{"v": 1.0}, models.SyncOptions{Force: models.ForceDownload})
	require.NoError(t, err)
	assert.Equal(t, models.SyncActionDownloaded, res.Action)
	assert.Equal(t, 2.0, res.Config["v"])

	res, err = f.svc.Sync(ctx, models.Config{"v": 1.0}, models.SyncOptions{Force: models.ForceUpload})
	require.NoError(t, err)
	assert.Equal(t, models.SyncActionUploaded, res.Action)
	assert.Equal(t, int64(2), res.Version)

	_, err = f.svc.Sync(ctx, models.Config{}, models.SyncOptions{Force: "sideways"})
	assert.ErrorIs(t, err, ErrInvalidForceDirection)
}

func TestCloudSync_SyncManualConflictDoesNotUpload(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := initialized(t, remote, func(d *CloudSyncDeps) {
		d.Config.Resolver.Strategy = resolver.StrategyManual
	})
	ctx := context.Background()

	require.NoError(t, remote.PutUserRecord(ctx, "alice", plaintextRecord(t, models.Config{"a": 1.0, "b": 3.0}, 1)))

	res, err := f.svc.Sync(ctx, models.Config{"a": 1.0, "b": 2.0, "c": 4.0}, models.SyncOptions{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, models.SyncActionConflict, res.Action)
	require.Len(t, res.Conflicts, 1)
	assert.Nil(t, res.Conflicts[0].Resolution)
	assert.Equal(t, 4.0, res.Resolved["c"], "non-conflicting keys are merged")

	rec, err := remote.GetUserRecord(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Version)
	assert.Equal(t, syncstate.StateIdle, f.svc.Status().State)
}

// ── offline ──────────────────────────────────────────────────────────────────

func TestCloudSync_OfflineQueueIsReplayed(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := initialized(t, remote, nil)
	ctx := context.Background()

	require.NoError(t, f.svc.SetOnlineStatus(ctx, false))
	assert.Equal(t, syncstate.StateOffline, f.svc.Status().State)
	assert.False(t, f.tracker.IsOnline())

	up, err := f.svc.Upload(ctx, models.Config{"a": 1.0}, models.UploadOptions{})
	require.NoError(t, err)
	assert.True(t, up.Queued)
	assert.False(t, up.Success)

	res, err := f.svc.Sync(ctx, models.Config{"a": 1.0}, models.SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.SyncActionQueued, res.Action)

	rec, err := remote.GetUserRecord(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, rec, "nothing reaches the remote while offline")
	assert.Equal(t, 2, f.svc.Status().Sync.QueueLength)

	require.NoError(t, f.svc.SetOnlineStatus(ctx, true))

	rec, err = remote.GetUserRecord(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(1), rec.Version, "replayed sync finds the replayed upload in sync")
	assert.Equal(t, 0, f.svc.Status().Sync.QueueLength)
	assert.Equal(t, syncstate.StateIdle, f.svc.Status().State)
}

func TestCloudSync_TrackedChangesAreMarkedSynced(t *testing.T) {
	f := initialized(t, adapter.NewMemoryRemoteStore(), nil)
	ctx := context.Background()

	entries, err := f.svc.TrackLocalChange(models.Config{"a": 1.0, "b": 2.0}, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.PendingChanges))

	pending, err := f.svc.PendingChanges()
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.svc.Upload(ctx, models.Config{"a": 1.0, "b": 2.0}, models.UploadOptions{})
	require.NoError(t, err)

	stats, err := f.svc.OfflineStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.PendingChanges))

	history, err := f.svc.History(ctx, models.HistoryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, history[0].ChangedPaths)

	again, err := f.svc.TrackLocalChange(models.Config{"a": 1.0, "b": 2.0}, nil)
	require.NoError(t, err)
	assert.Empty(t, again, "the uploaded config is the new baseline")
}

func TestCloudSync_MarkChangesSynced(t *testing.T) {
	f := initialized(t, adapter.NewMemoryRemoteStore(), nil)

	entries, err := f.svc.TrackLocalChange(models.Config{"a": 1.0}, nil)
	require.NoError(t, err)

	n, err := f.svc.MarkChangesSynced([]string{entries[0].ID, "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// ── remote failures ──────────────────────────────────────────────────────────

func expectRegistration(remote *mock.MockRemoteStore) {
	remote.EXPECT().GetOrCreateUser(gomock.Any(), "alice").Return(models.User{UserID: "alice"}, nil)
	remote.EXPECT().RegisterDevice(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d models.Device) (models.Device, error) { return d, nil })
}

func TestCloudSync_RemoteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mock.NewMockRemoteStore(ctrl)
	expectRegistration(remote)
	remote.EXPECT().GetUserRecord(gomock.Any(), "alice").Return(nil, adapter.ErrUnavailable)

	f := initialized(t, remote, nil)

	_, err := f.svc.Upload(context.Background(), models.Config{"a": 1.0}, models.UploadOptions{})

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "get record", remoteErr.Op)
	assert.ErrorIs(t, err, adapter.ErrUnavailable)

	status := f.svc.Status()
	assert.Equal(t, syncstate.StateError, status.State)
	assert.Equal(t, 1, status.Sync.Failed)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SyncOperationsTotal.WithLabelValues("upload", metrics.OutcomeFailure)))
}

func TestCloudSync_RemoteTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mock.NewMockRemoteStore(ctrl)
	expectRegistration(remote)
	remote.EXPECT().GetUserRecord(gomock.Any(), "alice").
		DoAndReturn(func(ctx context.Context, _ string) (*models.RemoteConfigRecord, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	f := initialized(t, remote, func(d *CloudSyncDeps) {
		d.Config.RequestTimeout = 20 * time.Millisecond
	})

	_, err := f.svc.Download(context.Background(), models.DownloadOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, syncstate.StateError, f.svc.Status().State)

	// the next operation recovers from error
	remote.EXPECT().GetUserRecord(gomock.Any(), "alice").Return(nil, nil)
	res, err := f.svc.Download(context.Background(), models.DownloadOptions{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, syncstate.StateIdle, f.svc.Status().State)
}

func TestCloudSync_SyncLosesVersionRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mock.NewMockRemoteStore(ctrl)
	expectRegistration(remote)

	rec := plaintextRecord(t, models.Config{"a": 2.0}, 4)
	remote.EXPECT().GetUserRecord(gomock.Any(), "alice").Return(&rec, nil)
	remote.EXPECT().PutUserRecord(gomock.Any(), "alice", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, r models.RemoteConfigRecord) error {
			assert.Equal(t, int64(5), r.Version, "merge must replace exactly the version it read")
			return adapter.ErrVersionConflict
		})

	f := initialized(t, remote, nil)

	_, err := f.svc.Sync(context.Background(), models.Config{"a": 1.0}, models.SyncOptions{})
	assert.ErrorIs(t, err, adapter.ErrVersionConflict)
	assert.True(t, isVersionConflict(err))
	assert.Equal(t, syncstate.StateError, f.svc.Status().State)
}

func TestCloudSync_SyncInProgress(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mock.NewMockRemoteStore(ctrl)
	expectRegistration(remote)

	release := make(chan struct{})
	entered := make(chan struct{})
	remote.EXPECT().GetUserRecord(gomock.Any(), "alice").
		DoAndReturn(func(context.Context, string) (*models.RemoteConfigRecord, error) {
			close(entered)
			<-release
			return nil, nil
		})

	f := initialized(t, remote, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Download(ctx, models.DownloadOptions{})
		done <- err
	}()
	<-entered

	_, err := f.svc.Upload(ctx, models.Config{"a": 1.0}, models.UploadOptions{})
	assert.ErrorIs(t, err, syncstate.ErrSyncInProgress)
	assert.True(t, f.svc.Status().Syncing)

	close(release)
	require.NoError(t, <-done)
}

func TestCloudSync_CloseWaitsForInFlightOperation(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := mock.NewMockRemoteStore(ctrl)
	expectRegistration(remote)

	release := make(chan struct{})
	entered := make(chan struct{})
	remote.EXPECT().GetUserRecord(gomock.Any(), "alice").
		DoAndReturn(func(context.Context, string) (*models.RemoteConfigRecord, error) {
			close(entered)
			<-release
			return nil, nil
		})

	f := initialized(t, remote, withSharedKey(t))

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Download(context.Background(), models.DownloadOptions{})
		done <- err
	}()
	<-entered

	assert.ErrorIs(t, f.svc.Close(), syncstate.ErrSyncInProgress)
	assert.True(t, f.svc.Status().Initialized)
	assert.True(t, f.svc.Status().Encrypted)

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, f.svc.Close())
	assert.False(t, f.svc.Status().Initialized)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func TestChangedPaths(t *testing.T) {
	pending := []models.ChangeEntry{{Path: "b"}, {Path: "a"}, {Path: "b"}}
	conflicts := []models.Conflict{{Path: "c"}}

	assert.Equal(t, []string{"a", "b", "c"}, changedPaths(nil, pending, conflicts))
	assert.Equal(t, []string{"x"}, changedPaths([]string{"x"}, pending, nil), "explicit paths replace pending ones")
	assert.Equal(t, []string{}, changedPaths(nil, nil, nil))
}

// ── caller input ─────────────────────────────────────────────────────────────

func TestCloudSync_TypedCollectionsAreNormalized(t *testing.T) {
	remote := adapter.NewMemoryRemoteStore()
	f := initialized(t, remote, nil)
	ctx := context.Background()

	local := models.Config{"tags": []string{"a", "b"}, "env": map[string]string{"k": "v"}}

	for i := 0; i < 2; i++ {
		res, err := f.svc.Sync(ctx, local, models.SyncOptions{})
		require.NoError(t, err)
		assert.Empty(t, res.Conflicts)
		assert.Equal(t, syncstate.StateIdle, f.svc.Status().State)
	}

	down, err := f.svc.Download(ctx, models.DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, down.Config["tags"])
	assert.Equal(t, map[string]any{"k": "v"}, down.Config["env"])

	_, err = f.svc.TrackLocalChange(models.Config{"tags": []string{"a"}}, local)
	require.NoError(t, err)
}

func TestCloudSync_RejectsNonJSONConfig(t *testing.T) {
	f := initialized(t, adapter.NewMemoryRemoteStore(), nil)
	ctx := context.Background()
	bad := models.Config{"callback": func() {}}
	before := f.svc.Status().Sync.TotalSyncs

	_, err := f.svc.Upload(ctx, bad, models.UploadOptions{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = f.svc.Sync(ctx, bad, models.SyncOptions{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = f.svc.TrackLocalChange(bad, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.Equal(t, syncstate.StateIdle, f.svc.Status().State)
	assert.Equal(t, before, f.svc.Status().Sync.TotalSyncs)
}
