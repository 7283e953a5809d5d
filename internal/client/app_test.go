package client

import (
	"context"
	"testing"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/adapter"
	"github.com/MKhiriev/go-conf-sync/internal/config"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/workers"
	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClientConfig(dir, device string) *config.ClientConfig {
	return &config.ClientConfig{
		App: config.ClientApp{
			HashKey:    "secret",
			UserID:     "alice",
			DeviceName: device,
			Version:    "test",
		},
		Adapter: config.ClientAdapter{RequestTimeout: 5 * time.Second},
		Sync: config.ClientSync{
			Strategy:           "remote-wins",
			ArrayMerge:         "union",
			MaxChanges:         100,
			MaxQueueSize:       10,
			HistorySize:        10,
			TimestampTolerance: time.Second,
		},
		Storage: config.ClientStorage{
			StateDir:   dir + "/state",
			ConfigFile: dir + "/config.json",
		},
		Workers: config.ClientWorkers{
			SyncInterval:  time.Hour,
			WatchInterval: 10 * time.Millisecond,
		},
	}
}

// startApp runs app in the background and returns a stop function that
// cancels it and reports the run error.
func startApp(t *testing.T, app *App) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.run(ctx) }()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("client app did not stop")
			return nil
		}
	}
}

func TestApp_UploadsLocalConfigOnStart(t *testing.T) {
	fs := afero.NewMemMapFs()
	remote := adapter.NewMemoryRemoteStore()
	require.NoError(t, afero.WriteFile(fs, "/a/config.json", []byte(`{"theme":"dark"}`), 0o600))

	app, err := NewApp(testClientConfig("/a", "laptop"), remote, fs, nil, logger.Nop())
	require.NoError(t, err)
	stop := startApp(t, app)

	require.Eventually(t, func() bool {
		rec, err := remote.GetUserRecord(context.Background(), "alice")
		return err == nil && rec != nil
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, stop())

	devices, err := remote.ListDevices(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "laptop", devices[0].Name)
}

func TestApp_SecondDeviceReceivesRemoteConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	remote := adapter.NewMemoryRemoteStore()
	require.NoError(t, afero.WriteFile(fs, "/a/config.json", []byte(`{"theme":"dark"}`), 0o600))

	first, err := NewApp(testClientConfig("/a", "laptop"), remote, fs, nil, logger.Nop())
	require.NoError(t, err)
	stopFirst := startApp(t, first)
	require.Eventually(t, func() bool {
		rec, err := remote.GetUserRecord(context.Background(), "alice")
		return err == nil && rec != nil
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, stopFirst())

	second, err := NewApp(testClientConfig("/b", "desktop"), remote, fs, nil, logger.Nop())
	require.NoError(t, err)
	stopSecond := startApp(t, second)

	file, err := workers.NewConfigFile(fs, "/b/config.json")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		cfg, err := file.Load(context.Background())
		return err == nil && cfg["theme"] == "dark"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, stopSecond())

	devices, err := remote.ListDevices(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, devices, 2)
}

func TestApp_InitializeFailure(t *testing.T) {
	cfg := testClientConfig("/a", "laptop")
	cfg.App.UserID = " "

	app, err := NewApp(cfg, adapter.NewMemoryRemoteStore(), afero.NewMemMapFs(), nil, logger.Nop())
	require.NoError(t, err)

	err = app.run(context.Background())
	assert.Error(t, err)
}

func TestNewApp_RequiresConfigFile(t *testing.T) {
	cfg := testClientConfig("/a", "laptop")
	cfg.Storage.ConfigFile = ""

	_, err := NewApp(cfg, adapter.NewMemoryRemoteStore(), afero.NewMemMapFs(), nil, logger.Nop())
	assert.ErrorIs(t, err, workers.ErrConfigFileNotSet)
}

func TestNewRemoteStore(t *testing.T) {
	t.Run("http address", func(t *testing.T) {
		cfg := testClientConfig("/a", "laptop")
		cfg.Adapter.HTTPAddress = "http://localhost:8080"

		remote, closer, err := NewRemoteStore(context.Background(), cfg, logger.Nop())
		require.NoError(t, err)
		assert.NotNil(t, remote)
		assert.NoError(t, closer.Close())
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, _, err := NewRemoteStore(context.Background(), testClientConfig("/a", "laptop"), logger.Nop())
		assert.ErrorIs(t, err, ErrNoRemoteStore)
	})
}

func TestInitialSync_StoresDownloadedConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	remote := adapter.NewMemoryRemoteStore()

	seed, err := NewApp(testClientConfig("/a", "laptop"), remote, fs, nil, logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, seed.services.CloudSync.Initialize(ctx, "alice", ""))
	_, err = seed.services.CloudSync.Upload(ctx, models.Config{"editor": "vim"}, models.UploadOptions{})
	require.NoError(t, err)
	require.NoError(t, seed.services.CloudSync.Close())

	app, err := NewApp(testClientConfig("/b", "desktop"), remote, fs, nil, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, app.services.CloudSync.Initialize(ctx, "alice", ""))
	defer app.services.CloudSync.Close()

	require.NoError(t, app.initialSync(ctx))

	cfg, err := app.file.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "vim", cfg["editor"])
}
