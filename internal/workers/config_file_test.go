package workers

import (
	"context"
	"testing"

	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFile_EmptyPath(t *testing.T) {
	_, err := NewConfigFile(afero.NewMemMapFs(), " ")
	assert.ErrorIs(t, err, ErrConfigFileNotSet)
}

func TestConfigFile_MissingLoadsEmpty(t *testing.T) {
	f, err := NewConfigFile(afero.NewMemMapFs(), "/home/u/.app/config.json")
	require.NoError(t, err)

	cfg, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Config{}, cfg)
}

func TestConfigFile_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{name: "json", path: "/cfg/settings.json"},
		{name: "yaml", path: "/cfg/settings.yaml"},
		{name: "yml", path: "/cfg/settings.yml"},
	}

	want := models.Config{
		"theme":        "dark",
		"fontSize":     float64(14),
		"lastModified": float64(1700000000000),
		"projects": map[string]any{
			"api": map[string]any{"path": "/src/api", "pinned": true},
		},
		"recent": []any{"a", "b"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			f, err := NewConfigFile(fs, tc.path)
			require.NoError(t, err)

			require.NoError(t, f.Store(context.Background(), want))

			got, err := f.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, want, got)

			exists, err := afero.Exists(fs, tc.path+".tmp")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestConfigFile_InvalidContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/a.json", []byte("[1,2]"), 0o600))
	require.NoError(t, afero.WriteFile(fs, "/cfg/b.yaml", []byte("key: [unclosed"), 0o600))

	for _, path := range []string{"/cfg/a.json", "/cfg/b.yaml"} {
		f, err := NewConfigFile(fs, path)
		require.NoError(t, err)
		_, err = f.Load(context.Background())
		assert.Error(t, err, path)
	}
}

func TestConfigFile_BlankFileIsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/a.json", []byte("  \n"), 0o600))

	f, err := NewConfigFile(fs, "/cfg/a.json")
	require.NoError(t, err)
	cfg, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cfg)
}

func TestConfigFile_CancelledContext(t *testing.T) {
	f, err := NewConfigFile(afero.NewMemMapFs(), "/cfg/a.json")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, f.Store(ctx, models.Config{}), context.Canceled)
}
