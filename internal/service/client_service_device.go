package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/spf13/afero"
)

// DeviceFileName holds the installation's device identity inside the state
// directory.
const DeviceFileName = "device.json"

type deviceFile struct {
	DeviceID  string    `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}

// loadOrCreateDevice returns the device descriptor of this installation.
// The id is generated once and kept in <stateDir>/device.json; name and
// platform are refreshed on every start.
func loadOrCreateDevice(fsys afero.Fs, stateDir, userID, name, clientVersion string, now time.Time) (models.Device, error) {
	path := filepath.Join(stateDir, DeviceFileName)

	var df deviceFile
	data, err := afero.ReadFile(fsys, path)
	switch {
	case err == nil:
		if err = json.Unmarshal(data, &df); err != nil || df.DeviceID == "" {
			return models.Device{}, fmt.Errorf("corrupted device file %s: %v", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		df = deviceFile{DeviceID: utils.NewID(), CreatedAt: now.UTC()}
		if err = writeDeviceFile(fsys, path, df); err != nil {
			return models.Device{}, err
		}
	default:
		return models.Device{}, fmt.Errorf("read device file: %w", err)
	}

	hostname, _ := os.Hostname()
	if name == "" {
		name = hostname
	}
	if name == "" {
		name = runtime.GOOS + "-" + df.DeviceID[:8]
	}

	return models.Device{
		DeviceID: df.DeviceID,
		UserID:   userID,
		Name:     name,
		Platform: models.PlatformInfo{
			OS:            runtime.GOOS,
			Arch:          runtime.GOARCH,
			Hostname:      hostname,
			ClientVersion: clientVersion,
		},
	}, nil
}

func writeDeviceFile(fsys afero.Fs, path string, df deviceFile) error {
	data, err := json.MarshalIndent(df, "", "  ")
	if err != nil {
		return fmt.Errorf("encode device file: %w", err)
	}
	if err = fsys.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := path + ".tmp"
	if err = afero.WriteFile(fsys, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write device file: %w", err)
	}
	if err = fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("replace device file: %w", err)
	}
	return nil
}
