// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrConfigFileNotSet is returned by [NewConfigFile] for an empty path.
var ErrConfigFileNotSet = errors.New("local config file path is not set")

// ConfigFile is the local configuration document kept in sync. Files ending
// in .yaml or .yml are read and written as YAML, everything else as JSON.
// A missing file loads as an empty configuration.
type ConfigFile struct {
	fs   afero.Fs
	path string
}

func NewConfigFile(fsys afero.Fs, path string) (*ConfigFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrConfigFileNotSet
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &ConfigFile{fs: fsys, path: path}, nil
}

func (f *ConfigFile) Path() string {
	return f.path
}

func (f *ConfigFile) Load(ctx context.Context) (models.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return f.decode(raw)
}

// Store replaces the file contents through a temporary sibling and a rename.
func (f *ConfigFile) Store(ctx context.Context, cfg models.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := f.encode(cfg)
	if err != nil {
		return err
	}

	if err = f.fs.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err = afero.WriteFile(f.fs, tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err = f.fs.Rename(tmp, f.path); err != nil {
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// stamp identifies one revision of the file without reading it.
type stamp struct {
	exists  bool
	size    int64
	modTime time.Time
}

func (f *ConfigFile) stat() (stamp, error) {
	info, err := f.fs.Stat(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return stamp{}, nil
	}
	if err != nil {
		return stamp{}, err
	}
	return stamp{exists: true, size: info.Size(), modTime: info.ModTime()}, nil
}

func (f *ConfigFile) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(f.path))
	return ext == ".yaml" || ext == ".yml"
}

func (f *ConfigFile) decode(raw []byte) (models.Config, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return models.Config{}, nil
	}

	if !f.isYAML() {
		cfg, err := models.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.path, err)
		}
		if cfg == nil {
			cfg = models.Config{}
		}
		return cfg, nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	cfg, err := models.Normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	if cfg == nil {
		cfg = models.Config{}
	}
	return cfg, nil
}

func (f *ConfigFile) encode(cfg models.Config) ([]byte, error) {
	if cfg == nil {
		cfg = models.Config{}
	}
	if f.isYAML() {
		raw, err := yaml.Marshal(map[string]any(cfg))
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return raw, nil
	}
	raw, err := models.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}
