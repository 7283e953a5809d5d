package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StructuredFileConfig is the on-disk shape of a JSON or YAML config file.
type StructuredFileConfig struct {
	App struct {
		TokenSignKey  string   `json:"token_sign_key" yaml:"token_sign_key"`
		TokenIssuer   string   `json:"token_issuer" yaml:"token_issuer"`
		TokenDuration Duration `json:"token_duration" yaml:"token_duration"`
		HashKey       string   `json:"hash_key" yaml:"hash_key"`
		Version       string   `json:"version" yaml:"version"`
		UserID        string   `json:"user_id" yaml:"user_id"`
		DeviceName    string   `json:"device_name" yaml:"device_name"`
		Encrypt       bool     `json:"encrypt" yaml:"encrypt"`
		Passphrase    string   `json:"passphrase" yaml:"passphrase"`
	} `json:"app,omitempty" yaml:"app,omitempty"`

	Sync struct {
		Strategy           string   `json:"strategy" yaml:"strategy"`
		ArrayMerge         string   `json:"array_merge" yaml:"array_merge"`
		MaxChanges         int      `json:"max_changes" yaml:"max_changes"`
		FullSnapshot       bool     `json:"full_snapshot" yaml:"full_snapshot"`
		LockFile           bool     `json:"lock_file" yaml:"lock_file"`
		MaxQueueSize       int      `json:"max_queue_size" yaml:"max_queue_size"`
		HistorySize        int      `json:"history_size" yaml:"history_size"`
		TimestampTolerance Duration `json:"timestamp_tolerance" yaml:"timestamp_tolerance"`
	} `json:"sync,omitempty" yaml:"sync,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn" yaml:"dsn"`
		} `json:"db,omitempty" yaml:"db,omitempty"`

		Local struct {
			StateDir   string `json:"state_dir" yaml:"state_dir"`
			ConfigFile string `json:"config_file" yaml:"config_file"`
			LogFile    string `json:"log_file" yaml:"log_file"`
		} `json:"local,omitempty" yaml:"local,omitempty"`
	} `json:"storage,omitempty" yaml:"storage,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address" yaml:"http_address"`
		RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
	} `json:"server,omitempty" yaml:"server,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address" yaml:"http_address"`
		RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
	} `json:"adapter,omitempty" yaml:"adapter,omitempty"`

	Workers struct {
		SyncInterval  Duration `json:"sync_interval" yaml:"sync_interval"`
		WatchInterval Duration `json:"watch_interval" yaml:"watch_interval"`
	} `json:"workers,omitempty" yaml:"workers,omitempty"`
}

func parseFile(path string) (*StructuredConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error reading a config file: %w", err)
	}
	defer file.Close()

	var fileCfg StructuredFileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err = yaml.NewDecoder(file).Decode(&fileCfg); err != nil && err != io.EOF {
			return nil, fmt.Errorf("error decoding yaml configs: %w", err)
		}
	default:
		if err = json.NewDecoder(file).Decode(&fileCfg); err != nil {
			return nil, fmt.Errorf("error decoding json configs: %w", err)
		}
	}

	return fileCfg.toStructured(), nil
}

func (f *StructuredFileConfig) toStructured() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			TokenSignKey:  f.App.TokenSignKey,
			TokenIssuer:   f.App.TokenIssuer,
			TokenDuration: time.Duration(f.App.TokenDuration),
			HashKey:       f.App.HashKey,
			Version:       f.App.Version,
			UserID:        f.App.UserID,
			DeviceName:    f.App.DeviceName,
			Encrypt:       f.App.Encrypt,
			Passphrase:    f.App.Passphrase,
		},
		Sync: Sync{
			Strategy:           f.Sync.Strategy,
			ArrayMerge:         f.Sync.ArrayMerge,
			MaxChanges:         f.Sync.MaxChanges,
			FullSnapshot:       f.Sync.FullSnapshot,
			LockFile:           f.Sync.LockFile,
			MaxQueueSize:       f.Sync.MaxQueueSize,
			HistorySize:        f.Sync.HistorySize,
			TimestampTolerance: time.Duration(f.Sync.TimestampTolerance),
		},
		Storage: Storage{
			DB: DB{DSN: f.Storage.DB.DSN},
			Local: Local{
				StateDir:   f.Storage.Local.StateDir,
				ConfigFile: f.Storage.Local.ConfigFile,
				LogFile:    f.Storage.Local.LogFile,
			},
		},
		Server: Server{
			HTTPAddress:    f.Server.HTTPAddress,
			RequestTimeout: time.Duration(f.Server.RequestTimeout),
		},
		Adapter: Adapter{
			HTTPAddress:    f.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(f.Adapter.RequestTimeout),
		},
		Workers: Workers{
			SyncInterval:  time.Duration(f.Workers.SyncInterval),
			WatchInterval: time.Duration(f.Workers.WatchInterval),
		},
	}
}

// Duration is a wrapper around time.Duration that supports unmarshaling from
// strings like "1h" or "30s" in both JSON and YAML.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	if tmp, err := time.ParseDuration(s); err == nil {
		*d = Duration(tmp)
		return nil
	}

	var n int64
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(time.Duration(n))
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
