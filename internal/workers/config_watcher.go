package workers

import (
	"bytes"
	"context"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/models"
)

// DefaultWatchInterval is used when the watcher is built with a
// non-positive interval.
const DefaultWatchInterval = 2 * time.Second

// ConfigWatcher polls the local config file and feeds every edit to the
// change tracker, so edits made while offline end up in the queue.
type ConfigWatcher struct {
	file     *ConfigFile
	tracker  ChangeTracker
	interval time.Duration
	logger   *logger.Logger

	seen    bool
	last    stamp
	lastRaw []byte
	lastCfg models.Config
}

func NewConfigWatcher(file *ConfigFile, tracker ChangeTracker, interval time.Duration, log *logger.Logger) *ConfigWatcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ConfigWatcher{
		file:     file,
		tracker:  tracker,
		interval: interval,
		logger:   log,
	}
}

// Run polls until ctx is cancelled. The first poll diffs the file against
// the last snapshot the tracker knows about.
func (w *ConfigWatcher) Run(ctx context.Context) {
	w.poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll reports the number of change entries recorded.
func (w *ConfigWatcher) poll(ctx context.Context) int {
	st, err := w.file.stat()
	if err != nil {
		w.logger.Err(err).Str("func", "*ConfigWatcher.poll").Str("path", w.file.Path()).Msg("stat config file")
		return 0
	}
	if w.seen && st == w.last {
		return 0
	}

	cfg, err := w.file.Load(ctx)
	if err != nil {
		w.logger.Err(err).Str("func", "*ConfigWatcher.poll").Str("path", w.file.Path()).Msg("load config file")
		return 0
	}
	raw, err := models.Marshal(cfg)
	if err != nil {
		w.logger.Err(err).Str("func", "*ConfigWatcher.poll").Msg("serialize config")
		return 0
	}
	if w.seen && bytes.Equal(raw, w.lastRaw) {
		w.last = st
		return 0
	}

	var previous models.Config
	if w.seen {
		previous = w.lastCfg
	}
	entries, err := w.tracker.TrackLocalChange(cfg, previous)
	if err != nil {
		// retried on the next tick
		w.logger.Err(err).Str("func", "*ConfigWatcher.poll").Msg("track local change")
		return 0
	}

	w.seen = true
	w.last = st
	w.lastRaw = raw
	w.lastCfg = cfg

	if len(entries) > 0 {
		w.logger.Info().
			Str("func", "*ConfigWatcher.poll").
			Int("changes", len(entries)).
			Msg("tracked local config changes")
	}
	return len(entries)
}
