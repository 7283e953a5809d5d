// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package tracker records local configuration edits in a durable queue so
// nothing is lost while the device is disconnected.
//
// Every mutating operation runs its read-modify-persist cycle under a single
// per-instance mutex, so concurrent callers cannot lose updates to the
// persisted file. A process-level file lock can additionally keep a second
// process from writing the same queue.
package tracker

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/crypto"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

// DefaultMaxChanges is the default capacity of the change queue.
const DefaultMaxChanges = 1000

// Options configure a [Tracker].
type Options struct {
	// MaxChanges bounds the queue; the oldest entries are evicted first.
	MaxChanges int

	// FullSnapshot records one whole-document replace per detected change
	// instead of granular per-path entries.
	FullSnapshot bool

	// AutoSave persists the queue after every mutation. Without it the
	// caller persists with Save.
	AutoSave bool

	// StateDir is the directory holding the queue file.
	StateDir string

	// LockFile takes an exclusive lock on <StateDir>/offline-queue.lock for
	// the lifetime of the tracker. The lock lives on the OS filesystem even
	// when Fs is not.
	LockFile bool

	// Fs is the filesystem holding the queue file. Defaults to the OS
	// filesystem.
	Fs afero.Fs

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns granular tracking with auto-save and the default
// capacity.
func DefaultOptions(stateDir string) Options {
	return Options{
		MaxChanges: DefaultMaxChanges,
		AutoSave:   true,
		StateDir:   stateDir,
	}
}

// Stats summarizes the queue.
type Stats struct {
	Total            int        `json:"total"`
	Pending          int        `json:"pending"`
	Synced           int        `json:"synced"`
	MaxChanges       int        `json:"max_changes"`
	Online           bool       `json:"online"`
	LastSnapshotHash string     `json:"last_snapshot_hash,omitempty"`
	LastChangeAt     *time.Time `json:"last_change_at,omitempty"`
}

// Tracker is the offline change tracker.
type Tracker struct {
	opts Options
	fs   afero.Fs
	path string
	lock *flock.Flock
	log  *logger.Logger

	mu           sync.Mutex
	changes      []models.ChangeEntry
	snapshot     models.Config
	snapshotHash string
	online       bool
	initialized  bool
	closed       bool

	// notifyMu orders observer delivery across concurrent callers.
	notifyMu  sync.Mutex
	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObsID int
}

// New constructs a Tracker. Call Initialize before tracking changes.
func New(opts Options, log *logger.Logger) *Tracker {
	if opts.MaxChanges <= 0 {
		opts.MaxChanges = DefaultMaxChanges
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}

	t := &Tracker{
		opts:      opts,
		fs:        opts.Fs,
		path:      filepath.Join(opts.StateDir, QueueFileName),
		log:       log,
		online:    true,
		observers: make(map[int]Observer),
	}
	if opts.LockFile {
		t.lock = flock.New(filepath.Join(opts.StateDir, LockFileName))
	}

	return t
}

// Initialize loads the persisted queue. It is idempotent. An unreadable
// queue file is logged and discarded; the tracker then starts empty.
func (t *Tracker) Initialize() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.initialized {
		return nil
	}

	if t.lock != nil {
		if err := afero.NewOsFs().MkdirAll(t.opts.StateDir, 0o700); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
		locked, err := t.lock.TryLock()
		if err != nil {
			return fmt.Errorf("lock offline queue: %w", err)
		}
		if !locked {
			return ErrQueueLocked
		}
	}

	doc, err := load(t.fs, t.path)
	var corrupted *corruptedError
	if errors.As(err, &corrupted) {
		t.log.Warn().Err(err).Str("path", t.path).Msg("discarding unreadable offline queue")
		doc = queueDocument{}
	}

	t.changes = doc.Changes
	t.snapshot = doc.LastSnapshot
	t.snapshotHash = doc.LastSnapshotHash
	t.initialized = true

	t.log.Debug().
		Int("changes", len(t.changes)).
		Str("snapshot_hash", t.snapshotHash).
		Msg("offline queue loaded")

	return nil
}

// TrackChange records the difference between current and previous. When
// previous is nil the last snapshot is used as the baseline. If current
// hashes the same as the last snapshot no entries are produced.
//
// The returned entries are those appended by this call. They are returned
// even if persisting the queue failed.
func (t *Tracker) TrackChange(current, previous models.Config) ([]models.ChangeEntry, error) {
	serialized, err := models.Marshal(current)
	if err != nil {
		return nil, err
	}
	hash := crypto.Hash(serialized)

	t.mu.Lock()
	if err = t.usable(); err != nil {
		t.mu.Unlock()
		return nil, err
	}

	if hash == t.snapshotHash {
		t.mu.Unlock()
		return []models.ChangeEntry{}, nil
	}

	now := t.opts.Now().UTC()
	var added []models.ChangeEntry
	emit := func(typ models.ChangeType, path string, value any) {
		added = append(added, models.ChangeEntry{
			ID:        utils.NewID(),
			Type:      typ,
			Path:      path,
			Value:     models.CloneValue(value),
			Timestamp: now,
		})
	}

	if t.opts.FullSnapshot {
		emit(models.ChangeReplace, models.RootPath, map[string]any(current))
	} else {
		base := previous
		if base == nil {
			base = t.snapshot
		}
		diff("", base, current, emit)
	}
	if added == nil {
		added = []models.ChangeEntry{}
	}

	t.changes = append(t.changes, added...)
	t.snapshot = current.Clone()
	t.snapshotHash = hash
	evicted := t.evict()

	err = t.autoSave()
	t.mu.Unlock()

	if len(evicted) > 0 {
		t.log.Warn().
			Int("evicted", len(evicted)).
			Int("max_changes", t.opts.MaxChanges).
			Msg("offline queue is full, oldest changes dropped")
		t.notify(Notification{Event: EventEvicted, Evicted: evicted})
	}

	return cloneEntries(added), err
}

// PendingChanges returns unsynced entries in insertion order.
func (t *Tracker) PendingChanges() []models.ChangeEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.pending()
}

// Changes returns every entry, synced or not, in insertion order.
func (t *Tracker) Changes() []models.ChangeEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	return cloneEntries(t.changes)
}

// MarkSynced flags the entries with the given ids as synced and returns how
// many were found.
func (t *Tracker) MarkSynced(ids []string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return 0, err
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	marked := 0
	for i := range t.changes {
		if _, ok := want[t.changes[i].ID]; ok && !t.changes[i].Synced {
			t.changes[i].Synced = true
			marked++
		}
	}
	if marked == 0 {
		return 0, nil
	}

	return marked, t.autoSave()
}

// ClearSynced removes synced entries and returns how many were removed.
func (t *Tracker) ClearSynced() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return 0, err
	}

	kept := make([]models.ChangeEntry, 0, len(t.changes))
	for _, c := range t.changes {
		if !c.Synced {
			kept = append(kept, c)
		}
	}
	removed := len(t.changes) - len(kept)
	t.changes = kept

	return removed, t.autoSave()
}

// Discard removes the given pending entries without marking them synced.
// It is used when newer remote content supersedes local edits. Synced
// entries are left alone. It returns how many entries were removed.
func (t *Tracker) Discard(ids []string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return 0, err
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := make([]models.ChangeEntry, 0, len(t.changes))
	for _, c := range t.changes {
		if _, ok := drop[c.ID]; ok && !c.Synced {
			continue
		}
		kept = append(kept, c)
	}
	removed := len(t.changes) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	t.changes = kept

	return removed, t.autoSave()
}

// ClearAll drops every entry together with the snapshot baseline.
func (t *Tracker) ClearAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return err
	}

	t.changes = nil
	t.snapshot = nil
	t.snapshotHash = ""

	return t.autoSave()
}

// ApplyPendingChanges replays every pending entry, in order, onto a deep
// copy of base.
func (t *Tracker) ApplyPendingChanges(base models.Config) (models.Config, error) {
	pending := t.PendingChanges()

	out := base.Clone()
	if out == nil {
		out = models.Config{}
	}

	for _, c := range pending {
		switch c.Type {
		case models.ChangeReplace:
			obj, ok := asObject(c.Value)
			if !ok {
				return nil, fmt.Errorf("%w: replace %s carries a non-object value", ErrInvalidPath, c.ID)
			}
			out = models.Config(models.CloneValue(obj).(map[string]any))
		case models.ChangeCreate, models.ChangeUpdate:
			if err := setPath(out, c.Path, c.Value); err != nil {
				return nil, err
			}
		case models.ChangeDelete:
			if err := deletePath(out, c.Path); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown change type %q", c.Type)
		}
	}

	return out, nil
}

// SetOnlineStatus records connectivity. Observers are notified only when the
// status actually changes.
func (t *Tracker) SetOnlineStatus(online bool) {
	t.mu.Lock()
	changed := t.online != online
	t.online = online
	t.mu.Unlock()

	if !changed {
		return
	}

	event := EventOffline
	if online {
		event = EventOnline
	}
	t.log.Info().Bool("online", online).Msg("connectivity changed")
	t.notify(Notification{Event: event})
}

// IsOnline reports the last recorded connectivity.
func (t *Tracker) IsOnline() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.online
}

// Stats returns queue counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Stats{
		Total:            len(t.changes),
		MaxChanges:       t.opts.MaxChanges,
		Online:           t.online,
		LastSnapshotHash: t.snapshotHash,
	}
	for _, c := range t.changes {
		if c.Synced {
			s.Synced++
		} else {
			s.Pending++
		}
	}
	if n := len(t.changes); n > 0 {
		ts := t.changes[n-1].Timestamp
		s.LastChangeAt = &ts
	}

	return s
}

// Snapshot returns a copy of the last tracked configuration.
func (t *Tracker) Snapshot() models.Config {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.snapshot.Clone()
}

// Save persists the queue regardless of AutoSave.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.usable(); err != nil {
		return err
	}
	return t.persist()
}

// Subscribe registers an observer and returns a function that removes it.
func (t *Tracker) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	id := t.nextObsID
	t.nextObsID++
	t.observers[id] = o
	t.obsMu.Unlock()

	return func() {
		t.obsMu.Lock()
		delete(t.observers, id)
		t.obsMu.Unlock()
	}
}

// Close persists the queue and releases the file lock. Further calls are
// no-ops.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	if t.initialized {
		errs = append(errs, t.persist())
	}
	if t.lock != nil {
		errs = append(errs, t.lock.Unlock())
	}

	return errors.Join(errs...)
}

func (t *Tracker) usable() error {
	if t.closed {
		return ErrClosed
	}
	if !t.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (t *Tracker) pending() []models.ChangeEntry {
	out := make([]models.ChangeEntry, 0, len(t.changes))
	for _, c := range t.changes {
		if !c.Synced {
			out = append(out, cloneEntry(c))
		}
	}
	return out
}

// evict drops the oldest entries past the capacity bound. Caller holds mu.
func (t *Tracker) evict() []models.ChangeEntry {
	over := len(t.changes) - t.opts.MaxChanges
	if over <= 0 {
		return nil
	}

	evicted := cloneEntries(t.changes[:over])
	kept := make([]models.ChangeEntry, t.opts.MaxChanges)
	copy(kept, t.changes[over:])
	t.changes = kept

	return evicted
}

func (t *Tracker) autoSave() error {
	if !t.opts.AutoSave {
		return nil
	}
	return t.persist()
}

// persist writes the queue. Caller holds mu.
func (t *Tracker) persist() error {
	doc := queueDocument{
		Changes:          t.changes,
		LastSnapshot:     t.snapshot,
		LastSnapshotHash: t.snapshotHash,
		SavedAt:          t.opts.Now().UTC(),
	}
	if doc.Changes == nil {
		doc.Changes = []models.ChangeEntry{}
	}

	if err := save(t.fs, t.path, doc); err != nil {
		t.log.Error().Err(err).Str("path", t.path).Msg("failed to persist offline queue")
		return err
	}
	return nil
}

func (t *Tracker) notify(n Notification) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.obsMu.RLock()
	ids := make([]int, 0, len(t.observers))
	for id := range t.observers {
		ids = append(ids, id)
	}
	observers := make([]Observer, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		observers = append(observers, t.observers[id])
	}
	t.obsMu.RUnlock()

	for _, o := range observers {
		o.OnTrackerEvent(n)
	}
}

func cloneEntry(c models.ChangeEntry) models.ChangeEntry {
	c.Value = models.CloneValue(c.Value)
	return c
}

func cloneEntries(in []models.ChangeEntry) []models.ChangeEntry {
	out := make([]models.ChangeEntry, len(in))
	for i, c := range in {
		out[i] = cloneEntry(c)
	}
	return out
}
