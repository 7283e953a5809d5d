// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/adapter"
	"github.com/MKhiriev/go-conf-sync/internal/crypto"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/metrics"
	"github.com/MKhiriev/go-conf-sync/internal/resolver"
	"github.com/MKhiriev/go-conf-sync/internal/syncstate"
	"github.com/MKhiriev/go-conf-sync/internal/tracker"
	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/spf13/afero"
)

const (
	DefaultRequestTimeout     = 30 * time.Second
	DefaultTimestampTolerance = 1000 * time.Millisecond
)

// metric action labels
const (
	actionUpload   = "upload"
	actionDownload = "download"
	actionSync     = "sync"
)

var allSyncStates = []string{
	string(syncstate.StateIdle),
	string(syncstate.StateSyncing),
	string(syncstate.StateUploading),
	string(syncstate.StateDownloading),
	string(syncstate.StateResolvingConflicts),
	string(syncstate.StateError),
	string(syncstate.StateOffline),
}

// CloudSyncConfig holds the tunables of a [CloudSyncService].
type CloudSyncConfig struct {
	StateDir      string
	DeviceName    string
	ClientVersion string

	// Encrypt seals every uploaded payload with AES-256-GCM.
	Encrypt bool

	// Resolver is used for bidirectional syncs whose content diverged.
	Resolver resolver.Options

	// RequestTimeout bounds every single remote call.
	RequestTimeout time.Duration

	// TimestampTolerance is the lastModified difference under which both
	// sides count as concurrent.
	TimestampTolerance time.Duration
}

// CloudSyncDeps are the collaborators of a [CloudSyncService]. Remote,
// Tracker and State are required; everything else has a default.
type CloudSyncDeps struct {
	Remote   adapter.RemoteStore
	Cipher   crypto.Cipher
	KeyStore crypto.KeyStore
	Tracker  *tracker.Tracker
	State    *syncstate.Manager
	Metrics  *metrics.Metrics
	Fs       afero.Fs
	Logger   *logger.Logger
	Config   CloudSyncConfig
	Now      func() time.Time
}

// CloudSyncService is the default [CloudSyncManager].
type CloudSyncService struct {
	remote   adapter.RemoteStore
	cipher   crypto.Cipher
	keyStore crypto.KeyStore
	tracker  *tracker.Tracker
	state    *syncstate.Manager
	metrics  *metrics.Metrics
	fs       afero.Fs
	cfg      CloudSyncConfig
	now      func() time.Time
	logger   *logger.Logger

	mu          sync.RWMutex
	initialized bool
	closed      bool
	userID      string
	device      models.Device
	key         *crypto.Key
	registered  bool
	unsubscribe func()

	// base is the last configuration both sides agreed on. It is the
	// common ancestor handed to the resolver.
	base models.Config
}

// session is an immutable view of the initialized identity.
type session struct {
	userID string
	device models.Device
	key    *crypto.Key
}

// queuedRequest is the payload of an operation queued while offline.
type queuedRequest struct {
	Config   models.Config
	Upload   models.UploadOptions
	Download models.DownloadOptions
	Sync     models.SyncOptions
}

// NewCloudSyncService wires a [CloudSyncService]. The returned service is
// unusable until Initialize.
func NewCloudSyncService(deps CloudSyncDeps) (*CloudSyncService, error) {
	if deps.Remote == nil || deps.Tracker == nil || deps.State == nil {
		return nil, fmt.Errorf("%w: remote store, tracker and state manager are required", ErrInvalidDataProvided)
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Cipher == nil {
		deps.Cipher = crypto.NewCipher()
	}
	if deps.KeyStore == nil {
		deps.KeyStore = crypto.NewKeyStore(deps.Fs, deps.Config.StateDir)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Config.RequestTimeout <= 0 {
		deps.Config.RequestTimeout = DefaultRequestTimeout
	}
	if deps.Config.TimestampTolerance <= 0 {
		deps.Config.TimestampTolerance = DefaultTimestampTolerance
	}

	return &CloudSyncService{
		remote:   deps.Remote,
		cipher:   deps.Cipher,
		keyStore: deps.KeyStore,
		tracker:  deps.Tracker,
		state:    deps.State,
		metrics:  deps.Metrics,
		fs:       deps.Fs,
		cfg:      deps.Config,
		now:      deps.Now,
		logger:   deps.Logger,
	}, nil
}

// Initialize implements [CloudSyncManager]. Calling it again for the same
// user is a no-op.
func (s *CloudSyncService) Initialize(ctx context.Context, userID, passphrase string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrValidationNoUserID
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrNotInitialized
	case s.initialized && s.userID == userID:
		s.mu.Unlock()
		return nil
	case s.initialized:
		s.mu.Unlock()
		return fmt.Errorf("%w: already initialized for another user", syncstate.ErrIllegalState)
	}

	device, err := loadOrCreateDevice(s.fs, s.cfg.StateDir, userID, s.cfg.DeviceName, s.cfg.ClientVersion, s.now())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("load device identity: %w", err)
	}

	var key *crypto.Key
	if s.cfg.Encrypt {
		if key, err = s.keyStore.LoadOrCreateKey(passphrase); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("load encryption key: %w", err)
		}
	}

	if err = s.tracker.Initialize(); err != nil {
		if key != nil {
			_ = key.Close()
		}
		s.mu.Unlock()
		return fmt.Errorf("initialize offline tracker: %w", err)
	}

	s.state.SetProcessor(s.replay)
	s.unsubscribe = s.state.Subscribe(syncstate.ObserverFunc(func(t syncstate.Transition) {
		s.metrics.SetSyncState(string(t.To), allSyncStates)
	}))
	s.metrics.SetSyncState(string(s.state.State()), allSyncStates)

	s.userID = userID
	s.device = device
	s.key = key
	s.initialized = true
	sess := session{userID: userID, device: device, key: key}
	s.mu.Unlock()

	s.logger.Info().
		Str("user_id", userID).
		Str("device_id", device.DeviceID).
		Bool("encrypted", key != nil).
		Msg("cloud sync initialized")

	s.metrics.SetPendingChanges(len(s.tracker.PendingChanges()))

	if s.tracker.IsOnline() {
		s.ensureRegistered(ctx, sess)
	}

	return nil
}

// Upload implements [CloudSyncManager].
func (s *CloudSyncService) Upload(ctx context.Context, cfg models.Config, opts models.UploadOptions) (models.UploadResult, error) {
	sess, err := s.session()
	if err != nil {
		return models.UploadResult{}, err
	}
	if cfg, err = normalizeConfig(cfg); err != nil {
		return models.UploadResult{}, err
	}
	started := s.now()

	op, err := s.state.StartSync(models.SyncUpload, queuedRequest{Config: cfg.Clone(), Upload: opts})
	if err != nil {
		return models.UploadResult{}, err
	}
	if op.Status == models.SyncStatusQueued {
		s.metrics.ObserveSync(actionUpload, metrics.OutcomeQueued, 0)
		return models.UploadResult{Queued: true, OperationID: op.ID}, nil
	}
	// Close may have run between the first check and StartSync
	if sess, err = s.session(); err != nil {
		return models.UploadResult{}, s.fail(actionUpload, started, err)
	}

	if err = s.state.TransitionToUploading(); err != nil {
		return models.UploadResult{}, s.fail(actionUpload, started, err)
	}

	pending := s.tracker.PendingChanges()
	res, err := s.upload(ctx, sess, cfg, nil, changedPaths(opts.ChangedPaths, pending, nil))
	if err != nil {
		return models.UploadResult{}, s.fail(actionUpload, started, err)
	}
	res.OperationID = op.ID

	s.afterSync(cfg, pending)
	s.complete(actionUpload, metrics.OutcomeSuccess, started, res)

	return res, nil
}

// Download implements [CloudSyncManager].
func (s *CloudSyncService) Download(ctx context.Context, opts models.DownloadOptions) (models.DownloadResult, error) {
	sess, err := s.session()
	if err != nil {
		return models.DownloadResult{}, err
	}
	started := s.now()

	op, err := s.state.StartSync(models.SyncDownload, queuedRequest{Download: opts})
	if err != nil {
		return models.DownloadResult{}, err
	}
	if op.Status == models.SyncStatusQueued {
		s.metrics.ObserveSync(actionDownload, metrics.OutcomeQueued, 0)
		return models.DownloadResult{Queued: true, OperationID: op.ID}, nil
	}
	// Close may have run between the first check and StartSync
	if sess, err = s.session(); err != nil {
		return models.DownloadResult{}, s.fail(actionDownload, started, err)
	}

	if err = s.state.TransitionToDownloading(); err != nil {
		return models.DownloadResult{}, s.fail(actionDownload, started, err)
	}

	record, cfg, err := s.download(ctx, sess)
	if err != nil {
		return models.DownloadResult{}, s.fail(actionDownload, started, err)
	}

	res := models.DownloadResult{Success: true, OperationID: op.ID}
	if record != nil {
		s.setBase(cfg)
		s.bookkeep(ctx, sess, nil, models.DeviceStatsUpdate{
			Downloads:       1,
			LastSyncAt:      s.now().UTC(),
			LastSyncVersion: record.Version,
		})

		if opts.ApplyPending {
			if cfg, err = s.tracker.ApplyPendingChanges(cfg); err != nil {
				return models.DownloadResult{}, s.fail(actionDownload, started, fmt.Errorf("apply pending changes: %w", err))
			}
		}

		res.Config = cfg
		res.Version = record.Version
		res.LastModified = record.LastModified
		res.LastModifiedBy = record.LastModifiedBy
		res.Encrypted = record.Encrypted()
	}

	s.complete(actionDownload, metrics.OutcomeSuccess, started, res)
	return res, nil
}

// Sync implements [CloudSyncManager].
func (s *CloudSyncService) Sync(ctx context.Context, local models.Config, opts models.SyncOptions) (models.SyncResult, error) {
	sess, err := s.session()
	if err != nil {
		return models.SyncResult{}, err
	}
	switch opts.Force {
	case models.ForceNone, models.ForceUpload, models.ForceDownload:
	default:
		return models.SyncResult{}, fmt.Errorf("%w: %q", ErrInvalidForceDirection, opts.Force)
	}
	if local, err = normalizeConfig(local); err != nil {
		return models.SyncResult{}, err
	}
	started := s.now()

	op, err := s.state.StartSync(models.SyncBidirectional, queuedRequest{Config: local.Clone(), Sync: opts})
	if err != nil {
		return models.SyncResult{}, err
	}
	if op.Status == models.SyncStatusQueued {
		s.metrics.ObserveSync(actionSync, metrics.OutcomeQueued, 0)
		return models.SyncResult{Action: models.SyncActionQueued, OperationID: op.ID}, nil
	}
	// Close may have run between the first check and StartSync
	if sess, err = s.session(); err != nil {
		return models.SyncResult{}, s.fail(actionSync, started, err)
	}

	if err = s.state.TransitionToDownloading(); err != nil {
		return models.SyncResult{}, s.fail(actionSync, started, err)
	}

	pending := s.tracker.PendingChanges()
	record, remote, err := s.download(ctx, sess)
	if err != nil {
		return models.SyncResult{}, s.fail(actionSync, started, err)
	}

	if record == nil {
		return s.syncUpload(ctx, sess, op, started, local, 0, pending)
	}

	switch opts.Force {
	case models.ForceUpload:
		return s.syncUpload(ctx, sess, op, started, local, record.Version, pending)
	case models.ForceDownload:
		return s.syncDownload(ctx, sess, op, started, record, remote, pending)
	}

	if localTS, ok := local.LastModified(); ok {
		remoteTS, ok := remote.LastModified()
		if !ok {
			remoteTS = record.LastModified.UnixMilli()
		}
		tolerance := s.cfg.TimestampTolerance.Milliseconds()

		switch {
		case localTS-remoteTS > tolerance:
			return s.syncUpload(ctx, sess, op, started, local, record.Version, pending)
		case remoteTS-localTS > tolerance:
			return s.syncDownload(ctx, sess, op, started, record, remote, pending)
		}
	}

	payload, err := models.Marshal(local)
	if err != nil {
		return models.SyncResult{}, s.fail(actionSync, started, fmt.Errorf("serialize local config: %w", err))
	}
	if s.cipher.Hash(payload) == record.ContentHash {
		s.afterSync(remote, pending)
		res := models.SyncResult{
			Success:     true,
			Action:      models.SyncActionInSync,
			OperationID: op.ID,
			Version:     record.Version,
			Config:      remote,
			Message:     "already in sync",
		}
		s.complete(actionSync, metrics.OutcomeNoop, started, res)
		return res, nil
	}

	if err = s.state.TransitionToResolvingConflicts(); err != nil {
		return models.SyncResult{}, s.fail(actionSync, started, err)
	}

	result := resolver.Resolve(local, remote, s.baseSnapshot(), s.cfg.Resolver)

	if result.NeedsManualResolution() {
		res := models.SyncResult{
			Success:       false,
			Action:        models.SyncActionConflict,
			OperationID:   op.ID,
			Version:       record.Version,
			Conflicts:     result.Conflicts,
			ConflictCount: len(result.Conflicts),
			AutoResolved:  result.AutoResolvedCount,
			Resolved:      result.Resolved,
			Message:       "manual conflict resolution required",
		}
		s.logger.Info().
			Str("op_id", op.ID).
			Int("conflicts", len(result.Conflicts)).
			Int("manual", result.ManualRequiredCount).
			Msg("sync needs manual conflict resolution")
		s.complete(actionSync, metrics.OutcomeConflict, started, res)
		return res, nil
	}

	merged := result.Resolved.Clone()
	if merged == nil {
		merged = models.Config{}
	}
	next := record.Version + 1
	merged[models.LastModifiedField] = float64(s.now().UnixMilli())
	merged[models.VersionField] = float64(next)

	if err = s.state.TransitionToUploading(); err != nil {
		return models.SyncResult{}, s.fail(actionSync, started, err)
	}

	up, err := s.upload(ctx, sess, merged, &record.Version, changedPaths(nil, pending, result.Conflicts))
	if err != nil {
		if isVersionConflict(err) {
			s.logger.Warn().Str("op_id", op.ID).Msg("remote record changed during sync, sync again to merge")
		}
		return models.SyncResult{}, s.fail(actionSync, started, err)
	}

	s.afterSync(merged, pending)
	res := models.SyncResult{
		Success:       true,
		Action:        models.SyncActionMerged,
		OperationID:   op.ID,
		Version:       up.Version,
		Config:        merged,
		Conflicts:     result.Conflicts,
		ConflictCount: len(result.Conflicts),
		AutoResolved:  result.AutoResolvedCount,
	}
	s.complete(actionSync, metrics.OutcomeSuccess, started, res)

	return res, nil
}

// syncUpload finishes a sync in which local wins outright. expected is the
// remote version the upload must replace.
func (s *CloudSyncService) syncUpload(
	ctx context.Context,
	sess session,
	op models.SyncOperation,
	started time.Time,
	local models.Config,
	expected int64,
	pending []models.ChangeEntry,
) (models.SyncResult, error) {
	if err := s.state.TransitionToUploading(); err != nil {
		return models.SyncResult{}, s.fail(actionSync, started, err)
	}

	up, err := s.upload(ctx, sess, local, &expected, changedPaths(nil, pending, nil))
	if err != nil {
		return models.SyncResult{}, s.fail(actionSync, started, err)
	}

	s.afterSync(local, pending)
	res := models.SyncResult{
		Success:     true,
		Action:      models.SyncActionUploaded,
		OperationID: op.ID,
		Version:     up.Version,
		Config:      local,
	}
	s.complete(actionSync, metrics.OutcomeSuccess, started, res)

	return res, nil
}

// syncDownload finishes a sync in which remote wins outright. Local changes
// pending at the start of the operation are discarded.
func (s *CloudSyncService) syncDownload(
	ctx context.Context,
	sess session,
	op models.SyncOperation,
	started time.Time,
	record *models.RemoteConfigRecord,
	remote models.Config,
	pending []models.ChangeEntry,
) (models.SyncResult, error) {
	s.bookkeep(ctx, sess, nil, models.DeviceStatsUpdate{
		Downloads:       1,
		LastSyncAt:      s.now().UTC(),
		LastSyncVersion: record.Version,
	})

	// the remote never saw these edits, so they are dropped rather than
	// marked synced
	if ids := entryIDs(pending); len(ids) > 0 {
		dropped, err := s.tracker.Discard(ids)
		if err != nil {
			s.logger.Warn().Err(err).Msg("discard superseded changes failed")
		} else if dropped > 0 {
			s.logger.Info().Int("dropped", dropped).Int64("version", record.Version).
				Msg("newer remote config superseded pending local changes")
		}
	}

	s.afterSync(remote, nil)
	res := models.SyncResult{
		Success:     true,
		Action:      models.SyncActionDownloaded,
		OperationID: op.ID,
		Version:     record.Version,
		Config:      remote,
	}
	s.complete(actionSync, metrics.OutcomeSuccess, started, res)

	return res, nil
}

// upload serializes, seals and writes cfg. With expected set the write must
// replace exactly that version; otherwise the current remote version is
// read first.
func (s *CloudSyncService) upload(ctx context.Context, sess session, cfg models.Config, expected *int64, paths []string) (models.UploadResult, error) {
	payload, err := models.Marshal(cfg)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("serialize config: %w", err)
	}

	now := s.now().UTC()
	record := models.RemoteConfigRecord{
		UserID:         sess.userID,
		LastModified:   now,
		LastModifiedBy: sess.device.DeviceID,
		Payload:        payload,
		ContentHash:    s.cipher.Hash(payload),
		Size:           int64(len(payload)),
		Metadata: map[string]string{
			"client_version": s.cfg.ClientVersion,
			"device_name":    sess.device.Name,
			"platform":       runtime.GOOS + "/" + runtime.GOARCH,
		},
	}

	if sess.key != nil {
		sealed, err := s.cipher.Encrypt(payload, sess.key)
		if err != nil {
			return models.UploadResult{}, fmt.Errorf("encrypt config: %w", err)
		}
		record.Payload = sealed.Ciphertext
		record.Encryption = &models.EncryptionInfo{
			Algorithm: sealed.Algorithm,
			IV:        sealed.IV,
			AuthTag:   sealed.AuthTag,
			KeyID:     sealed.KeyID,
		}
	}

	var current int64
	if expected != nil {
		current = *expected
	} else {
		rctx, cancel := s.remoteCtx(ctx)
		existing, err := s.remote.GetUserRecord(rctx, sess.userID)
		cancel()
		if err != nil {
			return models.UploadResult{}, mapRemoteError("get record", err)
		}
		if existing != nil {
			current = existing.Version
		}
	}
	record.Version = current + 1

	rctx, cancel := s.remoteCtx(ctx)
	err = s.remote.PutUserRecord(rctx, sess.userID, record)
	cancel()
	if err != nil {
		return models.UploadResult{}, mapRemoteError("put record", err)
	}

	s.logger.Debug().
		Str("user_id", sess.userID).
		Int64("version", record.Version).
		Int64("size", record.Size).
		Msg("config uploaded")

	s.bookkeep(ctx, sess, &models.HistoryEntry{
		ID:              utils.NewID(),
		UserID:          sess.userID,
		PreviousVersion: current,
		Version:         record.Version,
		DeviceID:        sess.device.DeviceID,
		ChangedPaths:    paths,
		ContentHash:     record.ContentHash,
		CreatedAt:       now,
	}, models.DeviceStatsUpdate{
		Uploads:         1,
		LastSyncAt:      now,
		LastSyncVersion: record.Version,
	})

	return models.UploadResult{
		Success:   true,
		Version:   record.Version,
		Size:      record.Size,
		Encrypted: record.Encrypted(),
	}, nil
}

// download reads and opens the remote record. A nil record means there is
// no remote state yet. The plaintext is only returned when it hashes to the
// stored content hash.
func (s *CloudSyncService) download(ctx context.Context, sess session) (*models.RemoteConfigRecord, models.Config, error) {
	rctx, cancel := s.remoteCtx(ctx)
	record, err := s.remote.GetUserRecord(rctx, sess.userID)
	cancel()
	if err != nil {
		return nil, nil, mapRemoteError("get record", err)
	}
	if record == nil {
		return nil, nil, nil
	}

	plaintext := record.Payload
	if record.Encryption != nil {
		if sess.key == nil {
			return nil, nil, ErrEncryptionKeyRequired
		}
		plaintext, err = s.cipher.Decrypt(crypto.Sealed{
			Ciphertext: record.Payload,
			IV:         record.Encryption.IV,
			AuthTag:    record.Encryption.AuthTag,
			Algorithm:  record.Encryption.Algorithm,
			KeyID:      record.Encryption.KeyID,
		}, sess.key)
		if err != nil {
			return nil, nil, mapDecryptError(err)
		}
	}

	if got := s.cipher.Hash(plaintext); got != record.ContentHash {
		s.logger.Error().
			Str("user_id", sess.userID).
			Int64("version", record.Version).
			Str("expected_hash", record.ContentHash).
			Str("actual_hash", got).
			Msg("downloaded config failed integrity check")
		return nil, nil, fmt.Errorf("%w: content hash mismatch for version %d", ErrIntegrity, record.Version)
	}

	cfg, err := models.Unmarshal(plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrIntegrity, err)
	}

	return record, cfg, nil
}

// bookkeep appends the history entry and bumps device counters. Failures
// are logged only; sync correctness does not depend on them.
func (s *CloudSyncService) bookkeep(ctx context.Context, sess session, entry *models.HistoryEntry, stats models.DeviceStatsUpdate) {
	log := s.logger.With().Str("user_id", sess.userID).Str("device_id", sess.device.DeviceID).Logger()

	if entry != nil {
		rctx, cancel := s.remoteCtx(ctx)
		err := s.remote.AppendHistoryEntry(rctx, sess.userID, *entry)
		cancel()
		if err != nil {
			log.Warn().Err(err).Int64("version", entry.Version).Msg("append history entry failed")
		}
	}

	s.ensureRegistered(ctx, sess)

	rctx, cancel := s.remoteCtx(ctx)
	err := s.remote.UpdateDeviceStats(rctx, sess.userID, sess.device.DeviceID, stats)
	cancel()
	if errors.Is(err, adapter.ErrNotFound) {
		s.setRegistered(false)
		s.ensureRegistered(ctx, sess)

		rctx, cancel = s.remoteCtx(ctx)
		err = s.remote.UpdateDeviceStats(rctx, sess.userID, sess.device.DeviceID, stats)
		cancel()
	}
	if err != nil {
		log.Warn().Err(err).Msg("update device stats failed")
	}
}

// ensureRegistered creates the remote user and registers this device once.
func (s *CloudSyncService) ensureRegistered(ctx context.Context, sess session) {
	s.mu.RLock()
	done := s.registered
	s.mu.RUnlock()
	if done {
		return
	}

	rctx, cancel := s.remoteCtx(ctx)
	defer cancel()

	if _, err := s.remote.GetOrCreateUser(rctx, sess.userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", sess.userID).Msg("remote user registration failed")
		return
	}
	if _, err := s.remote.RegisterDevice(rctx, sess.device); err != nil {
		s.logger.Warn().Err(err).Str("device_id", sess.device.DeviceID).Msg("device registration failed")
		return
	}

	s.setRegistered(true)
}

func (s *CloudSyncService) setRegistered(v bool) {
	s.mu.Lock()
	s.registered = v
	s.mu.Unlock()
}

// afterSync marks the entries pending at the start of an operation as
// synced and moves the tracker baseline to cfg.
func (s *CloudSyncService) afterSync(cfg models.Config, pending []models.ChangeEntry) {
	if ids := entryIDs(pending); len(ids) > 0 {
		if _, err := s.tracker.MarkSynced(ids); err != nil {
			s.logger.Warn().Err(err).Msg("mark changes synced failed")
		}
	}

	if cfg != nil {
		rebased, err := s.tracker.TrackChange(cfg, nil)
		if err != nil {
			s.logger.Warn().Err(err).Msg("rebase offline tracker failed")
		} else if ids := entryIDs(rebased); len(ids) > 0 {
			if _, err = s.tracker.MarkSynced(ids); err != nil {
				s.logger.Warn().Err(err).Msg("mark rebase changes synced failed")
			}
		}
	}

	if _, err := s.tracker.ClearSynced(); err != nil {
		s.logger.Warn().Err(err).Msg("clear synced changes failed")
	}

	s.setBase(cfg)
	s.metrics.SetPendingChanges(len(s.tracker.PendingChanges()))
}

func (s *CloudSyncService) complete(action, outcome string, started time.Time, result any) {
	if _, err := s.state.CompleteSync(result); err != nil {
		s.logger.Err(err).Str("action", action).Msg("complete sync")
	}
	s.metrics.ObserveSync(action, outcome, s.now().Sub(started))
}

// fail moves the state machine to error and returns err.
func (s *CloudSyncService) fail(action string, started time.Time, err error) error {
	if _, ferr := s.state.FailSync(err); ferr != nil {
		s.logger.Err(ferr).Str("action", action).Msg("fail sync")
	}
	s.metrics.ObserveSync(action, metrics.OutcomeFailure, s.now().Sub(started))
	s.logger.Err(err).Str("action", action).Msg("sync operation failed")
	return err
}

// replay is the queue processor: it re-runs an operation that was queued
// while offline through the public entry point.
func (s *CloudSyncService) replay(ctx context.Context, op models.QueuedOperation) error {
	req, ok := op.Payload.(queuedRequest)
	if !ok {
		return fmt.Errorf("%w: unexpected queued payload %T", ErrInvalidDataProvided, op.Payload)
	}

	var err error
	switch op.Type {
	case models.SyncUpload:
		_, err = s.Upload(ctx, req.Config, req.Upload)
	case models.SyncDownload:
		_, err = s.Download(ctx, req.Download)
	case models.SyncBidirectional:
		_, err = s.Sync(ctx, req.Config, req.Sync)
	default:
		err = fmt.Errorf("%w: unknown sync type %q", ErrInvalidDataProvided, op.Type)
	}
	return err
}

// Status implements [CloudSyncManager].
func (s *CloudSyncService) Status() CloudSyncStatus {
	s.mu.RLock()
	status := CloudSyncStatus{
		Initialized: s.initialized,
		UserID:      s.userID,
		DeviceID:    s.device.DeviceID,
		Encrypted:   s.key != nil,
	}
	s.mu.RUnlock()

	status.State = s.state.State()
	status.Online = s.state.IsOnline()
	status.Syncing = s.state.IsSyncing()
	status.Sync = s.state.Stats()
	if op, ok := s.state.CurrentOperation(); ok {
		status.CurrentOperation = &op
	}
	if status.Initialized {
		status.Offline = s.tracker.Stats()
	}

	return status
}

// History implements [CloudSyncManager].
func (s *CloudSyncService) History(ctx context.Context, opts models.HistoryOptions) ([]models.HistoryEntry, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}

	rctx, cancel := s.remoteCtx(ctx)
	defer cancel()

	entries, err := s.remote.GetHistory(rctx, sess.userID, opts)
	if err != nil {
		return nil, mapRemoteError("get history", err)
	}
	return entries, nil
}

// Devices implements [CloudSyncManager].
func (s *CloudSyncService) Devices(ctx context.Context) ([]models.Device, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}

	rctx, cancel := s.remoteCtx(ctx)
	defer cancel()

	devices, err := s.remote.ListDevices(rctx, sess.userID)
	if err != nil {
		return nil, mapRemoteError("list devices", err)
	}
	return devices, nil
}

// TrackLocalChange implements [CloudSyncManager].
func (s *CloudSyncService) TrackLocalChange(current, previous models.Config) ([]models.ChangeEntry, error) {
	if _, err := s.session(); err != nil {
		return nil, err
	}

	current, err := normalizeConfig(current)
	if err != nil {
		return nil, err
	}
	if previous, err = normalizeConfig(previous); err != nil {
		return nil, err
	}

	entries, err := s.tracker.TrackChange(current, previous)
	if err != nil {
		return nil, err
	}
	s.metrics.SetPendingChanges(len(s.tracker.PendingChanges()))
	return entries, nil
}

// OfflineStats implements [CloudSyncManager].
func (s *CloudSyncService) OfflineStats() (tracker.Stats, error) {
	if _, err := s.session(); err != nil {
		return tracker.Stats{}, err
	}
	return s.tracker.Stats(), nil
}

// PendingChanges implements [CloudSyncManager].
func (s *CloudSyncService) PendingChanges() ([]models.ChangeEntry, error) {
	if _, err := s.session(); err != nil {
		return nil, err
	}
	return s.tracker.PendingChanges(), nil
}

// MarkChangesSynced implements [CloudSyncManager].
func (s *CloudSyncService) MarkChangesSynced(ids []string) (int, error) {
	if _, err := s.session(); err != nil {
		return 0, err
	}

	n, err := s.tracker.MarkSynced(ids)
	if err != nil {
		return n, err
	}
	s.metrics.SetPendingChanges(len(s.tracker.PendingChanges()))
	return n, nil
}

// SetOnlineStatus implements [CloudSyncManager].
func (s *CloudSyncService) SetOnlineStatus(ctx context.Context, online bool) error {
	sess, err := s.session()
	if err != nil {
		return err
	}

	s.tracker.SetOnlineStatus(online)
	if online {
		s.ensureRegistered(ctx, sess)
	}

	return s.state.SetOnline(ctx, online)
}

// Close implements [CloudSyncManager]. It releases the key and the tracker.
// A closed manager cannot be initialized again. Close fails with
// [syncstate.ErrSyncInProgress] while an operation is in flight.
func (s *CloudSyncService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	// the in-flight operation still holds the key
	if s.initialized && s.state.IsSyncing() {
		return fmt.Errorf("close cloud sync: %w", syncstate.ErrSyncInProgress)
	}
	s.closed = true

	if !s.initialized {
		return nil
	}
	s.initialized = false

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	var errs []error
	if s.key != nil {
		errs = append(errs, s.key.Close())
		s.key = nil
	}
	errs = append(errs, s.tracker.Close())

	s.logger.Info().Str("user_id", s.userID).Msg("cloud sync closed")
	return errors.Join(errs...)
}

// normalizeConfig round-trips a caller's tree through JSON so typed slices
// and maps become the generic shapes the diff and resolver walk.
func normalizeConfig(cfg models.Config) (models.Config, error) {
	if cfg == nil {
		return nil, nil
	}
	out, err := models.Normalize(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return out, nil
}

func (s *CloudSyncService) session() (session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return session{}, ErrNotInitialized
	}
	return session{userID: s.userID, device: s.device, key: s.key}, nil
}

func (s *CloudSyncService) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}

func (s *CloudSyncService) setBase(cfg models.Config) {
	s.mu.Lock()
	s.base = cfg.Clone()
	s.mu.Unlock()
}

func (s *CloudSyncService) baseSnapshot() models.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.Clone()
}

func entryIDs(entries []models.ChangeEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// changedPaths is the sorted, de-duplicated union of explicit paths, the
// paths of pending entries and the paths of resolved conflicts.
func changedPaths(explicit []string, pending []models.ChangeEntry, conflicts []models.Conflict) []string {
	seen := make(map[string]struct{})
	for _, p := range explicit {
		seen[p] = struct{}{}
	}
	if len(explicit) == 0 {
		for _, e := range pending {
			seen[e.Path] = struct{}{}
		}
	}
	for _, c := range conflicts {
		seen[c.Path] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
