// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package syncstate implements the single-flight sync state machine.
//
//	idle ─▶ syncing ─▶ downloading ─▶ resolving-conflicts ─▶ uploading ─▶ idle
//	                 └▶ uploading ─────────────────────────────────────▶ idle
//	any active state ─▶ error
//	idle|error ◀─▶ offline
//
// While offline, StartSync records a descriptor in a bounded FIFO queue
// instead of starting an operation. When connectivity returns the queue is
// drained one operation at a time through the configured Processor.
package syncstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/models"
)

const (
	DefaultMaxQueueSize = 100
	DefaultHistorySize  = 50
)

// Processor replays a queued operation through the normal sync entry point.
type Processor func(ctx context.Context, op models.QueuedOperation) error

// Options configure a [Manager].
type Options struct {
	MaxQueueSize int
	HistorySize  int

	// AutoProcessQueue drains the queue when the manager goes back online.
	AutoProcessQueue bool

	// Processor is required for AutoProcessQueue to have an effect.
	Processor Processor

	Now func() time.Time
}

// DefaultOptions returns the default bounds with auto-processing enabled.
func DefaultOptions() Options {
	return Options{
		MaxQueueSize:     DefaultMaxQueueSize,
		HistorySize:      DefaultHistorySize,
		AutoProcessQueue: true,
	}
}

// Manager is the sync state machine. It is safe for concurrent use.
type Manager struct {
	opts Options
	log  *logger.Logger

	mu       sync.Mutex
	state    State
	online   bool
	current  *models.SyncOperation
	queue    []models.QueuedOperation
	draining bool

	// drainOnSettle is set when connectivity returns during an operation.
	drainOnSettle bool

	history    []Transition
	historyPos int

	stats Stats

	// notifyMu is taken before mu is released so observers see
	// transitions in the order they were made.
	notifyMu  sync.Mutex
	obsMu     sync.RWMutex
	observers []*observerSlot
}

type observerSlot struct {
	o Observer
}

// NewManager returns a manager in the idle, online state.
func NewManager(opts Options, log *logger.Logger) *Manager {
	if opts.MaxQueueSize <= 0 {
		opts.MaxQueueSize = DefaultMaxQueueSize
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Manager{
		opts:    opts,
		log:     log,
		state:   StateIdle,
		online:  true,
		history: make([]Transition, 0, opts.HistorySize),
	}
}

// SetProcessor replaces the queue processor. It lets the sync entry point
// register itself after the manager was constructed.
func (m *Manager) SetProcessor(p Processor) {
	m.mu.Lock()
	m.opts.Processor = p
	m.mu.Unlock()
}

// StartSync begins a new operation. While offline the request is queued and
// the returned operation has status queued. While another operation is
// active it fails with ErrSyncInProgress.
func (m *Manager) StartSync(typ models.SyncType, payload any) (models.SyncOperation, error) {
	m.mu.Lock()
	now := m.opts.Now().UTC()

	if !m.online {
		op := m.enqueue(models.QueuedOperation{
			ID:       utils.NewID(),
			Type:     typ,
			Payload:  payload,
			QueuedAt: now,
		})
		m.mu.Unlock()

		return models.SyncOperation{
			ID:        op.ID,
			Type:      op.Type,
			StartedAt: now,
			Status:    models.SyncStatusQueued,
		}, nil
	}

	if m.state.Active() {
		m.mu.Unlock()
		return models.SyncOperation{}, ErrSyncInProgress
	}

	op := &models.SyncOperation{
		ID:        utils.NewID(),
		Type:      typ,
		StartedAt: now,
		Status:    models.SyncStatusRunning,
	}
	m.current = op
	m.stats.TotalSyncs++
	out := *op

	m.transitionAndNotify(StateSyncing, op.ID, string(typ))

	return out, nil
}

// TransitionToUploading moves the active operation to the upload phase.
func (m *Manager) TransitionToUploading() error {
	return m.phase(StateUploading, "transition to uploading")
}

// TransitionToDownloading moves the active operation to the download phase.
func (m *Manager) TransitionToDownloading() error {
	return m.phase(StateDownloading, "transition to downloading")
}

// TransitionToResolvingConflicts moves the active operation to conflict
// resolution.
func (m *Manager) TransitionToResolvingConflicts() error {
	return m.phase(StateResolvingConflicts, "transition to resolving-conflicts")
}

func (m *Manager) phase(to State, op string) error {
	m.mu.Lock()
	if !canTransition(m.state, to) {
		from := m.state
		m.mu.Unlock()
		return &IllegalStateError{Op: op, From: from}
	}

	m.transitionAndNotify(to, m.current.ID, "")
	return nil
}

// CompleteSync finishes the active operation successfully and returns it.
func (m *Manager) CompleteSync(result any) (models.SyncOperation, error) {
	m.mu.Lock()
	if !m.state.Active() {
		from := m.state
		m.mu.Unlock()
		return models.SyncOperation{}, &IllegalStateError{Op: "complete sync", From: from}
	}

	now := m.opts.Now().UTC()
	op := m.finish(models.SyncStatusCompleted, result, "", now)
	m.stats.Successful++
	m.stats.LastSyncAt = &now

	m.settle(StateIdle, op.ID, "completed")

	return op, nil
}

// FailSync finishes the active operation with cause and moves the machine to
// error. The next StartSync recovers from error.
func (m *Manager) FailSync(cause error) (models.SyncOperation, error) {
	m.mu.Lock()
	if !m.state.Active() {
		from := m.state
		m.mu.Unlock()
		return models.SyncOperation{}, &IllegalStateError{Op: "fail sync", From: from}
	}

	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	op := m.finish(models.SyncStatusFailed, nil, msg, m.opts.Now().UTC())
	m.stats.Failed++
	m.stats.LastError = msg

	m.log.Warn().Str("op_id", op.ID).Str("type", string(op.Type)).Str("error", msg).Msg("sync failed")

	m.settle(StateError, op.ID, msg)

	return op, nil
}

// finish closes the current operation. Caller holds mu.
func (m *Manager) finish(status models.SyncStatus, result any, errMsg string, at time.Time) models.SyncOperation {
	op := m.current
	op.Status = status
	op.Result = result
	op.Error = errMsg
	op.CompletedAt = &at
	m.current = nil
	return *op
}

// settle moves to a resting state and, if connectivity dropped during the
// operation, on to offline. If connectivity came back before the operation
// finished, operations queued meanwhile are drained in the background.
// Releases mu.
func (m *Manager) settle(to State, opID, reason string) {
	m.notifyMu.Lock()
	t1 := m.transition(to, opID, reason)
	transitions := []Transition{t1}
	if !m.online {
		transitions = append(transitions, m.transition(StateOffline, "", "connectivity lost"))
	}
	drain := m.drainOnSettle && m.online && len(m.queue) > 0
	m.drainOnSettle = false
	m.mu.Unlock()

	for _, t := range transitions {
		m.dispatch(t)
	}
	m.notifyMu.Unlock()

	if drain {
		go m.drainDeferred()
	}
}

// drainDeferred runs a queue drain that has no caller to report to.
func (m *Manager) drainDeferred() {
	if err := m.ProcessQueue(context.Background()); err != nil {
		m.log.Err(err).Msg("draining sync queue after reconnect")
	}
}

// SetOnline records connectivity. Going offline from a resting state enters
// offline immediately; during an operation it takes effect when the
// operation settles. Coming back online returns to idle and, with
// AutoProcessQueue, drains the queue sequentially. Errors returned by the
// processor are joined and returned. Coming back online during an operation
// defers the drain until that operation settles.
func (m *Manager) SetOnline(ctx context.Context, online bool) error {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return nil
	}
	m.online = online

	switch {
	case !online && !m.state.Active():
		m.transitionAndNotify(StateOffline, "", "connectivity lost")
		return nil
	case online && m.state == StateOffline:
		m.transitionAndNotify(StateIdle, "", "connectivity restored")
	case online && m.state.Active():
		m.drainOnSettle = m.opts.AutoProcessQueue
		m.mu.Unlock()
		return nil
	default:
		m.mu.Unlock()
		return nil
	}

	if !m.opts.AutoProcessQueue {
		return nil
	}
	return m.ProcessQueue(ctx)
}

// ProcessQueue drains queued operations one at a time through the
// processor. It stops early when connectivity drops again or ctx is done.
// Only one drain runs at a time; a concurrent call returns immediately.
func (m *Manager) ProcessQueue(ctx context.Context) error {
	m.mu.Lock()
	if m.draining || m.opts.Processor == nil {
		m.mu.Unlock()
		return nil
	}
	m.draining = true
	process := m.opts.Processor
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.draining = false
		m.mu.Unlock()
	}()

	var errs []error
	for {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		m.mu.Lock()
		if !m.online || len(m.queue) == 0 {
			m.mu.Unlock()
			break
		}
		op := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.log.Debug().Str("op_id", op.ID).Str("type", string(op.Type)).Msg("replaying queued sync")

		if err := process(ctx, op); err != nil {
			m.log.Err(err).Str("op_id", op.ID).Msg("queued sync failed")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// enqueue appends op, evicting the oldest entries past the bound. Caller
// holds mu.
func (m *Manager) enqueue(op models.QueuedOperation) models.QueuedOperation {
	m.queue = append(m.queue, op)
	if over := len(m.queue) - m.opts.MaxQueueSize; over > 0 {
		for _, dropped := range m.queue[:over] {
			m.log.Warn().Str("op_id", dropped.ID).Msg("sync queue full, dropping oldest operation")
		}
		m.stats.Evicted += over
		kept := make([]models.QueuedOperation, m.opts.MaxQueueSize)
		copy(kept, m.queue[over:])
		m.queue = kept
	}
	return op
}

// CancelQueued removes a queued operation. It reports whether id was found.
func (m *Manager) CancelQueued(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, op := range m.queue {
		if op.ID == id {
			m.queue = append(m.queue[:i:i], m.queue[i+1:]...)
			return true
		}
	}
	return false
}

// QueuedOperations returns the queue, oldest first.
func (m *Manager) QueuedOperations() []models.QueuedOperation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.QueuedOperation, len(m.queue))
	copy(out, m.queue)
	return out
}

// IsSyncing reports whether an operation is in flight.
func (m *Manager) IsSyncing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Active()
}

// IsOnline reports the last connectivity signal.
func (m *Manager) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.online
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// CurrentOperation returns the active operation, if any.
func (m *Manager) CurrentOperation() (models.SyncOperation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return models.SyncOperation{}, false
	}
	return *m.current, true
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.State = m.state
	s.Online = m.online
	s.QueueLength = len(m.queue)
	return s
}

// History returns the recorded transitions, oldest first.
func (m *Manager) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Transition, 0, len(m.history))
	if len(m.history) < m.opts.HistorySize {
		return append(out, m.history...)
	}
	out = append(out, m.history[m.historyPos:]...)
	return append(out, m.history[:m.historyPos]...)
}

// Subscribe registers an observer and returns a function that removes it.
func (m *Manager) Subscribe(o Observer) (unsubscribe func()) {
	slot := &observerSlot{o: o}

	m.obsMu.Lock()
	m.observers = append(m.observers, slot)
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		defer m.obsMu.Unlock()
		for i, s := range m.observers {
			if s == slot {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

// transitionAndNotify records a transition and delivers it. Releases mu.
func (m *Manager) transitionAndNotify(to State, opID, reason string) {
	m.notifyMu.Lock()
	t := m.transition(to, opID, reason)
	m.mu.Unlock()

	m.dispatch(t)
	m.notifyMu.Unlock()
}

// transition changes state and appends to the history ring. Caller holds mu.
func (m *Manager) transition(to State, opID, reason string) Transition {
	t := Transition{
		From:        m.state,
		To:          to,
		OperationID: opID,
		Reason:      reason,
		At:          m.opts.Now().UTC(),
	}
	m.state = to

	if len(m.history) < m.opts.HistorySize {
		m.history = append(m.history, t)
	} else {
		m.history[m.historyPos] = t
		m.historyPos = (m.historyPos + 1) % m.opts.HistorySize
	}

	m.log.Debug().
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Str("op_id", opID).
		Msg("sync state transition")

	return t
}

func (m *Manager) dispatch(t Transition) {
	m.obsMu.RLock()
	observers := make([]Observer, len(m.observers))
	for i, s := range m.observers {
		observers[i] = s.o
	}
	m.obsMu.RUnlock()

	for _, o := range observers {
		o.OnTransition(t)
	}
}
