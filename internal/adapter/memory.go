package adapter

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-conf-sync/models"
)

// MemoryRemoteStore is an in-process [RemoteStore]. Every value handed in or
// out is copied, so callers can never alias stored state.
type MemoryRemoteStore struct {
	mu      sync.Mutex
	now     func() time.Time
	users   map[string]models.User
	records map[string]models.RemoteConfigRecord
	history map[string][]models.HistoryEntry
	devices map[string]map[string]models.Device
}

// NewMemoryRemoteStore returns an empty store.
func NewMemoryRemoteStore() *MemoryRemoteStore {
	return &MemoryRemoteStore{
		now:     time.Now,
		users:   make(map[string]models.User),
		records: make(map[string]models.RemoteConfigRecord),
		history: make(map[string][]models.HistoryEntry),
		devices: make(map[string]map[string]models.Device),
	}
}

func (m *MemoryRemoteStore) GetOrCreateUser(ctx context.Context, userID string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return models.User{}, fmt.Errorf("%w: empty user id", ErrBadRequest)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		u = models.User{UserID: userID, CreatedAt: m.now().UTC()}
		m.users[userID] = u
	}
	return u, nil
}

func (m *MemoryRemoteStore) GetUserRecord(ctx context.Context, userID string) (*models.RemoteConfigRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[userID]
	if !ok {
		return nil, nil
	}
	out := copyRecord(rec)
	return &out, nil
}

func (m *MemoryRemoteStore) PutUserRecord(ctx context.Context, userID string, record models.RemoteConfigRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var stored int64
	if rec, ok := m.records[userID]; ok {
		stored = rec.Version
	}
	if record.Version != stored+1 {
		return fmt.Errorf("%w: stored version %d, got %d", ErrVersionConflict, stored, record.Version)
	}

	record.UserID = userID
	m.records[userID] = copyRecord(record)
	return nil
}

func (m *MemoryRemoteStore) AppendHistoryEntry(ctx context.Context, userID string, entry models.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry.UserID = userID
	entry.ChangedPaths = slices.Clone(entry.ChangedPaths)
	m.history[userID] = append(m.history[userID], entry)
	return nil
}

func (m *MemoryRemoteStore) GetHistory(ctx context.Context, userID string, opts models.HistoryOptions) ([]models.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.history[userID]
	out := make([]models.HistoryEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if e.Version <= opts.SinceVersion {
			continue
		}
		e.ChangedPaths = slices.Clone(e.ChangedPaths)
		out = append(out, e)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryRemoteStore) RegisterDevice(ctx context.Context, device models.Device) (models.Device, error) {
	if err := ctx.Err(); err != nil {
		return models.Device{}, err
	}
	if device.DeviceID == "" || device.UserID == "" {
		return models.Device{}, fmt.Errorf("%w: device and user id are required", ErrBadRequest)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	devices, ok := m.devices[device.UserID]
	if !ok {
		devices = make(map[string]models.Device)
		m.devices[device.UserID] = devices
	}
	if existing, ok := devices[device.DeviceID]; ok {
		device.Stats = existing.Stats
		device.LastSyncAt = existing.LastSyncAt
		device.LastSyncVersion = existing.LastSyncVersion
	}
	devices[device.DeviceID] = device
	return device, nil
}

func (m *MemoryRemoteStore) UpdateDeviceStats(ctx context.Context, userID, deviceID string, update models.DeviceStatsUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[userID][deviceID]
	if !ok {
		return fmt.Errorf("%w: device %s", ErrNotFound, deviceID)
	}
	d.Stats.Uploads += update.Uploads
	d.Stats.Downloads += update.Downloads
	at := update.LastSyncAt
	d.LastSyncAt = &at
	d.LastSyncVersion = update.LastSyncVersion
	m.devices[userID][deviceID] = d
	return nil
}

func (m *MemoryRemoteStore) ListDevices(ctx context.Context, userID string) ([]models.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Device, 0, len(m.devices[userID]))
	for _, d := range m.devices[userID] {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func copyRecord(r models.RemoteConfigRecord) models.RemoteConfigRecord {
	r.Payload = slices.Clone(r.Payload)
	if r.Encryption != nil {
		enc := *r.Encryption
		enc.IV = slices.Clone(enc.IV)
		enc.AuthTag = slices.Clone(enc.AuthTag)
		r.Encryption = &enc
	}
	if r.Metadata != nil {
		md := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			md[k] = v
		}
		r.Metadata = md
	}
	return r
}
