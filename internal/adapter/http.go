package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/MKhiriev/go-conf-sync/internal/config"
	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/internal/utils"
	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/go-resty/resty/v2"
)

type httpRemoteStore struct {
	client *utils.HTTPClient
	hasher *utils.Hasher

	mu     sync.RWMutex
	token  string
	userID string

	logger *logger.Logger
}

// NewHTTPRemoteStore constructs an HTTP/REST implementation of [RemoteStore].
// It normalises and validates the base URL from adapterCfg.HTTPAddress and
// configures the underlying HTTP client with the resolved base URL and request
// timeout. Record uploads are signed with an HMAC keyed by appCfg.HashKey.
//
// The store authenticates lazily: the first call for a user obtains a bearer
// token through POST /api/users, and a 401 response triggers exactly one
// re-authentication and retry.
func NewHTTPRemoteStore(adapterCfg config.ClientAdapter, appCfg config.ClientApp, logger *logger.Logger) (RemoteStore, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	return &httpRemoteStore{
		client: utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout),
		hasher: utils.NewHasher(appCfg.HashKey),
		logger: logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// GetOrCreateUser implements [RemoteStore]. It POSTs the user id to
// POST /api/users and keeps the bearer token from the Authorization response
// header for subsequent requests.
func (h *httpRemoteStore) GetOrCreateUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.UserRequest{UserID: userID}).
		SetResult(&user).
		Post("/api/users")
	if err != nil {
		return models.User{}, fmt.Errorf("%w: get or create user request: %v", ErrUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.User{}, err
	}

	token, err := utils.ParseBearerToken(resp.Header().Get("Authorization"))
	if err != nil {
		return models.User{}, fmt.Errorf("get or create user parse bearer token: %w", err)
	}

	h.setSession(userID, token)
	return user, nil
}

// GetUserRecord implements [RemoteStore]. GET /api/records; 404 means no
// record yet.
func (h *httpRemoteStore) GetUserRecord(ctx context.Context, userID string) (*models.RemoteConfigRecord, error) {
	var record models.RemoteConfigRecord

	resp, err := h.do(ctx, userID, func(req *resty.Request) (*resty.Response, error) {
		return req.SetResult(&record).Get("/api/records")
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get record request: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	return &record, nil
}

// PutUserRecord implements [RemoteStore]. It PUTs the record to
// PUT /api/records together with an HMAC of its JSON encoding, carried both
// in the body and in the HashSHA256 header. HTTP 409 maps to
// [ErrVersionConflict].
func (h *httpRemoteStore) PutUserRecord(ctx context.Context, userID string, record models.RemoteConfigRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	hash := h.hasher.HashString(payload)

	resp, err := h.do(ctx, userID, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Content-Type", "application/json").
			SetHeader(utils.HashHeader, hash).
			SetBody(models.PutRecordRequest{Record: record, Hash: hash}).
			Put("/api/records")
	})
	if err != nil {
		return fmt.Errorf("%w: put record request: %v", ErrUnavailable, err)
	}

	return mapHTTPError(resp)
}

// AppendHistoryEntry implements [RemoteStore] via POST /api/history.
func (h *httpRemoteStore) AppendHistoryEntry(ctx context.Context, userID string, entry models.HistoryEntry) error {
	resp, err := h.do(ctx, userID, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Content-Type", "application/json").
			SetBody(entry).
			Post("/api/history")
	})
	if err != nil {
		return fmt.Errorf("%w: append history request: %v", ErrUnavailable, err)
	}

	return mapHTTPError(resp)
}

// GetHistory implements [RemoteStore] via GET /api/history.
func (h *httpRemoteStore) GetHistory(ctx context.Context, userID string, opts models.HistoryOptions) ([]models.HistoryEntry, error) {
	var hr models.HistoryResponse

	resp, err := h.do(ctx, userID, func(req *resty.Request) (*resty.Response, error) {
		if opts.Limit > 0 {
			req.SetQueryParam("limit", strconv.Itoa(opts.Limit))
		}
		if opts.SinceVersion > 0 {
			req.SetQueryParam("since_version", strconv.FormatInt(opts.SinceVersion, 10))
		}
		return req.SetResult(&hr).Get("/api/history")
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get history request: %v", ErrUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	return hr.Entries, nil
}

// RegisterDevice implements [RemoteStore] via POST /api/devices.
func (h *httpRemoteStore) RegisterDevice(ctx context.Context, device models.Device) (models.Device, error) {
	var registered models.Device

	resp, err := h.do(ctx, device.UserID, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Content-Type", "application/json").
			SetBody(device).
			SetResult(&registered).
			Post("/api/devices")
	})
	if err != nil {
		return models.Device{}, fmt.Errorf("%w: register device request: %v", ErrUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Device{}, err
	}

	return registered, nil
}

// UpdateDeviceStats implements [RemoteStore] via
// PATCH /api/devices/{deviceID}.
func (h *httpRemoteStore) UpdateDeviceStats(ctx context.Context, userID, deviceID string, update models.DeviceStatsUpdate) error {
	resp, err := h.do(ctx, userID, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Content-Type", "application/json").
			SetPathParam("deviceID", deviceID).
			SetBody(update).
			Patch("/api/devices/{deviceID}")
	})
	if err != nil {
		return fmt.Errorf("%w: update device stats request: %v", ErrUnavailable, err)
	}

	return mapHTTPError(resp)
}

// ListDevices implements [RemoteStore] via GET /api/devices.
func (h *httpRemoteStore) ListDevices(ctx context.Context, userID string) ([]models.Device, error) {
	var dr models.DevicesResponse

	resp, err := h.do(ctx, userID, func(req *resty.Request) (*resty.Response, error) {
		return req.SetResult(&dr).Get("/api/devices")
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list devices request: %v", ErrUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	return dr.Devices, nil
}

// do sends an authenticated request for userID, authenticating first when
// there is no session for that user, and once more after a 401.
func (h *httpRemoteStore) do(ctx context.Context, userID string, send func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	if !h.hasSession(userID) {
		if _, err := h.GetOrCreateUser(ctx, userID); err != nil {
			return nil, err
		}
	}

	resp, err := send(h.authedRequest(ctx))
	if err != nil || resp.StatusCode() != http.StatusUnauthorized {
		return resp, err
	}

	h.logger.Debug().Str("user_id", userID).Msg("token rejected, authenticating again")
	if _, err = h.GetOrCreateUser(ctx, userID); err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return resp, nil
	}

	return send(h.authedRequest(ctx))
}

func (h *httpRemoteStore) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

func (h *httpRemoteStore) setSession(userID, token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.userID = userID
	h.token = strings.TrimSpace(token)
}

func (h *httpRemoteStore) hasSession(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token != "" && h.userID == userID
}

// Token returns the bearer token currently held by the store, or an empty
// string if none has been obtained yet.
func (h *httpRemoteStore) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}
