package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSync(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSync("upload", OutcomeSuccess, 10*time.Millisecond)
	m.ObserveSync("upload", OutcomeSuccess, 20*time.Millisecond)
	m.ObserveSync("sync", OutcomeConflict, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyncOperationsTotal.WithLabelValues("upload", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncOperationsTotal.WithLabelValues("sync", OutcomeConflict)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.SyncDurationSeconds))
}

func TestSetSyncState(t *testing.T) {
	m := New(prometheus.NewRegistry())
	all := []string{"idle", "syncing"}

	m.SetSyncState("syncing", all)
	m.SetSyncState("idle", all)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncState.WithLabelValues("idle")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SyncState.WithLabelValues("syncing")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveSync("upload", OutcomeSuccess, time.Second)
		m.SetPendingChanges(3)
		m.SetSyncState("idle", nil)
		m.ObserveHTTPRequest(http.MethodGet, "/api/records", http.StatusOK, time.Second)
	})
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveHTTPRequest(http.MethodPut, "/api/records", http.StatusConflict, time.Millisecond)
	m.SetPendingChanges(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `confsync_http_requests_total{method="PUT",route="/api/records",status="409"} 1`)
	assert.Contains(t, string(body), "confsync_pending_changes 4")
}

func TestIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
