package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftcast/driftcast/internal/engine"
	"github.com/driftcast/driftcast/internal/signal"
)

func testServer(t *testing.T) (*Server, *MetricsRegistry) {
	t.Helper()
	metrics := NewMetricsRegistry()
	return NewServer(DefaultServerConfig(), metrics, "v1.0.0-test"), metrics
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s, metrics := testServer(t)
	metrics.RunsTotal.Inc()

	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body struct {
		Status   string             `json:"status"`
		Counters map[string]float64 `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1.0, body.Counters["driftcast_runs_total"])
}

func TestVersionEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s, "/version")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "v1.0.0-test", body["version"])
}

func TestMetricsEndpointExposesWindowCounters(t *testing.T) {
	s, metrics := testServer(t)

	metrics.WindowDone(engine.WindowResult{
		Signal: signal.Signal{Date: time.Now(), Direction: signal.Buy},
	})
	metrics.WindowDone(engine.WindowResult{
		Signal:     signal.Signal{Date: time.Now(), Direction: signal.Hold},
		HoldReason: engine.ReasonSearchFailed,
	})

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `driftcast_windows_total{signal="buy"} 1`), body)
	assert.True(t, strings.Contains(body, `driftcast_windows_total{signal="hold"} 1`), body)
	assert.True(t, strings.Contains(body, `driftcast_search_failures_total 1`), body)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsSnapshotSumsLabelSets(t *testing.T) {
	metrics := NewMetricsRegistry()
	metrics.WindowsTotal.WithLabelValues("buy").Inc()
	metrics.WindowsTotal.WithLabelValues("sell").Add(2)

	snap, err := metrics.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 3.0, snap["driftcast_windows_total"])
}
