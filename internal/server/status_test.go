package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfosync/nfosync/internal/progress"
	"github.com/nfosync/nfosync/internal/scheduler"
)

type stubSource struct {
	sched    *scheduler.Scheduler
	lastSync time.Time
}

func (s *stubSource) Scheduler() *scheduler.Scheduler { return s.sched }
func (s *stubSource) LastSync() time.Time             { return s.lastSync }

func newTestServer(t *testing.T) (*httptest.Server, *progress.Registry) {
	t.Helper()
	registry := progress.NewRegistry()
	source := &stubSource{
		sched:    scheduler.New(nil, nil),
		lastSync: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	srv := New("127.0.0.1:0", source, registry, "test")
	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(ts.Close)
	return ts, registry
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestStatusReportsIdleEngine(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var body statusResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "test", body.Version)
	assert.Empty(t, body.ActiveAction)
	assert.Zero(t, body.UrgentQueue)
	assert.Zero(t, body.PatientQueue)
	assert.True(t, body.LastSync.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestCancelWithoutActiveOperation(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Post(ts.URL+"/cancel", "", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestCancelActiveOperation(t *testing.T) {
	ts, registry := newTestServer(t)
	sink := registry.NewSink("Syncing", true)

	res, err := http.Post(ts.URL+"/cancel", "", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, sink.IsCanceled())
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
