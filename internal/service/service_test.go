package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfosync/nfosync/internal/config"
	"github.com/nfosync/nfosync/internal/kodi"
	"github.com/nfosync/nfosync/internal/media"
	"github.com/nfosync/nfosync/internal/progress"
	"github.com/nfosync/nfosync/internal/timestamps"
)

// fakeHostClient scripts JSON-RPC responses per method and records bus
// broadcasts.
type fakeHostClient struct {
	handlers map[string]string
	calls    []string
	notified []string
	playing  bool
}

func newFakeHostClient() *fakeHostClient {
	return &fakeHostClient{handlers: map[string]string{}}
}

func (c *fakeHostClient) Call(_ context.Context, method string, _ any) (json.RawMessage, error) {
	c.calls = append(c.calls, method)
	if body, ok := c.handlers[method]; ok {
		return json.RawMessage(body), nil
	}
	return nil, &kodi.RequestError{Method: method, Message: "no scripted response"}
}

func (c *fakeHostClient) CallInto(ctx context.Context, method string, params any, out any) (json.RawMessage, error) {
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func (c *fakeHostClient) NotifyAll(_ context.Context, message string, _ any) error {
	c.notified = append(c.notified, message)
	return nil
}

func (c *fakeHostClient) IsPlaying(context.Context) bool { return c.playing }

func newTestService(t *testing.T, host *fakeHostClient, mutate func(*config.Settings)) *Service {
	t.Helper()
	settings := config.Defaults()
	settings.ProfileDir = t.TempDir()
	if mutate != nil {
		mutate(&settings)
	}
	return New(Options{
		Config:     config.NewHolder(settings, nil, ""),
		Client:     host,
		Progress:   progress.NewRegistry(),
		AppName:    "nfosync",
		AppVersion: "test",
	})
}

func newTestTimestamps(t *testing.T) *timestamps.Store {
	t.Helper()
	return timestamps.Open(t.TempDir())
}

func settingsWithSchedule(enabled bool) config.Settings {
	settings := config.Defaults()
	settings.Scheduled.IsEnabled = enabled
	return settings
}

func TestParsePatient(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{`{"patient":true}`, true},
		{`{"patient":false}`, false},
		{`{}`, false},
		{``, false},
		{`not json`, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, parsePatient(json.RawMessage(tc.payload)),
			"payload %q", tc.payload)
	}
}

func TestParseBusItem(t *testing.T) {
	item, patient, ok := parseBusItem(json.RawMessage(`{"type":"movie","id":42,"patient":true}`))
	require.True(t, ok)
	assert.Equal(t, media.Item{Type: media.TypeMovie, ID: 42}, item)
	assert.True(t, patient)

	_, _, ok = parseBusItem(json.RawMessage(`{"type":"movie"}`))
	assert.False(t, ok, "missing id")

	_, _, ok = parseBusItem(json.RawMessage(`{"type":"album","id":1}`))
	assert.False(t, ok, "unknown media type")

	_, _, ok = parseBusItem(json.RawMessage(`garbage`))
	assert.False(t, ok)
}

func TestAlarmSetAndCancel(t *testing.T) {
	a := NewAlarm("test", kodi.MethodWaitDone, nil, false, func(kodi.Method, any) {})

	assert.False(t, a.IsActive())
	assert.Zero(t, a.Minutes())

	a.Set(5)
	assert.True(t, a.IsActive())
	assert.Equal(t, 5, a.Minutes())

	a.Set(10)
	assert.Equal(t, 10, a.Minutes(), "re-arming replaces the interval")

	a.Cancel()
	assert.False(t, a.IsActive())
	assert.Zero(t, a.Minutes())

	a.Set(0)
	assert.False(t, a.IsActive(), "non-positive interval just cancels")
}

func TestAlarmFireSendsMessage(t *testing.T) {
	var mu sync.Mutex
	var sent []string
	send := func(m kodi.Method, _ any) {
		mu.Lock()
		sent = append(sent, m.Send())
		mu.Unlock()
	}

	a := NewAlarm("test", kodi.MethodWaitDone, nil, false, send)
	a.Set(1)

	// Fire directly instead of waiting out the timer.
	a.fire()

	mu.Lock()
	got := append([]string(nil), sent...)
	mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, kodi.MethodWaitDone.Send(), got[0])
	assert.False(t, a.IsActive(), "single-shot alarm deactivates on fire")
}

func TestAlarmLoopStaysActive(t *testing.T) {
	a := NewAlarm("test", kodi.MethodSyncAll, nil, true, func(kodi.Method, any) {})
	a.Set(60)
	a.fire()
	assert.True(t, a.IsActive(), "looping alarm re-arms itself")
	assert.Equal(t, 60, a.Minutes())
	a.Cancel()
	assert.False(t, a.IsActive())
}

func TestLibraryUpdateRecordsEchoWithoutExport(t *testing.T) {
	host := newFakeHostClient()
	host.handlers["VideoLibrary.GetMovieDetails"] = `{"moviedetails":{"title":"A Movie","setid":0}}`
	host.handlers["VideoLibrary.GetAvailableArt"] = `{"availableart":[]}`
	s := newTestService(t, host, nil)

	// An addition outside a scan transaction is our own refresh bouncing
	// back; record the checksum so the next sync sees it as unchanged.
	payload := json.RawMessage(`{"item":{"type":"movie","id":1},"added":true,"transaction":false}`)
	s.onNotification(context.Background(), kodi.Notification{Sender: "xbmc", Method: kodi.OnUpdate, Data: payload})

	_, ok := s.lastKnown.Checksum(media.TypeMovie, 1)
	assert.True(t, ok, "suppressed update records the current checksum")
	assert.True(t, s.sched.Idle(), "no export enqueued")
	assert.Equal(t,
		[]string{"VideoLibrary.GetMovieDetails", "VideoLibrary.GetAvailableArt"},
		host.calls, "only the checksum fetch reaches the host")
}

func TestLibraryUpdateExportsChangedItem(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.mkv")
	host := newFakeHostClient()
	host.handlers["VideoLibrary.GetMovieDetails"] =
		fmt.Sprintf(`{"moviedetails":{"title":"A Movie","setid":0,"file":%q}}`, file)
	host.handlers["VideoLibrary.GetAvailableArt"] = `{"availableart":[]}`
	s := newTestService(t, host, nil)

	payload := json.RawMessage(`{"item":{"type":"movie","id":1},"added":false,"transaction":false}`)
	s.onNotification(context.Background(), kodi.Notification{Sender: "xbmc", Method: kodi.OnUpdate, Data: payload})

	data, err := os.ReadFile(filepath.Join(dir, "a.nfo"))
	require.NoError(t, err, "host-side edit exports a sidecar")
	assert.Contains(t, string(data), "<title>A Movie</title>")
	assert.True(t, s.sched.Idle())
}

func TestPlayerStopArmsWaitWithoutAvoidance(t *testing.T) {
	host := newFakeHostClient()
	s := newTestService(t, host, func(c *config.Settings) {
		c.Avoidance.IsEnabled = false
		c.Avoidance.WaitTime = 5
	})

	s.onNotification(context.Background(), kodi.Notification{Method: kodi.OnStop})
	assert.True(t, s.playWait.IsActive(), "nonzero wait arms the post-stop alarm even with avoidance off")
	assert.False(t, s.patientGate(), "patient work held back while the wait is pending")

	s.onNotification(context.Background(), kodi.Notification{Method: kodi.OnPlay})
	assert.False(t, s.playWait.IsActive(), "playback cancels the wait")

	s.onNotification(context.Background(), kodi.Notification{Method: kodi.OnStop})
	require.True(t, s.playWait.IsActive())
	s.onNotification(context.Background(), kodi.Notification{Method: kodi.MethodWaitDone.Recv()})
	assert.False(t, s.playWait.IsActive(), "the wait-done message releases the gate")
}

func TestPlayerStopZeroWaitReleasesImmediately(t *testing.T) {
	host := newFakeHostClient()
	s := newTestService(t, host, nil)

	s.onNotification(context.Background(), kodi.Notification{Method: kodi.OnStop})
	assert.False(t, s.playWait.IsActive())
	assert.Equal(t, []string{kodi.MethodWaitDone.Send()}, host.notified,
		"zero wait broadcasts wait-done straight away")
}

func TestScheduledSyncDue(t *testing.T) {
	// A fresh profile defaults next-scheduled to an overdue stamp so a
	// missed sync can run on first start.
	s := &Service{stamps: newTestTimestamps(t)}

	due := s.scheduledSyncDue(settingsWithSchedule(true))
	assert.True(t, due, "default stamp is in the past")

	s.stamps.SetNextScheduled(time.Now().Add(time.Hour))
	assert.False(t, s.scheduledSyncDue(settingsWithSchedule(true)))

	s.stamps.SetNextScheduled(time.Now().Add(-time.Hour))
	assert.True(t, s.scheduledSyncDue(settingsWithSchedule(true)))

	assert.False(t, s.scheduledSyncDue(settingsWithSchedule(false)),
		"disabled schedule is never due")
}
