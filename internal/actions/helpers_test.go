package actions

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nfosync/nfosync/internal/config"
	"github.com/nfosync/nfosync/internal/kodi"
	"github.com/nfosync/nfosync/internal/lastknown"
	"github.com/nfosync/nfosync/internal/media"
	"github.com/nfosync/nfosync/internal/progress"
	"github.com/nfosync/nfosync/internal/timestamps"
)

// fakeHost scripts JSON-RPC responses per method and records the call order.
type fakeHost struct {
	handlers map[string]func(params map[string]any) (any, error)
	calls    []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{handlers: map[string]func(map[string]any) (any, error){}}
}

func (h *fakeHost) respond(method string, result any) {
	h.handlers[method] = func(map[string]any) (any, error) { return result, nil }
}

func (h *fakeHost) Call(_ context.Context, method string, params any) (json.RawMessage, error) {
	h.calls = append(h.calls, method)
	fn, ok := h.handlers[method]
	if !ok {
		return nil, &kodi.RequestError{Method: method, Message: "no scripted response"}
	}

	var pm map[string]any
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &pm); err != nil {
			return nil, err
		}
	}

	result, err := fn(pm)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

func (h *fakeHost) CallInto(ctx context.Context, method string, params any, out any) (json.RawMessage, error) {
	raw, err := h.Call(ctx, method, params)
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

func (h *fakeHost) callCount(method string) int {
	n := 0
	for _, c := range h.calls {
		if c == method {
			n++
		}
	}
	return n
}

type captureNotifier struct {
	codes []int
}

func (n *captureNotifier) Notify(code int, _ string) {
	n.codes = append(n.codes, code)
}

// testEnv bundles an Env over a fake host with stores in a temp dir.
type testEnv struct {
	*Env
	host       *fakeHost
	notifier   *captureNotifier
	settings   *config.Settings
	profileDir string
}

func newTestEnv(t *testing.T, host *fakeHost) *testEnv {
	t.Helper()
	dir := t.TempDir()
	settings := config.Defaults()
	settings.ProfileDir = dir
	notifier := &captureNotifier{}

	env := &Env{
		Gateway:    media.NewGateway(host),
		LastKnown:  lastknown.Open(dir),
		Timestamps: timestamps.Open(dir),
		Settings:   func() config.Settings { return settings },
		Progress:   progress.NewRegistry(),
		Notifier:   notifier,
		AppName:    "nfosync",
		AppVersion: "test",
	}
	return &testEnv{Env: env, host: host, notifier: notifier, settings: &settings, profileDir: dir}
}

// currentChecksum computes the engine's checksum for an item against the
// fake host's scripted responses.
func currentChecksum(t *testing.T, env *Env, item media.Item) uint32 {
	t.Helper()
	checksum, err := env.Gateway.NewInfo(item).Checksum(context.Background())
	require.NoError(t, err)
	return checksum
}

// drive runs an action to completion, feeding it the scripted notification
// payload whenever it suspends. Fails the test if the action needs an event
// the script does not provide.
func drive(t *testing.T, action Action, events map[string]json.RawMessage) error {
	t.Helper()
	payload := json.RawMessage(nil)
	for i := 0; i < 100; i++ {
		done, err := action.Run(context.Background(), payload)
		if err != nil || done {
			return err
		}
		awaiting := action.Awaiting()
		require.NotEmpty(t, awaiting, "suspended action must name its event")
		event, ok := events[awaiting]
		require.True(t, ok, "no scripted event for %q", awaiting)
		payload = event
	}
	t.Fatal("action did not finish")
	return nil
}
