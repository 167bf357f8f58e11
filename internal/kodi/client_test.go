package kodi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(method string, params json.RawMessage) (any, *rpcError)) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jsonrpc", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req struct {
			JSONRPC string          `json:"jsonrpc"`
			Method  string          `json:"method"`
			Params  json.RawMessage `json:"params"`
			ID      int             `json:"id"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "2.0", req.JSONRPC)

		result, rpcErr := handler(req.Method, req.Params)
		response := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			response["error"] = rpcErr
		} else {
			response["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	t.Cleanup(srv.Close)
	return srv, New(Options{BaseURL: srv.URL})
}

func TestCallReturnsRawResult(t *testing.T) {
	_, client := newTestServer(t, func(method string, _ json.RawMessage) (any, *rpcError) {
		assert.Equal(t, "JSONRPC.Ping", method)
		return "pong", nil
	})

	raw, err := client.Call(context.Background(), "JSONRPC.Ping", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `"pong"`, string(raw))
}

func TestCallSurfacesRPCError(t *testing.T) {
	_, client := newTestServer(t, func(string, json.RawMessage) (any, *rpcError) {
		return nil, &rpcError{Code: -32601, Message: "Method not found"}
	})

	_, err := client.Call(context.Background(), "No.Such", nil)
	require.Error(t, err)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, -32601, reqErr.Code)
	assert.Equal(t, "No.Such", reqErr.Method)
}

func TestCallRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(Options{BaseURL: srv.URL})
	_, err := client.Call(context.Background(), "JSONRPC.Ping", nil)
	require.Error(t, err)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Message, "401")
}

func TestCallSendsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "kodi", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"pong"}`))
	}))
	defer srv.Close()

	client := New(Options{BaseURL: srv.URL, Username: "kodi", Password: "secret"})
	_, err := client.Call(context.Background(), "JSONRPC.Ping", nil)
	require.NoError(t, err)
}

func TestNotifyAllWrapsSenderAndData(t *testing.T) {
	var got json.RawMessage
	_, client := newTestServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		assert.Equal(t, "JSONRPC.NotifyAll", method)
		got = params
		return "OK", nil
	})

	err := client.NotifyAll(context.Background(), MethodSyncAll.Send(),
		map[string]any{"patient": true})
	require.NoError(t, err)

	var params struct {
		Sender  string         `json:"sender"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(got, &params))
	assert.Equal(t, "nfosync", params.Sender, "default sender")
	assert.Equal(t, "NFOSync.SyncAll", params.Message)
	assert.Equal(t, true, params.Data["patient"])
}

func TestIsPlaying(t *testing.T) {
	players := []any{}
	_, client := newTestServer(t, func(method string, _ json.RawMessage) (any, *rpcError) {
		assert.Equal(t, "Player.GetActivePlayers", method)
		return players, nil
	})

	assert.False(t, client.IsPlaying(context.Background()))

	players = []any{map[string]any{"playerid": 1, "type": "video"}}
	assert.True(t, client.IsPlaying(context.Background()))
}

func TestIsPlayingAssumesIdleOnError(t *testing.T) {
	client := New(Options{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, client.IsPlaying(context.Background()))
}

func TestMethodRecvPrefix(t *testing.T) {
	assert.Equal(t, "NFOSync.SyncAll", MethodSyncAll.Send())
	assert.Equal(t, "Other.NFOSync.SyncAll", MethodSyncAll.Recv())
}
