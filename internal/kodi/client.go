// Package kodi implements the host RPC surface: a JSON-RPC 2.0 client over
// HTTP for request/response calls, and a TCP listener for the host's
// notification bus.
package kodi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/metrics"
)

// Options configure the client.
type Options struct {
	BaseURL  string // e.g. http://127.0.0.1:8080
	Username string
	Password string
	Timeout  time.Duration // defaults to 30s
	Sender   string        // sender id for outbound bus messages
}

// Client is a JSON-RPC 2.0 client over the host's HTTP transport.
type Client struct {
	endpoint string
	username string
	password string
	sender   string
	http     *http.Client
	logger   zerolog.Logger
}

// New creates a client for the host at the given base URL.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	sender := opts.Sender
	if sender == "" {
		sender = "nfosync"
	}
	return &Client{
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/jsonrpc",
		username: opts.Username,
		password: opts.Password,
		sender:   sender,
		http:     &http.Client{Timeout: timeout},
		logger:   log.WithComponent("kodi"),
	}
}

// Sender returns the sender id used on the bus.
func (c *Client) Sender() string {
	return c.sender
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  any             `json:"params,omitempty"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Call performs a synchronous JSON-RPC request and returns the raw result
// bytes. The raw bytes are significant: item checksums are computed over the
// exact response text, so callers must not re-serialize before hashing.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcEnvelope{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return nil, &RequestError{Method: method, Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &RequestError{Method: method, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	res, err := c.http.Do(req)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, &RequestError{Method: method, Message: err.Error()}
	}
	defer func() {
		if cerr := res.Body.Close(); cerr != nil {
			c.logger.Debug().Err(cerr).Msg("close response body")
		}
	}()

	if res.StatusCode != http.StatusOK {
		metrics.RequestsTotal.WithLabelValues("http_error").Inc()
		return nil, &RequestError{Method: method, Message: fmt.Sprintf("unexpected status %s", res.Status)}
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, &RequestError{Method: method, Message: err.Error()}
	}

	var env rpcEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.RequestsTotal.WithLabelValues("decode_error").Inc()
		return nil, &RequestError{Method: method, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if env.Error != nil {
		metrics.RequestsTotal.WithLabelValues("rpc_error").Inc()
		return nil, &RequestError{Method: method, Code: env.Error.Code, Message: env.Error.Message}
	}

	metrics.RequestsTotal.WithLabelValues("ok").Inc()
	return env.Result, nil
}

// CallInto performs a request and decodes the result into out. The raw result
// bytes are returned as well for checksum computation.
func (c *Client) CallInto(ctx context.Context, method string, params any, out any) (json.RawMessage, error) {
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, &RequestError{Method: method, Message: fmt.Sprintf("decode result: %v", err)}
		}
	}
	return raw, nil
}

// NotifyAll broadcasts a message on the host bus via JSONRPC.NotifyAll.
// Other bus clients, including this service itself, receive it with the
// method name prefixed "Other.".
func (c *Client) NotifyAll(ctx context.Context, message string, data any) error {
	params := map[string]any{
		"sender":  c.sender,
		"message": message,
	}
	if data != nil {
		params["data"] = data
	}
	_, err := c.Call(ctx, "JSONRPC.NotifyAll", params)
	return err
}

// IsPlaying reports whether the host has an active player.
func (c *Client) IsPlaying(ctx context.Context) bool {
	var players []struct {
		PlayerID int    `json:"playerid"`
		Type     string `json:"type"`
	}
	if _, err := c.CallInto(ctx, "Player.GetActivePlayers", nil, &players); err != nil {
		c.logger.Debug().Err(err).Str("event", "player.query_failed").Msg("assuming playback inactive")
		return false
	}
	return len(players) > 0
}
