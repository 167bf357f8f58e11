package kodi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/nfosync/nfosync/internal/log"
)

// Notification is a single event from the host bus.
type Notification struct {
	Sender string
	Method string
	Data   json.RawMessage
}

// Listener maintains a TCP connection to the host's notification socket and
// feeds decoded notifications into a single channel. Delivery order matches
// wire order; the consuming service drains the channel serially, which gives
// the non-reentrant ingress the scheduler relies on.
type Listener struct {
	addr   string
	out    chan Notification
	logger zerolog.Logger
}

// NewListener creates a listener for the host notification socket.
func NewListener(addr string) *Listener {
	return &Listener{
		addr:   addr,
		out:    make(chan Notification, 64),
		logger: log.WithComponent("kodi.listener"),
	}
}

// Notifications returns the ordered notification stream.
func (l *Listener) Notifications() <-chan Notification {
	return l.out
}

// Run connects and decodes until ctx is done, reconnecting with backoff on
// connection loss. The output channel is closed on return.
func (l *Listener) Run(ctx context.Context) {
	defer close(l.out)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", l.addr)
		if err != nil {
			l.logger.Warn().
				Err(err).
				Str("event", "bus.connect_failed").
				Str("addr", l.addr).
				Dur("retry_in", backoff).
				Msg("cannot reach host notification socket")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		l.logger.Info().
			Str("event", "bus.connected").
			Str("addr", l.addr).
			Msg("connected to host notification socket")
		backoff = time.Second

		// Unblock the decoder when the context is cancelled.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.SetReadDeadline(time.Now())
			case <-done:
			}
		}()

		l.decodeStream(conn)
		close(done)
		_ = conn.Close()
	}
}

type wireNotification struct {
	Method string `json:"method"`
	Params struct {
		Sender string          `json:"sender"`
		Data   json.RawMessage `json:"data"`
	} `json:"params"`
}

func (l *Listener) decodeStream(conn net.Conn) {
	dec := json.NewDecoder(conn)
	for {
		var wire wireNotification
		if err := dec.Decode(&wire); err != nil {
			if !errors.Is(err, io.EOF) {
				l.logger.Warn().
					Err(err).
					Str("event", "bus.decode_failed").
					Msg("notification stream broken")
			}
			return
		}
		if wire.Method == "" {
			continue
		}

		method := wire.Method
		// Third-party bus messages reach monitors as "Other.<message>".
		// The host's own library/player events pass through unprefixed.
		if wire.Params.Sender != "xbmc" && wire.Params.Sender != "" {
			if len(method) < 6 || method[:6] != "Other." {
				method = "Other." + method
			}
		}

		l.out <- Notification{
			Sender: wire.Params.Sender,
			Method: method,
			Data:   wire.Params.Data,
		}
	}
}
