package kodi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerDecodesNotifications(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte(
			`{"jsonrpc":"2.0","method":"VideoLibrary.OnUpdate","params":{"sender":"xbmc","data":{"item":{"id":3,"type":"movie"}}}}` +
				`{"jsonrpc":"2.0","method":"NFOSync.SyncAll","params":{"sender":"nfosync","data":{"patient":true}}}`))
		// Hold the connection open until the test is done reading.
		time.Sleep(500 * time.Millisecond)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewListener(ln.Addr().String())
	go l.Run(ctx)

	recv := func() Notification {
		select {
		case n := <-l.Notifications():
			return n
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for notification")
			return Notification{}
		}
	}

	first := recv()
	assert.Equal(t, "VideoLibrary.OnUpdate", first.Method, "host events pass through unprefixed")
	assert.Equal(t, "xbmc", first.Sender)
	assert.JSONEq(t, `{"item":{"id":3,"type":"movie"}}`, string(first.Data))

	second := recv()
	assert.Equal(t, "Other.NFOSync.SyncAll", second.Method, "third-party messages gain the Other. prefix")
	assert.JSONEq(t, `{"patient":true}`, string(second.Data))
}

func TestListenerClosesChannelOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(2 * time.Second)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	l := NewListener(ln.Addr().String())

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop on cancel")
	}

	_, open := <-l.Notifications()
	assert.False(t, open, "output channel closes on shutdown")
}
