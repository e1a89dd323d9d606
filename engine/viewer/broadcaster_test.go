package viewer

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTest(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitForClients(t *testing.T, b *Broadcaster, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() != n && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.Equal(t, n, b.ClientCount())
}

func TestPublishReachesViewer(t *testing.T) {
	b := NewBroadcaster()
	srv := httptest.NewServer(b)
	defer srv.Close()
	defer b.Close()

	conn := dialTest(t, srv)
	defer conn.Close()
	waitForClients(t, b, 1)

	want := Overlay{FrameNumber: 7, ModelTime: 0.35, WallTime: 0.4, Realtime: 1.14}
	b.Publish(want)

	var got Overlay
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, want, got)
}

func TestPublishWithoutViewersDoesNotBlock(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	done := make(chan struct{})
	go func() {
		b.Publish(Overlay{FrameNumber: 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no viewers connected")
	}
}

func TestSlowViewerDropsOldest(t *testing.T) {
	b := NewBroadcaster()
	srv := httptest.NewServer(b)
	defer srv.Close()
	defer b.Close()

	conn := dialTest(t, srv)
	defer conn.Close()
	waitForClients(t, b, 1)

	// flood well past the per-client buffer; Publish must never block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Overlay{FrameNumber: uint(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow viewer")
	}
}

func TestCloseDisconnectsViewers(t *testing.T) {
	b := NewBroadcaster()
	srv := httptest.NewServer(b)
	defer srv.Close()

	conn := dialTest(t, srv)
	defer conn.Close()
	waitForClients(t, b, 1)

	b.Close()
	assert.Zero(t, b.ClientCount())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
