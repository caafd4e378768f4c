package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/peerlink/internal/relay"
)

func newTestServer(t *testing.T) (*relay.Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.DiscardHandler)
	hub := relay.NewHub(logger)
	go hub.Run(ctx)

	srv := httptest.NewServer(NewMux(hub, logger))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-hub.Done()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, m *relay.Message) {
	t.Helper()
	data, err := relay.Encode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, ws *websocket.Conn) *relay.Message {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	kind, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("frame kind=%d, want binary", kind)
	}
	m, err := relay.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func TestServeWs_SetAndWatch(t *testing.T) {
	_, srv := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)

	send(t, a, &relay.Message{Op: relay.OpWatch, ID: 1, Path: "rooms/r/signaling"})
	if m := recv(t, a); m.Op != relay.OpSnapshot || m.Snapshot == nil || m.Snapshot.Exists() {
		t.Fatalf("initial frame=%+v", m)
	}
	if m := recv(t, a); m.Op != relay.OpAck || m.ID != 1 {
		t.Fatalf("watch ack=%+v", m)
	}

	send(t, b, &relay.Message{Op: relay.OpSet, ID: 5, Path: "rooms/r/signaling", Value: []byte(`{"type":"offer"}`)})
	if m := recv(t, b); m.Op != relay.OpAck || m.ID != 5 {
		t.Fatalf("set ack=%+v", m)
	}

	m := recv(t, a)
	if m.Op != relay.OpSnapshot || string(m.Snapshot.Value()) != `{"type":"offer"}` {
		t.Fatalf("live frame=%+v", m)
	}
}

func TestServeWs_AbruptCloseRunsHooks(t *testing.T) {
	_, srv := newTestServer(t)
	a := dial(t, srv)
	w := dial(t, srv)

	send(t, a, &relay.Message{Op: relay.OpSet, ID: 1, Path: "rooms/r/signaling", Value: []byte("x")})
	recv(t, a)
	send(t, a, &relay.Message{Op: relay.OpOnDisconnect, ID: 2, Path: "rooms/r", Remove: true})
	recv(t, a)

	send(t, w, &relay.Message{Op: relay.OpWatch, ID: 1, Path: "rooms/r"})
	if m := recv(t, w); !m.Snapshot.Exists() {
		t.Fatal("room should exist")
	}
	recv(t, w) // ack

	// Drop the TCP connection without a close handshake.
	a.UnderlyingConn().Close()

	if m := recv(t, w); m.Op != relay.OpSnapshot || m.Snapshot.Exists() {
		t.Fatalf("expected absence after disconnect, got %+v", m)
	}
}

func TestHealthCheck(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "healthy") {
		t.Fatalf("body=%q", body)
	}
}

func TestMetricsHandler_ExposesCounters(t *testing.T) {
	hub, srv := newTestServer(t)
	a := dial(t, srv)

	send(t, a, &relay.Message{Op: relay.OpSet, ID: 1, Path: "k", Value: []byte("v")})
	recv(t, a)

	rr := httptest.NewRecorder()
	MetricsHandler(hub).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	for _, want := range []string{
		"# TYPE peerlink_relay_events_total counter",
		`peerlink_relay_events_total{event="request_set"} 1`,
		`peerlink_relay_events_total{event="conn_opened"} 1`,
		"peerlink_relay_connections 1",
		"peerlink_relay_values 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}
