package cmd

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/BioHazard786/peerlink/internal/peer"
	"github.com/BioHazard786/peerlink/internal/relay"
	"github.com/BioHazard786/peerlink/internal/signaling"
)

func startHub(t *testing.T) *relay.Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := relay.NewHub(nil)
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

func attach(t *testing.T, hub *relay.Hub, id string) *signaling.Local {
	t.Helper()
	l, err := signaling.Attach(hub, id)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestSnapshotOnce(t *testing.T) {
	hub := startHub(t)
	writer := attach(t, hub, "writer")
	reader := attach(t, hub, "reader")
	ctx := context.Background()

	record := []byte(`{"type":"offer","sdp":"v=0","peerId":"peer-a"}`)
	if err := writer.Write(ctx, signaling.SignalingPath("abc"), record); err != nil {
		t.Fatalf("Write: %v", err)
	}

	snap, err := snapshotOnce(ctx, reader, signaling.RoomPath("abc"), time.Second)
	if err != nil {
		t.Fatalf("snapshotOnce: %v", err)
	}
	rows := roomRows(peer.DescribeRoom(snap))
	if len(rows) != 1 || rows[0].Path != "signaling" || rows[0].Peer != "peer-a" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestSnapshotOnce_EmptyRoom(t *testing.T) {
	hub := startHub(t)
	reader := attach(t, hub, "reader")

	snap, err := snapshotOnce(context.Background(), reader, signaling.RoomPath("nobody-here"), time.Second)
	if err != nil {
		t.Fatalf("snapshotOnce: %v", err)
	}
	if snap.Exists() {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestSnapshotOnce_ClosedChannel(t *testing.T) {
	hub := startHub(t)
	reader := attach(t, hub, "reader")
	reader.Close()

	_, err := snapshotOnce(context.Background(), reader, signaling.RoomPath("abc"), time.Second)
	if !errors.Is(err, signaling.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDisplayAddr(t *testing.T) {
	tests := []struct {
		addr net.Addr
		want string
	}{
		{&net.TCPAddr{IP: net.IPv6unspecified, Port: 8080}, "localhost:8080"},
		{&net.TCPAddr{IP: net.IPv4zero, Port: 9000}, "localhost:9000"},
		{&net.TCPAddr{IP: net.ParseIP("192.0.2.7"), Port: 8080}, "192.0.2.7:8080"},
	}
	for _, tt := range tests {
		if got := displayAddr(tt.addr); got != tt.want {
			t.Errorf("displayAddr(%v) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestConnFlagsOptions(t *testing.T) {
	flagConfigFile = "/tmp/peerlink.toml"
	t.Cleanup(func() { flagConfigFile = "" })

	f := connFlags{
		relayURL:      "wss://relay.example/ws",
		turn:          "turn.example",
		turnUser:      "u",
		turnPass:      "p",
		forceRelay:    true,
		signalTimeout: 3 * time.Second,
	}
	opts := f.options()
	if opts.ConfigFile != "/tmp/peerlink.toml" || opts.RelayURL != f.relayURL || !opts.ForceRelay {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.TURNServer != "turn.example" || opts.SignalTimeout != 3*time.Second {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
