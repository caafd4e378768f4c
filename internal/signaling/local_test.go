package signaling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BioHazard786/peerlink/internal/relay"
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

func attach(t *testing.T, hub *relay.Hub, id string) *Local {
	t.Helper()
	l, err := Attach(hub, id)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// collect watches path on ch and forwards every snapshot.
func collect(t *testing.T, ch Channel, path string) (<-chan relay.Snapshot, Unwatch) {
	t.Helper()
	out := make(chan relay.Snapshot, 64)
	stop, err := ch.Watch(testCtx(t), path, func(s relay.Snapshot) { out <- s })
	if err != nil {
		t.Fatalf("Watch(%s): %v", path, err)
	}
	return out, stop
}

func nextSnapshot(t *testing.T, ch <-chan relay.Snapshot) relay.Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return relay.Snapshot{}
}

func TestLocal_WatchWriteRemove(t *testing.T) {
	hub := startHub(t)
	a := attach(t, hub, "a")
	b := attach(t, hub, "b")
	ctx := testCtx(t)

	snaps, _ := collect(t, a, SignalingPath("r1"))
	if nextSnapshot(t, snaps).Exists() {
		t.Fatal("initial snapshot should be absent")
	}

	if err := b.Write(ctx, SignalingPath("r1"), []byte(`{"type":"offer"}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := string(nextSnapshot(t, snaps).Value()); got != `{"type":"offer"}` {
		t.Fatalf("value=%q", got)
	}

	if err := b.Remove(ctx, RoomPath("r1")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if nextSnapshot(t, snaps).Exists() {
		t.Fatal("snapshot after remove should be absent")
	}
}

func TestLocal_AllWatchersNotified(t *testing.T) {
	hub := startHub(t)
	a := attach(t, hub, "a")
	b := attach(t, hub, "b")

	sa, _ := collect(t, a, CandidatesPath("r"))
	sb, _ := collect(t, b, CandidatesPath("r"))
	nextSnapshot(t, sa)
	nextSnapshot(t, sb)

	if err := a.Write(testCtx(t), CandidatePath("r", "p1"), []byte("[]")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, ch := range []<-chan relay.Snapshot{sa, sb} {
		if _, ok := nextSnapshot(t, ch).Children()["p1"]; !ok {
			t.Fatal("missing p1 slot")
		}
	}
}

func TestLocal_UnwatchStopsCallbacks(t *testing.T) {
	hub := startHub(t)
	a := attach(t, hub, "a")

	snaps, stop := collect(t, a, "k")
	nextSnapshot(t, snaps)
	stop()
	stop()

	if err := a.Write(testCtx(t), "k", []byte("v")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	select {
	case s := <-snaps:
		t.Fatalf("unexpected snapshot after unwatch: %v", s.Entries)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLocal_InvalidPathIsRelayError(t *testing.T) {
	hub := startHub(t)
	a := attach(t, hub, "a")

	err := a.Write(testCtx(t), "rooms//x", []byte("v"))
	var relayErr *RelayError
	if !errors.As(err, &relayErr) {
		t.Fatalf("err=%v, want *RelayError", err)
	}
	if relayErr.Op != relay.OpSet {
		t.Fatalf("op=%s", relayErr.Op)
	}
}

func TestLocal_DropRunsDisconnectHook(t *testing.T) {
	hub := startHub(t)
	a := attach(t, hub, "a")
	observer := attach(t, hub, "observer")
	ctx := testCtx(t)

	if err := a.Write(ctx, SignalingPath("r"), []byte("offer")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := a.OnDisconnect(ctx, relay.RemoveHook(RoomPath("r"))); err != nil {
		t.Fatalf("OnDisconnect: %v", err)
	}

	snaps, _ := collect(t, observer, RoomPath("r"))
	if !nextSnapshot(t, snaps).Exists() {
		t.Fatal("room should exist")
	}

	a.Drop()
	if nextSnapshot(t, snaps).Exists() {
		t.Fatal("room should be removed after drop")
	}

	if err := a.Write(ctx, "k", nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("Write after drop err=%v, want ErrClosed", err)
	}
}

func TestLocal_CancelOnDisconnect(t *testing.T) {
	hub := startHub(t)
	a := attach(t, hub, "a")
	observer := attach(t, hub, "observer")
	ctx := testCtx(t)

	if err := a.Write(ctx, SignalingPath("r"), []byte("offer")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := a.OnDisconnect(ctx, relay.RemoveHook(RoomPath("r"))); err != nil {
		t.Fatalf("OnDisconnect: %v", err)
	}
	if err := a.CancelOnDisconnect(ctx, RoomPath("r")); err != nil {
		t.Fatalf("CancelOnDisconnect: %v", err)
	}
	a.Close()

	snaps, _ := collect(t, observer, RoomPath("r"))
	if !nextSnapshot(t, snaps).Exists() {
		t.Fatal("room removed despite cancelled hook")
	}
}

func TestLocal_CloseIsIdempotent(t *testing.T) {
	hub := startHub(t)
	a := attach(t, hub, "a")
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := a.Watch(testCtx(t), "k", func(relay.Snapshot) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Watch after close err=%v", err)
	}
}
