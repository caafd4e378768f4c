package signaling

import (
	"errors"
	"testing"
)

func TestShared_ClosesOnLastLease(t *testing.T) {
	hub := startHub(t)
	local := attach(t, hub, "shared")
	shared := NewShared(local)

	l1, err := shared.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	l2, err := shared.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	l1.Close()
	l1.Close()
	if got := shared.Refs(); got != 1 {
		t.Fatalf("refs=%d, want 1", got)
	}
	if err := l1.Write(testCtx(t), "k", nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("released lease Write err=%v", err)
	}

	// The other lease still works.
	if err := l2.Write(testCtx(t), "k", []byte("v")); err != nil {
		t.Fatalf("Write on live lease: %v", err)
	}

	l2.Close()
	select {
	case <-local.done:
	default:
		t.Fatal("underlying channel should be closed after last lease")
	}
	if _, err := shared.Acquire(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Acquire after release err=%v", err)
	}
}
