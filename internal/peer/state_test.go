package peer

import (
	"testing"

	"github.com/pion/webrtc/v4"
)

func TestStateFromPion(t *testing.T) {
	tests := []struct {
		in   webrtc.PeerConnectionState
		want State
	}{
		{webrtc.PeerConnectionStateNew, StateNew},
		{webrtc.PeerConnectionStateConnecting, StateConnecting},
		{webrtc.PeerConnectionStateConnected, StateConnected},
		{webrtc.PeerConnectionStateDisconnected, StateDisconnected},
		{webrtc.PeerConnectionStateClosed, StateDisconnected},
		{webrtc.PeerConnectionStateFailed, StateFailed},
	}
	for _, tt := range tests {
		if got := stateFromPion(tt.in); got != tt.want {
			t.Errorf("stateFromPion(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	names := map[State]string{
		StateNew:          "new",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateDisconnected: "disconnected",
		StateFailed:       "failed",
		State(99):         "unknown",
	}
	for s, want := range names {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
