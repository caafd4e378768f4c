package peer

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/BioHazard786/peerlink/internal/relay"
)

type eventKind int

const (
	evSignaling eventKind = iota
	evCandidates
	evLocalCandidate
	evConnState
	evDataChannel
)

type event struct {
	kind eventKind

	// gen identifies the peer connection a callback event came from.
	gen uint64

	snap      relay.Snapshot
	candidate *webrtc.ICECandidate
	state     webrtc.PeerConnectionState
	dc        *webrtc.DataChannel
}

// mailbox is an unbounded event queue. push never blocks, so pion and relay
// callbacks cannot stall behind the event loop.
type mailbox struct {
	mu     sync.Mutex
	queue  []event
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) push(ev event) {
	m.mu.Lock()
	m.queue = append(m.queue, ev)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox) drain() []event {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}
