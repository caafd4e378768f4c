package relay

import "sync"

// Event counter names.
const (
	EventConnOpened   = "conn_opened"
	EventConnClosed   = "conn_closed"
	EventConnStalled  = "conn_stalled"
	EventHookRun      = "disconnect_hook_run"
	EventSnapshotSent = "snapshot_sent"
	EventBadRequest   = "bad_request"
)

// RequestEvent is the counter name for requests with the given op.
func RequestEvent(op Op) string {
	return "request_" + string(op)
}

// Stats is a concurrency-safe counter registry for relay events.
type Stats struct {
	mu sync.Mutex
	m  map[string]uint64
}

func NewStats() *Stats {
	return &Stats{m: make(map[string]uint64)}
}

func (s *Stats) Inc(name string) {
	s.mu.Lock()
	s.m[name]++
	s.mu.Unlock()
}

func (s *Stats) Get(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[name]
}

// Snapshot returns a copy of all counters.
func (s *Stats) Snapshot() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}
