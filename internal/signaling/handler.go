package signaling

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/BioHazard786/peerlink/internal/relay"
)

// handler correlates requests with their replies and routes snapshots to
// watches. It is shared by every Channel transport; the transport supplies
// send and feeds inbound frames to route.
type handler struct {
	send func(*relay.Message) error

	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan *relay.Message
	watches map[uint64]*watcher
	closed  bool
	done    chan struct{}
}

func newHandler(send func(*relay.Message) error) *handler {
	return &handler{
		send:    send,
		pending: make(map[uint64]chan *relay.Message),
		watches: make(map[uint64]*watcher),
		done:    make(chan struct{}),
	}
}

// route dispatches one inbound frame. It never blocks.
func (h *handler) route(m *relay.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	switch m.Op {
	case relay.OpSnapshot:
		if w, ok := h.watches[m.ID]; ok && m.Snapshot != nil {
			w.push(*m.Snapshot)
		}

	case relay.OpAck, relay.OpError:
		if ch, ok := h.pending[m.ID]; ok {
			delete(h.pending, m.ID)
			ch <- m
		}
	}
}

// call sends a request and waits for its ack.
func (h *handler) call(ctx context.Context, m *relay.Message) error {
	if m.ID == 0 {
		m.ID = h.nextID.Add(1)
	}
	reply := make(chan *relay.Message, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.pending[m.ID] = reply
	h.mu.Unlock()

	if err := h.send(m); err != nil {
		h.forget(m.ID)
		return err
	}

	select {
	case r := <-reply:
		if r.Op == relay.OpError {
			return &RelayError{Op: m.Op, Path: m.Path, Message: r.Error}
		}
		return nil
	case <-ctx.Done():
		h.forget(m.ID)
		return ctx.Err()
	case <-h.done:
		return ErrClosed
	}
}

func (h *handler) forget(id uint64) {
	h.mu.Lock()
	delete(h.pending, id)
	h.mu.Unlock()
}

func (h *handler) write(ctx context.Context, path string, value []byte) error {
	return h.call(ctx, &relay.Message{Op: relay.OpSet, Path: path, Value: value})
}

func (h *handler) remove(ctx context.Context, path string) error {
	return h.call(ctx, &relay.Message{Op: relay.OpRemove, Path: path})
}

func (h *handler) onDisconnect(ctx context.Context, hook relay.Hook) error {
	return h.call(ctx, &relay.Message{
		Op:     relay.OpOnDisconnect,
		Path:   hook.Path,
		Value:  hook.Value,
		Remove: hook.Remove,
	})
}

func (h *handler) cancelOnDisconnect(ctx context.Context, path string) error {
	return h.call(ctx, &relay.Message{Op: relay.OpCancelDisconnect, Path: path})
}

// watch registers fn before the request goes out, since the relay sends the
// initial snapshot ahead of the ack.
func (h *handler) watch(ctx context.Context, path string, fn WatchFunc) (Unwatch, error) {
	id := h.nextID.Add(1)
	w := newWatcher(fn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.watches[id] = w
	h.mu.Unlock()

	go w.run()

	if err := h.call(ctx, &relay.Message{Op: relay.OpWatch, ID: id, Path: path}); err != nil {
		h.dropWatch(id)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if h.dropWatch(id) {
				// Fire and forget; the ack is ignored.
				_ = h.send(&relay.Message{Op: relay.OpUnwatch, ID: id, Path: path})
			}
		})
	}, nil
}

func (h *handler) dropWatch(id uint64) bool {
	h.mu.Lock()
	w, ok := h.watches[id]
	delete(h.watches, id)
	closed := h.closed
	h.mu.Unlock()

	if ok {
		w.stop()
	}
	return ok && !closed
}

// shutdown fails pending calls and stops every watch. It reports whether this
// call performed the shutdown.
func (h *handler) shutdown() bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.closed = true
	watches := h.watches
	h.watches = nil
	h.pending = nil
	close(h.done)
	h.mu.Unlock()

	for _, w := range watches {
		w.stop()
	}
	return true
}

// watcher delivers snapshots to a WatchFunc in order on its own goroutine.
// Its queue is unbounded so route never blocks on a slow callback.
type watcher struct {
	fn WatchFunc

	mu     sync.Mutex
	queue  []relay.Snapshot
	signal chan struct{}

	stopOnce sync.Once
	stopped  chan struct{}
}

func newWatcher(fn WatchFunc) *watcher {
	return &watcher{
		fn:      fn,
		signal:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

func (w *watcher) push(s relay.Snapshot) {
	w.mu.Lock()
	w.queue = append(w.queue, s)
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *watcher) stop() {
	w.stopOnce.Do(func() { close(w.stopped) })
}

func (w *watcher) run() {
	for {
		select {
		case <-w.stopped:
			return
		case <-w.signal:
		}

		for {
			w.mu.Lock()
			if len(w.queue) == 0 {
				w.mu.Unlock()
				break
			}
			s := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()

			select {
			case <-w.stopped:
				return
			default:
			}
			w.fn(s)
		}
	}
}
