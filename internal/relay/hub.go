package relay

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
)

var ErrHubClosed = errors.New("relay hub closed")

// Hub is the central brain of the relay.
// It owns the key-value tree, every connection, and every watch.
type Hub struct {
	tree  *Tree
	conns map[*Conn]struct{}

	register   chan *Conn
	unregister chan *Conn
	requests   chan *Message
	done       chan struct{}

	// stalled connections waiting to be dropped once the current event is
	// fully processed.
	stalled []*Conn

	stats  *Stats
	logger *slog.Logger

	active atomic.Int64
	leaves atomic.Int64
}

// NewHub creates a Hub. A nil logger discards output.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		tree:       NewTree(),
		conns:      make(map[*Conn]struct{}),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
		requests:   make(chan *Message),
		done:       make(chan struct{}),
		stats:      NewStats(),
		logger:     logger,
	}
}

// Stats returns the hub's event counters.
func (h *Hub) Stats() *Stats {
	return h.stats
}

// Active returns the number of registered connections.
func (h *Hub) Active() int64 {
	return h.active.Load()
}

// Leaves returns the number of stored values.
func (h *Hub) Leaves() int64 {
	return h.leaves.Load()
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run starts the hub's main processing loop.
// This is the single goroutine that safely manages all state (tree,
// connections, watches, hooks). It returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.conns {
				h.disconnect(c, false)
			}
			h.logger.Info("relay hub stopped")
			return

		case c := <-h.register:
			h.conns[c] = struct{}{}
			h.active.Store(int64(len(h.conns)))
			h.stats.Inc(EventConnOpened)
			h.logger.Debug("connection registered", "conn", c.ID)

		case c := <-h.unregister:
			h.disconnect(c, true)

		case m := <-h.requests:
			h.handle(m)
		}

		h.dropStalled()
	}
}

// disconnect removes c, optionally running its disconnect hooks first, and
// closes its outbox.
func (h *Hub) disconnect(c *Conn, runHooks bool) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	h.active.Store(int64(len(h.conns)))
	h.stats.Inc(EventConnClosed)

	if runHooks && len(c.hooks) > 0 {
		paths := make([]string, 0, len(c.hooks))
		for p := range c.hooks {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		for _, p := range paths {
			hook := c.hooks[p]
			h.stats.Inc(EventHookRun)
			h.logger.Info("running disconnect hook", "conn", c.ID, "path", p, "remove", hook.Remove)
			h.apply(p, hook.Value, hook.Remove)
		}
	}

	c.watches = nil
	c.hooks = nil
	close(c.send)
	h.logger.Debug("connection unregistered", "conn", c.ID)
}

// handle processes a single request frame.
func (h *Hub) handle(m *Message) {
	c := m.conn
	if _, ok := h.conns[c]; !ok {
		// Late frame from a connection that is already gone.
		return
	}
	h.stats.Inc(RequestEvent(m.Op))

	path, err := CleanPath(m.Path)
	if err != nil {
		h.stats.Inc(EventBadRequest)
		h.send(c, &Message{Op: OpError, ID: m.ID, Path: m.Path, Error: err.Error()})
		return
	}

	switch m.Op {
	case OpSet:
		h.apply(path, m.Value, false)

	case OpRemove:
		h.apply(path, nil, true)

	case OpWatch:
		c.watches[m.ID] = path
		snap := h.tree.Snapshot(path)
		h.stats.Inc(EventSnapshotSent)
		h.send(c, &Message{Op: OpSnapshot, ID: m.ID, Path: path, Snapshot: &snap})

	case OpUnwatch:
		delete(c.watches, m.ID)

	case OpOnDisconnect:
		c.hooks[path] = Hook{Path: path, Value: m.Value, Remove: m.Remove}

	case OpCancelDisconnect:
		delete(c.hooks, path)

	default:
		h.stats.Inc(EventBadRequest)
		h.send(c, &Message{Op: OpError, ID: m.ID, Path: path, Error: "unknown op " + string(m.Op)})
		return
	}

	h.send(c, &Message{Op: OpAck, ID: m.ID, Path: path})
}

// apply mutates the tree and notifies every affected watch.
func (h *Hub) apply(path string, value []byte, remove bool) {
	if remove {
		if !h.tree.Remove(path) {
			return
		}
	} else {
		h.tree.Set(path, value)
	}
	h.leaves.Store(int64(h.tree.Len()))
	h.notify(path)
}

// notify sends a fresh snapshot to every watch related to changed.
func (h *Hub) notify(changed string) {
	for c := range h.conns {
		for id, p := range c.watches {
			if !related(p, changed) {
				continue
			}
			snap := h.tree.Snapshot(p)
			h.stats.Inc(EventSnapshotSent)
			h.send(c, &Message{Op: OpSnapshot, ID: id, Path: p, Snapshot: &snap})
		}
	}
}

// send queues m for c without blocking. A connection whose buffer is full is
// marked stalled and dropped after the current event.
func (h *Hub) send(c *Conn, m *Message) {
	if c.stalled {
		return
	}
	select {
	case c.send <- m:
	default:
		c.stalled = true
		h.stalled = append(h.stalled, c)
	}
}

func (h *Hub) dropStalled() {
	for len(h.stalled) > 0 {
		c := h.stalled[0]
		h.stalled = h.stalled[1:]
		h.stats.Inc(EventConnStalled)
		h.logger.Warn("dropping stalled connection", "conn", c.ID)
		h.disconnect(c, true)
	}
}
