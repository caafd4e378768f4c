package signaling

import (
	"context"
	"sync"

	"github.com/BioHazard786/peerlink/internal/relay"
)

// Local is a Channel attached directly to an in-process relay Hub. It behaves
// like a Client without the network: same ordering, same disconnect hooks.
type Local struct {
	*handler

	conn    *relay.Conn
	drained chan struct{}

	closeOnce sync.Once
}

var _ Channel = (*Local)(nil)

// Attach registers a new connection named id with hub.
func Attach(hub *relay.Hub, id string) (*Local, error) {
	conn := relay.NewConn(hub, nil, id)
	if err := conn.Join(); err != nil {
		return nil, err
	}

	l := &Local{
		conn:    conn,
		drained: make(chan struct{}),
	}
	l.handler = newHandler(l.request)
	go l.drain()
	return l, nil
}

func (l *Local) request(m *relay.Message) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	if err := l.conn.Request(m); err != nil {
		return ErrClosed
	}
	return nil
}

func (l *Local) drain() {
	defer close(l.drained)
	for m := range l.conn.Outbox() {
		l.route(m)
	}
	l.handler.shutdown()
}

func (l *Local) Write(ctx context.Context, path string, value []byte) error {
	return l.write(ctx, path, value)
}

func (l *Local) Watch(ctx context.Context, path string, fn WatchFunc) (Unwatch, error) {
	return l.watch(ctx, path, fn)
}

func (l *Local) Remove(ctx context.Context, path string) error {
	return l.remove(ctx, path)
}

func (l *Local) OnDisconnect(ctx context.Context, hook relay.Hook) error {
	return l.onDisconnect(ctx, hook)
}

func (l *Local) CancelOnDisconnect(ctx context.Context, path string) error {
	return l.cancelOnDisconnect(ctx, path)
}

// Close leaves the hub. The hub runs any hooks that were not cancelled.
func (l *Local) Close() error {
	l.closeOnce.Do(func() {
		l.handler.shutdown()
		l.conn.Leave()
		<-l.drained
	})
	return nil
}

// Drop ends the connection on the hub side first, the way a lost client
// would: calls in flight fail and watches stop once the hub lets go.
func (l *Local) Drop() {
	l.conn.Leave()
	<-l.drained
}
