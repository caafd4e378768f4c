package signaling

import (
	"context"
	"sync"

	"github.com/BioHazard786/peerlink/internal/relay"
)

// Shared hands out leases on one underlying Channel so several sessions can
// use a single relay connection. The channel is closed when the last lease is
// closed.
type Shared struct {
	mu     sync.Mutex
	ch     Channel
	refs   int
	closed bool
}

func NewShared(ch Channel) *Shared {
	return &Shared{ch: ch}
}

// Acquire returns a new lease. It fails with ErrClosed once every earlier
// lease has been released.
func (s *Shared) Acquire() (Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.refs++
	return &lease{Channel: s.ch, owner: s}, nil
}

// Refs returns the number of open leases.
func (s *Shared) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

func (s *Shared) release() error {
	s.mu.Lock()
	s.refs--
	last := s.refs == 0
	if last {
		s.closed = true
	}
	s.mu.Unlock()

	if last {
		return s.ch.Close()
	}
	return nil
}

type lease struct {
	Channel
	owner *Shared

	mu       sync.Mutex
	released bool
}

func (l *lease) isReleased() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}

func (l *lease) Write(ctx context.Context, path string, value []byte) error {
	if l.isReleased() {
		return ErrClosed
	}
	return l.Channel.Write(ctx, path, value)
}

func (l *lease) Watch(ctx context.Context, path string, fn WatchFunc) (Unwatch, error) {
	if l.isReleased() {
		return nil, ErrClosed
	}
	return l.Channel.Watch(ctx, path, fn)
}

func (l *lease) Remove(ctx context.Context, path string) error {
	if l.isReleased() {
		return ErrClosed
	}
	return l.Channel.Remove(ctx, path)
}

func (l *lease) OnDisconnect(ctx context.Context, hook relay.Hook) error {
	if l.isReleased() {
		return ErrClosed
	}
	return l.Channel.OnDisconnect(ctx, hook)
}

func (l *lease) CancelOnDisconnect(ctx context.Context, path string) error {
	if l.isReleased() {
		return ErrClosed
	}
	return l.Channel.CancelOnDisconnect(ctx, path)
}

// Close releases the lease. Only the first call has an effect.
func (l *lease) Close() error {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return nil
	}
	l.released = true
	l.mu.Unlock()
	return l.owner.release()
}
