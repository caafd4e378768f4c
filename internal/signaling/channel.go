package signaling

import (
	"context"

	"github.com/BioHazard786/peerlink/internal/relay"
)

// WatchFunc receives the current state of a watched path. It is called once
// with the initial state and again after every change, in order, from a
// goroutine dedicated to that watch.
type WatchFunc func(relay.Snapshot)

// Unwatch stops a watch. It is safe to call more than once.
type Unwatch func()

// Channel is a connection to the key-value relay.
type Channel interface {
	// Write overwrites the value at path. Last write wins.
	Write(ctx context.Context, path string, value []byte) error

	// Watch delivers the current state of path and every later change to fn.
	Watch(ctx context.Context, path string, fn WatchFunc) (Unwatch, error)

	// Remove deletes path and everything below it.
	Remove(ctx context.Context, path string) error

	// OnDisconnect registers a cleanup the relay performs when this connection
	// ends. Registering again for the same path replaces the previous hook.
	OnDisconnect(ctx context.Context, hook relay.Hook) error

	// CancelOnDisconnect drops the hook registered for path.
	CancelOnDisconnect(ctx context.Context, path string) error

	// Close releases the connection. Pending calls fail with ErrClosed.
	Close() error
}

// Relay path layout for rooms.
const (
	roomsRoot     = "rooms"
	signalingKey  = "signaling"
	candidatesKey = "iceCandidates"
)

// RoomPath is the root of everything stored for a room.
func RoomPath(roomID string) string {
	return relay.JoinPath(roomsRoot, roomID)
}

// SignalingPath holds the room's single offer or answer record.
func SignalingPath(roomID string) string {
	return relay.JoinPath(roomsRoot, roomID, signalingKey)
}

// CandidatesPath holds one candidate slot per participant.
func CandidatesPath(roomID string) string {
	return relay.JoinPath(roomsRoot, roomID, candidatesKey)
}

// CandidatePath is the candidate slot of a single participant.
func CandidatePath(roomID, peerID string) string {
	return relay.JoinPath(roomsRoot, roomID, candidatesKey, peerID)
}
