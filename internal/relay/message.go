package relay

import "github.com/vmihailenco/msgpack/v5"

// Op identifies a relay frame.
type Op string

// Client to relay.
const (
	OpSet              Op = "set"
	OpRemove           Op = "remove"
	OpWatch            Op = "watch"
	OpUnwatch          Op = "unwatch"
	OpOnDisconnect     Op = "on_disconnect"
	OpCancelDisconnect Op = "cancel_disconnect"
)

// Relay to client.
const (
	OpAck      Op = "ack"
	OpError    Op = "error"
	OpSnapshot Op = "snapshot"
)

// Message is a single relay frame. Requests carry a client-chosen ID that the
// ack or error echoes back; watch requests use the same ID for every snapshot
// they produce.
type Message struct {
	Op       Op        `msgpack:"op"`
	ID       uint64    `msgpack:"id,omitempty"`
	Path     string    `msgpack:"path,omitempty"`
	Value    []byte    `msgpack:"value,omitempty"`
	Remove   bool      `msgpack:"remove,omitempty"`
	Snapshot *Snapshot `msgpack:"snapshot,omitempty"`
	Error    string    `msgpack:"error,omitempty"`

	// conn is the connection the request arrived on. It is used internally by
	// the Hub and never encoded.
	conn *Conn `msgpack:"-"`
}

// Hook is a cleanup the relay performs for a connection once it ends.
type Hook struct {
	Path   string
	Value  []byte
	Remove bool
}

// RemoveHook deletes path when the connection ends.
func RemoveHook(path string) Hook {
	return Hook{Path: path, Remove: true}
}

// SetHook writes value at path when the connection ends.
func SetHook(path string, value []byte) Hook {
	return Hook{Path: path, Value: value}
}

// Encode serializes a frame for the websocket transport.
func Encode(m *Message) ([]byte, error) {
	return msgpack.Marshal(m)
}

// Decode parses a frame received from the websocket transport.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
