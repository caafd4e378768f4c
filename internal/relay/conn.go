package relay

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong frame from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from a client. SDP blobs and candidate lists
	// stay far below this.
	maxMessageSize = 64 * 1024

	// Outbound frames buffered per connection before it counts as stalled.
	sendBuffer = 256
)

// Conn is one relay client: a websocket peer or an in-process attachment.
type Conn struct {
	hub *Hub

	// ws is nil for in-process connections.
	ws *websocket.Conn

	// ID names the connection in logs.
	ID string

	// send is the buffered channel of outbound frames. The hub writes to it
	// and closes it when the connection is unregistered.
	send chan *Message

	// watches and hooks are owned by the hub goroutine.
	watches map[uint64]string
	hooks   map[string]Hook
	stalled bool
}

// NewConn creates a connection bound to hub. ws may be nil for an in-process
// client, which then drains Outbox itself.
func NewConn(hub *Hub, ws *websocket.Conn, id string) *Conn {
	return &Conn{
		hub:     hub,
		ws:      ws,
		ID:      id,
		send:    make(chan *Message, sendBuffer),
		watches: make(map[uint64]string),
		hooks:   make(map[string]Hook),
	}
}

// Outbox returns the frames the hub sends to this connection. It is closed
// once the hub has unregistered the connection.
func (c *Conn) Outbox() <-chan *Message {
	return c.send
}

// Join registers the connection with the hub.
func (c *Conn) Join() error {
	select {
	case c.hub.register <- c:
		return nil
	case <-c.hub.done:
		return ErrHubClosed
	}
}

// Request hands a frame to the hub for processing.
func (c *Conn) Request(m *Message) error {
	m.conn = c
	select {
	case c.hub.requests <- m:
		return nil
	case <-c.hub.done:
		return ErrHubClosed
	}
}

// Leave unregisters the connection. The hub runs its disconnect hooks and
// closes Outbox. Calling Leave more than once is harmless.
func (c *Conn) Leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// ReadPump pumps frames from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Conn) ReadPump() {
	defer func() {
		c.Leave()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("relay connection lost", "conn", c.ID, "err", err)
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		msg, err := Decode(data)
		if err != nil {
			c.hub.logger.Warn("dropping malformed frame", "conn", c.ID, "err", err)
			continue
		}
		if err := c.Request(msg); err != nil {
			return
		}
	}
}

// WritePump pumps frames from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := Encode(msg)
			if err != nil {
				c.hub.logger.Error("encode frame", "conn", c.ID, "op", msg.Op, "err", err)
				continue
			}
			if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				c.hub.logger.Debug("write frame", "conn", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
