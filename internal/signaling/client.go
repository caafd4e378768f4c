package signaling

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/peerlink/internal/netutil"
	"github.com/BioHazard786/peerlink/internal/relay"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	closeWait      = 2 * time.Second
)

// Client is a Channel backed by a websocket connection to a relay server.
type Client struct {
	*handler

	conn     *websocket.Conn
	outgoing chan *relay.Message
	readDone chan struct{}
	logger   *slog.Logger

	closeOnce sync.Once
}

var _ Channel = (*Client)(nil)

// Dial connects to the relay at serverURL (ws:// or wss://).
func Dial(ctx context.Context, serverURL string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("invalid relay URL %q: scheme must be ws or wss", serverURL)
	}

	// Resolve through the fallback resolver so a broken system DNS does not
	// keep us off the relay.
	dialer := websocket.Dialer{
		NetDialContext:   netutil.DialContext,
		HandshakeTimeout: 10 * time.Second,
		Proxy:            websocket.DefaultDialer.Proxy,
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}

	c := &Client{
		conn:     conn,
		outgoing: make(chan *relay.Message, 64),
		readDone: make(chan struct{}),
		logger:   logger.With("relay", u.Host),
	}
	c.handler = newHandler(c.enqueue)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return c, nil
}

func (c *Client) enqueue(m *relay.Message) error {
	select {
	case c.outgoing <- m:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// readPump reads frames from the websocket connection.
func (c *Client) readPump() {
	defer func() {
		c.handler.shutdown()
		c.conn.Close()
		close(c.readDone)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("relay connection lost", "err", err)
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		msg, err := relay.Decode(data)
		if err != nil {
			c.logger.Warn("dropping malformed relay frame", "err", err)
			continue
		}
		c.route(msg)
	}
}

// writePump writes frames to the websocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			data, err := relay.Encode(msg)
			if err != nil {
				c.logger.Error("encode relay frame", "op", msg.Op, "err", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) Write(ctx context.Context, path string, value []byte) error {
	return c.write(ctx, path, value)
}

func (c *Client) Watch(ctx context.Context, path string, fn WatchFunc) (Unwatch, error) {
	return c.watch(ctx, path, fn)
}

func (c *Client) Remove(ctx context.Context, path string) error {
	return c.remove(ctx, path)
}

func (c *Client) OnDisconnect(ctx context.Context, hook relay.Hook) error {
	return c.onDisconnect(ctx, hook)
}

func (c *Client) CancelOnDisconnect(ctx context.Context, path string) error {
	return c.cancelOnDisconnect(ctx, path)
}

// Done is closed once the client is closed or its connection is lost.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and waits briefly for the connection to wind down.
// The relay runs any hooks that were not cancelled.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.handler.shutdown()
		select {
		case <-c.readDone:
		case <-time.After(closeWait):
			c.conn.Close()
			<-c.readDone
		}
	})
	return nil
}

// Drop severs the connection without a close handshake, the way a killed
// process would.
func (c *Client) Drop() {
	c.conn.UnderlyingConn().Close()
	<-c.readDone
}
