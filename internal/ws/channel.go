package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/metrics"
	"chat-widget-demo/engine/syncbus"
)

// Channel is the client side of the transport: a syncbus.ContextChannel
// over one websocket connection. A host dials with role=host and posts; a
// leaf dials with role=leaf and listens.
type Channel struct {
	conn *websocket.Conn
	log  *logger.Logger

	mu      sync.Mutex
	handler syncbus.Handler
	reading bool
}

// DialChannel connects to the hub endpoint for the given instance and role.
// The origin is sent in the handshake so the hub can enforce its allow-list.
func DialChannel(ctx context.Context, url, origin string, log *logger.Logger) (*Channel, error) {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return &Channel{conn: conn, log: log}, nil
}

// Post sends a notification to the counterpart context
func (c *Channel) Post(n syncbus.Notification) error {
	return c.conn.WriteJSON(n)
}

// OnMessage attaches the handler and starts the read loop on first call.
// Notifications arriving before attachment are dropped by the hub side, not
// buffered here.
func (c *Channel) OnMessage(fn syncbus.Handler) {
	c.mu.Lock()
	c.handler = fn
	start := !c.reading
	c.reading = true
	c.mu.Unlock()

	if start {
		go c.readLoop()
	}
}

// Close tears the connection down
func (c *Channel) Close() error {
	return c.conn.Close()
}

func (c *Channel) readLoop() {
	for {
		var n syncbus.Notification
		if err := c.conn.ReadJSON(&n); err != nil {
			return
		}
		if n.Type != syncbus.EventConfigUpdated {
			continue
		}

		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()

		if handler == nil {
			metrics.NotificationsDropped.Inc()
			continue
		}
		handler(n)
	}
}
