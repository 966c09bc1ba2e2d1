package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"chat-widget-demo/engine/syncbus"
)

// Client is one connected context, host or leaf
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	instanceID string
	role       string
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error",
					"instance_id", c.instanceID,
					"role", c.role,
					"error", err.Error(),
				)
			}
			break
		}

		// Only hosts originate traffic; leaves just listen
		if c.role != RoleHost {
			continue
		}

		var n syncbus.Notification
		if err := json.Unmarshal(raw, &n); err != nil {
			c.hub.log.Warn("unreadable message from host", "instance_id", c.instanceID)
			continue
		}
		if n.Type != syncbus.EventConfigUpdated {
			continue
		}

		c.hub.Forward(c.instanceID, n)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
