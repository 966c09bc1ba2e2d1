// Package ws carries config-change notifications between host and leaf
// contexts that live in separate processes. Each widget instance gets one
// host/leaf connection pair; notifications a host sends are forwarded to its
// own paired leaf and nowhere else.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/metrics"
	"chat-widget-demo/engine/syncbus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024
)

// Roles a connection can take within a pair
const (
	RoleHost = "host"
	RoleLeaf = "leaf"
)

type pair struct {
	host *Client
	leaf *Client
}

// Hub tracks the host/leaf connection pair of every live widget instance
type Hub struct {
	mu       sync.Mutex
	pairs    map[string]*pair
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewHub creates a hub whose upgrader only admits the given origins. A
// single "*" entry disables the check (development).
func NewHub(allowedOrigins []string, log *logger.Logger) *Hub {
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &Hub{
		pairs: make(map[string]*pair),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		log: log,
	}
}

// ServeWS upgrades the request and registers the connection under its
// instance and role
func (h *Hub) ServeWS(c *gin.Context) {
	instanceID := c.Param("instanceId")
	role := c.Query("role")
	if role != RoleHost && role != RoleLeaf {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be host or leaf"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "instance_id", instanceID, "error", err.Error())
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, 16),
		instanceID: instanceID,
		role:       role,
	}

	h.register(client)
	go client.writePump()
	go client.readPump()
}

// Forward posts a notification to the leaf of the given instance. A missing
// leaf connection is the not-yet-loaded nested document case: the
// notification is dropped, counted, and never retried.
func (h *Hub) Forward(instanceID string, n syncbus.Notification) {
	h.mu.Lock()
	p := h.pairs[instanceID]
	var leaf *Client
	if p != nil {
		leaf = p.leaf
	}
	h.mu.Unlock()

	if leaf == nil {
		metrics.NotificationsDropped.Inc()
		h.log.Debug("no leaf connected, notification dropped", "instance_id", instanceID)
		return
	}

	raw, err := json.Marshal(n)
	if err != nil {
		h.log.LogError(err, "failed to serialize notification")
		return
	}

	select {
	case leaf.send <- raw:
		metrics.NotificationsRelayed.Inc()
	default:
		// Blocked leaf gets the same treatment as an absent one
		metrics.NotificationsDropped.Inc()
	}
}

// LiveInstances reports which instances currently have a leaf attached
func (h *Hub) LiveInstances() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, 0, len(h.pairs))
	for id, p := range h.pairs {
		if p.leaf != nil {
			out = append(out, id)
		}
	}
	return out
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := h.pairs[client.instanceID]
	if p == nil {
		p = &pair{}
		h.pairs[client.instanceID] = p
	}

	// A reconnecting context replaces its predecessor
	switch client.role {
	case RoleHost:
		if p.host != nil {
			p.host.conn.Close()
		}
		p.host = client
	case RoleLeaf:
		if p.leaf != nil {
			p.leaf.conn.Close()
		}
		p.leaf = client
	}

	h.log.Info("context connected", "instance_id", client.instanceID, "role", client.role)
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := h.pairs[client.instanceID]
	if p == nil {
		return
	}
	if p.host == client {
		p.host = nil
	}
	if p.leaf == client {
		p.leaf = nil
	}
	if p.host == nil && p.leaf == nil {
		delete(h.pairs, client.instanceID)
	}

	h.log.Info("context disconnected", "instance_id", client.instanceID, "role", client.role)
}
