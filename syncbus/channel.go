package syncbus

import (
	"sync"

	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/metrics"
)

// ContextChannel is the cross-context messaging capability. Post is
// at-most-once: a notification posted before the counterpart has attached a
// handler is dropped, and no acknowledgment ever flows back.
type ContextChannel interface {
	Post(n Notification) error
	OnMessage(fn Handler)
}

// PairChannel links exactly one host context to one leaf context within a
// single process. Posts preserve order because delivery happens on the
// poster's goroutine; posts before OnMessage are dropped, matching the
// not-yet-loaded-counterpart behavior of a real document pair.
type PairChannel struct {
	mu      sync.Mutex
	handler Handler
}

// NewPairChannel creates an unattached channel
func NewPairChannel() *PairChannel {
	return &PairChannel{}
}

func (c *PairChannel) Post(n Notification) error {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()

	if handler == nil {
		metrics.NotificationsDropped.Inc()
		return nil
	}
	handler(n)
	return nil
}

func (c *PairChannel) OnMessage(fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// Relay forwards local configuration-change broadcasts into a nested
// context's channel. Fire-and-forget: the relay never learns whether the
// counterpart reacted.
type Relay struct {
	channel     ContextChannel
	log         *logger.Logger
	unsubscribe func()
}

// NewRelay attaches to the host bus and starts forwarding
func NewRelay(bus *Bus, channel ContextChannel, log *logger.Logger) *Relay {
	r := &Relay{channel: channel, log: log}
	r.unsubscribe = bus.Subscribe(func(n Notification) {
		if n.Type != EventConfigUpdated {
			return
		}
		if err := channel.Post(n); err != nil {
			// Unreachable counterpart is indistinguishable from a slow one;
			// either way the notification is gone.
			log.Warn("relay post failed", "error", err.Error())
			return
		}
		metrics.NotificationsRelayed.Inc()
	})
	return r
}

// Close detaches the relay from its bus
func (r *Relay) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}
