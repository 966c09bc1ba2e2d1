// Package syncbus carries "configuration changed" notifications between
// widget contexts. Two primitives compose the protocol: a local broadcast
// bus for listeners within one context, and a cross-context channel a relay
// forwards notifications through. Delivery is best-effort and unacknowledged
// throughout; a dropped notification is counted, never retried.
package syncbus

import (
	"sync"
	"time"

	"chat-widget-demo/engine/pkg/metrics"
)

// EventConfigUpdated is the fixed discriminator carried by every
// configuration-change notification, local or cross-context.
const EventConfigUpdated = "WIDGET_CONFIG_UPDATED"

// Notification is the in-flight payload. It is never persisted.
type Notification struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// NewNotification stamps a config-updated notification with the current time
func NewNotification() Notification {
	return Notification{
		Type:      EventConfigUpdated,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Handler consumes a notification
type Handler func(Notification)

type subscription struct {
	id int
	fn Handler
}

// Bus is the local broadcast primitive: every context that can mutate or
// observe configuration owns one. Publish delivers synchronously to all
// current subscribers in registration order.
type Bus struct {
	mu     sync.Mutex
	subs   []subscription
	nextID int
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe attaches a handler and returns a function that detaches it
func (b *Bus) Subscribe(fn Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the notification to every subscriber attached at call
// time, in registration order, on the caller's goroutine.
func (b *Bus) Publish(n Notification) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	metrics.NotificationsPublished.Inc()
	for _, sub := range subs {
		sub.fn(n)
	}
}

// SubscriberCount reports how many handlers are attached
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
