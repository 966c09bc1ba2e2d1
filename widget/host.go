package widget

import (
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/syncbus"
)

// Host models a page that embeds a leaf: it owns the context's local bus
// and, when a channel to a nested leaf exists, a relay that forwards
// configuration-change broadcasts across the boundary.
type Host struct {
	Bus   *syncbus.Bus
	relay *syncbus.Relay
}

// NewHost creates a host context. channel may be nil for pages that do not
// embed a leaf (their broadcasts then reach local listeners only).
func NewHost(channel syncbus.ContextChannel, log *logger.Logger) *Host {
	if log == nil {
		log = logger.GetGlobal()
	}
	h := &Host{Bus: syncbus.NewBus()}
	if channel != nil {
		h.relay = syncbus.NewRelay(h.Bus, channel, log)
	}
	return h
}

// NotifyConfigChanged fires the local configuration-change broadcast. Local
// subscribers run synchronously; the relay, if any, forwards to the leaf.
func (h *Host) NotifyConfigChanged() {
	h.Bus.Publish(syncbus.NewNotification())
}

// Close detaches the relay
func (h *Host) Close() {
	if h.relay != nil {
		h.relay.Close()
	}
}
