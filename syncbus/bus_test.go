package syncbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget-demo/engine/pkg/logger"
)

func testLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	return logger.New(cfg)
}

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.Subscribe(func(Notification) { order = append(order, "first") })
	bus.Subscribe(func(Notification) { order = append(order, "second") })
	bus.Subscribe(func(Notification) { order = append(order, "third") })

	bus.Publish(NewNotification())
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	var hits int
	unsubscribe := bus.Subscribe(func(Notification) { hits++ })

	bus.Publish(NewNotification())
	unsubscribe()
	bus.Publish(NewNotification())

	assert.Equal(t, 1, hits)
	assert.Equal(t, 0, bus.SubscriberCount())

	// A second call is harmless
	unsubscribe()
}

func TestBusPublishWithNoSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Publish(NewNotification())
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestPairChannelDropsBeforeHandlerAttached(t *testing.T) {
	ch := NewPairChannel()

	// Nothing is listening yet; the post vanishes without error
	require.NoError(t, ch.Post(NewNotification()))

	var received []Notification
	ch.OnMessage(func(n Notification) { received = append(received, n) })
	assert.Empty(t, received)

	require.NoError(t, ch.Post(NewNotification()))
	require.Len(t, received, 1)
	assert.Equal(t, EventConfigUpdated, received[0].Type)
}

func TestRelayForwardsConfigUpdates(t *testing.T) {
	bus := NewBus()
	ch := NewPairChannel()

	var received []Notification
	ch.OnMessage(func(n Notification) { received = append(received, n) })

	relay := NewRelay(bus, ch, testLogger())
	defer relay.Close()

	bus.Publish(NewNotification())
	require.Len(t, received, 1)

	// Foreign event types never cross the relay
	bus.Publish(Notification{Type: "SOMETHING_ELSE"})
	assert.Len(t, received, 1)
}

func TestRelayCloseDetaches(t *testing.T) {
	bus := NewBus()
	ch := NewPairChannel()

	var hits int
	ch.OnMessage(func(Notification) { hits++ })

	relay := NewRelay(bus, ch, testLogger())
	bus.Publish(NewNotification())
	relay.Close()
	bus.Publish(NewNotification())

	assert.Equal(t, 1, hits)
}

func TestTwoPairsAreIsolated(t *testing.T) {
	bus := NewBus()

	chA := NewPairChannel()
	chB := NewPairChannel()

	var hitsA, hitsB int
	chA.OnMessage(func(Notification) { hitsA++ })
	chB.OnMessage(func(Notification) { hitsB++ })

	// Only pair A is relayed from this bus
	relay := NewRelay(bus, chA, testLogger())
	defer relay.Close()

	bus.Publish(NewNotification())
	assert.Equal(t, 1, hitsA)
	assert.Equal(t, 0, hitsB)
}
