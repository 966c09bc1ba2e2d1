package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/syncbus"
)

func testLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	return logger.New(cfg)
}

func newTestHub(t *testing.T, allowedOrigins []string) (*Hub, string, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(allowedOrigins, testLogger())
	engine := gin.New()
	engine.GET("/ws/widget/:instanceId", hub.ServeWS)

	srv := httptest.NewServer(engine)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return hub, wsURL, srv.Close
}

func dial(t *testing.T, wsURL, instanceID, role string) *Channel {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := DialChannel(ctx, wsURL+"/ws/widget/"+instanceID+"?role="+role, "", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { ch.Close() })
	return ch
}

func waitForLeaf(t *testing.T, hub *Hub, instanceID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, id := range hub.LiveInstances() {
			if id == instanceID {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHostNotificationReachesPairedLeaf(t *testing.T) {
	hub, wsURL, stop := newTestHub(t, []string{"*"})
	defer stop()

	leaf := dial(t, wsURL, "inst-1", RoleLeaf)
	received := make(chan syncbus.Notification, 4)
	leaf.OnMessage(func(n syncbus.Notification) { received <- n })
	waitForLeaf(t, hub, "inst-1")

	host := dial(t, wsURL, "inst-1", RoleHost)
	require.NoError(t, host.Post(syncbus.NewNotification()))

	select {
	case n := <-received:
		assert.Equal(t, syncbus.EventConfigUpdated, n.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("leaf never received the notification")
	}
}

func TestNotificationStaysWithinItsInstance(t *testing.T) {
	hub, wsURL, stop := newTestHub(t, []string{"*"})
	defer stop()

	leafA := dial(t, wsURL, "inst-a", RoleLeaf)
	leafB := dial(t, wsURL, "inst-b", RoleLeaf)

	receivedA := make(chan syncbus.Notification, 4)
	receivedB := make(chan syncbus.Notification, 4)
	leafA.OnMessage(func(n syncbus.Notification) { receivedA <- n })
	leafB.OnMessage(func(n syncbus.Notification) { receivedB <- n })
	waitForLeaf(t, hub, "inst-a")
	waitForLeaf(t, hub, "inst-b")

	hostA := dial(t, wsURL, "inst-a", RoleHost)
	require.NoError(t, hostA.Post(syncbus.NewNotification()))

	select {
	case <-receivedA:
	case <-time.After(2 * time.Second):
		t.Fatal("leaf A never received the notification")
	}

	select {
	case <-receivedB:
		t.Fatal("notification crossed instance boundaries")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestForwardWithoutLeafDropsQuietly(t *testing.T) {
	hub, _, stop := newTestHub(t, []string{"*"})
	defer stop()

	// No leaf has ever connected for this instance
	hub.Forward("ghost-instance", syncbus.NewNotification())
	assert.Empty(t, hub.LiveInstances())
}

func TestServeWSRejectsUnknownRole(t *testing.T) {
	_, wsURL, stop := newTestHub(t, []string{"*"})
	defer stop()

	httpURL := "http" + strings.TrimPrefix(wsURL, "ws")
	resp, err := http.Get(httpURL + "/ws/widget/inst-1?role=observer")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpgradeEnforcesOriginAllowList(t *testing.T) {
	_, wsURL, stop := newTestHub(t, []string{"https://allowed.example"})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := DialChannel(ctx, wsURL+"/ws/widget/inst-1?role=leaf",
		"https://evil.example", testLogger())
	assert.Error(t, err)

	ch, err := DialChannel(ctx, wsURL+"/ws/widget/inst-1?role=leaf",
		"https://allowed.example", testLogger())
	require.NoError(t, err)
	ch.Close()
}
