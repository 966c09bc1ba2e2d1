package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget-demo/engine/history"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/resilience"
)

func testLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	return logger.New(cfg)
}

func newTestClient(baseURL string) *HTTPClient {
	log := testLogger()
	return &HTTPClient{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: baseURL,
		apiKey:  "test-key",
		breaker: resilience.New(resilience.DefaultConfig("chat-service"), log),
		log:     log,
	}
}

func TestSendMessageRoundTrip(t *testing.T) {
	var received sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(SendResult{MessageID: "reply-1", ResponseText: "an answer"})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.SendMessage(context.Background(), "s1", "hello")
	require.NoError(t, err)

	assert.Equal(t, "reply-1", result.MessageID)
	assert.Equal(t, "an answer", result.ResponseText)
	assert.Equal(t, "s1", received.SessionID)
	assert.Equal(t, "hello", received.Text)
}

func TestSendMessageRejectsMissingMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SendResult{ResponseText: "an answer"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendMessage(context.Background(), "s1", "hello")
	assert.Error(t, err)
}

func TestSendMessageErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendMessage(context.Background(), "s1", "hello")
	assert.Error(t, err)
}

func TestSubmitFeedbackRoundTrip(t *testing.T) {
	var received submitFeedbackRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/feedback", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SubmitFeedback(context.Background(),
		"s1", "reply-1", history.FeedbackNegative, "wrong answer")
	require.NoError(t, err)

	assert.Equal(t, "reply-1", received.MessageID)
	assert.Equal(t, history.FeedbackNegative, received.Type)
	assert.Equal(t, "wrong answer", received.Comment)
}

func TestBreakerShortCircuitsDeadUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	for i := 0; i < 5; i++ {
		_, err := client.SendMessage(context.Background(), "s1", "hello")
		require.Error(t, err)
	}

	// The breaker is now open; the upstream stops seeing traffic
	srv.Close()
	_, err := client.SendMessage(context.Background(), "s1", "hello")
	assert.ErrorIs(t, err, resilience.ErrOpen)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, newTestClient(srv.URL).Ping(context.Background()))
}
