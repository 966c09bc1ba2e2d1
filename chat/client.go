// Package chat defines the engine's contract with the conversational reply
// service and provides its HTTP client. Reply generation itself is an
// external collaborator; the engine only sends turns and feedback.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chat-widget-demo/engine/history"
	"chat-widget-demo/engine/pkg/config"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/resilience"
	"chat-widget-demo/engine/pkg/secrets"
)

// SendResult is the chat service's reply to a user turn
type SendResult struct {
	MessageID    string `json:"message_id"`
	ResponseText string `json:"response_text"`
}

// Service is the chat-service contract consumed by the engine
type Service interface {
	// SendMessage submits a user turn and returns the assistant reply with
	// its server-issued message id.
	SendMessage(ctx context.Context, sessionID, text string) (SendResult, error)
	// SubmitFeedback records the visitor's verdict on an assistant reply.
	SubmitFeedback(ctx context.Context, sessionID, messageID string, fbType history.FeedbackType, comment string) error
}

// HTTPClient talks to the chat service over JSON/HTTP. A circuit breaker
// wraps every call so a dead upstream fails fast instead of holding each
// turn for the full client timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

// NewHTTPClient builds a client from configuration. The API key comes from
// the secrets manager with an env fallback.
func NewHTTPClient(log *logger.Logger) *HTTPClient {
	cfg := config.Get()
	apiKey := secrets.GetSecretWithDefault(context.Background(), "CHAT_SERVICE_API_KEY", "")
	return &HTTPClient{
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: cfg.Services.ChatServiceURL,
		apiKey:  apiKey,
		breaker: resilience.New(resilience.DefaultConfig("chat-service"), log),
		log:     log,
	}
}

type sendMessageRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

func (c *HTTPClient) SendMessage(ctx context.Context, sessionID, text string) (SendResult, error) {
	var result SendResult
	err := c.post(ctx, "/v1/messages", sendMessageRequest{SessionID: sessionID, Text: text}, &result)
	if err != nil {
		return SendResult{}, err
	}
	if result.MessageID == "" {
		return SendResult{}, fmt.Errorf("chat service returned no message id")
	}
	return result, nil
}

type submitFeedbackRequest struct {
	SessionID string               `json:"session_id"`
	MessageID string               `json:"message_id"`
	Type      history.FeedbackType `json:"type"`
	Comment   string               `json:"comment,omitempty"`
}

func (c *HTTPClient) SubmitFeedback(ctx context.Context, sessionID, messageID string, fbType history.FeedbackType, comment string) error {
	return c.post(ctx, "/v1/feedback", submitFeedbackRequest{
		SessionID: sessionID,
		MessageID: messageID,
		Type:      fbType,
		Comment:   comment,
	}, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, out any) error {
	return c.breaker.Execute(func() error {
		return c.doPost(ctx, path, payload, out)
	})
}

func (c *HTTPClient) doPost(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("chat service request failed", "path", path, "error", err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("chat service returned error status", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("chat service returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding chat service response: %w", err)
		}
	}
	return nil
}

// Ping verifies the chat service is reachable, used by health checks
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat service health returned status %d", resp.StatusCode)
	}
	return nil
}
