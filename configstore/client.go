// Package configstore defines the engine's read-side contract with the
// administrative configuration store. The store's CRUD editing UI is an
// external collaborator; leaf widget instances only fetch snapshots.
package configstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"chat-widget-demo/engine/pkg/config"
	"chat-widget-demo/engine/pkg/logger"
)

// Snapshot is one published widget configuration. Version increases
// monotonically with every administrative save, which is what lets leaves
// poll-compare as a fallback when a change notification is dropped.
type Snapshot struct {
	Version        int64     `json:"version"`
	Title          string    `json:"title"`
	WelcomeMessage string    `json:"welcome_message"`
	Placeholder    string    `json:"placeholder"`
	Theme          string    `json:"theme"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store is the config-store contract consumed by leaf instances
type Store interface {
	// FetchConfig returns the current snapshot for the widget identified by
	// the embed token.
	FetchConfig(ctx context.Context, token string) (Snapshot, error)
}

// HTTPStore fetches snapshots from the config store service
type HTTPStore struct {
	client  *http.Client
	baseURL string
	log     *logger.Logger
}

// NewHTTPStore builds a client from configuration
func NewHTTPStore(log *logger.Logger) *HTTPStore {
	cfg := config.Get()
	return &HTTPStore{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: cfg.Services.ConfigStoreURL,
		log:     log,
	}
}

func (s *HTTPStore) FetchConfig(ctx context.Context, token string) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/widget-config", nil)
	if err != nil {
		return Snapshot{}, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("config fetch failed", "error", err.Error())
		return Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("config store returned status %d", resp.StatusCode)
	}

	var snapshot Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decoding config snapshot: %w", err)
	}
	return snapshot, nil
}

// MemoryStore serves snapshots from memory. It backs the administrative
// surface in single-process deployments and the engine's tests.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// NewMemoryStore seeds the store with an initial snapshot at version 1
func NewMemoryStore(initial Snapshot) *MemoryStore {
	if initial.Version == 0 {
		initial.Version = 1
	}
	if initial.UpdatedAt.IsZero() {
		initial.UpdatedAt = time.Now()
	}
	return &MemoryStore{snapshot: initial}
}

func (s *MemoryStore) FetchConfig(ctx context.Context, token string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, nil
}

// Update replaces the snapshot and bumps the version
func (s *MemoryStore) Update(next Snapshot) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	next.Version = s.snapshot.Version + 1
	next.UpdatedAt = time.Now()
	s.snapshot = next
	return s.snapshot
}

// Current returns the snapshot without a fetch
func (s *MemoryStore) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}
