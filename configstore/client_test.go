package configstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget-demo/engine/pkg/logger"
)

func testLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	return logger.New(cfg)
}

func TestMemoryStoreVersionIsMonotonic(t *testing.T) {
	s := NewMemoryStore(Snapshot{Title: "Assistant"})

	first, err := s.FetchConfig(context.Background(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Version)

	updated := s.Update(Snapshot{Title: "Renamed"})
	assert.EqualValues(t, 2, updated.Version)
	assert.Equal(t, "Renamed", updated.Title)

	again := s.Update(Snapshot{Title: "Renamed again"})
	assert.EqualValues(t, 3, again.Version)
	assert.Equal(t, again, s.Current())
}

func TestHTTPStoreFetchConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/widget-config", r.URL.Path)
		require.Equal(t, "Bearer embed-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Snapshot{
			Version:   4,
			Title:     "Assistant",
			Theme:     "dark",
			UpdatedAt: time.Now(),
		})
	}))
	defer srv.Close()

	store := &HTTPStore{
		client:  srv.Client(),
		baseURL: srv.URL,
		log:     testLogger(),
	}

	snapshot, err := store.FetchConfig(context.Background(), "embed-token")
	require.NoError(t, err)
	assert.EqualValues(t, 4, snapshot.Version)
	assert.Equal(t, "dark", snapshot.Theme)
}

func TestHTTPStoreErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &HTTPStore{client: srv.Client(), baseURL: srv.URL, log: testLogger()}
	_, err := store.FetchConfig(context.Background(), "")
	assert.Error(t, err)
}
