package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get("session")
	assert.False(t, ok)

	require.NoError(t, s.Set("session", []byte(`{"id":"abc"}`)))

	value, ok := s.Get("session")
	require.True(t, ok)
	assert.Equal(t, `{"id":"abc"}`, string(value))

	s.Delete("session")
	_, ok = s.Get("session")
	assert.False(t, ok)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set("k", []byte("original")))

	value, ok := s.Get("k")
	require.True(t, ok)
	value[0] = 'X'

	again, _ := s.Get("k")
	assert.Equal(t, "original", string(again))
}

func TestMemoryStoreKeysByPrefix(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set("history:a", []byte("1")))
	require.NoError(t, s.Set("history:b", []byte("2")))
	require.NoError(t, s.Set("session", []byte("3")))

	keys := s.Keys("history:")
	assert.Len(t, keys, 2)
	assert.ElementsMatch(t, []string{"history:a", "history:b"}, keys)
}

func TestNamespacedStoreIsolation(t *testing.T) {
	base := NewMemoryStore()
	alice := Namespaced(base, "alice")
	bob := Namespaced(base, "bob")

	require.NoError(t, alice.Set("session", []byte("alice-session")))
	require.NoError(t, bob.Set("session", []byte("bob-session")))

	value, ok := alice.Get("session")
	require.True(t, ok)
	assert.Equal(t, "alice-session", string(value))

	value, ok = bob.Get("session")
	require.True(t, ok)
	assert.Equal(t, "bob-session", string(value))

	// Keys come back unprefixed and scoped to the namespace
	require.NoError(t, alice.Set("history:s1", []byte("h")))
	assert.Equal(t, []string{"history:s1"}, alice.Keys("history:"))
	assert.Empty(t, bob.Keys("history:"))
}
