package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"chat-widget-demo/engine/history"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/metrics"
	"chat-widget-demo/engine/pkg/store"
)

// IndexKey is the storage slot holding the swept session index
const IndexKey = "session-index"

// Index tracks every session id that has ever owned a history, with the time
// it was last seen. Reset leaves the old session's history behind as dead
// storage; the index is what lets the sweeper find and reclaim it.
type Index struct {
	store store.Store
	log   *logger.Logger
	now   func() time.Time
}

// NewIndex creates an index over the given store
func NewIndex(s store.Store, log *logger.Logger) *Index {
	return &Index{store: s, log: log, now: time.Now}
}

// Touch records the session as seen now
func (ix *Index) Touch(sessionID string) {
	entries := ix.read()
	entries[sessionID] = ix.now()
	ix.write(entries)
}

// Entries returns the current index contents
func (ix *Index) Entries() map[string]time.Time {
	return ix.read()
}

func (ix *Index) read() map[string]time.Time {
	raw, ok := ix.store.Get(IndexKey)
	if !ok {
		return make(map[string]time.Time)
	}
	var entries map[string]time.Time
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		// Corrupt index just means the next sweep starts from scratch
		return make(map[string]time.Time)
	}
	return entries
}

func (ix *Index) write(entries map[string]time.Time) {
	raw, err := json.Marshal(entries)
	if err != nil {
		ix.log.LogError(err, "failed to serialize session index")
		return
	}
	if err := ix.store.Set(IndexKey, raw); err != nil {
		ix.log.LogError(err, "failed to persist session index")
	}
}

// Sweeper reclaims message histories whose sessions have not been seen
// within the retention window. It sweeps the root namespace of its store and
// every visitor namespace found in it, since the HTTP surface scopes each
// visitor's keys under a "visitor:" prefix. It runs periodically and is safe
// to run alongside live traffic: a racing Touch simply wins on the next
// sweep.
type Sweeper struct {
	store     store.Store
	index     *Index
	retention time.Duration
	interval  time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// NewSweeper creates a sweeper over the manager's store and index
func NewSweeper(s store.Store, index *Index, retention, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		store:     s,
		index:     index,
		retention: retention,
		interval:  interval,
		log:       log,
		now:       time.Now,
	}
}

// SetClock overrides the time source (testing)
func (sw *Sweeper) SetClock(now func() time.Time) {
	sw.now = now
}

// Run sweeps on the configured interval until the context is cancelled
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept := sw.Sweep()
			if swept > 0 {
				sw.log.Info("sweep reclaimed histories", "count", swept)
			}
		}
	}
}

// Sweep deletes every history whose session fell outside the retention
// window, plus any stray history key the index has no record of, across the
// root namespace and every visitor namespace. Returns the number of
// histories reclaimed.
func (sw *Sweeper) Sweep() int {
	swept := sw.sweepNamespace(sw.store, sw.index)

	for _, visitorID := range visitorNamespaces(sw.store) {
		view := store.Namespaced(sw.store, visitorID)
		swept += sw.sweepNamespace(view, NewIndex(view, sw.log))
	}

	if swept > 0 {
		metrics.HistoriesSwept.Add(float64(swept))
	}
	return swept
}

func (sw *Sweeper) sweepNamespace(view store.Store, index *Index) int {
	cutoff := sw.now().Add(-sw.retention)
	entries := index.Entries()

	swept := 0
	for sessionID, lastSeen := range entries {
		if lastSeen.After(cutoff) {
			continue
		}
		view.Delete(history.Key(sessionID))
		delete(entries, sessionID)
		swept++
	}
	if swept > 0 {
		index.write(entries)
	}

	// Histories written before the index existed have no last-seen entry;
	// reclaim those too. Skipped when the index is empty so a corrupt index
	// cannot wipe live histories in one sweep.
	if len(entries) > 0 {
		for _, key := range view.Keys("history:") {
			sessionID := strings.TrimPrefix(key, "history:")
			if _, tracked := entries[sessionID]; !tracked {
				view.Delete(key)
				swept++
			}
		}
	}

	return swept
}

// visitorNamespaces lists the visitor ids with keys in a shared store
func visitorNamespaces(s store.Store) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, key := range s.Keys("visitor:") {
		rest := strings.TrimPrefix(key, "visitor:")
		sep := strings.Index(rest, ":")
		if sep <= 0 {
			continue
		}
		id := rest[:sep]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
