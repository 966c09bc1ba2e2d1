// Package session owns the visitor-identity lifecycle: resume-or-create with
// a rolling TTL, activity refresh, and explicit reset. One session record
// occupies the well-known storage slot at a time; validity is judged purely
// from the record's last-activity timestamp.
package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/metrics"
	"chat-widget-demo/engine/pkg/store"
)

// StorageKey is the well-known slot holding the current session record
const StorageKey = "session"

// DefaultTTL is the rolling validity window for a session
const DefaultTTL = 24 * time.Hour

// Record is the persisted session identity
type Record struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Manager mediates all access to the session slot. It is not safe against
// concurrent writers in separate processes: the store is last-write-wins and
// the manager deliberately adds no cross-process locking on top.
type Manager struct {
	store store.Store
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
	index *Index
}

// NewManager creates a session manager with the given TTL. A zero TTL falls
// back to DefaultTTL.
func NewManager(s store.Store, ttl time.Duration, log *logger.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store: s,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
		index: NewIndex(s, log),
	}
}

// SetClock overrides the time source (testing)
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
	m.index.now = now
}

// ResumeOrCreate reads the stored session record. A missing, unreadable, or
// expired record fails open into a fresh session; a valid one has its
// last-activity refreshed and is resumed as-is.
func (m *Manager) ResumeOrCreate() (string, bool) {
	now := m.now()

	record, ok := m.read()
	if ok && now.Sub(record.LastActivity) <= m.ttl {
		record.LastActivity = now
		m.write(record)
		m.index.Touch(record.ID)
		return record.ID, false
	}

	if ok {
		m.log.Info("session expired, minting replacement",
			"session_id", record.ID,
			"idle", now.Sub(record.LastActivity).String(),
		)
		metrics.SessionsExpired.Inc()
	}

	fresh := Record{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActivity: now,
	}
	m.write(fresh)
	m.index.Touch(fresh.ID)
	metrics.SessionsCreated.Inc()
	return fresh.ID, true
}

// Touch refreshes last-activity on the current record without changing
// identity. Called after every successful user-to-assistant turn so an
// active conversation stays alive indefinitely. No-op when no record exists.
func (m *Manager) Touch() {
	record, ok := m.read()
	if !ok {
		return
	}
	record.LastActivity = m.now()
	m.write(record)
	m.index.Touch(record.ID)
}

// Reset unconditionally discards the current record and mints a new one,
// regardless of TTL state. The previous session's history is not deleted
// here; the sweeper reclaims it once it falls outside the retention window.
func (m *Manager) Reset() string {
	now := m.now()
	fresh := Record{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActivity: now,
	}
	m.write(fresh)
	m.index.Touch(fresh.ID)
	metrics.SessionsReset.Inc()
	metrics.SessionsCreated.Inc()
	return fresh.ID
}

// Current returns the stored record without validating or refreshing it
func (m *Manager) Current() (Record, bool) {
	return m.read()
}

func (m *Manager) read() (Record, bool) {
	raw, ok := m.store.Get(StorageKey)
	if !ok {
		return Record{}, false
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil || record.ID == "" {
		// Unreadable record is treated exactly like an absent one
		m.log.Warn("session record unreadable, treating as absent")
		return Record{}, false
	}
	return record, true
}

func (m *Manager) write(record Record) {
	raw, err := json.Marshal(record)
	if err != nil {
		m.log.LogError(err, "failed to serialize session record")
		return
	}
	if err := m.store.Set(StorageKey, raw); err != nil {
		m.log.LogError(err, "failed to persist session record", "session_id", record.ID)
	}
}
