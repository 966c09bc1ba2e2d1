// Package feedback submits visitor feedback on assistant replies. The
// in-memory message is updated optimistically before the network attempt;
// the append-only log under the shared feedback-log key is the durability
// backstop, not the system of record for the UI.
package feedback

import (
	"context"
	"encoding/json"
	"time"

	"chat-widget-demo/engine/history"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/metrics"
	"chat-widget-demo/engine/pkg/store"
)

// LogKey is the storage slot holding the append-only feedback log, shared
// across all sessions of the origin
const LogKey = "feedback-log"

// SyncStatus records whether the chat service confirmed receipt
type SyncStatus string

const (
	StatusSynced  SyncStatus = "synced"
	StatusPending SyncStatus = "pending"
)

// LogEntry is one feedback submission attempt. Entries are never deleted;
// a pending entry is a record that the network write was lost.
type LogEntry struct {
	MessageID  string               `json:"message_id"`
	SessionID  string               `json:"session_id"`
	Type       history.FeedbackType `json:"type"`
	Comment    string               `json:"comment,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
	SyncStatus SyncStatus           `json:"sync_status"`
}

// ChatService is the slice of the chat contract the submitter needs
type ChatService interface {
	SubmitFeedback(ctx context.Context, sessionID, messageID string, fbType history.FeedbackType, comment string) error
}

// Submitter applies feedback locally first, then forwards it to the chat
// service. Network failure degrades to a pending log entry; the visitor sees
// acceptance either way.
type Submitter struct {
	store   store.Store
	service ChatService
	keeper  *history.Keeper
	log     *logger.Logger
	now     func() time.Time
}

// NewSubmitter creates a submitter bound to one session's history keeper
func NewSubmitter(s store.Store, service ChatService, keeper *history.Keeper, log *logger.Logger) *Submitter {
	return &Submitter{
		store:   s,
		service: service,
		keeper:  keeper,
		log:     log,
		now:     time.Now,
	}
}

// Submit records feedback for the given message. Precondition violations
// (unknown message, feedback already set, welcome message) are returned to
// the caller. Network failure is not: it is absorbed into a pending log
// entry while the optimistic in-memory update stands.
func (s *Submitter) Submit(ctx context.Context, sessionID, messageID string, fbType history.FeedbackType, comment string) error {
	// Optimistic local update first. This is also where the set-once guard
	// lives, so a double submission is rejected rather than silently
	// overwriting the earlier verdict.
	if err := s.keeper.SetFeedback(messageID, history.Feedback{Type: fbType, Comment: comment}); err != nil {
		return err
	}

	entry := LogEntry{
		MessageID: messageID,
		SessionID: sessionID,
		Type:      fbType,
		Comment:   comment,
		Timestamp: s.now(),
	}

	if err := s.service.SubmitFeedback(ctx, sessionID, messageID, fbType, comment); err != nil {
		entry.SyncStatus = StatusPending
		s.log.Warn("feedback submission degraded to pending",
			"session_id", sessionID,
			"message_id", messageID,
			"error", err.Error(),
		)
	} else {
		entry.SyncStatus = StatusSynced
	}

	s.appendLog(entry)
	metrics.FeedbackSubmitted.WithLabelValues(string(entry.SyncStatus)).Inc()
	return nil
}

// Log returns the current contents of the shared feedback log
func (s *Submitter) Log() []LogEntry {
	return readLog(s.store)
}

func (s *Submitter) appendLog(entry LogEntry) {
	entries := append(readLog(s.store), entry)
	raw, err := json.Marshal(entries)
	if err != nil {
		s.log.LogError(err, "failed to serialize feedback log")
		return
	}
	if err := s.store.Set(LogKey, raw); err != nil {
		s.log.LogError(err, "failed to persist feedback log")
	}
}

func readLog(s store.Store) []LogEntry {
	raw, ok := s.Get(LogKey)
	if !ok {
		return nil
	}
	var entries []LogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// A corrupt log restarts empty; it is a backstop, not a ledger
		return nil
	}
	return entries
}

// Pending lists entries the chat service never confirmed. Nothing promotes
// these today; they exist so a future reconciliation job has something to
// drain.
func Pending(s store.Store) []LogEntry {
	var pending []LogEntry
	for _, entry := range readLog(s) {
		if entry.SyncStatus == StatusPending {
			pending = append(pending, entry)
		}
	}
	return pending
}
