// Package history persists the ordered message sequence of a chat session.
// The sequence is serialized as a single unit under a session-scoped key:
// appends rewrite the whole payload rather than patching it, which keeps the
// storage format trivial at the cost of write amplification.
package history

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-widget-demo/engine/pkg/errors"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/metrics"
	"chat-widget-demo/engine/pkg/store"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FeedbackType is the visitor's verdict on an assistant reply
type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackNegative FeedbackType = "negative"
)

// WelcomeMessageID anchors the canned first message of every fresh session.
// It is exempt from feedback collection.
const WelcomeMessageID = "welcome-message"

// Feedback is the in-memory view of feedback attached to a single message.
// The append-only feedback log is kept separately; this field is what the UI
// reads.
type Feedback struct {
	Type    FeedbackType `json:"type"`
	Comment string       `json:"comment,omitempty"`
}

// Message is one entry in a session's conversation
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Feedback  *Feedback `json:"feedback,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserMessage creates a user-authored message with a client-generated id
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates an assistant message with a server-issued id
func NewAssistantMessage(id, content string) Message {
	return Message{
		ID:        id,
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Feedback preconditions surfaced by SetFeedback
var (
	ErrMessageNotFound    = errors.NewNotFoundError(errors.CodeBadPayload, "no message with that id in this session")
	ErrFeedbackAlreadySet = errors.NewConflictError(errors.CodeFeedbackDuplicate, "feedback already recorded for this message")
	ErrFeedbackExempt     = errors.NewBadRequestError(errors.CodeFeedbackExempt, "the welcome message does not accept feedback")
)

// Keeper owns one session's in-memory message sequence and mirrors every
// change to the durable store.
type Keeper struct {
	store       store.Store
	welcomeText string
	maxMessages int
	log         *logger.Logger

	mu        sync.Mutex
	sessionID string
	messages  []Message
}

// NewKeeper creates a keeper. maxMessages <= 0 disables the cap.
func NewKeeper(s store.Store, welcomeText string, maxMessages int, log *logger.Logger) *Keeper {
	return &Keeper{
		store:       s,
		welcomeText: welcomeText,
		maxMessages: maxMessages,
		log:         log,
	}
}

// Key returns the storage key holding the given session's serialized
// sequence. Exposed for the sweeper, which reclaims orphaned histories.
func Key(sessionID string) string {
	return "history:" + sessionID
}

func (k *Keeper) welcomeSequence() []Message {
	return []Message{{
		ID:        WelcomeMessageID,
		Role:      RoleAssistant,
		Content:   k.welcomeText,
		Timestamp: time.Now(),
	}}
}

// Load initializes the in-memory sequence for the given session. New
// sessions are seeded with the welcome message and persisted immediately.
// Resumed sessions restore the stored sequence; a missing or corrupt payload
// falls back to the welcome-only state without promoting the session to new.
func (k *Keeper) Load(sessionID string, isNew bool) []Message {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.sessionID = sessionID

	if isNew {
		k.messages = k.welcomeSequence()
		k.persistLocked()
		return k.snapshotLocked()
	}

	raw, ok := k.store.Get(Key(sessionID))
	if !ok {
		k.log.Warn("history missing for resumed session, reseeding welcome", "session_id", sessionID)
		k.messages = k.welcomeSequence()
		k.persistLocked()
		return k.snapshotLocked()
	}

	var stored []Message
	if err := json.Unmarshal(raw, &stored); err != nil || len(stored) == 0 {
		k.log.Warn("history payload unreadable, reseeding welcome", "session_id", sessionID)
		k.messages = k.welcomeSequence()
		k.persistLocked()
		return k.snapshotLocked()
	}

	k.messages = stored
	return k.snapshotLocked()
}

// Append adds a message to the sequence and rewrites the stored payload.
// When the cap is exceeded, the oldest non-welcome messages are dropped.
func (k *Keeper) Append(msg Message) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.messages = append(k.messages, msg)

	if k.maxMessages > 0 && len(k.messages) > k.maxMessages {
		overflow := len(k.messages) - k.maxMessages
		kept := make([]Message, 0, k.maxMessages)
		if k.messages[0].ID == WelcomeMessageID {
			kept = append(kept, k.messages[0])
			kept = append(kept, k.messages[1+overflow:]...)
		} else {
			kept = append(kept, k.messages[overflow:]...)
		}
		k.messages = kept
	}

	k.persistLocked()
	metrics.MessagesAppended.WithLabelValues(string(msg.Role)).Inc()
}

// SetFeedback applies feedback to the message with the given id. It enforces
// the set-once precondition and the welcome-message exemption, then rewrites
// the stored payload so the feedback survives a reload.
func (k *Keeper) SetFeedback(messageID string, fb Feedback) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if messageID == WelcomeMessageID {
		return ErrFeedbackExempt
	}

	for i := range k.messages {
		if k.messages[i].ID != messageID {
			continue
		}
		if k.messages[i].Feedback != nil {
			return ErrFeedbackAlreadySet
		}
		k.messages[i].Feedback = &fb
		k.persistLocked()
		return nil
	}
	return ErrMessageNotFound
}

// Messages returns a copy of the current in-memory sequence
func (k *Keeper) Messages() []Message {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.snapshotLocked()
}

// SessionID returns the session this keeper is bound to
func (k *Keeper) SessionID() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sessionID
}

func (k *Keeper) snapshotLocked() []Message {
	out := make([]Message, len(k.messages))
	copy(out, k.messages)
	return out
}

func (k *Keeper) persistLocked() {
	raw, err := json.Marshal(k.messages)
	if err != nil {
		k.log.LogError(err, "failed to serialize history", "session_id", k.sessionID)
		return
	}
	if err := k.store.Set(Key(k.sessionID), raw); err != nil {
		k.log.LogError(err, "failed to persist history", "session_id", k.sessionID)
	}
}
