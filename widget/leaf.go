// Package widget assembles the engine's pieces into the two context roles:
// a Host that broadcasts configuration changes, and a Leaf, the innermost
// chat surface a visitor actually talks to.
package widget

import (
	"context"
	"sync"
	"time"

	"chat-widget-demo/engine/chat"
	"chat-widget-demo/engine/configstore"
	"chat-widget-demo/engine/feedback"
	"chat-widget-demo/engine/history"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/metrics"
	"chat-widget-demo/engine/pkg/store"
	"chat-widget-demo/engine/session"
	"chat-widget-demo/engine/syncbus"
)

// Freshness is a leaf's view of how current its configuration is
type Freshness string

const (
	StateStale      Freshness = "stale"
	StateRefetching Freshness = "refetching"
	StateFresh      Freshness = "fresh"
)

// ErrorReplyText is appended as an assistant message when a chat turn fails.
// Conversational failures are visible to the visitor, unlike sync failures.
const ErrorReplyText = "Sorry, I ran into a problem answering that. Please try again."

// Options configures a leaf instance
type Options struct {
	Store       store.Store
	Chat        chat.Service
	Configs     configstore.Store
	Channel     syncbus.ContextChannel
	Token       string
	SessionTTL  time.Duration
	WelcomeText string
	MaxMessages int
	// PollInterval enables the poll-compare fallback that heals dropped
	// notifications. Zero disables polling.
	PollInterval time.Duration
	Logger       *logger.Logger
}

// Leaf is one mounted widget instance
type Leaf struct {
	sessions  *session.Manager
	keeper    *history.Keeper
	submitter *feedback.Submitter
	chat      chat.Service
	configs   configstore.Store
	token     string
	log       *logger.Logger

	mu        sync.Mutex
	sessionID string
	state     Freshness
	config    configstore.Snapshot

	pollInterval time.Duration
	stopPoll     chan struct{}
	pollOnce     sync.Once
}

// Mount resumes or creates the visitor's session, loads its history, fetches
// configuration once unconditionally, and attaches to the cross-context
// channel. A failed initial fetch leaves the leaf stale; a later
// notification or poll tick heals it.
func Mount(opts Options) *Leaf {
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobal()
	}

	sessions := session.NewManager(opts.Store, opts.SessionTTL, log)
	sessionID, isNew := sessions.ResumeOrCreate()

	keeper := history.NewKeeper(opts.Store, opts.WelcomeText, opts.MaxMessages, log)
	keeper.Load(sessionID, isNew)

	l := &Leaf{
		sessions:     sessions,
		keeper:       keeper,
		submitter:    feedback.NewSubmitter(opts.Store, opts.Chat, keeper, log),
		chat:         opts.Chat,
		configs:      opts.Configs,
		token:        opts.Token,
		log:          log.WithSessionID(sessionID),
		sessionID:    sessionID,
		state:        StateStale,
		pollInterval: opts.PollInterval,
		stopPoll:     make(chan struct{}),
	}

	l.Refetch(context.Background())

	if opts.Channel != nil {
		opts.Channel.OnMessage(l.handleNotification)
	}
	if l.pollInterval > 0 {
		go l.pollLoop()
	}

	return l
}

// SessionID returns the mounted session's identity
func (l *Leaf) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionID
}

// Messages returns the visible conversation
func (l *Leaf) Messages() []history.Message {
	return l.keeper.Messages()
}

// Send runs one user-to-assistant turn. The user message is appended before
// the network call; on success the assistant reply is appended under its
// server-issued id and the session's activity is refreshed. On failure a
// visible assistant-role error message is appended instead; the turn never
// returns a network error to the caller.
func (l *Leaf) Send(ctx context.Context, text string) history.Message {
	userMsg := history.NewUserMessage(text)
	l.keeper.Append(userMsg)

	result, err := l.chat.SendMessage(ctx, l.SessionID(), text)
	if err != nil {
		l.log.Warn("chat turn failed, appending error reply", "error", err.Error())
		errMsg := history.NewAssistantMessage("error-"+userMsg.ID, ErrorReplyText)
		l.keeper.Append(errMsg)
		return errMsg
	}

	reply := history.NewAssistantMessage(result.MessageID, result.ResponseText)
	l.keeper.Append(reply)
	l.sessions.Touch()
	return reply
}

// SubmitFeedback records the visitor's verdict on an assistant reply.
// Precondition violations surface to the caller; network failure does not.
func (l *Leaf) SubmitFeedback(ctx context.Context, messageID string, fbType history.FeedbackType, comment string) error {
	return l.submitter.Submit(ctx, l.SessionID(), messageID, fbType, comment)
}

// ResetSession discards the current identity and starts a fresh
// conversation seeded with the welcome message.
func (l *Leaf) ResetSession() string {
	fresh := l.sessions.Reset()

	l.mu.Lock()
	l.sessionID = fresh
	l.mu.Unlock()

	l.keeper.Load(fresh, true)
	return fresh
}

// Refetch pulls the current configuration snapshot. It is idempotent:
// fetching the same snapshot twice is wasteful but safe.
func (l *Leaf) Refetch(ctx context.Context) {
	l.mu.Lock()
	l.state = StateRefetching
	l.mu.Unlock()

	metrics.ConfigRefetches.Inc()
	snapshot, err := l.configs.FetchConfig(ctx, l.token)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.log.Warn("config refetch failed, staying stale", "error", err.Error())
		l.state = StateStale
		return
	}
	l.config = snapshot
	l.state = StateFresh
}

// Freshness reports where the leaf sits in the stale/refetching/fresh cycle
func (l *Leaf) Freshness() Freshness {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Config returns the last adopted snapshot
func (l *Leaf) Config() configstore.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config
}

// Close stops the poll loop. The channel handler stays attached; a closed
// leaf's counterpart simply posts into the void.
func (l *Leaf) Close() {
	l.pollOnce.Do(func() { close(l.stopPoll) })
}

func (l *Leaf) handleNotification(n syncbus.Notification) {
	if n.Type != syncbus.EventConfigUpdated {
		return
	}
	l.Refetch(context.Background())
}

func (l *Leaf) pollLoop() {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopPoll:
			return
		case <-ticker.C:
			l.pollCompare(context.Background())
		}
	}
}

// pollCompare is the self-healing fallback: if the store's version moved
// past ours, a notification was dropped somewhere, so adopt the newer
// snapshot now instead of waiting for an event that already fired.
func (l *Leaf) pollCompare(ctx context.Context) {
	snapshot, err := l.configs.FetchConfig(ctx, l.token)
	if err != nil {
		return
	}

	l.mu.Lock()
	behind := snapshot.Version > l.config.Version
	if behind {
		l.config = snapshot
		l.state = StateFresh
	}
	l.mu.Unlock()

	if behind {
		metrics.ConfigRefetches.Inc()
		l.log.Info("poll fallback adopted newer config", "version", snapshot.Version)
	}
}
