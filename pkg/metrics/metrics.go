package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine counters. Registered on the default registry so the router's
// /metrics endpoint picks them up without extra wiring.
var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "widget_sessions_created_total",
		Help: "Sessions minted, either first-visit or after expiry/reset",
	})
	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "widget_sessions_expired_total",
		Help: "Stored sessions discarded because their TTL had lapsed",
	})
	SessionsReset = promauto.NewCounter(prometheus.CounterOpts{
		Name: "widget_sessions_reset_total",
		Help: "Explicit visitor-initiated session resets",
	})
	HistoriesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "widget_histories_swept_total",
		Help: "Orphaned message histories reclaimed by the sweeper",
	})

	MessagesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "widget_messages_appended_total",
		Help: "Messages appended to a session history, by role",
	}, []string{"role"})

	FeedbackSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "widget_feedback_submitted_total",
		Help: "Feedback log entries appended, by sync status",
	}, []string{"status"})

	NotificationsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "widget_config_notifications_published_total",
		Help: "Config-change notifications published on a local bus",
	})
	NotificationsRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "widget_config_notifications_relayed_total",
		Help: "Notifications forwarded across a context boundary",
	})
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "widget_config_notifications_dropped_total",
		Help: "Notifications posted into a channel with no attached handler",
	})
	ConfigRefetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "widget_config_refetches_total",
		Help: "Configuration re-fetches performed by leaf instances",
	})
)
