package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-widget-demo/engine/chat"
	"chat-widget-demo/engine/feedback"
	"chat-widget-demo/engine/history"
	"chat-widget-demo/engine/pkg/config"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/store"
	"chat-widget-demo/engine/session"
)

// FeedbackController accepts visitor feedback on assistant replies
type FeedbackController struct {
	store   store.Store
	service chat.Service
	cfg     *config.Config
	logger  *logger.Logger
}

// NewFeedbackController creates the controller
func NewFeedbackController(s store.Store, service chat.Service, cfg *config.Config, log *logger.Logger) *FeedbackController {
	return &FeedbackController{store: s, service: service, cfg: cfg, logger: log}
}

// RegisterRoutes registers feedback routes on the widget group
func (ctl *FeedbackController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/feedback", ctl.Submit)
	group.GET("/feedback/pending", ctl.Pending)
}

type feedbackRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	Type      string `json:"type" binding:"required"`
	Comment   string `json:"comment"`
}

// Submit records feedback. Precondition violations (unknown message, second
// submission, welcome message) come back as errors. A chat-service outage
// does not: the entry lands in the log as pending and the visitor sees
// acceptance.
func (ctl *FeedbackController) Submit(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code": "BAD_PAYLOAD", "message": "message_id and type are required",
		}})
		return
	}

	fbType := history.FeedbackType(req.Type)
	if fbType != history.FeedbackPositive && fbType != history.FeedbackNegative {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code": "BAD_PAYLOAD", "message": "type must be positive or negative",
		}})
		return
	}

	visitorStore := store.Namespaced(ctl.store, c.GetString("visitorId"))
	manager := session.NewManager(visitorStore, ctl.cfg.Session.TTL, ctl.logger)
	keeper := history.NewKeeper(visitorStore, ctl.cfg.History.WelcomeMessage,
		ctl.cfg.History.MaxMessages, ctl.logger)

	record, ok := manager.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"code": "SESSION_NOT_FOUND", "message": "no session for this visitor",
		}})
		return
	}
	keeper.Load(record.ID, false)

	submitter := feedback.NewSubmitter(visitorStore, ctl.service, keeper, ctl.logger)
	if err := submitter.Submit(c.Request.Context(), record.ID, req.MessageID, fbType, req.Comment); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Pending returns the visitor's feedback entries still awaiting
// confirmation by the chat service
func (ctl *FeedbackController) Pending(c *gin.Context) {
	visitorStore := store.Namespaced(ctl.store, c.GetString("visitorId"))
	entries := feedback.Pending(visitorStore)

	c.JSON(http.StatusOK, gin.H{"pending": entries})
}
