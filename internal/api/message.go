package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-widget-demo/engine/chat"
	"chat-widget-demo/engine/history"
	"chat-widget-demo/engine/pkg/config"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/store"
	"chat-widget-demo/engine/session"
)

// MessageController runs user-to-assistant turns for widget surfaces
type MessageController struct {
	store   store.Store
	service chat.Service
	cfg     *config.Config
	logger  *logger.Logger
}

// NewMessageController creates the controller
func NewMessageController(s store.Store, service chat.Service, cfg *config.Config, log *logger.Logger) *MessageController {
	return &MessageController{store: s, service: service, cfg: cfg, logger: log}
}

// RegisterRoutes registers message routes on the widget group
func (ctl *MessageController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/messages", ctl.Send)
}

type sendRequest struct {
	Content string `json:"content" binding:"required"`
}

// Send appends the user turn, asks the chat service for a reply, and
// persists whichever assistant message results. A chat-service failure is
// surfaced to the visitor as a visible assistant-role error reply, never as
// an HTTP error.
func (ctl *MessageController) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code": "BAD_PAYLOAD", "message": "content is required",
		}})
		return
	}

	visitorStore := store.Namespaced(ctl.store, c.GetString("visitorId"))
	manager := session.NewManager(visitorStore, ctl.cfg.Session.TTL, ctl.logger)
	keeper := history.NewKeeper(visitorStore, ctl.cfg.History.WelcomeMessage,
		ctl.cfg.History.MaxMessages, ctl.logger)

	sessionID, isNew := manager.ResumeOrCreate()
	keeper.Load(sessionID, isNew)

	userMsg := history.NewUserMessage(req.Content)
	keeper.Append(userMsg)

	log := logger.FromContext(c)

	result, err := ctl.service.SendMessage(c.Request.Context(), sessionID, req.Content)
	if err != nil {
		log.Warn("chat turn failed, appending error reply",
			"session_id", sessionID,
			"error", err.Error(),
		)
		errMsg := history.NewAssistantMessage("error-"+userMsg.ID,
			"Sorry, I ran into a problem answering that. Please try again.")
		keeper.Append(errMsg)
		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionID,
			"message":    userMsg,
			"reply":      errMsg,
		})
		return
	}

	reply := history.NewAssistantMessage(result.MessageID, result.ResponseText)
	keeper.Append(reply)
	manager.Touch()

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"message":    userMsg,
		"reply":      reply,
	})
}
