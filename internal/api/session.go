package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-widget-demo/engine/history"
	"chat-widget-demo/engine/pkg/config"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/store"
	"chat-widget-demo/engine/session"
)

// SessionController serves the session lifecycle to widget surfaces. Every
// request operates on the visitor's own storage namespace, so each visitor
// sees exactly one well-known session slot.
type SessionController struct {
	store  store.Store
	cfg    *config.Config
	logger *logger.Logger
}

// NewSessionController creates the controller over the shared store
func NewSessionController(s store.Store, cfg *config.Config, log *logger.Logger) *SessionController {
	return &SessionController{store: s, cfg: cfg, logger: log}
}

// RegisterRoutes registers session routes on the widget group
func (ctl *SessionController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/session/resume", ctl.Resume)
	group.POST("/session/reset", ctl.Reset)
	group.GET("/session/history", ctl.History)
}

func (ctl *SessionController) scoped(c *gin.Context) (*session.Manager, *history.Keeper) {
	visitorStore := store.Namespaced(ctl.store, c.GetString("visitorId"))
	manager := session.NewManager(visitorStore, ctl.cfg.Session.TTL, ctl.logger)
	keeper := history.NewKeeper(visitorStore, ctl.cfg.History.WelcomeMessage,
		ctl.cfg.History.MaxMessages, ctl.logger)
	return manager, keeper
}

// Resume resumes the visitor's session or mints a fresh one, returning the
// restored (or welcome-seeded) conversation
func (ctl *SessionController) Resume(c *gin.Context) {
	manager, keeper := ctl.scoped(c)

	sessionID, isNew := manager.ResumeOrCreate()
	messages := keeper.Load(sessionID, isNew)

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"is_new":     isNew,
		"messages":   messages,
	})
}

// Reset discards the current identity regardless of TTL state and starts a
// welcome-seeded conversation under a new one
func (ctl *SessionController) Reset(c *gin.Context) {
	manager, keeper := ctl.scoped(c)

	sessionID := manager.Reset()
	messages := keeper.Load(sessionID, true)

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// History returns the stored conversation of the current session without
// refreshing its activity
func (ctl *SessionController) History(c *gin.Context) {
	manager, keeper := ctl.scoped(c)

	record, ok := manager.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"code": "SESSION_NOT_FOUND", "message": "no session for this visitor",
		}})
		return
	}

	messages := keeper.Load(record.ID, false)
	c.JSON(http.StatusOK, gin.H{
		"session_id": record.ID,
		"expires_at": record.LastActivity.Add(ctl.cfg.Session.TTL).Format(time.RFC3339),
		"messages":   messages,
	})
}
