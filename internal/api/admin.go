package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-widget-demo/engine/configstore"
	"chat-widget-demo/engine/internal/ws"
	"chat-widget-demo/engine/pkg/jwt"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/syncbus"
	"chat-widget-demo/engine/widget"
)

// AdminController serves the administrative surface: config edits with
// change notification, embed-token minting, and a view of live instances.
type AdminController struct {
	configs    *configstore.MemoryStore
	host       *widget.Host
	hub        *ws.Hub
	jwtService *jwt.Service
	logger     *logger.Logger
}

// NewAdminController creates the controller. host is the admin context's
// own local bus; the hub reaches leaves in other processes.
func NewAdminController(configs *configstore.MemoryStore, host *widget.Host, hub *ws.Hub, jwtService *jwt.Service, log *logger.Logger) *AdminController {
	return &AdminController{
		configs:    configs,
		host:       host,
		hub:        hub,
		jwtService: jwtService,
		logger:     log,
	}
}

// RegisterRoutes registers admin routes on the admin group and the public
// config fetch on the widget group
func (ctl *AdminController) RegisterRoutes(admin, widgetGroup *gin.RouterGroup) {
	admin.PUT("/config", ctl.UpdateConfig)
	admin.POST("/token", ctl.IssueToken)
	admin.GET("/instances", ctl.LiveInstances)
	widgetGroup.GET("/config", ctl.FetchConfig)
}

type updateConfigRequest struct {
	Title          string `json:"title"`
	WelcomeMessage string `json:"welcome_message"`
	Placeholder    string `json:"placeholder"`
	Theme          string `json:"theme"`
	// PreviewInstance, when set, relays the change notification to that
	// instance's leaf so the admin preview refreshes without a reload
	PreviewInstance string `json:"preview_instance"`
}

// UpdateConfig saves a new snapshot and fires the change notification: the
// admin context's local broadcast always, plus a cross-context relay to the
// preview leaf when one is named. Leaves that miss the notification stay
// stale until their poll fallback or next reload.
func (ctl *AdminController) UpdateConfig(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code": "BAD_PAYLOAD", "message": "invalid config payload",
		}})
		return
	}

	snapshot := ctl.configs.Update(configstore.Snapshot{
		Title:          req.Title,
		WelcomeMessage: req.WelcomeMessage,
		Placeholder:    req.Placeholder,
		Theme:          req.Theme,
	})

	ctl.host.NotifyConfigChanged()
	if req.PreviewInstance != "" {
		ctl.hub.Forward(req.PreviewInstance, syncbus.NewNotification())
	}

	ctl.logger.Info("config updated", "version", snapshot.Version)
	c.JSON(http.StatusOK, gin.H{"config": snapshot})
}

// FetchConfig serves the current snapshot to widget surfaces
func (ctl *AdminController) FetchConfig(c *gin.Context) {
	snapshot, err := ctl.configs.FetchConfig(c.Request.Context(), c.GetString("embedToken"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{
			"code": "CONFIG_UNAVAILABLE", "message": "configuration could not be fetched",
		}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": snapshot})
}

type issueTokenRequest struct {
	VisitorID string `json:"visitor_id" binding:"required"`
	Origin    string `json:"origin" binding:"required"`
}

// IssueToken mints an embed token binding a visitor namespace to an origin
func (ctl *AdminController) IssueToken(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code": "BAD_PAYLOAD", "message": "visitor_id and origin are required",
		}})
		return
	}

	token, err := ctl.jwtService.GenerateToken(req.VisitorID, req.Origin)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// LiveInstances lists instances with a connected leaf
func (ctl *AdminController) LiveInstances(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"instances": ctl.hub.LiveInstances()})
}
