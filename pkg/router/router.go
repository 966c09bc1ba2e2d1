package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"chat-widget-demo/engine/internal/api"
	"chat-widget-demo/engine/pkg/config"
	"chat-widget-demo/engine/pkg/di"
	"chat-widget-demo/engine/pkg/errors"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/middleware"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)
	cfg := container.Config

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit:          rate.Limit(cfg.Security.RateLimit),
		Burst:          cfg.Security.RateLimitBurst,
		ExpiryDuration: middleware.DefaultRateLimiterOptions().ExpiryDuration,
		KeyFunc:        middleware.DefaultRateLimiterOptions().KeyFunc,
	})
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers every endpoint
func (r *Router) SetupRoutes() {
	c := r.Container

	// Operational endpoints
	r.Engine.GET("/health", gin.WrapF(c.Health.HTTPHandler()))
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Cross-context notification transport
	r.Engine.GET("/ws/widget/:instanceId", c.Hub.ServeWS)

	// Widget surfaces (embed, direct link, admin preview) authenticate with
	// an embed token
	widgetGroup := r.Engine.Group("/api/widget")
	widgetGroup.Use(api.WidgetAuthMiddleware(c.JWTService))

	sessionCtl := api.NewSessionController(c.Store, r.Config, r.Logger)
	sessionCtl.RegisterRoutes(widgetGroup)

	messageCtl := api.NewMessageController(c.Store, c.Chat, r.Config, r.Logger)
	messageCtl.RegisterRoutes(widgetGroup)

	feedbackCtl := api.NewFeedbackController(c.Store, c.Chat, r.Config, r.Logger)
	feedbackCtl.RegisterRoutes(widgetGroup)

	// Administrative surface
	adminGroup := r.Engine.Group("/api/admin")
	adminGroup.Use(api.AdminAuthMiddleware(r.Config.Security.AdminKeyHash))

	adminCtl := api.NewAdminController(c.Configs, c.AdminHost, c.Hub, c.JWTService, r.Logger)
	adminCtl.RegisterRoutes(adminGroup, widgetGroup)
}
