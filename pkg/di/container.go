// Package di wires the engine's dependencies into one container the router
// and server entrypoint share.
package di

import (
	"context"
	"fmt"
	"time"

	"chat-widget-demo/engine/chat"
	"chat-widget-demo/engine/configstore"
	"chat-widget-demo/engine/internal/ws"
	"chat-widget-demo/engine/pkg/config"
	"chat-widget-demo/engine/pkg/health"
	"chat-widget-demo/engine/pkg/jwt"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/secrets"
	"chat-widget-demo/engine/pkg/store"
	"chat-widget-demo/engine/session"
	"chat-widget-demo/engine/widget"
)

// Container holds all the dependencies for the application
type Container struct {
	Config     *config.Config
	Logger     *logger.Logger
	Store      store.Store
	JWTService *jwt.Service
	Chat       chat.Service
	Configs    *configstore.MemoryStore
	Hub        *ws.Hub
	AdminHost  *widget.Host
	Health     *health.Checker
	Sweeper    *session.Sweeper
}

// New builds the container from configuration
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	if err := secrets.Init(log); err != nil {
		return nil, fmt.Errorf("failed to initialize secrets manager: %w", err)
	}

	backingStore, storePing, err := newStore(cfg, log)
	if err != nil {
		return nil, err
	}

	chatClient := chat.NewHTTPClient(log)

	configs := configstore.NewMemoryStore(configstore.Snapshot{
		Title:          "Assistant",
		WelcomeMessage: cfg.History.WelcomeMessage,
		Placeholder:    "Type a message...",
		Theme:          "light",
	})

	hub := ws.NewHub(cfg.Widget.AllowedOrigins, log)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterStoreCheck(storePing)
	checker.RegisterChatServiceCheck(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return chatClient.Ping(ctx)
	})

	index := session.NewIndex(backingStore, log)
	sweeper := session.NewSweeper(backingStore, index,
		cfg.Session.Retention, cfg.Session.SweepInterval, log)

	return &Container{
		Config:     cfg,
		Logger:     log,
		Store:      backingStore,
		JWTService: jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry),
		Chat:       chatClient,
		Configs:    configs,
		Hub:        hub,
		AdminHost:  widget.NewHost(nil, log),
		Health:     checker,
		Sweeper:    sweeper,
	}, nil
}

func newStore(cfg *config.Config, log *logger.Logger) (store.Store, func() error, error) {
	switch cfg.Store.Backend {
	case "redis":
		s := store.NewRedisStore("widget:", log)
		return s, s.Ping, nil
	case "postgres":
		db, err := config.NewDB()
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewGormStore(db, log)
		if err != nil {
			return nil, nil, err
		}
		ping := func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		}
		return s, ping, nil
	case "memory", "":
		s := store.NewMemoryStore()
		return s, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
