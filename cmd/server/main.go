package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-widget-demo/engine/pkg/config"
	"chat-widget-demo/engine/pkg/di"
	"chat-widget-demo/engine/pkg/logger"
	"chat-widget-demo/engine/pkg/metrics"
	"chat-widget-demo/engine/pkg/router"
)

func main() {
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("starting widget engine",
		"env", cfg.Server.Env,
		"store_backend", cfg.Store.Backend,
	)

	container, err := di.New(cfg, log)
	if err != nil {
		log.LogError(err, "failed to initialize dependency container")
		os.Exit(1)
	}

	mp := metrics.SetupMeterProvider("widget-engine", log)

	container.Health.Start()

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go container.Sweeper.Run(sweepCtx)

	r := router.New(container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r.Engine,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "server forced to shutdown")
	}
	if mp != nil {
		_ = mp.Shutdown(ctx)
	}

	log.Info("server exited gracefully")
}
