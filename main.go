package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evolite/wabridge/internal/config"
	"github.com/evolite/wabridge/internal/gateway"
	"github.com/evolite/wabridge/internal/qr"
	"github.com/evolite/wabridge/internal/server"
	"github.com/evolite/wabridge/internal/session"
	"github.com/evolite/wabridge/internal/whatsapp"
	"github.com/evolite/wabridge/pkg/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.Setup(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log = logger.SetupFallback(cfg.LogLevel)
		log.Warn().Err(err).Msg("File logging unavailable, using console only")
	}
	defer logger.Close()

	if err := cfg.EnsureSessionsDir(); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.SessionsDir).Msg("Failed to create sessions directory")
	}

	store := session.NewStore()
	dialer := whatsapp.NewDialer(cfg.SessionsDir, log)
	renderer := qr.NewPNGRenderer()

	hub := gateway.NewHub(log)
	coord := session.NewCoordinator(store, dialer, renderer, hub, log)
	gw := gateway.NewGateway(hub, coord, log)

	srv := server.NewServer(cfg, log)
	srv.SetupRoutes(gw, coord, hub)

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}
