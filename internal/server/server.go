package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/evolite/wabridge/internal/config"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	srv    *http.Server
	config *config.Config
	log    zerolog.Logger
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cfg.GetCorsConfig()))

	return &Server{
		router: r,
		config: cfg,
		log:    log,
	}
}

// Router returns the gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:    ":" + s.config.ServerPort,
		Handler: s.router,
	}

	go func() {
		s.log.Info().Str("port", s.config.ServerPort).Msg("🚀 wabridge running")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("Server error")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}

	s.log.Info().Msg("🚫 Shutting down server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.log.Info().Msg("Server exited")
	return nil
}
