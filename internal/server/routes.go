package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evolite/wabridge/internal/gateway"
	"github.com/evolite/wabridge/internal/health"
	"github.com/evolite/wabridge/internal/session"
)

// SetupRoutes configures all the routes for the application
func (s *Server) SetupRoutes(gw *gateway.Gateway, coord *session.Coordinator, hub *gateway.Hub) {
	healthHandlers := health.NewHandlers(coord, hub)
	s.router.GET("/api/health", healthHandlers.HealthHandler)
	s.router.GET("/api/info", healthHandlers.InfoHandler)

	s.router.GET("/ws", func(c *gin.Context) {
		gw.HandleWS(c.Writer, c.Request)
	})

	// Static web client at / when a public directory is present.
	s.setupStatic()
}

func (s *Server) setupStatic() {
	publicDir := s.config.PublicDir
	if info, err := os.Stat(publicDir); err != nil || !info.IsDir() {
		s.log.Debug().Str("dir", publicDir).Msg("No public directory, static serving disabled")
		return
	}

	fileServer := http.FileServer(http.Dir(publicDir))
	s.router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		// Fall back to index.html for client-side routes.
		requested := filepath.Join(publicDir, filepath.Clean(c.Request.URL.Path))
		if _, err := os.Stat(requested); err != nil {
			c.File(filepath.Join(publicDir, "index.html"))
			return
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	})
}
