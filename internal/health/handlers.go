package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evolite/wabridge/internal/gateway"
	"github.com/evolite/wabridge/internal/session"
)

// Service and Version identify this deployment in health and info replies.
const (
	Service = "wabridge"
	Version = "1.0.0"
)

// Handlers contains the HTTP handlers for liveness and capability queries.
type Handlers struct {
	coord     *session.Coordinator
	hub       *gateway.Hub
	startTime time.Time
}

// NewHandlers creates a health handlers instance.
func NewHandlers(coord *session.Coordinator, hub *gateway.Hub) *Handlers {
	return &Handlers{
		coord:     coord,
		hub:       hub,
		startTime: time.Now(),
	}
}

// HealthHandler reports liveness. It always returns 200.
func (h *Handlers) HealthHandler(c *gin.Context) {
	total, connected := h.coord.Stats()

	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"service":         Service,
		"version":         Version,
		"uptime":          time.Since(h.startTime).String(),
		"total_sessions":  total,
		"active_sessions": connected,
		"ws_clients":      h.hub.Count(),
	})
}

// InfoHandler returns the static capability descriptor for web clients.
func (h *Handlers) InfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": Service,
		"version": Version,
		"websocket": gin.H{
			"path": "/ws",
			"listens": []string{
				gateway.CmdJoinSession,
				gateway.CmdInitSession,
				gateway.CmdSendMessage,
				gateway.CmdGetSessions,
				gateway.CmdGetQR,
				gateway.CmdLogoutSession,
			},
			"emits": []string{
				session.EventSessionStatus,
				session.EventSessionInitialized,
				session.EventQRGenerated,
				session.EventConnected,
				session.EventDisconnected,
				session.EventNewMessage,
				session.EventMessageSent,
				session.EventSessionsList,
				session.EventSessionLoggedOut,
				session.EventError,
			},
		},
	})
}
