package gateway

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/evolite/wabridge/internal/session"
)

// Gateway is the WebSocket-facing adapter: it upgrades connections, decodes
// inbound frames into coordinator calls and relays coordinator emissions
// through the hub. It performs no business validation beyond the envelope.
type Gateway struct {
	hub      *Hub
	coord    *session.Coordinator
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewGateway creates a Gateway over hub dispatching to coord.
func NewGateway(hub *Hub, coord *session.Coordinator, log zerolog.Logger) *Gateway {
	return &Gateway{
		hub:   hub,
		coord: coord,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS upgrades the request and serves the connection until it closes.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := newClient(uuid.NewString(), conn)
	g.hub.add(client)
	go client.writePump()

	g.log.Info().
		Str("clientId", client.ID).
		Str("ip", r.RemoteAddr).
		Msg("Client connected")

	g.readLoop(client)
}

func (g *Gateway) readLoop(c *Client) {
	defer func() {
		g.hub.remove(c)
		c.conn.Close()
		g.log.Info().Str("clientId", c.ID).Msg("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Warn().Err(err).Str("clientId", c.ID).Msg("WebSocket read error")
			}
			return
		}
		g.dispatch(c, raw)
	}
}

// dispatch decodes one frame and routes it to the coordinator. Commands with
// blocking I/O run on their own goroutine so the read loop stays responsive.
func (g *Gateway) dispatch(c *Client, raw []byte) {
	cmd, err := DecodeCommand(raw)
	if err != nil {
		g.log.Debug().Err(err).Str("clientId", c.ID).Msg("Rejected inbound frame")
		g.hub.ToClient(c.ID, session.EventError, session.ErrorPayload{Error: err.Error()})
		return
	}

	switch cmd := cmd.(type) {
	case JoinSession:
		g.hub.join(c, cmd.SessionID)
		g.log.Info().
			Str("clientId", c.ID).
			Str("session", cmd.SessionID).
			Msg("Client joined session")
		g.coord.HandleJoin(c.ID, cmd.SessionID)

	case InitSession:
		go g.coord.HandleInit(context.Background(), c.ID, cmd.SessionID)

	case SendMessage:
		go g.coord.HandleSendMessage(context.Background(), c.ID, cmd.SessionID, cmd.To, cmd.Message)

	case GetSessions:
		g.coord.HandleGetSessions(c.ID)

	case GetQR:
		g.coord.HandleGetQR(c.ID, cmd.SessionID)

	case LogoutSession:
		go g.coord.HandleLogout(context.Background(), cmd.SessionID)
	}
}
