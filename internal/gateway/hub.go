package gateway

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Hub tracks connected clients and their room membership, and performs the
// fanout for coordinator emissions. It implements session.Emitter.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	// rooms maps a session ID to the clients joined to it.
	rooms map[string]map[string]*Client
	// joined maps a client to its most recently joined session. It is
	// best-effort bookkeeping for cleanup and logging, not authoritative
	// membership: a later join overwrites the mapping.
	joined map[string]string
	log    zerolog.Logger
}

// NewHub creates an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		joined:  make(map[string]string),
		log:     log,
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// remove drops the client from its room and closes its send channel,
// stopping the write pump.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[c.ID]; !exists {
		return
	}
	delete(h.clients, c.ID)

	if sessionID, ok := h.joined[c.ID]; ok {
		h.leaveRoomLocked(c.ID, sessionID)
		delete(h.joined, c.ID)
		h.log.Info().
			Str("clientId", c.ID).
			Str("session", sessionID).
			Msg("Client disconnected from session")
	}

	close(c.send)
}

// join enrolls the client in sessionID's room, leaving any previous room.
func (h *Hub) join(c *Client, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if previous, ok := h.joined[c.ID]; ok && previous != sessionID {
		h.leaveRoomLocked(c.ID, previous)
	}

	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[sessionID] = room
	}
	room[c.ID] = c
	h.joined[c.ID] = sessionID
}

func (h *Hub) leaveRoomLocked(clientID, sessionID string) {
	if room, ok := h.rooms[sessionID]; ok {
		delete(room, clientID)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}
}

// ToClient delivers an event to a single client.
func (h *Hub) ToClient(clientID, event string, payload any) {
	msg, err := encodeEnvelope(event, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.clients[clientID]; ok {
		h.deliver(c, event, msg)
	}
}

// ToRoom fans an event out to every client joined to sessionID's room.
func (h *Hub) ToRoom(sessionID, event string, payload any) {
	msg, err := encodeEnvelope(event, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[sessionID] {
		h.deliver(c, event, msg)
	}
}

// deliver queues msg for c without blocking; a client with a full send
// buffer has the frame dropped rather than stalling the fanout. Callers hold
// h.mu at least for reading: remove closes c.send under the write lock, so a
// send here can never race the close.
func (h *Hub) deliver(c *Client, event string, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.Warn().
			Str("clientId", c.ID).
			Str("event", event).
			Msg("Dropping event for slow client")
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
