package session

import (
	"github.com/evolite/wabridge/internal/whatsapp"
)

// Event names emitted by the coordinator. The gateway relays them verbatim.
const (
	EventSessionStatus      = "session_status"
	EventSessionInitialized = "session_initialized"
	EventQRGenerated        = "qr_generated"
	EventConnected          = "connected"
	EventDisconnected       = "disconnected"
	EventNewMessage         = "new_message"
	EventMessageSent        = "message_sent"
	EventSessionsList       = "sessions_list"
	EventSessionLoggedOut   = "session_logged_out"
	EventError              = "error"
)

// StatusPayload answers a room join with the session's current state.
type StatusPayload struct {
	SessionID string         `json:"sessionId"`
	Status    string         `json:"status"`
	User      *whatsapp.User `json:"user,omitempty"`
}

// InitializedPayload acknowledges an init request.
type InitializedPayload struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}

// QRPayload carries a rendered pairing image. ExpiresAt is Unix milliseconds;
// clients self-expire the code from it.
type QRPayload struct {
	SessionID string `json:"sessionId"`
	QR        string `json:"qr"`
	ExpiresAt int64  `json:"expiresAt"`
	Message   string `json:"message,omitempty"`
}

// ConnectedPayload announces a successful open transition.
type ConnectedPayload struct {
	SessionID string         `json:"sessionId"`
	User      *whatsapp.User `json:"user,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// DisconnectedPayload announces a close transition.
type DisconnectedPayload struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason,omitempty"`
}

// InboundMessage is one relayed incoming message.
type InboundMessage struct {
	From      string `json:"from"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	ID        string `json:"id"`
}

// NewMessagePayload wraps an InboundMessage for room fanout.
type NewMessagePayload struct {
	SessionID string         `json:"sessionId"`
	Message   InboundMessage `json:"message"`
}

// MessageSentPayload confirms an outbound send to the requesting client.
type MessageSentPayload struct {
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	To        string `json:"to"`
	Timestamp string `json:"timestamp"`
}

// SessionsListPayload is the reply to a listing request.
type SessionsListPayload struct {
	Sessions []Info `json:"sessions"`
}

// LoggedOutPayload announces session teardown to the room.
type LoggedOutPayload struct {
	SessionID string `json:"sessionId"`
}

// ErrorPayload reports a session-scoped failure.
type ErrorPayload struct {
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error"`
}
