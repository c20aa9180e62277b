package whatsapp

import (
	"context"
	"time"
)

// User identifies the WhatsApp account behind a connected session.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Message is a single inbound message delivered by the protocol connection.
type Message struct {
	ID           string
	From         string
	FromMe       bool
	Text         string
	ExtendedText string
	Timestamp    int64
}

// ConnEvent distinguishes the connection transitions carried by an Update.
type ConnEvent int

const (
	ConnNone ConnEvent = iota
	ConnOpen
	ConnClosed
)

// CloseCode classifies why a protocol connection closed.
type CloseCode int

const (
	CodeUnknown            CloseCode = 0
	CodeLoggedOut          CloseCode = 401
	CodeConnectionLost     CloseCode = 408
	CodeConnectionClosed   CloseCode = 428
	CodeConnectionReplaced CloseCode = 440
	CodeTimedOut           CloseCode = 504
	CodeRestartRequired    CloseCode = 515
)

// Update describes a change in the state of an underlying connection. QR is
// set when a fresh pairing token should be shown; Event carries open/close
// transitions; Code is only meaningful for ConnClosed.
type Update struct {
	QR    string
	Event ConnEvent
	Code  CloseCode
	User  *User
}

// Handlers receive asynchronous events for one session's connection.
// Credential updates are persisted by the auth-state store itself and have no
// handler here.
type Handlers struct {
	ConnectionUpdate func(Update)
	Messages         func([]Message)
}

// SendResult reports the outcome of a successful send.
type SendResult struct {
	MessageID string
	Timestamp time.Time
}

// Client is the per-session handle on a protocol connection. A Client is
// exclusively owned by one session; Close releases it.
type Client interface {
	Connect() error
	IsConnected() bool
	SendText(ctx context.Context, to, text string) (SendResult, error)
	Logout(ctx context.Context) error
	Close()
}

// Dialer opens protocol connections and owns the on-disk credential layout.
type Dialer interface {
	Dial(ctx context.Context, sessionID string, h Handlers) (Client, error)
	RemoveCredentials(sessionID string) error
}
