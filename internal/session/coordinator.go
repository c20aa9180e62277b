package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/evolite/wabridge/internal/qr"
	"github.com/evolite/wabridge/internal/whatsapp"
)

const (
	// QRValidity is the window during which a generated pairing code may be
	// scanned.
	QRValidity = 120 * time.Second

	// ReconnectDelay is how long a session waits after a non-logout close
	// before retrying the connection.
	ReconnectDelay = 5 * time.Second

	qrMessage = "Scan with WhatsApp within 2 minutes"

	// StatusConnected and StatusDisconnected are the values of the status
	// field in join replies.
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusWaitingQR    = "waiting_qr"
)

// Emitter delivers coordinator events either to a single client or to every
// client joined to a session's room. The gateway implements it; the
// coordinator never touches the transport.
type Emitter interface {
	ToClient(clientID, event string, payload any)
	ToRoom(sessionID, event string, payload any)
}

// Coordinator drives session state transitions in response to protocol
// connection updates and client commands. All entry points serialize on one
// mutex; suspension points (dialing, sending, protocol logout) run outside it
// so one session's I/O never blocks another session's transitions.
type Coordinator struct {
	mu       sync.Mutex
	store    *Store
	dialer   whatsapp.Dialer
	renderer qr.Renderer
	emitter  Emitter
	log      zerolog.Logger

	qrValidity     time.Duration
	reconnectDelay time.Duration
	now            func() time.Time

	// reconnects holds the pending retry timer per session ID, cancelled on
	// logout so a resurrected timer cannot act on a torn-down session.
	reconnects map[string]*time.Timer
}

// NewCoordinator creates a Coordinator over store using the given
// collaborators.
func NewCoordinator(store *Store, dialer whatsapp.Dialer, renderer qr.Renderer, emitter Emitter, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:          store,
		dialer:         dialer,
		renderer:       renderer,
		emitter:        emitter,
		log:            log,
		qrValidity:     QRValidity,
		reconnectDelay: ReconnectDelay,
		now:            time.Now,
		reconnects:     make(map[string]*time.Timer),
	}
}

// HandleJoin replies to a freshly joined client with the session's current
// status, plus the pending QR if one is still valid. Room enrollment itself
// is the gateway's job.
func (c *Coordinator) HandleJoin(clientID, sessionID string) {
	c.mu.Lock()
	status := StatusDisconnected
	var user *whatsapp.User
	var pending *PendingQR

	if sess, ok := c.store.Get(sessionID); ok {
		if sess.Connected {
			status = StatusConnected
		}
		user = sess.User
		if sess.QR != nil && c.now().Before(sess.QR.ExpiresAt) {
			pending = sess.QR
		}
	}
	c.mu.Unlock()

	c.emitter.ToClient(clientID, EventSessionStatus, StatusPayload{
		SessionID: sessionID,
		Status:    status,
		User:      user,
	})

	if pending != nil {
		c.emitter.ToClient(clientID, EventQRGenerated, QRPayload{
			SessionID: sessionID,
			QR:        pending.Image,
			ExpiresAt: pending.ExpiresAt.UnixMilli(),
			Message:   qrMessage,
		})
	}
}

// HandleInit starts a session for sessionID or reuses the existing one. An
// already-connected session short-circuits with a notification to the caller
// only; a stale disconnected entry is released and re-dialed.
func (c *Coordinator) HandleInit(ctx context.Context, clientID, sessionID string) {
	c.mu.Lock()
	if sess, ok := c.store.Get(sessionID); ok {
		if sess.Connected {
			user := sess.User
			c.mu.Unlock()
			c.emitter.ToClient(clientID, EventConnected, ConnectedPayload{
				SessionID: sessionID,
				User:      user,
				Message:   "Session already connected",
			})
			return
		}
		if sess.Handle != nil {
			sess.Handle.Close()
		}
		c.store.Remove(sessionID)
	}

	// Register the entry before dialing so connection updates arriving during
	// the dial find their session.
	c.store.Put(&Session{ID: sessionID})
	c.mu.Unlock()

	c.log.Info().Str("session", sessionID).Msg("Initializing WhatsApp session")

	handlers := whatsapp.Handlers{
		ConnectionUpdate: func(u whatsapp.Update) {
			c.HandleConnectionUpdate(sessionID, u)
		},
		Messages: func(batch []whatsapp.Message) {
			c.HandleMessages(sessionID, batch)
		},
	}

	handle, err := c.dialer.Dial(ctx, sessionID, handlers)

	c.mu.Lock()
	if err != nil {
		c.store.Remove(sessionID)
		c.mu.Unlock()
		c.log.Error().Err(err).Str("session", sessionID).Msg("Session initialization failed")
		c.emitter.ToClient(clientID, EventError, ErrorPayload{
			SessionID: sessionID,
			Error:     "Failed to initialize session",
		})
		return
	}

	sess, ok := c.store.Get(sessionID)
	if !ok {
		// Logged out while the dial was in flight.
		c.mu.Unlock()
		handle.Close()
		return
	}
	sess.Handle = handle
	c.mu.Unlock()

	c.emitter.ToClient(clientID, EventSessionInitialized, InitializedPayload{
		SessionID: sessionID,
		Status:    StatusWaitingQR,
	})
}

// HandleConnectionUpdate is the state-transition entry point driven by the
// protocol client.
func (c *Coordinator) HandleConnectionUpdate(sessionID string, update whatsapp.Update) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.store.Get(sessionID)
	if !ok {
		c.log.Debug().Str("session", sessionID).Msg("Dropping update for unknown session")
		return
	}

	if update.QR != "" {
		image, err := c.renderer.Render(update.QR)
		if err != nil {
			c.log.Error().Err(err).Str("session", sessionID).Msg("QR generation failed")
			c.emitter.ToRoom(sessionID, EventError, ErrorPayload{
				SessionID: sessionID,
				Error:     "QR generation failed",
			})
		} else {
			expiresAt := c.now().Add(c.qrValidity)
			sess.QR = &PendingQR{Image: image, ExpiresAt: expiresAt}
			c.log.Info().Str("session", sessionID).Msg("QR generated")
			c.emitter.ToRoom(sessionID, EventQRGenerated, QRPayload{
				SessionID: sessionID,
				QR:        image,
				ExpiresAt: expiresAt.UnixMilli(),
				Message:   qrMessage,
			})
		}
	}

	switch update.Event {
	case whatsapp.ConnOpen:
		sess.Connected = true
		sess.User = update.User
		sess.QR = nil
		c.cancelReconnect(sessionID)
		c.log.Info().Str("session", sessionID).Msg("WhatsApp connected")
		c.emitter.ToRoom(sessionID, EventConnected, ConnectedPayload{
			SessionID: sessionID,
			User:      update.User,
			Message:   "WhatsApp successfully connected!",
		})

	case whatsapp.ConnClosed:
		sess.Connected = false
		sess.User = nil
		c.log.Info().
			Str("session", sessionID).
			Int("code", int(update.Code)).
			Msg("WhatsApp disconnected")
		c.emitter.ToRoom(sessionID, EventDisconnected, DisconnectedPayload{
			SessionID: sessionID,
			Reason:    DisconnectReason(update.Code),
		})

		// A logout close is terminal; everything else gets one retry timer.
		if update.Code == whatsapp.CodeLoggedOut {
			c.cancelReconnect(sessionID)
		} else {
			c.scheduleReconnect(sessionID)
		}
	}
}

// HandleSendMessage sends a text message through an existing, connected
// session. Failures are surfaced to the requesting client only.
func (c *Coordinator) HandleSendMessage(ctx context.Context, clientID, sessionID, to, text string) {
	c.mu.Lock()
	sess, ok := c.store.Get(sessionID)
	if !ok || !sess.Connected || sess.Handle == nil {
		c.mu.Unlock()
		c.emitter.ToClient(clientID, EventError, ErrorPayload{
			SessionID: sessionID,
			Error:     "Session not connected",
		})
		return
	}
	handle := sess.Handle
	c.mu.Unlock()

	result, err := handle.SendText(ctx, to, text)
	if err != nil {
		c.log.Error().Err(err).Str("session", sessionID).Msg("Message send failed")
		c.emitter.ToClient(clientID, EventError, ErrorPayload{
			SessionID: sessionID,
			Error:     "Failed to send message: " + err.Error(),
		})
		return
	}

	c.log.Info().
		Str("session", sessionID).
		Str("to", to).
		Str("messageId", result.MessageID).
		Msg("Message sent")

	c.emitter.ToClient(clientID, EventMessageSent, MessageSentPayload{
		SessionID: sessionID,
		MessageID: result.MessageID,
		Status:    "sent",
		To:        to,
		Timestamp: result.Timestamp.UTC().Format(time.RFC3339),
	})
}

// HandleMessages relays an inbound batch to the session's room, dropping
// self-authored entries.
func (c *Coordinator) HandleMessages(sessionID string, batch []whatsapp.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, msg := range batch {
		if msg.FromMe {
			continue
		}
		c.emitter.ToRoom(sessionID, EventNewMessage, NewMessagePayload{
			SessionID: sessionID,
			Message: InboundMessage{
				From:      msg.From,
				Text:      messageText(msg),
				Timestamp: msg.Timestamp,
				ID:        msg.ID,
			},
		})
	}
}

// messageText falls back through the message's text alternatives.
func messageText(msg whatsapp.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	if msg.ExtendedText != "" {
		return msg.ExtendedText
	}
	return "Media message"
}

// HandleGetSessions replies to the caller with a snapshot of all stored
// sessions.
func (c *Coordinator) HandleGetSessions(clientID string) {
	c.mu.Lock()
	sessions := c.store.Snapshot()
	c.mu.Unlock()

	c.emitter.ToClient(clientID, EventSessionsList, SessionsListPayload{Sessions: sessions})
}

// HandleGetQR replies to the caller with the pending QR for sessionID, or an
// error if none is available.
func (c *Coordinator) HandleGetQR(clientID, sessionID string) {
	c.mu.Lock()
	var pending *PendingQR
	if sess, ok := c.store.Get(sessionID); ok {
		if sess.QR != nil && c.now().Before(sess.QR.ExpiresAt) {
			pending = sess.QR
		}
	}
	c.mu.Unlock()

	if pending == nil {
		c.emitter.ToClient(clientID, EventError, ErrorPayload{
			SessionID: sessionID,
			Error:     "No QR code available",
		})
		return
	}

	c.emitter.ToClient(clientID, EventQRGenerated, QRPayload{
		SessionID: sessionID,
		QR:        pending.Image,
		ExpiresAt: pending.ExpiresAt.UnixMilli(),
		Message:   qrMessage,
	})
}

// HandleLogout tears a session down: best-effort protocol logout, store
// removal, credential purge, room notification. Cleanup proceeds regardless
// of whether the protocol logout succeeds.
func (c *Coordinator) HandleLogout(ctx context.Context, sessionID string) {
	c.mu.Lock()
	c.cancelReconnect(sessionID)
	sess, ok := c.store.Get(sessionID)
	if ok {
		c.store.Remove(sessionID)
	}
	c.mu.Unlock()

	if ok && sess.Handle != nil {
		if err := sess.Handle.Logout(ctx); err != nil {
			c.log.Warn().Err(err).Str("session", sessionID).Msg("Protocol logout failed, continuing cleanup")
		}
		sess.Handle.Close()
	}

	if err := c.dialer.RemoveCredentials(sessionID); err != nil {
		c.log.Warn().Err(err).Str("session", sessionID).Msg("Failed to remove session credentials")
	}

	c.log.Info().Str("session", sessionID).Msg("Session logged out")
	c.emitter.ToRoom(sessionID, EventSessionLoggedOut, LoggedOutPayload{SessionID: sessionID})
}

// Stats returns the total and connected session counts for health reporting.
func (c *Coordinator) Stats() (total, connected int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	total = c.store.Count()
	for _, info := range c.store.Snapshot() {
		if info.IsConnected {
			connected++
		}
	}
	return total, connected
}

// scheduleReconnect arms the retry timer for sessionID unless one is already
// pending. Callers hold c.mu.
func (c *Coordinator) scheduleReconnect(sessionID string) {
	if _, pending := c.reconnects[sessionID]; pending {
		return
	}
	c.reconnects[sessionID] = time.AfterFunc(c.reconnectDelay, func() {
		c.reconnect(sessionID)
	})
}

// cancelReconnect stops a pending retry, if any. Callers hold c.mu.
func (c *Coordinator) cancelReconnect(sessionID string) {
	if timer, pending := c.reconnects[sessionID]; pending {
		timer.Stop()
		delete(c.reconnects, sessionID)
	}
}

// reconnect is the timer body. It is a no-op against sessions that have been
// logged out, reconnected, or never got a handle.
func (c *Coordinator) reconnect(sessionID string) {
	c.mu.Lock()
	delete(c.reconnects, sessionID)
	sess, ok := c.store.Get(sessionID)
	if !ok || sess.Connected || sess.Handle == nil {
		c.mu.Unlock()
		return
	}
	handle := sess.Handle
	c.mu.Unlock()

	// Store state can lag the socket; an already-live handle needs no retry.
	if handle.IsConnected() {
		return
	}

	c.log.Info().Str("session", sessionID).Msg("Attempting to reconnect session")
	if err := handle.Connect(); err != nil {
		c.log.Warn().Err(err).Str("session", sessionID).Msg("Reconnect attempt failed")
	}
}
