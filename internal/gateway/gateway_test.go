package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolite/wabridge/internal/session"
	"github.com/evolite/wabridge/internal/whatsapp"
)

// stubConn is the protocol handle behind the fake dialer.
type stubConn struct {
	mu        sync.Mutex
	connected bool
	result    whatsapp.SendResult
}

func (s *stubConn) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *stubConn) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *stubConn) SendText(_ context.Context, _, _ string) (whatsapp.SendResult, error) {
	return s.result, nil
}

func (s *stubConn) Logout(_ context.Context) error { return nil }

func (s *stubConn) Close() {}

type stubDialer struct {
	mu       sync.Mutex
	conn     *stubConn
	handlers whatsapp.Handlers
}

func (d *stubDialer) Dial(_ context.Context, _ string, h whatsapp.Handlers) (whatsapp.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = h
	return d.conn, nil
}

func (d *stubDialer) RemoveCredentials(_ string) error { return nil }

// update feeds a connection update through the handlers captured at dial time.
func (d *stubDialer) update(u whatsapp.Update) {
	d.mu.Lock()
	h := d.handlers
	d.mu.Unlock()
	h.ConnectionUpdate(u)
}

func (d *stubDialer) messages(batch []whatsapp.Message) {
	d.mu.Lock()
	h := d.handlers
	d.mu.Unlock()
	h.Messages(batch)
}

type stubRenderer struct{}

func (stubRenderer) Render(token string) (string, error) {
	return "data:image/png;base64,img-" + token, nil
}

type gatewayFixture struct {
	server *httptest.Server
	dialer *stubDialer
	conn   *stubConn
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	f := &gatewayFixture{conn: &stubConn{}}
	f.dialer = &stubDialer{conn: f.conn}

	hub := NewHub(zerolog.Nop())
	coord := session.NewCoordinator(session.NewStore(), f.dialer, stubRenderer{}, hub, zerolog.Nop())
	gw := NewGateway(hub, coord, zerolog.Nop())

	f.server = httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	t.Cleanup(f.server.Close)
	return f
}

func (f *gatewayFixture) dialWS(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		require.NoError(t, err)
		raw = b
	}
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: raw}))
}

func recvEvent(t *testing.T, conn *websocket.Conn, wantEvent string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Equal(t, wantEvent, env.Event, "payload: %s", env.Data)
	return env.Data
}

func TestGatewayJoinRepliesWithStatus(t *testing.T) {
	f := newGatewayFixture(t)
	ws := f.dialWS(t)

	send(t, ws, CmdJoinSession, "s1")

	data := recvEvent(t, ws, session.EventSessionStatus)
	var status session.StatusPayload
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, "s1", status.SessionID)
	assert.Equal(t, session.StatusDisconnected, status.Status)
}

func TestGatewayRejectsMalformedFrames(t *testing.T) {
	f := newGatewayFixture(t)
	ws := f.dialWS(t)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	data := recvEvent(t, ws, session.EventError)
	var errPayload session.ErrorPayload
	require.NoError(t, json.Unmarshal(data, &errPayload))
	assert.NotEmpty(t, errPayload.Error)

	send(t, ws, "bogus_event", "s1")
	recvEvent(t, ws, session.EventError)

	// The connection survives rejected frames.
	send(t, ws, CmdGetSessions, nil)
	recvEvent(t, ws, session.EventSessionsList)
}

func TestGatewayFullSessionLifecycle(t *testing.T) {
	f := newGatewayFixture(t)
	sentAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.conn.result = whatsapp.SendResult{MessageID: "3EB0ABC", Timestamp: sentAt}

	ws1 := f.dialWS(t)

	// Join then init.
	send(t, ws1, CmdJoinSession, "s1")
	recvEvent(t, ws1, session.EventSessionStatus)

	send(t, ws1, CmdInitSession, "s1")
	data := recvEvent(t, ws1, session.EventSessionInitialized)
	var init session.InitializedPayload
	require.NoError(t, json.Unmarshal(data, &init))
	assert.Equal(t, session.StatusWaitingQR, init.Status)

	// Pairing token arrives from the protocol side.
	f.dialer.update(whatsapp.Update{QR: "pair-token"})
	data = recvEvent(t, ws1, session.EventQRGenerated)
	var qrPayload session.QRPayload
	require.NoError(t, json.Unmarshal(data, &qrPayload))
	assert.Equal(t, "data:image/png;base64,img-pair-token", qrPayload.QR)
	assert.Greater(t, qrPayload.ExpiresAt, time.Now().UnixMilli())

	// A late joiner gets the current status plus the pending QR replayed.
	ws2 := f.dialWS(t)
	send(t, ws2, CmdJoinSession, "s1")
	recvEvent(t, ws2, session.EventSessionStatus)
	recvEvent(t, ws2, session.EventQRGenerated)

	// Scan succeeds: the whole room hears about it.
	f.conn.Connect()
	f.dialer.update(whatsapp.Update{
		Event: whatsapp.ConnOpen,
		User:  &whatsapp.User{ID: "me@s.whatsapp.net", Name: "Me"},
	})
	for _, ws := range []*websocket.Conn{ws1, ws2} {
		data = recvEvent(t, ws, session.EventConnected)
		var connected session.ConnectedPayload
		require.NoError(t, json.Unmarshal(data, &connected))
		assert.Equal(t, "me@s.whatsapp.net", connected.User.ID)
	}

	// Inbound message fans out to the room.
	f.dialer.messages([]whatsapp.Message{
		{ID: "m1", From: "123@s.whatsapp.net", Text: "hello", Timestamp: 1700000000},
	})
	for _, ws := range []*websocket.Conn{ws1, ws2} {
		data = recvEvent(t, ws, session.EventNewMessage)
		var inbound session.NewMessagePayload
		require.NoError(t, json.Unmarshal(data, &inbound))
		assert.Equal(t, "hello", inbound.Message.Text)
	}

	// Outbound send confirms to the sender only.
	send(t, ws1, CmdSendMessage, map[string]string{
		"sessionId": "s1", "to": "123", "message": "hi",
	})
	data = recvEvent(t, ws1, session.EventMessageSent)
	var sent session.MessageSentPayload
	require.NoError(t, json.Unmarshal(data, &sent))
	assert.Equal(t, "3EB0ABC", sent.MessageID)
	assert.Equal(t, "sent", sent.Status)
	assert.Equal(t, sentAt.Format(time.RFC3339), sent.Timestamp)

	// ws2 saw nothing of the send; its next frame answers its own request.
	send(t, ws2, CmdGetSessions, nil)
	data = recvEvent(t, ws2, session.EventSessionsList)
	var list session.SessionsListPayload
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list.Sessions, 1)
	assert.True(t, list.Sessions[0].IsConnected)

	// Logout notifies the room.
	send(t, ws1, CmdLogoutSession, "s1")
	for _, ws := range []*websocket.Conn{ws1, ws2} {
		recvEvent(t, ws, session.EventSessionLoggedOut)
	}
}

func TestGatewayGetQRWithoutPendingCode(t *testing.T) {
	f := newGatewayFixture(t)
	ws := f.dialWS(t)

	send(t, ws, CmdGetQR, "s1")
	data := recvEvent(t, ws, session.EventError)
	var errPayload session.ErrorPayload
	require.NoError(t, json.Unmarshal(data, &errPayload))
	assert.Equal(t, "No QR code available", errPayload.Error)
}
