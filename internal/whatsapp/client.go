package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

// meowClient wraps a whatsmeow client plus its auth-state container and
// translates whatsmeow events into the collaborator contract.
type meowClient struct {
	wc        *whatsmeow.Client
	container *sqlstore.Container
	handlers  Handlers
	log       zerolog.Logger
}

func (c *meowClient) Connect() error {
	if c.wc.IsConnected() {
		return nil
	}
	return c.wc.Connect()
}

func (c *meowClient) IsConnected() bool {
	return c.wc.IsConnected()
}

// SendText sends a plain text message. to may be a bare phone number or a
// full JID.
func (c *meowClient) SendText(ctx context.Context, to, text string) (SendResult, error) {
	recipient, err := parseRecipient(to)
	if err != nil {
		return SendResult{}, err
	}

	msg := &waE2E.Message{
		Conversation: proto.String(text),
	}

	resp, err := c.wc.SendMessage(ctx, recipient, msg)
	if err != nil {
		return SendResult{}, err
	}

	return SendResult{
		MessageID: string(resp.ID),
		Timestamp: resp.Timestamp,
	}, nil
}

func (c *meowClient) Logout(ctx context.Context) error {
	return c.wc.Logout(ctx)
}

// Close releases the connection and its auth-state container. The client
// must not be used afterwards.
func (c *meowClient) Close() {
	if c.wc.IsConnected() {
		c.wc.Disconnect()
	}
	if c.container != nil {
		c.container.Close()
	}
}

// pumpQR forwards pairing tokens from the QR channel as connection updates.
// The channel is closed by whatsmeow once pairing succeeds or times out.
func (c *meowClient) pumpQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.emit(Update{QR: item.Code})
		case whatsmeow.QRChannelEventError:
			c.log.Error().Err(item.Error).Msg("QR channel error")
		default:
			c.log.Debug().Str("event", item.Event).Msg("QR channel closed")
		}
	}
}

func (c *meowClient) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		c.emit(Update{Event: ConnOpen, User: c.currentUser()})

	case *events.LoggedOut:
		if e.OnConnect {
			c.log.Info().Str("reason", e.Reason.String()).Msg("Logged out on connect")
		} else {
			c.log.Info().Msg("Logged out (stream error)")
		}
		c.emit(Update{Event: ConnClosed, Code: CodeLoggedOut})

	case *events.StreamReplaced:
		c.emit(Update{Event: ConnClosed, Code: CodeConnectionReplaced})

	case *events.KeepAliveTimeout:
		c.emit(Update{Event: ConnClosed, Code: CodeTimedOut})

	case *events.StreamError:
		c.log.Warn().Str("code", e.Code).Msg("Stream error")
		c.emit(Update{Event: ConnClosed, Code: CodeConnectionClosed})

	case *events.Disconnected:
		c.emit(Update{Event: ConnClosed, Code: CodeConnectionLost})

	case *events.Message:
		if c.handlers.Messages == nil {
			return
		}
		c.handlers.Messages([]Message{{
			ID:           string(e.Info.ID),
			From:         e.Info.Sender.String(),
			FromMe:       e.Info.IsFromMe,
			Text:         e.Message.GetConversation(),
			ExtendedText: e.Message.GetExtendedTextMessage().GetText(),
			Timestamp:    e.Info.Timestamp.Unix(),
		}})
	}
}

func (c *meowClient) emit(u Update) {
	if c.handlers.ConnectionUpdate != nil {
		c.handlers.ConnectionUpdate(u)
	}
}

func (c *meowClient) currentUser() *User {
	id := c.wc.Store.ID
	if id == nil {
		return nil
	}
	return &User{
		ID:   id.String(),
		Name: c.wc.Store.PushName,
	}
}

func parseRecipient(to string) (types.JID, error) {
	if strings.ContainsRune(to, '@') {
		jid, err := types.ParseJID(to)
		if err != nil {
			return types.EmptyJID, fmt.Errorf("invalid recipient %q: %w", to, err)
		}
		return jid, nil
	}
	return types.JID{User: to, Server: types.DefaultUserServer}, nil
}
