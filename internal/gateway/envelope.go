package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names accepted from clients.
const (
	CmdJoinSession   = "join_session"
	CmdInitSession   = "init_session"
	CmdSendMessage   = "send_message"
	CmdGetSessions   = "get_sessions"
	CmdGetQR         = "get_qr"
	CmdLogoutSession = "logout_session"
)

// Envelope is the wire framing in both directions: a named event plus its
// JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Command is the closed set of validated inbound messages. Anything that does
// not decode into one of these never reaches the coordinator.
type Command interface {
	isCommand()
}

// JoinSession enrolls the caller in a session's room.
type JoinSession struct {
	SessionID string
}

// InitSession starts or reuses a session.
type InitSession struct {
	SessionID string
}

// SendMessage sends a text message through a session.
type SendMessage struct {
	SessionID string
	To        string
	Message   string
}

// GetSessions requests the session listing.
type GetSessions struct{}

// GetQR requests the pending pairing code for a session.
type GetQR struct {
	SessionID string
}

// LogoutSession tears a session down.
type LogoutSession struct {
	SessionID string
}

func (JoinSession) isCommand()   {}
func (InitSession) isCommand()   {}
func (SendMessage) isCommand()   {}
func (GetSessions) isCommand()   {}
func (GetQR) isCommand()         {}
func (LogoutSession) isCommand() {}

// DecodeCommand parses and validates one inbound frame.
func DecodeCommand(raw []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch env.Event {
	case CmdJoinSession:
		id, err := decodeSessionID(env.Data)
		if err != nil {
			return nil, err
		}
		return JoinSession{SessionID: id}, nil

	case CmdInitSession:
		id, err := decodeSessionID(env.Data)
		if err != nil {
			return nil, err
		}
		return InitSession{SessionID: id}, nil

	case CmdSendMessage:
		var p struct {
			SessionID string `json:"sessionId"`
			To        string `json:"to"`
			Message   string `json:"message"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("malformed send_message payload: %w", err)
		}
		if p.SessionID == "" {
			return nil, errors.New("send_message requires sessionId")
		}
		if p.To == "" {
			return nil, errors.New("send_message requires a recipient")
		}
		return SendMessage{SessionID: p.SessionID, To: p.To, Message: p.Message}, nil

	case CmdGetSessions:
		return GetSessions{}, nil

	case CmdGetQR:
		id, err := decodeSessionID(env.Data)
		if err != nil {
			return nil, err
		}
		return GetQR{SessionID: id}, nil

	case CmdLogoutSession:
		id, err := decodeSessionID(env.Data)
		if err != nil {
			return nil, err
		}
		return LogoutSession{SessionID: id}, nil

	case "":
		return nil, errors.New("missing event name")

	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
}

// decodeSessionID accepts the session identifier either as a bare JSON string
// or wrapped in an object under "sessionId".
func decodeSessionID(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		if id == "" {
			return "", errors.New("empty sessionId")
		}
		return id, nil
	}

	var wrapped struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil || wrapped.SessionID == "" {
		return "", errors.New("missing sessionId")
	}
	return wrapped.SessionID, nil
}
