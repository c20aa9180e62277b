package session

import (
	"fmt"

	"github.com/evolite/wabridge/internal/whatsapp"
)

// disconnectReasons is the fixed table of client-facing close descriptions.
var disconnectReasons = map[whatsapp.CloseCode]string{
	whatsapp.CodeConnectionClosed:   "Connection closed",
	whatsapp.CodeConnectionLost:     "Connection lost",
	whatsapp.CodeConnectionReplaced: "Connection replaced",
	whatsapp.CodeRestartRequired:    "Restart required",
	whatsapp.CodeTimedOut:           "Connection timed out",
}

// DisconnectReason maps a protocol close code to its description.
func DisconnectReason(code whatsapp.CloseCode) string {
	if reason, ok := disconnectReasons[code]; ok {
		return reason
	}
	return fmt.Sprintf("Unknown reason (code: %d)", code)
}
