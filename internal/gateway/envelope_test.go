package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommandSessionCommands(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Command
	}{
		{"join bare string", `{"event":"join_session","data":"s1"}`, JoinSession{SessionID: "s1"}},
		{"join wrapped object", `{"event":"join_session","data":{"sessionId":"s1"}}`, JoinSession{SessionID: "s1"}},
		{"init", `{"event":"init_session","data":"work"}`, InitSession{SessionID: "work"}},
		{"get_qr", `{"event":"get_qr","data":{"sessionId":"s1"}}`, GetQR{SessionID: "s1"}},
		{"logout", `{"event":"logout_session","data":"s1"}`, LogoutSession{SessionID: "s1"}},
		{"get_sessions ignores data", `{"event":"get_sessions"}`, GetSessions{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, cmd)
		})
	}
}

func TestDecodeCommandSendMessage(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"event":"send_message","data":{"sessionId":"s1","to":"123","message":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, SendMessage{SessionID: "s1", To: "123", Message: "hi"}, cmd)

	// Empty message text is allowed; the recipient and session are not.
	cmd, err = DecodeCommand([]byte(`{"event":"send_message","data":{"sessionId":"s1","to":"123"}}`))
	require.NoError(t, err)
	assert.Equal(t, SendMessage{SessionID: "s1", To: "123"}, cmd)
}

func TestDecodeCommandRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `hello there`},
		{"missing event", `{"data":"s1"}`},
		{"unknown event", `{"event":"drop_tables","data":"s1"}`},
		{"join without data", `{"event":"join_session"}`},
		{"join empty string", `{"event":"join_session","data":""}`},
		{"join empty object", `{"event":"join_session","data":{}}`},
		{"send without sessionId", `{"event":"send_message","data":{"to":"123","message":"hi"}}`},
		{"send without recipient", `{"event":"send_message","data":{"sessionId":"s1","message":"hi"}}`},
		{"send non-object payload", `{"event":"send_message","data":"s1"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tc.raw))
			assert.Error(t, err)
			assert.Nil(t, cmd)
		})
	}
}
