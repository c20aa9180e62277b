package whatsapp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mau.fi/whatsmeow/types"
)

func TestValidateSessionID(t *testing.T) {
	valid := []string{"s1", "work-account", "user_42", "0031612345678"}
	for _, id := range valid {
		assert.NoError(t, validateSessionID(id), id)
	}

	invalid := []string{"", ".", "..", "a/b", `a\b`, "../escape", "/etc/passwd"}
	for _, id := range invalid {
		assert.Error(t, validateSessionID(id), id)
	}
}

func TestRemoveCredentials(t *testing.T) {
	root := t.TempDir()
	dialer := NewDialer(root, zerolog.Nop())

	dir := filepath.Join(root, "s1")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.db"), []byte("creds"), 0644))

	require.NoError(t, dialer.RemoveCredentials("s1"))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// Absent session is fine, traversal is not.
	assert.NoError(t, dialer.RemoveCredentials("never-existed"))
	assert.Error(t, dialer.RemoveCredentials("../outside"))
}

func TestParseRecipient(t *testing.T) {
	jid, err := parseRecipient("31612345678")
	require.NoError(t, err)
	assert.Equal(t, "31612345678", jid.User)
	assert.Equal(t, types.DefaultUserServer, jid.Server)

	jid, err = parseRecipient("31612345678@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, "31612345678", jid.User)
	assert.Equal(t, "s.whatsapp.net", jid.Server)

	_, err = parseRecipient("123:bad-device@s.whatsapp.net")
	assert.Error(t, err)
}
