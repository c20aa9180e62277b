package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "github.com/mattn/go-sqlite3"
)

// MeowDialer dials WhatsApp through whatsmeow with per-session sqlite
// auth-state containers under sessionsDir/<id>/.
type MeowDialer struct {
	sessionsDir string
	log         zerolog.Logger
}

// NewDialer creates a MeowDialer rooted at sessionsDir.
func NewDialer(sessionsDir string, log zerolog.Logger) *MeowDialer {
	return &MeowDialer{
		sessionsDir: sessionsDir,
		log:         log,
	}
}

// Dial creates a client for sessionID, wires its event subscriptions and
// starts the connection. The QR channel must be claimed before Connect or
// whatsmeow prints the code to the terminal instead.
func (d *MeowDialer) Dial(ctx context.Context, sessionID string, h Handlers) (Client, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	dir := filepath.Join(d.sessionsDir, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	dbPath := filepath.Join(dir, "session.db")
	dbLog := waLog.Zerolog(d.log.With().Str("session", sessionID).Str("component", "sqlstore").Logger())

	container, err := sqlstore.New(ctx, "sqlite3", "file:"+dbPath+"?_foreign_keys=on", dbLog)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("device error: %w", err)
	}

	store.SetOSInfo("Linux", store.GetWAVersion())
	store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()

	clientLog := waLog.Zerolog(d.log.With().Str("session", sessionID).Str("component", "whatsmeow").Logger())
	wc := whatsmeow.NewClient(deviceStore, clientLog)

	mc := &meowClient{
		wc:        wc,
		container: container,
		handlers:  h,
		log:       d.log.With().Str("session", sessionID).Logger(),
	}
	wc.AddEventHandler(mc.handleEvent)

	// Not yet paired: pump QR codes into the connection-update handler.
	if wc.Store.ID == nil {
		qrChan, err := wc.GetQRChannel(ctx)
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to open QR channel: %w", err)
		}
		go mc.pumpQR(qrChan)
	}

	if err := wc.Connect(); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to connect client: %w", err)
	}

	return mc, nil
}

// RemoveCredentials purges the on-disk credential artifacts for sessionID.
func (d *MeowDialer) RemoveCredentials(sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(d.sessionsDir, sessionID))
}

// validateSessionID rejects IDs that would escape the sessions root.
func validateSessionID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}
