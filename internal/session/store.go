package session

import (
	"sort"
	"sync"
	"time"

	"github.com/evolite/wabridge/internal/whatsapp"
)

// Session is the broker's view of one logical WhatsApp session.
type Session struct {
	ID        string
	Handle    whatsapp.Client
	Connected bool
	User      *whatsapp.User
	QR        *PendingQR
}

// PendingQR is an un-consumed pairing image. It is cleared on the open
// transition and never surfaced past ExpiresAt.
type PendingQR struct {
	Image     string
	ExpiresAt time.Time
}

// Info is the listing shape for one stored session.
type Info struct {
	SessionID   string         `json:"sessionId"`
	IsConnected bool           `json:"isConnected"`
	User        *whatsapp.User `json:"user,omitempty"`
}

// Store is the in-memory session registry. It is authoritative only for the
// lifetime of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, exists := s.sessions[id]
	return sess, exists
}

// Put stores sess under its ID, replacing any existing entry.
func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// Remove deletes the session for id, if present.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Count returns the number of stored sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot returns a listing of all stored sessions, ordered by ID for
// stable output.
func (s *Store) Snapshot() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]Info, 0, len(s.sessions))
	for id, sess := range s.sessions {
		infos = append(infos, Info{
			SessionID:   id,
			IsConnected: sess.Connected,
			User:        sess.User,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].SessionID < infos[j].SessionID
	})
	return infos
}
