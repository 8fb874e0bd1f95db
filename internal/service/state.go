// Package service holds the BFA's controllers. Each service owns one area
// of the application state and exposes commands that return results or
// typed errors; observers learn about changes through the StateStore.
package service

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"

	"golang.org/x/crypto/blake2b"
)

// EventKind names a state change.
type EventKind string

const (
	EventLogin        EventKind = "login"
	EventLogout       EventKind = "logout"
	EventMatrixSaved  EventKind = "matrix_saved"
	EventFlatsChanged EventKind = "flats_changed"
	EventBillsChanged EventKind = "bills_changed"
	EventInvitesSent  EventKind = "invites_sent"
)

// Event is delivered to every subscriber after a command changed state.
type Event struct {
	Kind      EventKind
	SocietyID int64
	UserID    int64
	At        time.Time
}

// Session is the per-login application state.
type Session struct {
	Key       string          `json:"-"`
	Token     string          `json:"-"`
	User      domain.User     `json:"user"`
	Society   *domain.Society `json:"society,omitempty"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// SocietyID returns the society the session acts on.
func (s *Session) SocietyID() int64 {
	if s.Society != nil && s.Society.ID > 0 {
		return s.Society.ID
	}
	return s.User.SocietyID
}

// CanManage reports whether the session's role may manage the society.
func (s *Session) CanManage() bool {
	return s.User.RoleID.CanManage()
}

// SessionKey derives the lookup key for a bearer token. Raw tokens are
// never used as map keys.
func SessionKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// StateStore owns the sessions and fans out change events.
type StateStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	subs     map[int]func(Event)
	nextSub  int
	now      func() time.Time
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{
		sessions: make(map[string]*Session),
		subs:     make(map[int]func(Event)),
		now:      time.Now,
	}
}

// Put stores a session under its key.
func (s *StateStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Key] = sess
}

// Get returns a copy of the session for key. Expired sessions are removed.
func (s *StateStore) Get(key string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !sess.ExpiresAt.IsZero() && s.now().After(sess.ExpiresAt) {
		s.Delete(key)
		return nil, false
	}
	cp := *sess
	return &cp, true
}

// Delete removes a session.
func (s *StateStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// UpdateSociety replaces the society block of every session in a society,
// e.g. after its status changed.
func (s *StateStore) UpdateSociety(soc domain.Society) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.SocietyID() == soc.ID {
			cp := soc
			sess.Society = &cp
		}
	}
}

// Select returns copies of the live sessions matching keep.
func (s *StateStore) Select(keep func(*Session) bool) []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var out []Session
	for _, sess := range s.sessions {
		if !sess.ExpiresAt.IsZero() && now.After(sess.ExpiresAt) {
			continue
		}
		if keep(sess) {
			out = append(out, *sess)
		}
	}
	return out
}

// Len returns the number of live sessions.
func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Subscribe registers fn for every future event and returns a func that
// removes it.
func (s *StateStore) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Publish delivers e to every subscriber synchronously.
func (s *StateStore) Publish(e Event) {
	if e.At.IsZero() {
		e.At = s.now()
	}
	s.mu.RLock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}
