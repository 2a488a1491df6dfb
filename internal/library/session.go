package library

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"playlist-porter/internal/config"
	"playlist-porter/internal/model"
)

const (
	defaultSessionTTL  = time.Hour
	defaultMaxSessions = 10000
)

type sessionEntry struct {
	session  model.Session
	lastSeen time.Time
}

// SessionStore keeps connection state per session in memory. Sessions are
// lost on restart. Callers only ever receive copies.
//
// A session idle for longer than the TTL is gone. When the store is full, the
// least recently seen session is evicted to make room for a new one.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	max      int
	now      func() time.Time
}

// NewSessionStore creates an empty store sized from cfg.Library.
func NewSessionStore(cfg *config.Config) *SessionStore {
	ttl := time.Duration(cfg.Library.SessionTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	maxSessions := cfg.Library.MaxSessions
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		max:      maxSessions,
		now:      time.Now,
	}
}

// Get returns a copy of the session with id and marks it as seen.
func (s *SessionStore) Get(id string) (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		return model.Session{}, false
	}
	e.lastSeen = s.now()
	return copySession(&e.session), true
}

// Connect records user under role in the session with id, creating the
// session when id is empty, unknown or expired. It returns the updated copy.
func (s *SessionStore) Connect(id string, role model.Role, user model.User) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id)
	if !ok {
		s.makeRoom()
		e = &sessionEntry{session: model.Session{ID: uuid.NewString()}}
		s.sessions[e.session.ID] = e
	}
	e.lastSeen = s.now()

	u := user
	switch role {
	case model.RoleSource:
		e.session.Source = &u
	case model.RoleDestination:
		e.session.Destination = &u
	}
	return copySession(&e.session)
}

// Len returns the number of stored sessions, expired ones included until
// they are swept.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// live returns the entry for id unless it has expired. Expired entries are
// removed. Callers hold s.mu.
func (s *SessionStore) live(id string) (*sessionEntry, bool) {
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	return e, true
}

// makeRoom sweeps expired sessions and, if the store is still full, evicts
// the least recently seen one. Callers hold s.mu.
func (s *SessionStore) makeRoom() {
	if len(s.sessions) < s.max {
		return
	}

	now := s.now()
	var oldestID string
	var oldest time.Time
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.sessions, id)
			continue
		}
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	if len(s.sessions) >= s.max && oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

func copySession(sess *model.Session) model.Session {
	out := model.Session{ID: sess.ID}
	if sess.Source != nil {
		u := *sess.Source
		out.Source = &u
	}
	if sess.Destination != nil {
		u := *sess.Destination
		out.Destination = &u
	}
	return out
}
