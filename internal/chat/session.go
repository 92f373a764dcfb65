package chat

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ConnID identifies one live client connection.
type ConnID string

// NewConnID mints a random connection identity.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// Session is the per-connection state. Nickname and Room are meaningful only
// when Joined is true; an empty nickname is a legal display name.
type Session struct {
	ID       ConnID
	Nickname string
	Room     string
	Joined   bool

	seq uint64
}

// SessionStore holds every live session keyed by connection. It is safe for
// concurrent use.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[ConnID]*Session
	nextSeq  uint64
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[ConnID]*Session)}
}

// Create allocates an empty session. Creating the same connection twice is
// a programming error and reports ErrSessionExists.
func (s *SessionStore) Create(id ConnID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; ok {
		return ErrSessionExists
	}
	s.sessions[id] = &Session{ID: id}
	return nil
}

// Get returns a copy of the session.
func (s *SessionStore) Get(id ConnID) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *sess, nil
}

// SetIdentity commits nickname and room in one step. The call fails with
// ErrNicknameTaken when another joined session of the same room already
// holds the same sanitized nickname, so admission is a compare-and-set even
// when two joins race on an empty room.
func (s *SessionStore) SetIdentity(id ConnID, nickname, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.Joined {
		return ErrAlreadyJoined
	}

	wanted := SanitizeNickname(nickname)
	for _, other := range s.sessions {
		if other.Joined && other.Room == room && SanitizeNickname(other.Nickname) == wanted {
			return ErrNicknameTaken
		}
	}

	s.nextSeq++
	sess.Nickname = nickname
	sess.Room = room
	sess.Joined = true
	sess.seq = s.nextSeq
	return nil
}

// ClearIdentity reverts a committed identity so the session is unjoined
// again. It is a no-op for unknown sessions.
func (s *SessionStore) ClearIdentity(id ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		*sess = Session{ID: id}
	}
}

// Remove deletes the session and reports whether it existed.
func (s *SessionStore) Remove(id ConnID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// MembersOf snapshots the joined sessions of room in join order.
func (s *SessionStore) MembersOf(room string) []Session {
	s.mu.RLock()
	members := make([]Session, 0)
	for _, sess := range s.sessions {
		if sess.Joined && sess.Room == room {
			members = append(members, *sess)
		}
	}
	s.mu.RUnlock()

	sort.Slice(members, func(i, j int) bool {
		return members[i].seq < members[j].seq
	})
	return members
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
