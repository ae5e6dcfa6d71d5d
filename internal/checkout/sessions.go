package checkout

import (
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/frahmantamala/donation-checkout/internal"
)

type session struct {
	owner      string
	controller *Controller
	lastSeen   time.Time
}

// SessionStore keeps the checkout controllers of live browser sessions.
// Sessions are private to the user that created them.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

func (s *SessionStore) Add(owner string, controller *Controller) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &session{owner: owner, controller: controller, lastSeen: s.now()}
	return id
}

func (s *SessionStore) Get(id, owner string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.owner != owner {
		return nil, apperrors.ErrSessionNotFound
	}
	sess.lastSeen = s.now()
	return sess.controller, nil
}

func (s *SessionStore) Remove(id, owner string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.owner != owner {
		return nil, apperrors.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return sess.controller, nil
}

// Sweep closes and drops sessions idle for longer than maxIdle. Sessions with
// a submission in flight are kept. The store lock is held while closing so a
// session is never handed out half swept.
func (s *SessionStore) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	swept := 0
	for id, sess := range s.sessions {
		if !sess.lastSeen.Before(cutoff) {
			continue
		}
		if sess.controller.closeIfIdle() {
			delete(s.sessions, id)
			swept++
		}
	}
	return swept
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
