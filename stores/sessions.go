package stores

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore keeps logged-in browser sessions in memory. Sessions are
// opaque random tokens mapped to user ids; restarting the server logs
// everyone out, which is acceptable for the dashboard.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

type session struct {
	userID    int64
	expiresAt time.Time
}

const DefaultSessionTTL = 24 * time.Hour

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: map[string]session{},
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create issues a new session token for the user.
func (s *SessionStore) Create(userID int64) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = session{userID: userID, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return token
}

// Resolve returns the user id behind a token. Expired sessions are removed
// on access, so no background janitor is needed for correctness.
func (s *SessionStore) Resolve(token string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return 0, false
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return 0, false
	}
	return sess.userID, true
}

func (s *SessionStore) Destroy(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Sweep drops expired sessions. Wired to the app cron so the map does not
// grow unbounded from abandoned browsers.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for token, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}
