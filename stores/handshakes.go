package stores

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"neurax/models"
)

// Handshake is the server-side half of a pending OAuth 1.0a authorization:
// the request-token secret must never reach the browser, so it is parked
// here between the redirect out and the callback in.
type Handshake struct {
	RequestToken  string `json:"requestToken"`
	RequestSecret string `json:"requestSecret"`
	UserID        int64  `json:"userId"`
	Mode          string `json:"mode"`
}

const (
	// HandshakeModeLink attaches the account to an existing signed-in user.
	HandshakeModeLink = "link"
	// HandshakeModeLogin signs a user in by a previously linked account.
	HandshakeModeLogin = "login"

	// DefaultHandshakeTTL bounds how long a user can sit on the provider's
	// authorize page before the callback is rejected.
	DefaultHandshakeTTL = 15 * time.Minute
)

// HandshakeStore parks pending handshakes between the two flow legs.
type HandshakeStore interface {
	Put(ctx context.Context, h Handshake) error
	// Take returns the handshake and removes it in one step, so a replayed
	// callback cannot consume the same request token twice. Missing or
	// expired tokens yield ErrNotFound.
	Take(ctx context.Context, requestToken string) (Handshake, error)
}

// MemoryHandshakeStore is the single-process fallback used when Redis is
// not available.
type MemoryHandshakeStore struct {
	mu      sync.Mutex
	entries map[string]memoryHandshake
	ttl     time.Duration
	now     func() time.Time
}

type memoryHandshake struct {
	handshake Handshake
	expiresAt time.Time
}

func NewMemoryHandshakeStore(ttl time.Duration) *MemoryHandshakeStore {
	if ttl <= 0 {
		ttl = DefaultHandshakeTTL
	}
	return &MemoryHandshakeStore{
		entries: map[string]memoryHandshake{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryHandshakeStore) Put(ctx context.Context, h Handshake) error {
	s.mu.Lock()
	s.entries[h.RequestToken] = memoryHandshake{handshake: h, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryHandshakeStore) Take(ctx context.Context, requestToken string) (Handshake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[requestToken]
	if !ok {
		return Handshake{}, models.ErrNotFound
	}
	delete(s.entries, requestToken)
	if s.now().After(entry.expiresAt) {
		return Handshake{}, models.ErrNotFound
	}
	return entry.handshake, nil
}

// Sweep drops expired entries, for handshakes whose callback never arrived.
func (s *MemoryHandshakeStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for token, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}

// RedisHandshakeStore parks handshakes in Redis so callbacks can land on
// any replica. Expiry rides the key TTL.
type RedisHandshakeStore struct {
	client *redis.Client
	ttl    time.Duration
}

const handshakeKeyPrefix = "neurax:oauth:handshake:"

func NewRedisHandshakeStore(client *redis.Client, ttl time.Duration) *RedisHandshakeStore {
	if ttl <= 0 {
		ttl = DefaultHandshakeTTL
	}
	return &RedisHandshakeStore{client: client, ttl: ttl}
}

func (s *RedisHandshakeStore) Put(ctx context.Context, h Handshake) error {
	payload, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, handshakeKeyPrefix+h.RequestToken, payload, s.ttl).Err()
}

func (s *RedisHandshakeStore) Take(ctx context.Context, requestToken string) (Handshake, error) {
	payload, err := s.client.GetDel(ctx, handshakeKeyPrefix+requestToken).Result()
	if errors.Is(err, redis.Nil) {
		return Handshake{}, models.ErrNotFound
	}
	if err != nil {
		return Handshake{}, err
	}
	var h Handshake
	if err := json.Unmarshal([]byte(payload), &h); err != nil {
		return Handshake{}, err
	}
	return h, nil
}
