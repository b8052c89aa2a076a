package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurax/models"
)

func TestHandshakeTakeIsOneShot(t *testing.T) {
	store := NewMemoryHandshakeStore(time.Minute)
	ctx := context.Background()

	h := Handshake{RequestToken: "rt-1", RequestSecret: "rs-1", UserID: 7, Mode: HandshakeModeLink}
	require.NoError(t, store.Put(ctx, h))

	got, err := store.Take(ctx, "rt-1")
	require.NoError(t, err)
	assert.Equal(t, h, got)

	_, err = store.Take(ctx, "rt-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestHandshakeUnknownToken(t *testing.T) {
	store := NewMemoryHandshakeStore(time.Minute)

	_, err := store.Take(context.Background(), "never-issued")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestHandshakeExpires(t *testing.T) {
	store := NewMemoryHandshakeStore(time.Minute)
	current := time.Unix(1700000000, 0)
	store.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Handshake{RequestToken: "rt-1", RequestSecret: "rs-1"}))

	current = current.Add(2 * time.Minute)
	_, err := store.Take(ctx, "rt-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestHandshakeSweepDropsOnlyExpired(t *testing.T) {
	store := NewMemoryHandshakeStore(time.Minute)
	current := time.Unix(1700000000, 0)
	store.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Handshake{RequestToken: "old"}))
	current = current.Add(45 * time.Second)
	require.NoError(t, store.Put(ctx, Handshake{RequestToken: "fresh"}))

	current = current.Add(30 * time.Second)
	assert.Equal(t, 1, store.Sweep())

	_, err := store.Take(ctx, "fresh")
	assert.NoError(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	store := NewSessionStore(time.Hour)

	token := store.Create(42)
	userID, ok := store.Resolve(token)
	require.True(t, ok)
	assert.Equal(t, int64(42), userID)

	store.Destroy(token)
	_, ok = store.Resolve(token)
	assert.False(t, ok)
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(time.Hour)
	current := time.Unix(1700000000, 0)
	store.now = func() time.Time { return current }

	token := store.Create(42)

	current = current.Add(2 * time.Hour)
	_, ok := store.Resolve(token)
	assert.False(t, ok)

	other := store.Create(43)
	current = current.Add(2 * time.Hour)
	assert.Equal(t, 1, store.Sweep())
	_, ok = store.Resolve(other)
	assert.False(t, ok)
}
