package stores

import (
	"testing"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurax/models"
)

func TestCreatePostDerivesStatus(t *testing.T) {
	store := NewPostStore(newTestDB(t))

	draft, err := store.Create(&models.Post{UserID: 1, Content: "gm"})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, draft.Status)

	scheduled, err := store.Create(&models.Post{
		UserID:       1,
		Content:      "later",
		ScheduledFor: time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, scheduled.Status)
}

func TestListDueReturnsOnlyRipeScheduledPosts(t *testing.T) {
	store := NewPostStore(newTestDB(t))
	now := time.Now().UTC()

	due, err := store.Create(&models.Post{
		UserID:       1,
		Content:      "due",
		ScheduledFor: now.Add(-time.Minute).Format(time.RFC3339),
	})
	require.NoError(t, err)

	_, err = store.Create(&models.Post{
		UserID:       1,
		Content:      "not yet",
		ScheduledFor: now.Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)

	_, err = store.Create(&models.Post{UserID: 1, Content: "draft"})
	require.NoError(t, err)

	ripe, err := store.ListDue(now)
	require.NoError(t, err)
	require.Len(t, ripe, 1)
	assert.Equal(t, due.ID, ripe[0].ID)
}

func TestCreatePostNormalizesScheduledForToUTC(t *testing.T) {
	store := NewPostStore(newTestDB(t))

	// 10:00+02:00 is 08:00Z; stored with its offset it would sort after a
	// 09:00Z cutoff and the due query would miss it.
	post, err := store.Create(&models.Post{
		UserID:       1,
		Content:      "offset",
		ScheduledFor: "2026-08-31T10:00:00+02:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-08-31T08:00:00Z", post.ScheduledFor)

	cutoff, err := time.Parse(time.RFC3339, "2026-08-31T09:00:00Z")
	require.NoError(t, err)
	ripe, err := store.ListDue(cutoff)
	require.NoError(t, err)
	require.Len(t, ripe, 1)
	assert.Equal(t, post.ID, ripe[0].ID)
}

func TestCreatePostRejectsMalformedSchedule(t *testing.T) {
	store := NewPostStore(newTestDB(t))

	_, err := store.Create(&models.Post{UserID: 1, Content: "bad", ScheduledFor: "tomorrow"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestListDueSkipsPostsAlreadySending(t *testing.T) {
	store := NewPostStore(newTestDB(t))
	now := time.Now().UTC()

	post, err := store.Create(&models.Post{
		UserID:       1,
		Content:      "due",
		ScheduledFor: now.Add(-time.Minute).Format(time.RFC3339),
	})
	require.NoError(t, err)

	require.NoError(t, store.SetStatus(post.ID, models.PostStatusSending, ""))

	ripe, err := store.ListDue(now)
	require.NoError(t, err)
	assert.Empty(t, ripe)
}

func TestMarkPublishedFinishesLifecycle(t *testing.T) {
	store := NewPostStore(newTestDB(t))

	post, err := store.Create(&models.Post{UserID: 1, Content: "gm"})
	require.NoError(t, err)

	require.NoError(t, store.MarkPublished(post.ID, "1234567890"))

	published, err := store.Get(1, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, published.Status)
	assert.True(t, published.Published)
	assert.Equal(t, "1234567890", published.TwitterPostID)
}

func TestPostOwnershipIsEnforced(t *testing.T) {
	store := NewPostStore(newTestDB(t))

	post, err := store.Create(&models.Post{UserID: 1, Content: "mine"})
	require.NoError(t, err)

	_, err = store.Get(2, post.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.Update(2, post.ID, dbx.Params{"content": "stolen"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = store.Delete(2, post.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, store.Delete(1, post.ID))
	_, err = store.Get(1, post.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
