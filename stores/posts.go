package stores

import (
	"database/sql"
	"errors"
	"time"

	"github.com/pocketbase/dbx"

	"neurax/models"
)

type PostStore struct {
	db dbx.Builder
}

func NewPostStore(db dbx.Builder) *PostStore {
	return &PostStore{db: db}
}

func (s *PostStore) Create(p *models.Post) (*models.Post, error) {
	// scheduled_for is compared lexicographically in ListDue, so it must be
	// stored normalized to UTC regardless of the offset the client sent.
	scheduledFor := p.ScheduledFor
	if scheduledFor != "" {
		at, err := time.Parse(time.RFC3339, scheduledFor)
		if err != nil {
			return nil, models.ErrValidation
		}
		scheduledFor = at.UTC().Format(time.RFC3339)
	}

	status := p.Status
	if status == "" {
		status = models.PostStatusDraft
		if scheduledFor != "" {
			status = models.PostStatusScheduled
		}
	}
	res, err := s.db.Insert("posts", dbx.Params{
		"user_id":            p.UserID,
		"twitter_account_id": p.TwitterAccountID,
		"content":            p.Content,
		"image_url":          p.ImageURL,
		"twitter_post_id":    p.TwitterPostID,
		"scheduled_for":      scheduledFor,
		"published":          boolToInt(p.Published),
		"ai_generated":       boolToInt(p.AIGenerated),
		"status":             status,
		"logs":               p.Logs,
		"created_at":         nowString(),
	}).Execute()
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.get(id)
}

func (s *PostStore) Get(userID, id int64) (*models.Post, error) {
	post, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.ErrNotFound
	}
	return post, nil
}

func (s *PostStore) ListByUser(userID int64) ([]models.Post, error) {
	posts := []models.Post{}
	err := s.db.Select("*").
		From("posts").
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("id DESC").
		All(&posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ListDue returns scheduled posts whose scheduled_for has passed. The cron
// publisher flips them to sending before it touches the network, so a slow
// publish is not picked up twice by the next tick.
func (s *PostStore) ListDue(now time.Time) ([]models.Post, error) {
	posts := []models.Post{}
	err := s.db.Select("*").
		From("posts").
		Where(dbx.HashExp{"status": models.PostStatusScheduled}).
		AndWhere(dbx.NewExp("scheduled_for != ''")).
		AndWhere(dbx.NewExp("scheduled_for <= {:now}", dbx.Params{"now": now.UTC().Format(time.RFC3339)})).
		OrderBy("scheduled_for ASC").
		All(&posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostStore) Update(userID, id int64, params dbx.Params) (*models.Post, error) {
	post, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return post, nil
	}
	if _, err := s.db.Update("posts", params, dbx.HashExp{"id": id}).Execute(); err != nil {
		return nil, err
	}
	return s.get(id)
}

func (s *PostStore) SetStatus(id int64, status, logs string) error {
	params := dbx.Params{"status": status}
	if logs != "" {
		params["logs"] = logs
	}
	_, err := s.db.Update("posts", params, dbx.HashExp{"id": id}).Execute()
	return err
}

// MarkPublished records the upstream tweet id and finishes the lifecycle.
func (s *PostStore) MarkPublished(id int64, twitterPostID string) error {
	_, err := s.db.Update("posts", dbx.Params{
		"status":          models.PostStatusPublished,
		"published":       1,
		"twitter_post_id": twitterPostID,
	}, dbx.HashExp{"id": id}).Execute()
	return err
}

func (s *PostStore) Delete(userID, id int64) error {
	if _, err := s.Get(userID, id); err != nil {
		return err
	}
	_, err := s.db.Delete("posts", dbx.HashExp{"id": id}).Execute()
	return err
}

func (s *PostStore) get(id int64) (*models.Post, error) {
	var post models.Post
	err := s.db.Select("*").From("posts").Where(dbx.HashExp{"id": id}).One(&post)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}
