package stores

import (
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"

	"neurax/models"
)

type IdeaStore struct {
	db dbx.Builder
}

func NewIdeaStore(db dbx.Builder) *IdeaStore {
	return &IdeaStore{db: db}
}

func (s *IdeaStore) Create(idea *models.ContentIdea) (*models.ContentIdea, error) {
	res, err := s.db.Insert("content_ideas", dbx.Params{
		"user_id":    idea.UserID,
		"content":    idea.Content,
		"type":       idea.Type,
		"used":       boolToInt(idea.Used),
		"created_at": nowString(),
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

func (s *IdeaStore) ListByUser(userID int64) ([]models.ContentIdea, error) {
	ideas := []models.ContentIdea{}
	err := s.db.Select("*").
		From("content_ideas").
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("id DESC").
		All(&ideas)
	if err != nil {
		return nil, err
	}
	return ideas, nil
}

func (s *IdeaStore) MarkUsed(userID, id int64) (*models.ContentIdea, error) {
	idea, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if idea.UserID != userID {
		return nil, models.ErrNotFound
	}
	if _, err := s.db.Update("content_ideas", dbx.Params{"used": 1}, dbx.HashExp{"id": id}).Execute(); err != nil {
		return nil, err
	}
	return s.get(id)
}

func (s *IdeaStore) get(id int64) (*models.ContentIdea, error) {
	var idea models.ContentIdea
	err := s.db.Select("*").From("content_ideas").Where(dbx.HashExp{"id": id}).One(&idea)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &idea, nil
}
