package stores

import (
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"

	"neurax/models"
)

type MetricsStore struct {
	db dbx.Builder
}

func NewMetricsStore(db dbx.Builder) *MetricsStore {
	return &MetricsStore{db: db}
}

// Record stores one metrics snapshot for the given day. A second snapshot
// for the same day overwrites the first so the history keeps one row per
// day.
func (s *MetricsStore) Record(m *models.Metrics) (*models.Metrics, error) {
	date := m.Date
	if date == "" {
		date = nowString()[:10]
	}

	var existing models.Metrics
	err := s.db.Select("*").
		From("metrics").
		Where(dbx.HashExp{"user_id": m.UserID, "date": date}).
		One(&existing)
	switch {
	case err == nil:
		if _, err := s.db.Update("metrics", dbx.Params{
			"followers":     m.Followers,
			"engagement":    m.Engagement,
			"impressions":   m.Impressions,
			"ai_efficiency": m.AIEfficiency,
		}, dbx.HashExp{"id": existing.ID}).Execute(); err != nil {
			return nil, err
		}
		return s.get(existing.ID)
	case errors.Is(err, sql.ErrNoRows):
		res, err := s.db.Insert("metrics", dbx.Params{
			"user_id":       m.UserID,
			"followers":     m.Followers,
			"engagement":    m.Engagement,
			"impressions":   m.Impressions,
			"ai_efficiency": m.AIEfficiency,
			"date":          date,
		}).Execute()
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return s.get(id)
	default:
		return nil, err
	}
}

// Latest returns the most recent snapshot for the user.
func (s *MetricsStore) Latest(userID int64) (*models.Metrics, error) {
	var m models.Metrics
	err := s.db.Select("*").
		From("metrics").
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("date DESC", "id DESC").
		One(&m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MetricsStore) History(userID int64, limit int) ([]models.Metrics, error) {
	if limit <= 0 {
		limit = 30
	}
	rows := []models.Metrics{}
	err := s.db.Select("*").
		From("metrics").
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("date DESC", "id DESC").
		Limit(int64(limit)).
		All(&rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MetricsStore) get(id int64) (*models.Metrics, error) {
	var m models.Metrics
	err := s.db.Select("*").From("metrics").Where(dbx.HashExp{"id": id}).One(&m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
