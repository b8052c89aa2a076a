package stores

import (
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"

	"neurax/models"
)

type UserStore struct {
	db dbx.Builder
}

func NewUserStore(db dbx.Builder) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(username, email, passwordHash string) (*models.User, error) {
	res, err := s.db.Insert("users", dbx.Params{
		"username":          username,
		"email":             email,
		"password_hash":     passwordHash,
		"twitter_connected": 0,
		"created_at":        nowString(),
	}).Execute()
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

func (s *UserStore) Get(id int64) (*models.User, error) {
	var user models.User
	err := s.db.Select("*").From("users").Where(dbx.HashExp{"id": id}).One(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := s.db.Select("*").From("users").Where(dbx.HashExp{"username": username}).One(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetTwitterConnected tracks whether the user has at least one linked
// account. Flipped on link and on deletion of the last account.
func (s *UserStore) SetTwitterConnected(id int64, connected bool) error {
	flag := 0
	if connected {
		flag = 1
	}
	_, err := s.db.Update("users", dbx.Params{"twitter_connected": flag}, dbx.HashExp{"id": id}).Execute()
	return err
}

func (s *UserStore) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Select("*").From("users").Where(dbx.HashExp{"email": email}).One(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
