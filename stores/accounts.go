package stores

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/pocketbase/dbx"

	"neurax/models"
)

// AccountStore manages linked Twitter accounts. All mutating operations are
// serialized behind a mutex so the single-default invariant holds under
// concurrent callbacks: every user with at least one account has exactly one
// default.
type AccountStore struct {
	db dbx.Builder
	mu sync.Mutex
}

func NewAccountStore(db dbx.Builder) *AccountStore {
	return &AccountStore{db: db}
}

// Upsert links a Twitter account to a user. Linking the same Twitter account
// again refreshes its tokens and profile fields and keeps its default flag.
// The first account a user links always becomes the default; a later account
// becomes default only when makeDefault is set, which demotes the previous
// default.
func (s *AccountStore) Upsert(a *models.TwitterAccount, makeDefault bool) (*models.TwitterAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.byTwitterID(a.UserID, a.TwitterID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		params := dbx.Params{
			"twitter_username":    a.TwitterUsername,
			"profile_image_url":   a.ProfileImageURL,
			"access_token":        a.AccessToken,
			"access_token_secret": a.AccessTokenSecret,
		}
		if a.AccountName != "" {
			params["account_name"] = a.AccountName
		}
		if _, err := s.db.Update("twitter_accounts", params, dbx.HashExp{"id": existing.ID}).Execute(); err != nil {
			return nil, err
		}
		if makeDefault && !existing.IsDefault {
			if err := s.setDefaultLocked(existing.UserID, existing.ID); err != nil {
				return nil, err
			}
		}
		return s.get(existing.ID)
	}

	count, err := s.countForUser(a.UserID)
	if err != nil {
		return nil, err
	}
	isDefault := count == 0 || makeDefault

	if isDefault && count > 0 {
		if err := s.clearDefault(a.UserID); err != nil {
			return nil, err
		}
	}

	name := a.AccountName
	if name == "" {
		name = a.TwitterUsername
	}
	res, err := s.db.Insert("twitter_accounts", dbx.Params{
		"user_id":             a.UserID,
		"twitter_id":          a.TwitterID,
		"twitter_username":    a.TwitterUsername,
		"account_name":        name,
		"profile_image_url":   a.ProfileImageURL,
		"access_token":        a.AccessToken,
		"access_token_secret": a.AccessTokenSecret,
		"is_default":          boolToInt(isDefault),
		"created_at":          nowString(),
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

// Get returns the account only when it belongs to userID.
func (s *AccountStore) Get(userID, id int64) (*models.TwitterAccount, error) {
	acct, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if acct.UserID != userID {
		return nil, models.ErrNotFound
	}
	return acct, nil
}

func (s *AccountStore) GetByTwitterID(userID int64, twitterID string) (*models.TwitterAccount, error) {
	return s.byTwitterID(userID, twitterID)
}

// FindByTwitterID looks an account up across all users, for OAuth logins
// where the platform user is not known yet.
func (s *AccountStore) FindByTwitterID(twitterID string) (*models.TwitterAccount, error) {
	var acct models.TwitterAccount
	err := s.db.Select("*").
		From("twitter_accounts").
		Where(dbx.HashExp{"twitter_id": twitterID}).
		One(&acct)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *AccountStore) ListByUser(userID int64) ([]models.TwitterAccount, error) {
	accounts := []models.TwitterAccount{}
	err := s.db.Select("*").
		From("twitter_accounts").
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("id ASC").
		All(&accounts)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListDefaults returns every user's default account, for jobs that walk all
// users with a linked account.
func (s *AccountStore) ListDefaults() ([]models.TwitterAccount, error) {
	accounts := []models.TwitterAccount{}
	err := s.db.Select("*").
		From("twitter_accounts").
		Where(dbx.HashExp{"is_default": 1}).
		OrderBy("user_id ASC").
		All(&accounts)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetDefault returns the user's default account, or ErrNotFound when the
// user has no linked accounts.
func (s *AccountStore) GetDefault(userID int64) (*models.TwitterAccount, error) {
	var acct models.TwitterAccount
	err := s.db.Select("*").
		From("twitter_accounts").
		Where(dbx.HashExp{"user_id": userID, "is_default": 1}).
		One(&acct)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// SetDefault makes the given account the user's default, demoting whichever
// account held the flag before.
func (s *AccountStore) SetDefault(userID, id int64) (*models.TwitterAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if acct.UserID != userID {
		return nil, models.ErrNotFound
	}
	if err := s.setDefaultLocked(userID, id); err != nil {
		return nil, err
	}
	return s.get(id)
}

// Delete removes the account. When the deleted account was the default, the
// remaining account with the lowest id is promoted so the invariant survives
// the deletion.
func (s *AccountStore) Delete(userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.get(id)
	if err != nil {
		return err
	}
	if acct.UserID != userID {
		return models.ErrNotFound
	}

	if _, err := s.db.Delete("twitter_accounts", dbx.HashExp{"id": id}).Execute(); err != nil {
		return err
	}

	if !acct.IsDefault {
		return nil
	}

	var next models.TwitterAccount
	err = s.db.Select("*").
		From("twitter_accounts").
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("id ASC").
		One(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.setDefaultLocked(userID, next.ID)
}

// Rename updates the display name of an account.
func (s *AccountStore) Rename(userID, id int64, name string) (*models.TwitterAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if acct.UserID != userID {
		return nil, models.ErrNotFound
	}
	if _, err := s.db.Update("twitter_accounts", dbx.Params{"account_name": name}, dbx.HashExp{"id": id}).Execute(); err != nil {
		return nil, err
	}
	return s.get(id)
}

func (s *AccountStore) get(id int64) (*models.TwitterAccount, error) {
	var acct models.TwitterAccount
	err := s.db.Select("*").
		From("twitter_accounts").
		Where(dbx.HashExp{"id": id}).
		One(&acct)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *AccountStore) byTwitterID(userID int64, twitterID string) (*models.TwitterAccount, error) {
	var acct models.TwitterAccount
	err := s.db.Select("*").
		From("twitter_accounts").
		Where(dbx.HashExp{"user_id": userID, "twitter_id": twitterID}).
		One(&acct)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *AccountStore) countForUser(userID int64) (int64, error) {
	var count int64
	err := s.db.Select("COUNT(*)").
		From("twitter_accounts").
		Where(dbx.HashExp{"user_id": userID}).
		Row(&count)
	return count, err
}

// setDefaultLocked clears the old flag before setting the new one so a crash
// between the two statements leaves zero defaults rather than two. Callers
// hold the mutex.
func (s *AccountStore) setDefaultLocked(userID, id int64) error {
	if err := s.clearDefault(userID); err != nil {
		return err
	}
	_, err := s.db.Update("twitter_accounts", dbx.Params{"is_default": 1}, dbx.HashExp{"id": id}).Execute()
	return err
}

func (s *AccountStore) clearDefault(userID int64) error {
	_, err := s.db.Update("twitter_accounts", dbx.Params{"is_default": 0}, dbx.HashExp{"user_id": userID}).Execute()
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339)
}
