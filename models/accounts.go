package models

// TwitterAccount is one external Twitter/X account linked to a platform user.
// A user may link several accounts; exactly one of them is the default used
// when an operation does not name an account explicitly.
type TwitterAccount struct {
	ID                int64  `db:"id" json:"id"`
	UserID            int64  `db:"user_id" json:"userId"`
	TwitterID         string `db:"twitter_id" json:"twitterId"`
	TwitterUsername   string `db:"twitter_username" json:"twitterUsername"`
	AccountName       string `db:"account_name" json:"accountName"`
	ProfileImageURL   string `db:"profile_image_url" json:"profileImageUrl"`
	AccessToken       string `db:"access_token" json:"-"`
	AccessTokenSecret string `db:"access_token_secret" json:"-"`
	IsDefault         bool   `db:"is_default" json:"isDefault"`
	CreatedAt         string `db:"created_at" json:"createdAt"`
}
