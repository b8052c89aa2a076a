package models

type User struct {
	ID               int64  `db:"id" json:"id"`
	Username         string `db:"username" json:"username"`
	Email            string `db:"email" json:"email"`
	PasswordHash     string `db:"password_hash" json:"-"`
	TwitterConnected bool   `db:"twitter_connected" json:"twitterConnected"`
	CreatedAt        string `db:"created_at" json:"createdAt"`
}
