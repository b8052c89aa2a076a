package models

// Post lifecycle statuses. A post created without a schedule stays in
// StatusDraft until it is published; scheduled posts move through
// scheduled -> sending -> published/failed as the cron picks them up.
const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusSending   = "sending"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

type Post struct {
	ID               int64  `db:"id" json:"id"`
	UserID           int64  `db:"user_id" json:"userId"`
	TwitterAccountID int64  `db:"twitter_account_id" json:"twitterAccountId"`
	Content          string `db:"content" json:"content"`
	ImageURL         string `db:"image_url" json:"imageUrl"`
	TwitterPostID    string `db:"twitter_post_id" json:"twitterPostId"`
	ScheduledFor     string `db:"scheduled_for" json:"scheduledFor"`
	Published        bool   `db:"published" json:"published"`
	AIGenerated      bool   `db:"ai_generated" json:"aiGenerated"`
	Status           string `db:"status" json:"status"`
	Logs             string `db:"logs" json:"logs"`
	CreatedAt        string `db:"created_at" json:"createdAt"`
}
