package models

type ContentIdea struct {
	ID        int64  `db:"id" json:"id"`
	UserID    int64  `db:"user_id" json:"userId"`
	Content   string `db:"content" json:"content"`
	Type      string `db:"type" json:"type"`
	Used      bool   `db:"used" json:"used"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}
