package models

type Metrics struct {
	ID           int64  `db:"id" json:"id"`
	UserID       int64  `db:"user_id" json:"userId"`
	Followers    int64  `db:"followers" json:"followers"`
	Engagement   int64  `db:"engagement" json:"engagement"`
	Impressions  int64  `db:"impressions" json:"impressions"`
	AIEfficiency int64  `db:"ai_efficiency" json:"aiEfficiency"`
	Date         string `db:"date" json:"date"`
}
