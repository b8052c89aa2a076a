package models

const (
	PositionLong  = "LONG"
	PositionShort = "SHORT"

	CallStatusActive = "ACTIVE"
	CallStatusClosed = "CLOSED"
)

// TradingCall is a synthetic AI trading recommendation for a crypto asset.
// Prices are kept as decimal strings, matching the dashboard wire format.
type TradingCall struct {
	ID           int64  `db:"id" json:"id"`
	UserID       int64  `db:"user_id" json:"userId"`
	Asset        string `db:"asset" json:"asset"`
	Position     string `db:"position" json:"position"`
	EntryPrice   string `db:"entry_price" json:"entryPrice"`
	TargetPrice  string `db:"target_price" json:"targetPrice"`
	CurrentPrice string `db:"current_price" json:"currentPrice"`
	ProfitLoss   string `db:"profit_loss" json:"profitLoss"`
	Status       string `db:"status" json:"status"`
	PostID       int64  `db:"post_id" json:"postId"`
	StartDate    string `db:"start_date" json:"startDate"`
	EndDate      string `db:"end_date" json:"endDate"`
}
