package stores

import (
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"

	"neurax/models"
)

type TradingStore struct {
	db dbx.Builder
}

func NewTradingStore(db dbx.Builder) *TradingStore {
	return &TradingStore{db: db}
}

func (s *TradingStore) Create(c *models.TradingCall) (*models.TradingCall, error) {
	status := c.Status
	if status == "" {
		status = models.CallStatusActive
	}
	start := c.StartDate
	if start == "" {
		start = nowString()
	}
	res, err := s.db.Insert("trading_calls", dbx.Params{
		"user_id":       c.UserID,
		"asset":         c.Asset,
		"position":      c.Position,
		"entry_price":   c.EntryPrice,
		"target_price":  c.TargetPrice,
		"current_price": c.CurrentPrice,
		"profit_loss":   c.ProfitLoss,
		"status":        status,
		"post_id":       c.PostID,
		"start_date":    start,
		"end_date":      c.EndDate,
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

func (s *TradingStore) Get(userID, id int64) (*models.TradingCall, error) {
	call, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if call.UserID != userID {
		return nil, models.ErrNotFound
	}
	return call, nil
}

func (s *TradingStore) ListByUser(userID int64) ([]models.TradingCall, error) {
	calls := []models.TradingCall{}
	err := s.db.Select("*").
		From("trading_calls").
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("id DESC").
		All(&calls)
	if err != nil {
		return nil, err
	}
	return calls, nil
}

func (s *TradingStore) ListActive(userID int64) ([]models.TradingCall, error) {
	calls := []models.TradingCall{}
	err := s.db.Select("*").
		From("trading_calls").
		Where(dbx.HashExp{"user_id": userID, "status": models.CallStatusActive}).
		OrderBy("id DESC").
		All(&calls)
	if err != nil {
		return nil, err
	}
	return calls, nil
}

func (s *TradingStore) Update(userID, id int64, params dbx.Params) (*models.TradingCall, error) {
	call, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return call, nil
	}
	if _, err := s.db.Update("trading_calls", params, dbx.HashExp{"id": id}).Execute(); err != nil {
		return nil, err
	}
	return s.get(id)
}

// Close marks the call closed, recording the exit price and realized P/L.
func (s *TradingStore) Close(userID, id int64, currentPrice, profitLoss string) (*models.TradingCall, error) {
	return s.Update(userID, id, dbx.Params{
		"status":        models.CallStatusClosed,
		"current_price": currentPrice,
		"profit_loss":   profitLoss,
		"end_date":      nowString(),
	})
}

func (s *TradingStore) get(id int64) (*models.TradingCall, error) {
	var call models.TradingCall
	err := s.db.Select("*").From("trading_calls").Where(dbx.HashExp{"id": id}).One(&call)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &call, nil
}
