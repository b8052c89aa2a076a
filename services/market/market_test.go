package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurax/helpers"
	"neurax/models"
)

func newTestService(handler http.HandlerFunc) (*Service, *httptest.Server) {
	server := httptest.NewServer(handler)
	svc := NewService(helpers.NewFetcher(helpers.RetryPolicy{MaxRetries: 0}), nil, "", nil)
	svc.BaseURL = server.URL
	return svc, server
}

func TestPriceFetchesAndCaches(t *testing.T) {
	calls := 0
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.Write([]byte(`{"bitcoin":{"usd":91234.5}}`))
	})
	defer server.Close()
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }

	price, err := svc.Price(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, 91234.5, price)

	// Second lookup inside the TTL is served from cache.
	price, err = svc.Price(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 91234.5, price)
	assert.Equal(t, 1, calls)
}

func TestPriceCacheExpires(t *testing.T) {
	calls := 0
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"ethereum":{"usd":3000}}`))
	})
	defer server.Close()

	current := time.Unix(1700000000, 0)
	svc.now = func() time.Time { return current }

	_, err := svc.Price(context.Background(), "ETH")
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = svc.Price(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPriceFallsBackWhenProviderDown(t *testing.T) {
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	defer server.Close()

	price, err := svc.Price(context.Background(), "SOL")
	require.NoError(t, err)
	assert.Equal(t, fallbackPrices["SOL"], price)
}

func TestPriceRejectsUnknownSymbol(t *testing.T) {
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {})
	defer server.Close()

	_, err := svc.Price(context.Background(), "NOTACOIN")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestTopCoins(t *testing.T) {
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		w.Write([]byte(`[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":90000,"market_cap":1800000000000,"price_change_percentage_24h":-1.2}]`))
	})
	defer server.Close()

	coins, err := svc.TopCoins(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, "bitcoin", coins[0].ID)
	assert.Equal(t, 90000.0, coins[0].CurrentPrice)
	assert.Equal(t, -1.2, coins[0].PriceChangePct24h)
}

func TestPricesQuotesSeveralSymbols(t *testing.T) {
	svc, server := newTestService(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("ids") {
		case "bitcoin":
			w.Write([]byte(`{"bitcoin":{"usd":90000}}`))
		case "ethereum":
			w.Write([]byte(`{"ethereum":{"usd":3100}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer server.Close()

	prices, err := svc.Prices(context.Background(), []string{"BTC", "eth"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTC": 90000, "ETH": 3100}, prices)
}
