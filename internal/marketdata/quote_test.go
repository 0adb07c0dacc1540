package marketdata

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quotePayload = `{
  "symbol": "aapl", "name": "Apple Inc.", "industry": "Technology", "currency": "USD",
  "current_price": 190.5, "market_cap": 3000000000000, "open": 189, "day_high": 191.2,
  "day_low": 188.4, "volume": 51234567, "dividend_yield": 0.5, "beta": 1.25,
  "fifty_two_week_high": 199.62
}`

func TestClient_Quote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/quote/AAPL", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		w.Write([]byte(quotePayload))
	})

	q, err := client.Quote(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "Apple Inc.", q.CompanyName)
	assert.Equal(t, 190.5, q.CurrentPrice)
	assert.Equal(t, 191.2, q.High)
	assert.Equal(t, 188.4, q.Low)
	assert.Equal(t, int64(51234567), q.Volume)
	assert.InDelta(t, 0.005, q.DividendYield, 1e-12, "percent converted to a fraction")
	assert.Equal(t, 199.62, q.FiftyTwoWeekHigh)
	assert.False(t, q.FetchedAt.IsZero())
}

func TestClient_QuoteMissingFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current_price": 12.5}`))
	})

	q, err := client.Quote(context.Background(), "xyz")
	require.NoError(t, err)

	assert.Equal(t, "XYZ", q.Symbol)
	assert.Equal(t, "XYZ", q.CompanyName)
	assert.Equal(t, "Unknown", q.Industry)
	assert.Equal(t, 12.5, q.CurrentPrice)
	assert.Zero(t, q.Beta)
	assert.Zero(t, q.Volume)
}

func TestClient_QuoteNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.Quote(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_PriceHistory(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/history/AAPL", r.URL.Path)
		period := r.URL.Query().Get("period")

		mu.Lock()
		seen[period] = r.URL.Query().Get("interval")
		mu.Unlock()

		switch period {
		case "1d":
			w.Write([]byte(`{"bars": []}`))
		case "1y":
			http.NotFound(w, r)
		default:
			w.Write([]byte(`{"bars": [
				{"time": "2024-03-01T14:30:00Z", "close": 180.1},
				{"time": "2024-03-04T14:30:00Z", "close": 182.4}
			]}`))
		}
	})

	history, err := client.PriceHistory(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"1d": "30m", "1wk": "1d", "1mo": "1d", "3mo": "1wk", "1y": "1mo"}, seen)
	assert.Len(t, history, len(Timeframes))

	tests := []struct {
		label   string
		wantErr bool
	}{
		{"1D", true},
		{"1W", false},
		{"1M", false},
		{"3M", false},
		{"1Y", true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			s := history[tt.label]
			if tt.wantErr {
				assert.Equal(t, "No historical data available", s.Error)
				assert.Empty(t, s.Prices)
				return
			}
			assert.Empty(t, s.Error)
			assert.Equal(t, []float64{180.1, 182.4}, s.Prices)
			assert.Equal(t, []string{"2024-03-01 14:30:00", "2024-03-04 14:30:00"}, s.Timestamps)
		})
	}
}

func TestClient_PriceHistoryAllEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bars": []}`))
	})

	_, err := client.PriceHistory(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_PriceHistoryUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("period") == "3mo" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"bars": [{"time": "2024-03-01T14:30:00Z", "close": 1}]}`))
	})

	_, err := client.PriceHistory(context.Background(), "AAPL")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "3M")
}
