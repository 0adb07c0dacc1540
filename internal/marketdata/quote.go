package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/fairvalue/pkg/httputil"
)

// Quote is the market snapshot shown next to a valuation
type Quote struct {
	Symbol           string    `json:"symbol"`
	CompanyName      string    `json:"company_name"`
	Industry         string    `json:"industry"`
	Currency         string    `json:"currency,omitempty"`
	CurrentPrice     float64   `json:"current_price"`
	MarketCap        float64   `json:"market_cap"`
	Open             float64   `json:"open"`
	High             float64   `json:"high"`
	Low              float64   `json:"low"`
	Volume           int64     `json:"volume"`
	DividendYield    float64   `json:"dividend_yield"` // fraction, 0.005 = 0.5%
	Beta             float64   `json:"beta"`
	FiftyTwoWeekHigh float64   `json:"fifty_two_week_high"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// PriceSeries is the close-price series of one timeframe.
// Error is set instead of the series when upstream had no bars.
type PriceSeries struct {
	Prices     []float64 `json:"prices,omitempty"`
	Timestamps []string  `json:"timestamps,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// PriceHistory maps a timeframe label (1D, 1W, ...) to its series
type PriceHistory map[string]PriceSeries

// Timeframe is one chart range and its bar interval
type Timeframe struct {
	Label    string
	Period   string
	Interval string
}

// Timeframes are the chart ranges served for every ticker
var Timeframes = []Timeframe{
	{Label: "1D", Period: "1d", Interval: "30m"},
	{Label: "1W", Period: "1wk", Interval: "1d"},
	{Label: "1M", Period: "1mo", Interval: "1d"},
	{Label: "3M", Period: "3mo", Interval: "1wk"},
	{Label: "1Y", Period: "1y", Interval: "1mo"},
}

// TimestampLayout formats price-series timestamps
const TimestampLayout = "2006-01-02 15:04:05"

// noHistory is reported for a timeframe without bars
const noHistory = "No historical data available"

// QuoteProvider supplies quotes and price history
// ⭐ SSOT: 시세 조회 인터페이스 (재무 Provider와 분리)
type QuoteProvider interface {
	Quote(ctx context.Context, ticker string) (*Quote, error)
	PriceHistory(ctx context.Context, ticker string) (PriceHistory, error)
}

type quoteResponse struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	Industry         string   `json:"industry"`
	Currency         string   `json:"currency"`
	CurrentPrice     *float64 `json:"current_price"`
	MarketCap        *float64 `json:"market_cap"`
	Open             *float64 `json:"open"`
	DayHigh          *float64 `json:"day_high"`
	DayLow           *float64 `json:"day_low"`
	Volume           *int64   `json:"volume"`
	DividendYield    *float64 `json:"dividend_yield"` // percent
	Beta             *float64 `json:"beta"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high"`
}

type historyResponse struct {
	Bars []struct {
		Time  time.Time `json:"time"`
		Close float64   `json:"close"`
	} `json:"bars"`
}

func orZero[T int64 | float64](v *T) T {
	if v == nil {
		return 0
	}
	return *v
}

// Quote implements QuoteProvider
func (c *Client) Quote(ctx context.Context, ticker string) (*Quote, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("fetch quote: empty ticker")
	}

	endpoint := fmt.Sprintf("%s/v1/quote/%s", c.baseURL, url.PathEscape(ticker))

	var resp quoteResponse
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch quote %s: %w", ticker, err)
	}

	symbol := NormalizeTicker(resp.Symbol)
	if symbol == "" {
		symbol = ticker
	}
	name := resp.Name
	if name == "" {
		name = symbol
	}
	industry := resp.Industry
	if industry == "" {
		industry = "Unknown"
	}

	return &Quote{
		Symbol:           symbol,
		CompanyName:      name,
		Industry:         industry,
		Currency:         resp.Currency,
		CurrentPrice:     orZero(resp.CurrentPrice),
		MarketCap:        orZero(resp.MarketCap),
		Open:             orZero(resp.Open),
		High:             orZero(resp.DayHigh),
		Low:              orZero(resp.DayLow),
		Volume:           orZero(resp.Volume),
		DividendYield:    orZero(resp.DividendYield) / 100,
		Beta:             orZero(resp.Beta),
		FiftyTwoWeekHigh: orZero(resp.FiftyTwoWeekHigh),
		FetchedAt:        c.now(),
	}, nil
}

// PriceHistory implements QuoteProvider.
// Timeframes are fetched concurrently. A timeframe without bars carries an
// error message; ErrNotFound is returned only when every timeframe is empty.
func (c *Client) PriceHistory(ctx context.Context, ticker string) (PriceHistory, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("fetch history: empty ticker")
	}

	series := make([]PriceSeries, len(Timeframes))

	g, gctx := errgroup.WithContext(ctx)
	for i, tf := range Timeframes {
		i, tf := i, tf
		g.Go(func() error {
			s, err := c.fetchSeries(gctx, ticker, tf)
			if err != nil {
				return err
			}
			series[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", ticker, err)
	}

	out := make(PriceHistory, len(Timeframes))
	empty := 0
	for i, tf := range Timeframes {
		if series[i].Error != "" {
			empty++
		}
		out[tf.Label] = series[i]
	}
	if empty == len(Timeframes) {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"empty":  empty,
	}).Debug("Price history fetched")

	return out, nil
}

func (c *Client) fetchSeries(ctx context.Context, ticker string, tf Timeframe) (PriceSeries, error) {
	query := url.Values{}
	query.Set("period", tf.Period)
	query.Set("interval", tf.Interval)
	endpoint := fmt.Sprintf("%s/v1/history/%s?%s", c.baseURL, url.PathEscape(ticker), query.Encode())

	var resp historyResponse
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		if isNotFound(err) {
			return PriceSeries{Error: noHistory}, nil
		}
		return PriceSeries{}, fmt.Errorf("%s: %w", tf.Label, err)
	}
	if len(resp.Bars) == 0 {
		return PriceSeries{Error: noHistory}, nil
	}

	s := PriceSeries{
		Prices:     make([]float64, len(resp.Bars)),
		Timestamps: make([]string, len(resp.Bars)),
	}
	for i, bar := range resp.Bars {
		s.Prices[i] = bar.Close
		s.Timestamps[i] = bar.Time.Format(TimestampLayout)
	}
	return s, nil
}

func isNotFound(err error) bool {
	var statusErr *httputil.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
