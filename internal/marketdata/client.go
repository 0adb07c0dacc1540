package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/fairvalue/pkg/config"
	"github.com/wonny/fairvalue/pkg/httputil"
	"github.com/wonny/fairvalue/pkg/logger"
)

// Client fetches financial statements and quotes from the upstream market data API
type Client struct {
	http    *httputil.Client
	baseURL string
	logger  *logger.Logger
	now     func() time.Time
}

// NewClient creates a new market data client
func NewClient(cfg config.MarketDataConfig, log *logger.Logger) *Client {
	httpClient := httputil.New(cfg, log)
	if cfg.APIKey != "" {
		httpClient.WithHeader("X-API-Key", cfg.APIKey)
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  log,
		now:     time.Now,
	}
}

// Fetch implements Provider
func (c *Client) Fetch(ctx context.Context, ticker string) (*Snapshot, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("fetch financials: empty ticker")
	}

	endpoint := fmt.Sprintf("%s/v1/financials/%s", c.baseURL, url.PathEscape(ticker))

	var resp financialsResponse
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch financials %s: %w", ticker, err)
	}

	snap, err := Assemble(&resp, c.now())
	if err != nil {
		return nil, fmt.Errorf("fetch financials %s: %w", ticker, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker":  ticker,
		"years":   len(snap.History),
		"country": snap.Country,
	}).Debug("Financials fetched")

	return snap, nil
}
