package service

import (
	"context"
	"fmt"

	"github.com/wonny/fairvalue/internal/marketdata"
)

// Quote returns the latest market quote of a ticker. Quotes are cached for
// five minutes; the bool reports a cache hit.
func (v *Valuator) Quote(ctx context.Context, ticker string) (*marketdata.Quote, bool, error) {
	if v.quotes == nil {
		return nil, false, ErrQuotesUnavailable
	}

	ticker = marketdata.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, false, fmt.Errorf("ticker is required")
	}

	return v.quoteCache.GetOrCompute(ctx, ticker, false, func(ctx context.Context) (*marketdata.Quote, error) {
		q, err := v.quotes.Quote(ctx, ticker)
		if err != nil {
			return nil, err
		}
		v.logger.WithTicker(ticker).WithField("price", q.CurrentPrice).Debug("Quote fetched")
		return q, nil
	})
}

// PriceHistory returns the close-price series of every chart timeframe
func (v *Valuator) PriceHistory(ctx context.Context, ticker string) (marketdata.PriceHistory, error) {
	if v.quotes == nil {
		return nil, ErrQuotesUnavailable
	}

	ticker = marketdata.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	return v.quotes.PriceHistory(ctx, ticker)
}

// CloneQuote copies a quote for the quote cache
func CloneQuote(q *marketdata.Quote) *marketdata.Quote {
	if q == nil {
		return nil
	}
	out := *q
	return &out
}
