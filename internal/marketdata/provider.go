package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/fairvalue/internal/contracts"
)

// ErrNotFound is returned when a provider has no data for a ticker
var ErrNotFound = errors.New("ticker not found")

// Snapshot is everything needed to value one ticker
type Snapshot struct {
	Ticker    string                    `json:"ticker"`
	Name      string                    `json:"name,omitempty"`
	Country   string                    `json:"country,omitempty"`
	Industry  string                    `json:"industry,omitempty"`
	Currency  string                    `json:"currency,omitempty"`
	Record    contracts.FinancialRecord `json:"record"`
	History   contracts.FCFSeries       `json:"history"`
	FetchedAt time.Time                 `json:"fetched_at"`
}

// Provider supplies financial snapshots
// ⭐ SSOT: 재무 데이터 조회 인터페이스
type Provider interface {
	Fetch(ctx context.Context, ticker string) (*Snapshot, error)
}

// Chain tries providers in order and moves on when one reports ErrNotFound
type Chain []Provider

// Fetch returns the first snapshot found
func (c Chain) Fetch(ctx context.Context, ticker string) (*Snapshot, error) {
	for _, p := range c {
		snap, err := p.Fetch(ctx, ticker)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return snap, nil
	}
	return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
}

// NormalizeTicker trims and upper-cases a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
