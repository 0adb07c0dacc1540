package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/fairvalue/internal/marketdata"
	"github.com/wonny/fairvalue/internal/service"
)

// GetQuote returns the market quote of a ticker
// GET /api/stock/{ticker}
func (h *ValuationHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	ticker := marketdata.NormalizeTicker(mux.Vars(r)["ticker"])
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	quote, cached, err := h.valuator.Quote(r.Context(), ticker)
	if err != nil {
		h.respondQuoteError(w, ticker, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"cached":  cached,
		"data":    quote,
	})
}

// GetPriceHistory returns close-price series for 1D, 1W, 1M, 3M and 1Y
// GET /api/stock/{ticker}/history
func (h *ValuationHandler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	ticker := marketdata.NormalizeTicker(mux.Vars(r)["ticker"])
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	history, err := h.valuator.PriceHistory(r.Context(), ticker)
	if err != nil {
		h.respondQuoteError(w, ticker, err)
		return
	}

	respondData(w, history)
}

func (h *ValuationHandler) respondQuoteError(w http.ResponseWriter, ticker string, err error) {
	switch {
	case errors.Is(err, marketdata.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrQuotesUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.WithError(err).WithTicker(ticker).Error("Market data request failed")
		respondError(w, http.StatusInternalServerError, "Failed to fetch market data")
	}
}
