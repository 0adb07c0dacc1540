package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/fairvalue/internal/contracts"
	"github.com/wonny/fairvalue/internal/marketdata"
	"github.com/wonny/fairvalue/internal/sensitivity"
	"github.com/wonny/fairvalue/internal/service"
	"github.com/wonny/fairvalue/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	maxBodyBytes        = 1 << 20
)

// ValuationHandler handles valuation API endpoints
// ⭐ SSOT: 평가 API 핸들러는 이 구조체에서만
type ValuationHandler struct {
	valuator *service.Valuator
	logger   *logger.Logger
}

// NewValuationHandler creates a new valuation handler
func NewValuationHandler(valuator *service.Valuator, log *logger.Logger) *ValuationHandler {
	return &ValuationHandler{
		valuator: valuator,
		logger:   log,
	}
}

// ValuationRequest is the body of POST /api/valuation
type ValuationRequest struct {
	Record   *contracts.FinancialRecord `json:"record"`
	History  map[int]float64            `json:"history"`
	Country  string                     `json:"country,omitempty"`
	Industry string                     `json:"industry,omitempty"`
}

// GetValuation values a ticker from market data
// GET /api/stock/{ticker}/valuation?refresh=true
func (h *ValuationHandler) GetValuation(w http.ResponseWriter, r *http.Request) {
	ticker := marketdata.NormalizeTicker(mux.Vars(r)["ticker"])
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	q := r.URL.Query()
	refresh, _ := strconv.ParseBool(q.Get("refresh"))

	v, err := h.valuator.ValueTicker(r.Context(), ticker, service.Options{
		Refresh:  refresh,
		Country:  q.Get("country"),
		Industry: q.Get("industry"),
	})
	if err != nil {
		h.respondValuationError(w, ticker, err)
		return
	}

	respondData(w, v)
}

// PostValuation values a caller-supplied record
// POST /api/valuation
func (h *ValuationHandler) PostValuation(w http.ResponseWriter, r *http.Request) {
	var req ValuationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Record == nil {
		respondError(w, http.StatusBadRequest, "record is required")
		return
	}

	v, err := h.valuator.ValueRecord(r.Context(), req.Record, contracts.NewFCFSeries(req.History), req.Country, req.Industry)
	if err != nil {
		h.respondValuationError(w, req.Record.Ticker, err)
		return
	}

	respondData(w, v)
}

// ListValuations returns stored valuations of a ticker, newest first
// GET /api/stock/{ticker}/valuations?limit=20
func (h *ValuationHandler) ListValuations(w http.ResponseWriter, r *http.Request) {
	ticker := marketdata.NormalizeTicker(mux.Vars(r)["ticker"])

	limit := defaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(l, maxHistoryLimit)
	}

	results, err := h.valuator.History(r.Context(), ticker, limit)
	if err != nil {
		h.respondValuationError(w, ticker, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(results),
		"data":    results,
	})
}

// GetSensitivity runs a Monte Carlo and grid analysis around a ticker's valuation
// GET /api/stock/{ticker}/sensitivity?simulations=5000&seed=42
func (h *ValuationHandler) GetSensitivity(w http.ResponseWriter, r *http.Request) {
	ticker := marketdata.NormalizeTicker(mux.Vars(r)["ticker"])
	q := r.URL.Query()

	cfg := sensitivity.DefaultConfig()
	if s := q.Get("simulations"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "simulations must be an integer")
			return
		}
		cfg.Simulations = n
	}
	if s := q.Get("seed"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "seed must be an integer")
			return
		}
		cfg.Seed = seed
	}

	out, err := h.valuator.Sensitivity(r.Context(), ticker, service.Options{
		Country:  q.Get("country"),
		Industry: q.Get("industry"),
	}, cfg)
	if err != nil {
		h.respondValuationError(w, ticker, err)
		return
	}

	respondData(w, out)
}

// GetBenchmarks returns the benchmark table in use
// GET /api/benchmarks
func (h *ValuationHandler) GetBenchmarks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"version": h.valuator.BenchmarkVersion(),
		"data":    h.valuator.Benchmarks(),
	})
}

// respondValuationError maps service errors onto HTTP status codes
func (h *ValuationHandler) respondValuationError(w http.ResponseWriter, ticker string, err error) {
	switch {
	case errors.Is(err, marketdata.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contracts.ErrValuationImpossible), errors.Is(err, sensitivity.ErrInsufficientSamples):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, sensitivity.ErrInvalidConfig):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrHistoryUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.WithError(err).WithTicker(ticker).Error("Valuation request failed")
		respondError(w, http.StatusInternalServerError, "Failed to compute valuation")
	}
}
