package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/internal/ingest"
	"github.com/quantlab/stocksignal/internal/provider/yahoo"
	"github.com/quantlab/stocksignal/pkg/logger"
)

// ProfileFetcher looks up descriptive metadata for a symbol.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, symbol string, market contracts.Market) (*yahoo.SecurityProfile, error)
}

// SecurityHandler handles security registration and lookup endpoints.
type SecurityHandler struct {
	securities  contracts.SecurityRepository
	prices      contracts.PriceRepository
	profiles    ProfileFetcher
	coordinator *ingest.Coordinator
	logger      *logger.Logger
}

// NewSecurityHandler creates a new security handler.
func NewSecurityHandler(
	securities contracts.SecurityRepository,
	prices contracts.PriceRepository,
	profiles ProfileFetcher,
	coordinator *ingest.Coordinator,
	log *logger.Logger,
) *SecurityHandler {
	return &SecurityHandler{
		securities:  securities,
		prices:      prices,
		profiles:    profiles,
		coordinator: coordinator,
		logger:      log,
	}
}

// CreateSecurityRequest registers a security for tracking.
type CreateSecurityRequest struct {
	Symbol string `json:"symbol"`
	Market string `json:"market"`
}

// Create registers a security and kicks off its first data refresh in
// the background. Prices, fundamentals, and indicators arrive
// asynchronously; the first signal read may report that data is not
// available yet.
// POST /api/securities
func (h *SecurityHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateSecurityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	market, err := contracts.ParseMarket(req.Market)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sec := &contracts.Security{
		Symbol: symbol,
		Market: market,
		Class:  contracts.ClassUnclassified,
		Active: true,
	}

	// Profile lookup is best-effort; registration proceeds without it.
	if profile, err := h.profiles.FetchProfile(ctx, symbol, market); err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Warn("Profile lookup failed")
	} else {
		sec.Name = profile.Name
		sec.Sector = profile.Sector
		sec.Currency = profile.Currency
		sec.AssetType = profile.AssetType
	}

	if err := h.securities.Create(ctx, sec); err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to create security")
		respondError(w, http.StatusInternalServerError, "Failed to create security")
		return
	}

	h.coordinator.EnqueueFullRefresh(sec)

	respondJSON(w, http.StatusCreated, sec)
}

// Get returns a security's profile and classification.
// GET /api/securities/{symbol}
func (h *SecurityHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	sec, err := h.securities.GetBySymbol(ctx, symbol)
	if err != nil {
		if contracts.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "security not found")
			return
		}
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get security")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve security")
		return
	}

	respondJSON(w, http.StatusOK, sec)
}

// PriceBarResponse is one daily bar in API form.
type PriceBarResponse struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// GetPrices returns stored daily bars for a security.
// GET /api/securities/{symbol}/prices?days=365
func (h *SecurityHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	sec, err := h.securities.GetBySymbol(ctx, symbol)
	if err != nil {
		if contracts.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "security not found")
			return
		}
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get security")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve security")
		return
	}

	days := 365
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
			days = d
		}
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	bars, err := h.prices.GetRange(ctx, sec.ID, from, to)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol": symbol,
			"days":   days,
		}).Error("Failed to get price bars")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve price bars")
		return
	}

	result := make([]PriceBarResponse, len(bars))
	for i, b := range bars {
		result[i] = PriceBarResponse{
			Date:   b.Time.Format("2006-01-02"),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": sec.Symbol,
		"market": sec.Market,
		"count":  len(result),
		"prices": result,
	})
}
