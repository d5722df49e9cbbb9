package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/internal/scoring"
	"github.com/quantlab/stocksignal/pkg/logger"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 100

	defaultHistoryLimit = 30
	maxHistoryLimit     = 200
)

// SignalHandler handles signal read endpoints.
type SignalHandler struct {
	signals *scoring.Service
	logger  *logger.Logger
}

// NewSignalHandler creates a new signal handler.
func NewSignalHandler(signals *scoring.Service, log *logger.Logger) *SignalHandler {
	return &SignalHandler{signals: signals, logger: log}
}

// SignalResponse wraps a signal with its resolution provenance.
type SignalResponse struct {
	Signal *contracts.Signal `json:"signal"`
	Source string            `json:"source"` // cache, store, fresh
	Stale  bool              `json:"stale,omitempty"`
}

// Get returns the current signal for a symbol, evaluating a fresh one
// when the stored signal has expired.
// GET /api/signals/{symbol}
func (h *SignalHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	resolved, err := h.signals.GetSignal(ctx, symbol)
	if err != nil {
		switch {
		case contracts.IsNotFound(err):
			respondError(w, http.StatusNotFound, "security not found")
		case contracts.IsDataUnavailable(err):
			// Brand-new security whose first refresh has not landed yet.
			respondError(w, http.StatusServiceUnavailable, "signal not yet available; data ingestion in progress")
		default:
			h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get signal")
			respondError(w, http.StatusInternalServerError, "Failed to retrieve signal")
		}
		return
	}

	respondJSON(w, http.StatusOK, SignalResponse{
		Signal: resolved.Value,
		Source: string(resolved.Source),
		Stale:  resolved.Stale,
	})
}

// GetTop returns today's signals ranked by confidence.
// GET /api/signals/top?market=&type=&limit=
func (h *SignalHandler) GetTop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var market contracts.Market
	if m := q.Get("market"); m != "" {
		parsed, err := contracts.ParseMarket(m)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		market = parsed
	}

	signalType, ok := contracts.ParseSignalType(strings.ToUpper(q.Get("type")))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid signal type")
		return
	}

	limit := parseLimit(q.Get("limit"), defaultTopLimit, maxTopLimit)

	signals, err := h.signals.TopSignals(ctx, market, signalType, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get top signals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve top signals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(signals),
		"signals": signals,
	})
}

// GetHistory returns past signals for a symbol, newest first.
// GET /api/signals/{symbol}/history?limit=30
func (h *SignalHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	limit := parseLimit(r.URL.Query().Get("limit"), defaultHistoryLimit, maxHistoryLimit)

	signals, err := h.signals.History(ctx, symbol, limit)
	if err != nil {
		if contracts.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "security not found")
			return
		}
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get signal history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve signal history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"count":   len(signals),
		"signals": signals,
	})
}

// parseLimit clamps a limit query parameter to (0, max], falling back
// to def when absent or unparsable.
func parseLimit(s string, def, max int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
