package handlers

import (
	"net/http"

	"github.com/quantlab/stocksignal/pkg/database"
)

// HealthHandler reports service and database health.
type HealthHandler struct {
	db *database.DB
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check returns service health including database pool statistics.
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status, err := h.db.HealthCheck(r.Context())

	code := http.StatusOK
	overall := "ok"
	if err != nil {
		code = http.StatusServiceUnavailable
		overall = "degraded"
	}

	respondJSON(w, code, map[string]interface{}{
		"status":   overall,
		"service":  "stocksignal-api",
		"database": status,
	})
}
