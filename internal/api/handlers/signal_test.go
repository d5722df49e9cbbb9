package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantlab/stocksignal/pkg/logger"
)

func TestGetTopRejectsInvalidFilters(t *testing.T) {
	h := NewSignalHandler(nil, logger.NewNop())

	tests := []struct {
		name  string
		query string
	}{
		{"unknown market", "?market=LSE"},
		{"unknown signal type", "?type=STRONG_BUY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/signals/top"+tt.query, nil)
			rec := httptest.NewRecorder()

			h.GetTop(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty uses default", "", 10},
		{"valid", "25", 25},
		{"above max clamps", "500", 100},
		{"zero uses default", "0", 10},
		{"negative uses default", "-3", 10},
		{"garbage uses default", "abc", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLimit(tt.in, 10, 100))
		})
	}
}
