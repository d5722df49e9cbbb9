package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/quantlab/stocksignal/internal/api/handlers"
	"github.com/quantlab/stocksignal/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(
	securityHandler *handlers.SecurityHandler,
	signalHandler *handlers.SignalHandler,
	healthHandler *handlers.HealthHandler,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler.Check).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/securities", securityHandler.Create).Methods("POST")
	api.HandleFunc("/securities/{symbol}", securityHandler.Get).Methods("GET")
	api.HandleFunc("/securities/{symbol}/prices", securityHandler.GetPrices).Methods("GET")

	// /signals/top must register before the {symbol} route or mux would
	// treat "top" as a symbol.
	api.HandleFunc("/signals/top", signalHandler.GetTop).Methods("GET")
	api.HandleFunc("/signals/{symbol}", signalHandler.Get).Methods("GET")
	api.HandleFunc("/signals/{symbol}/history", signalHandler.GetHistory).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
