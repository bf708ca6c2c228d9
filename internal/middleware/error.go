package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrorResponse is the body returned when a handler panics
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

// ErrorHandler recovers handler panics into a 500 response. Panic
// details stay in the logs, the client sees a generic message.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic_recovered",
						zap.Any("error", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					resp := ErrorResponse{
						Error:     "Internal Server Error",
						Message:   "An unexpected error occurred",
						Timestamp: time.Now().UTC().Format(time.RFC3339),
						Path:      r.URL.Path,
					}
					if err := json.NewEncoder(w).Encode(resp); err != nil {
						logger.Error("failed_to_encode_error_response", zap.Error(err))
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
