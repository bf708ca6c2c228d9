package handlers

import (
	"encoding/json"
	"net/http"
)

// statusResponse is the minimal body the webhook endpoints return.
// Meta only cares about the HTTP status code, the body is for
// operators reading logs and for tests.
type statusResponse struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

func respondStatus(w http.ResponseWriter, code int, status string) {
	respondStatusDetails(w, code, status, "")
}

func respondStatusDetails(w http.ResponseWriter, code int, status, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(statusResponse{Status: status, Details: details}); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
