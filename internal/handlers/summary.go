package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/services/summary"
)

// SummarySender fans daily summaries out to every user
type SummarySender interface {
	Run(ctx context.Context, day time.Time) (int, error)
}

var _ SummarySender = (*summary.Service)(nil)

// SummaryHandler triggers the daily summary fan-out over HTTP
type SummaryHandler struct {
	summaries SummarySender
	logger    *zap.Logger
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(summaries SummarySender, log *zap.Logger) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, logger: log}
}

// RegisterRoutes registers summary routes
func (h *SummaryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/daily-summary", h.Trigger).Methods("POST")
}

// summaryRequest is the trigger body. An empty or missing date means today.
type summaryRequest struct {
	Date string `json:"date"`
}

// Trigger runs the summary fan-out synchronously and reports the outcome.
func (h *SummaryHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		// An empty body triggers today's summaries
		respondStatusDetails(w, http.StatusBadRequest, "error", "Invalid JSON payload")
		return
	}

	day, err := summary.ParseDate(req.Date)
	if err != nil {
		respondStatusDetails(w, http.StatusBadRequest, "error", err.Error())
		return
	}

	sent, err := h.summaries.Run(r.Context(), day)
	if err != nil {
		h.logger.Error("daily summary run failed",
			zap.String("date", day.Format("2006-01-02")),
			zap.Int("sent", sent),
			zap.Error(err))
		respondStatusDetails(w, http.StatusInternalServerError, "error", "Failed to send daily summaries")
		return
	}

	h.logger.Info("daily summaries sent",
		zap.String("date", day.Format("2006-01-02")),
		zap.Int("sent", sent))
	respondStatusDetails(w, http.StatusOK, "success", "Daily summaries sent")
}
