// Package api exposes a read-only HTTP status surface for a running batch:
// progress, usage aggregates, archived runs and Prometheus metrics.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwhitby/summit/internal/meeting"
	"github.com/mwhitby/summit/internal/storage/sqlite"
	"github.com/mwhitby/summit/internal/usage"
	"github.com/mwhitby/summit/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	service *meeting.Service
	ledger  *usage.Ledger
	archive *sqlite.UsageArchive // may be nil when storage is disabled
	logger  *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(service *meeting.Service, ledger *usage.Ledger, archive *sqlite.UsageArchive, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		ledger:  ledger,
		archive: archive,
		logger:  log.Named("api-handler"),
	}
}

// Routes builds the router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.GetHealth)
	r.Get("/api/status", h.GetStatus)
	r.Get("/api/usage", h.GetUsage)
	r.Get("/api/runs", h.GetRuns)
	r.Get("/api/runs/{id}/records", h.GetRunRecords)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// GetHealth returns a liveness response
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"})
}

// GetStatus returns the progress of the current batch
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.service.Progress())
}

// usageResponse is the JSON shape for the usage snapshot
type usageResponse struct {
	Calls           int     `json:"calls"`
	Succeeded       int     `json:"succeeded"`
	Failed          int     `json:"failed"`
	Retries         int     `json:"retries"`
	InputTokens     int64   `json:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens"`
	TotalTokens     int64   `json:"total_tokens"`
	AvgLatencyMs    int64   `json:"avg_latency_ms"`
	MinLatencyMs    int64   `json:"min_latency_ms"`
	MaxLatencyMs    int64   `json:"max_latency_ms"`
	EstimatedCost   float64 `json:"estimated_cost"`
	CostEstimated   bool    `json:"cost_estimated"`
	SessionDuration string  `json:"session_duration"`
}

// GetUsage returns the aggregate usage of the current session
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	snap := h.ledger.Snapshot()
	h.writeJSON(w, usageResponse{
		Calls:           snap.Calls,
		Succeeded:       snap.Succeeded,
		Failed:          snap.Failed,
		Retries:         snap.Retries,
		InputTokens:     snap.InputTokens,
		OutputTokens:    snap.OutputTokens,
		TotalTokens:     snap.TotalTokens(),
		AvgLatencyMs:    snap.AvgLatency().Milliseconds(),
		MinLatencyMs:    snap.MinLatency.Milliseconds(),
		MaxLatencyMs:    snap.MaxLatency.Milliseconds(),
		EstimatedCost:   snap.EstimatedCost,
		CostEstimated:   snap.CostEstimated,
		SessionDuration: snap.SessionDuration.Round(time.Second).String(),
	})
}

// GetRuns returns the most recent archived runs
func (h *Handler) GetRuns(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "storage disabled", http.StatusNotFound)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	runs, err := h.archive.RecentRuns(limit)
	if err != nil {
		h.logger.Error("Failed to query runs", logger.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*sqlite.RunInfo{}
	}
	h.writeJSON(w, runs)
}

// recordResponse is the JSON shape for one archived usage record
type recordResponse struct {
	Timestamp    time.Time `json:"timestamp"`
	Context      string    `json:"context"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	LatencyMs    int64     `json:"latency_ms"`
	Attempts     int       `json:"attempts"`
	Outcome      string    `json:"outcome"`
	ErrorKind    string    `json:"error_kind,omitempty"`
}

// GetRunRecords returns the usage records of one archived run
func (h *Handler) GetRunRecords(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "storage disabled", http.StatusNotFound)
		return
	}

	runID := chi.URLParam(r, "id")
	records, err := h.archive.RunRecords(runID)
	if err != nil {
		h.logger.Error("Failed to query run records",
			logger.String("run_id", runID),
			logger.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, recordResponse{
			Timestamp:    rec.Timestamp,
			Context:      rec.Context,
			Model:        rec.ModelID,
			InputTokens:  rec.InputTokens,
			OutputTokens: rec.OutputTokens,
			LatencyMs:    rec.Latency.Milliseconds(),
			Attempts:     rec.Attempts,
			Outcome:      string(rec.Outcome),
			ErrorKind:    rec.ErrorKind,
		})
	}
	h.writeJSON(w, out)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}
