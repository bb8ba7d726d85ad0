package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"sentitrade/internal/domain"
	"sentitrade/internal/executor"
)

// pendingWindow bounds how far back a bulk manual trigger reaches.
const pendingWindow = time.Hour

// ProcessTrigger runs signals on demand. Implemented by the intake loop,
// which serializes manual triggers against its own polling.
type ProcessTrigger interface {
	ProcessAnalysis(ctx context.Context, id int64) (executor.Outcome, error)
	ProcessPending(ctx context.Context, window time.Duration) (int, error)
}

// ProcessHandler serves the manual processing endpoint.
type ProcessHandler struct {
	trigger ProcessTrigger
	logger  *slog.Logger
}

// NewProcessHandler creates a ProcessHandler.
func NewProcessHandler(trigger ProcessTrigger, logger *slog.Logger) *ProcessHandler {
	return &ProcessHandler{trigger: trigger, logger: logger}
}

type processRequest struct {
	AnalysisID int64 `json:"analysisId"`
}

// ProcessAnalysis runs one signal by ID, or, when no ID is given, every
// unprocessed signal from the last hour.
// POST /api/process-analysis
func (h *ProcessHandler) ProcessAnalysis(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.AnalysisID == 0 {
		n, err := h.trigger.ProcessPending(r.Context(), pendingWindow)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "process pending failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to process pending signals")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"processed": n,
			"window":    pendingWindow.String(),
		})
		return
	}

	out, err := h.trigger.ProcessAnalysis(r.Context(), req.AnalysisID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "process analysis failed",
			slog.Int64("analysis_id", req.AnalysisID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to process analysis")
		return
	}

	resp := map[string]any{
		"analysisId": req.AnalysisID,
		"outcome":    string(out.Kind),
	}
	if out.Reason != "" {
		resp["reason"] = out.Reason
	}
	if out.Trade != nil {
		resp["tradeUuid"] = out.Trade.UUID
		resp["status"] = string(out.Trade.Status)
	}
	writeJSON(w, http.StatusOK, resp)
}
