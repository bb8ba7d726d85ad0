package handler

import (
	"context"
	"log/slog"
	"net/http"

	"sentitrade/internal/domain"
)

// PortfolioService computes the exposure summary.
type PortfolioService interface {
	Summary(ctx context.Context) (domain.PortfolioSummary, error)
}

// PortfolioHandler serves the portfolio summary endpoint.
type PortfolioHandler struct {
	portfolio PortfolioService
	logger    *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler.
func NewPortfolioHandler(portfolio PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio, logger: logger}
}

// GetPortfolio returns the aggregate exposure summary.
// GET /api/portfolio
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolio.Summary(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "portfolio summary failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute portfolio summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
