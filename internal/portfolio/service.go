// Package portfolio aggregates trade history into the exposure summary
// served by the API.
package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sentitrade/internal/domain"
)

// Config holds the limits echoed in the summary.
type Config struct {
	// MaxExposureUSD is the aggregate exposure cap within the risk window.
	MaxExposureUSD float64
	// Window is the rolling risk window.
	Window time.Duration
	// PaperTrading reports the engine's execution mode.
	PaperTrading bool
}

// Service computes portfolio summaries from the trade store.
type Service struct {
	trades domain.TradeStore
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Service.
func New(trades domain.TradeStore, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		trades: trades,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "portfolio")),
		now:    time.Now,
	}
}

// Summary aggregates completed-trade exposure over the risk window, the
// current calendar day (UTC), and the trailing week, plus the per-token
// distribution and status counts within the risk window.
func (s *Service) Summary(ctx context.Context) (domain.PortfolioSummary, error) {
	now := s.now().UTC()
	windowStart := now.Add(-s.cfg.Window)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.Add(-7 * 24 * time.Hour)

	var (
		summary domain.PortfolioSummary
		err     error
	)
	summary.MaxExposureUSD = s.cfg.MaxExposureUSD
	summary.PaperTrading = s.cfg.PaperTrading

	if summary.Exposure24hUSD, err = s.trades.ExposureSince(ctx, windowStart); err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("portfolio: window exposure: %w", err)
	}
	if summary.ExposureDayUSD, err = s.trades.ExposureSince(ctx, dayStart); err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("portfolio: day exposure: %w", err)
	}
	if summary.ExposureWeekUSD, err = s.trades.ExposureSince(ctx, weekStart); err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("portfolio: week exposure: %w", err)
	}
	if summary.Distribution, err = s.trades.DistributionSince(ctx, windowStart); err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("portfolio: distribution: %w", err)
	}
	if summary.Distribution == nil {
		summary.Distribution = []domain.TokenExposure{}
	}

	for status, dst := range map[domain.TradeStatus]*int64{
		domain.TradeStatusCompleted: &summary.CompletedCount,
		domain.TradeStatusFailed:    &summary.FailedCount,
		domain.TradeStatusPending:   &summary.PendingCount,
	} {
		n, err := s.trades.CountByStatus(ctx, status, windowStart)
		if err != nil {
			return domain.PortfolioSummary{}, fmt.Errorf("portfolio: count %s: %w", status, err)
		}
		*dst = n
	}
	return summary, nil
}
