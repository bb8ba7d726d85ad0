// Package risk enforces portfolio exposure limits ahead of every execution.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sentitrade/internal/domain"
)

// ExposureReader is the slice of the trade store the guard needs. The
// persisted trade table is the single source of truth for exposure; the
// guard never caches ledger reads.
type ExposureReader interface {
	ExposureSince(ctx context.Context, since time.Time) (float64, error)
	TokenExposureSince(ctx context.Context, symbol string, since time.Time) (float64, error)
}

// Config holds the exposure caps.
type Config struct {
	// MaxPortfolioValueUSD anchors both fractional caps.
	MaxPortfolioValueUSD float64
	// MaxExposureFraction bounds aggregate completed-trade value in the window.
	MaxExposureFraction float64
	// MaxPositionFraction bounds per-token completed-trade value in the window.
	MaxPositionFraction float64
	// Window is the rolling exposure lookback.
	Window time.Duration
}

// Guard accepts or rejects proposed trades against rolling exposure limits.
type Guard struct {
	ledger ExposureReader
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Guard over the given ledger.
func New(ledger ExposureReader, cfg Config, logger *slog.Logger) *Guard {
	return &Guard{
		ledger: ledger,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "risk_guard")),
		now:    time.Now,
	}
}

// Check validates a proposed (symbol, notional) pair against the aggregate
// and per-token caps. It returns a domain.ErrRiskRejected-wrapped error when
// a cap would be breached, and fails closed on any ledger read error: a
// broken exposure read must never silently permit an unbounded trade.
//
// Check runs immediately before execution, not at intake time, so decisions
// reflect the freshest ledger state available.
func (g *Guard) Check(ctx context.Context, symbol string, notionalUSD float64) error {
	since := g.now().Add(-g.cfg.Window)

	aggregate, err := g.ledger.ExposureSince(ctx, since)
	if err != nil {
		g.logger.Error("exposure read failed, rejecting trade",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: ledger read: %v", domain.ErrRiskRejected, err)
	}

	maxAggregate := g.cfg.MaxPortfolioValueUSD * g.cfg.MaxExposureFraction
	if aggregate+notionalUSD >= maxAggregate {
		g.logger.Warn("aggregate exposure cap would be breached",
			slog.String("symbol", symbol),
			slog.Float64("notional_usd", notionalUSD),
			slog.Float64("exposure_usd", aggregate),
			slog.Float64("cap_usd", maxAggregate),
		)
		return fmt.Errorf("%w: aggregate exposure %.2f + %.2f reaches cap %.2f",
			domain.ErrRiskRejected, aggregate, notionalUSD, maxAggregate)
	}

	tokenExposure, err := g.ledger.TokenExposureSince(ctx, symbol, since)
	if err != nil {
		g.logger.Error("token exposure read failed, rejecting trade",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: ledger read: %v", domain.ErrRiskRejected, err)
	}

	maxToken := g.cfg.MaxPortfolioValueUSD * g.cfg.MaxPositionFraction
	if tokenExposure+notionalUSD >= maxToken {
		g.logger.Warn("per-token exposure cap would be breached",
			slog.String("symbol", symbol),
			slog.Float64("notional_usd", notionalUSD),
			slog.Float64("exposure_usd", tokenExposure),
			slog.Float64("cap_usd", maxToken),
		)
		return fmt.Errorf("%w: %s exposure %.2f + %.2f reaches cap %.2f",
			domain.ErrRiskRejected, symbol, tokenExposure, notionalUSD, maxToken)
	}

	return nil
}
