// Package sizing converts analysis confidence into a bounded trade notional.
package sizing

import (
	"log/slog"

	"sentitrade/internal/domain"
)

// Config holds the sizing parameters.
type Config struct {
	// ConfidenceThreshold is the minimum confidence for any trade.
	ConfidenceThreshold float64
	// MaxPositionSize is the largest single-trade fraction of BaseNotionalUSD.
	MaxPositionSize float64
	// BaseNotionalUSD is the fixed base the position fraction applies to.
	BaseNotionalUSD float64
}

// Sizer computes trade notionals from confidence scores.
type Sizer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Sizer.
func New(cfg Config, logger *slog.Logger) *Sizer {
	return &Sizer{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "sizer")),
	}
}

// NotionalUSD returns the USD size for a signal. Zero means no trade: the
// decision is not a buy, or confidence sits below the threshold. Above the
// threshold the size scales linearly from zero at the threshold up to the
// configured cap at full confidence, so positions grow smoothly with
// conviction but never exceed MaxPositionSize * BaseNotionalUSD.
func (s *Sizer) NotionalUSD(analysis domain.AnalysisResult) float64 {
	if analysis.Decision != domain.DecisionBuy {
		return 0
	}
	if analysis.Confidence < s.cfg.ConfidenceThreshold {
		s.logger.Debug("confidence below threshold",
			slog.Int64("analysis_id", analysis.ID),
			slog.Float64("confidence", analysis.Confidence),
			slog.Float64("threshold", s.cfg.ConfidenceThreshold),
		)
		return 0
	}

	scale := (analysis.Confidence - s.cfg.ConfidenceThreshold) / (1 - s.cfg.ConfidenceThreshold)
	if scale < 0 {
		scale = 0
	}
	if scale > 1 {
		scale = 1
	}

	fraction := s.cfg.MaxPositionSize * scale
	if fraction > s.cfg.MaxPositionSize {
		fraction = s.cfg.MaxPositionSize
	}
	return fraction * s.cfg.BaseNotionalUSD
}
