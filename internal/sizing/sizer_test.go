package sizing

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"sentitrade/internal/domain"
)

func testSizer() *Sizer {
	return New(Config{
		ConfidenceThreshold: 0.80,
		MaxPositionSize:     0.05,
		BaseNotionalUSD:     100,
	}, slog.Default())
}

func TestNotionalScalesLinearly(t *testing.T) {
	s := testSizer()

	// confidence 0.95 => scale (0.95-0.80)/(1-0.80) = 0.75 => 0.05*0.75*100
	got := s.NotionalUSD(domain.AnalysisResult{Decision: domain.DecisionBuy, Confidence: 0.95})
	assert.InDelta(t, 3.75, got, 1e-9)
}

func TestNotionalAtFullConfidenceHitsCap(t *testing.T) {
	s := testSizer()

	got := s.NotionalUSD(domain.AnalysisResult{Decision: domain.DecisionBuy, Confidence: 1.0})
	assert.InDelta(t, 5.0, got, 1e-9)
}

func TestNotionalAtThresholdIsZero(t *testing.T) {
	s := testSizer()

	got := s.NotionalUSD(domain.AnalysisResult{Decision: domain.DecisionBuy, Confidence: 0.80})
	assert.Zero(t, got)
}

func TestNotionalBelowThresholdSkips(t *testing.T) {
	s := testSizer()

	got := s.NotionalUSD(domain.AnalysisResult{Decision: domain.DecisionBuy, Confidence: 0.79})
	assert.Zero(t, got)
}

func TestNonBuyDecisionsNeverSize(t *testing.T) {
	s := testSizer()

	for _, d := range []domain.Decision{domain.DecisionHold, domain.DecisionSell} {
		got := s.NotionalUSD(domain.AnalysisResult{Decision: d, Confidence: 0.99})
		assert.Zero(t, got, "decision %s", d)
	}
}
