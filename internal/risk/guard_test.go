package risk

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentitrade/internal/domain"
)

type fakeLedger struct {
	aggregate float64
	perToken  map[string]float64
	err       error
	lastSince time.Time
}

func (f *fakeLedger) ExposureSince(ctx context.Context, since time.Time) (float64, error) {
	f.lastSince = since
	return f.aggregate, f.err
}

func (f *fakeLedger) TokenExposureSince(ctx context.Context, symbol string, since time.Time) (float64, error) {
	return f.perToken[symbol], f.err
}

func testGuard(ledger *fakeLedger) *Guard {
	// Default limits: $10,000 * 0.20 = $2,000 aggregate cap,
	// $10,000 * 0.05 = $500 per-token cap.
	return New(ledger, Config{
		MaxPortfolioValueUSD: 10_000,
		MaxExposureFraction:  0.20,
		MaxPositionFraction:  0.05,
		Window:               24 * time.Hour,
	}, slog.Default())
}

func TestCheckAcceptsUnderBothCaps(t *testing.T) {
	g := testGuard(&fakeLedger{aggregate: 1000, perToken: map[string]float64{"SOL": 100}})

	require.NoError(t, g.Check(context.Background(), "SOL", 5))
}

func TestCheckRejectsExactlyAtAggregateCap(t *testing.T) {
	g := testGuard(&fakeLedger{aggregate: 1995, perToken: map[string]float64{"SOL": 0}})

	err := g.Check(context.Background(), "SOL", 5)
	assert.ErrorIs(t, err, domain.ErrRiskRejected)
}

func TestCheckAcceptsJustUnderAggregateCap(t *testing.T) {
	g := testGuard(&fakeLedger{aggregate: 1994.99, perToken: map[string]float64{"SOL": 0}})

	require.NoError(t, g.Check(context.Background(), "SOL", 5))
}

func TestCheckRejectsExactlyAtTokenCap(t *testing.T) {
	g := testGuard(&fakeLedger{aggregate: 0, perToken: map[string]float64{"BONK": 495}})

	err := g.Check(context.Background(), "BONK", 5)
	assert.ErrorIs(t, err, domain.ErrRiskRejected)
}

func TestCheckAcceptsJustUnderTokenCap(t *testing.T) {
	g := testGuard(&fakeLedger{aggregate: 0, perToken: map[string]float64{"BONK": 494.99}})

	require.NoError(t, g.Check(context.Background(), "BONK", 5))
}

func TestCheckTokenCapIgnoresOtherSymbols(t *testing.T) {
	g := testGuard(&fakeLedger{aggregate: 600, perToken: map[string]float64{"WIF": 499}})

	require.NoError(t, g.Check(context.Background(), "SOL", 5))
}

func TestCheckFailsClosedOnLedgerError(t *testing.T) {
	g := testGuard(&fakeLedger{err: errors.New("connection refused")})

	err := g.Check(context.Background(), "SOL", 5)
	assert.ErrorIs(t, err, domain.ErrRiskRejected)
}

func TestCheckUsesConfiguredWindow(t *testing.T) {
	ledger := &fakeLedger{perToken: map[string]float64{}}
	g := testGuard(ledger)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	require.NoError(t, g.Check(context.Background(), "SOL", 5))
	assert.Equal(t, now.Add(-24*time.Hour), ledger.lastSince)
}
