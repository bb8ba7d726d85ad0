package portfolio

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
	exposureBySince map[time.Time]float64
	distribution    []domain.TokenExposure
	counts          map[domain.TradeStatus]int64
	err             error
}

func (f *fakeLedger) Create(context.Context, domain.Trade) (int64, error) { return 0, nil }

func (f *fakeLedger) MarkCompleted(context.Context, int64, float64, float64, *string) error {
	return nil
}

func (f *fakeLedger) MarkFailedByAnalysis(context.Context, int64, string) error { return nil }

func (f *fakeLedger) FindNonFailedByAnalysis(context.Context, int64) (domain.Trade, error) {
	return domain.Trade{}, domain.ErrNotFound
}

func (f *fakeLedger) ExposureSince(_ context.Context, since time.Time) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.exposureBySince[since.Truncate(time.Second)], nil
}

func (f *fakeLedger) TokenExposureSince(context.Context, string, time.Time) (float64, error) {
	return 0, nil
}

func (f *fakeLedger) DistributionSince(context.Context, time.Time) ([]domain.TokenExposure, error) {
	return f.distribution, nil
}

func (f *fakeLedger) CountByStatus(_ context.Context, status domain.TradeStatus, _ time.Time) (int64, error) {
	return f.counts[status], nil
}

func (f *fakeLedger) ListRecent(context.Context, domain.ListOpts) ([]domain.TradeWithContext, error) {
	return nil, nil
}

func (f *fakeLedger) ListBefore(context.Context, time.Time) ([]domain.Trade, error) {
	return nil, nil
}

func (f *fakeLedger) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func TestSummaryAggregatesWindows(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{
		exposureBySince: map[time.Time]float64{
			now.Add(-24 * time.Hour):                    120.5,
			time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC): 80,
			now.Add(-7 * 24 * time.Hour):                410.25,
		},
		distribution: []domain.TokenExposure{
			{TokenSymbol: "SOL", USDValue: 100, TradeCount: 3},
			{TokenSymbol: "WIF", USDValue: 20.5, TradeCount: 1},
		},
		counts: map[domain.TradeStatus]int64{
			domain.TradeStatusCompleted: 4,
			domain.TradeStatusFailed:    2,
			domain.TradeStatusPending:   1,
		},
	}
	svc := New(ledger, Config{MaxExposureUSD: 2000, Window: 24 * time.Hour, PaperTrading: true}, slog.Default())
	svc.now = func() time.Time { return now }

	got, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 120.5, got.Exposure24hUSD, 1e-9)
	assert.InDelta(t, 80, got.ExposureDayUSD, 1e-9)
	assert.InDelta(t, 410.25, got.ExposureWeekUSD, 1e-9)
	assert.InDelta(t, 2000, got.MaxExposureUSD, 1e-9)
	assert.Len(t, got.Distribution, 2)
	assert.Equal(t, int64(4), got.CompletedCount)
	assert.Equal(t, int64(2), got.FailedCount)
	assert.Equal(t, int64(1), got.PendingCount)
	assert.True(t, got.PaperTrading)
}

func TestSummaryEmptyDistributionIsNotNil(t *testing.T) {
	ledger := &fakeLedger{exposureBySince: map[time.Time]float64{}, counts: map[domain.TradeStatus]int64{}}
	svc := New(ledger, Config{MaxExposureUSD: 2000, Window: 24 * time.Hour}, slog.Default())

	got, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got.Distribution, "JSON consumers expect [], not null")
	assert.Empty(t, got.Distribution)
}

func TestSummaryPropagatesLedgerError(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("connection refused")}
	svc := New(ledger, Config{MaxExposureUSD: 2000, Window: 24 * time.Hour}, slog.Default())

	_, err := svc.Summary(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portfolio:")
}
