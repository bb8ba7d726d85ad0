package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// AnalysisStore reads sentiment analysis results. The engine never writes
// these rows; the analysis service owns them.
type AnalysisStore interface {
	GetByID(ctx context.Context, id int64) (AnalysisResult, error)
	// ListUnprocessed returns tradeable analyses (buy decisions above the
	// confidence floor) newer than cutoff that have no trade row yet, oldest
	// first, limited to limit.
	ListUnprocessed(ctx context.Context, cutoff time.Time, minConfidence float64, limit int) ([]AnalysisResult, error)
}

// PostStore reads source posts.
type PostStore interface {
	GetByID(ctx context.Context, id int64) (Post, error)
}

// TradeStore persists trade execution state and serves the exposure ledger.
// Completed trades within a rolling window are the authoritative source for
// risk decisions; there is deliberately no cached copy of that ledger.
type TradeStore interface {
	Create(ctx context.Context, trade Trade) (int64, error)
	// MarkCompleted transitions a pending trade to completed with its
	// realized amount, price, and transaction hash.
	MarkCompleted(ctx context.Context, id int64, tokenAmount, priceUSD float64, txHash *string) error
	// MarkFailedByAnalysis locates the pending trade for analysisID and
	// marks it failed with the given message. It returns ErrNotFound when
	// no pending row exists.
	MarkFailedByAnalysis(ctx context.Context, analysisID int64, errMsg string) error
	// FindNonFailedByAnalysis returns the pending or completed trade for an
	// analysis, or ErrNotFound.
	FindNonFailedByAnalysis(ctx context.Context, analysisID int64) (Trade, error)
	// ExposureSince returns the summed USD value of completed trades
	// executed at or after since.
	ExposureSince(ctx context.Context, since time.Time) (float64, error)
	// TokenExposureSince is ExposureSince restricted to one token symbol.
	TokenExposureSince(ctx context.Context, symbol string, since time.Time) (float64, error)
	DistributionSince(ctx context.Context, since time.Time) ([]TokenExposure, error)
	CountByStatus(ctx context.Context, status TradeStatus, since time.Time) (int64, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]TradeWithContext, error)
	// ListBefore and DeleteBefore support cold-storage archival.
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// PriceCache caches recent token prices, used for paper-trade estimates.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (float64, time.Time, error)
}

// CooldownStore records per-source backoff state as an explicit
// {nextAllowedAt} record rather than ambient process-global maps, so pacing
// is testable with fake clocks and survives restarts.
type CooldownStore interface {
	SetNextAllowedAt(ctx context.Context, source string, at time.Time) error
	// NextAllowedAt returns the recorded time, or the zero time when no
	// cooldown is active.
	NextAllowedAt(ctx context.Context, source string) (time.Time, error)
}

// RateLimiter bounds request rates per key within a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus is a lightweight pub/sub fabric for trade events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter writes archive objects to cold storage.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}
