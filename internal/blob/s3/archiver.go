package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"sentitrade/internal/domain"
)

// TradeArchiveStore is the slice of the trade store the archiver needs:
// read old rows, then prune them once the archive upload succeeded.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver moves trades older than the retention period from the primary
// store into monthly JSONL objects. Rows are deleted only after the upload
// succeeded; a failed upload leaves the primary store untouched and the
// next run retries the same range.
type Archiver struct {
	writer domain.BlobWriter
	trades TradeArchiveStore

	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiver creates an Archiver that retains rows for retention and runs
// every interval.
func NewArchiver(writer domain.BlobWriter, trades TradeArchiveStore, retention, interval time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		trades:    trades,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "archiver")),
		now:       time.Now,
	}
}

// Run archives on startup and then on every interval until the context is
// cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.Info("archiver started",
		slog.Duration("retention", a.retention),
		slog.Duration("interval", a.interval),
	)
	defer a.logger.Info("archiver stopped")

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if n, err := a.ArchiveOnce(ctx); err != nil {
			a.logger.Error("archive run failed", slog.String("error", err.Error()))
		} else if n > 0 {
			a.logger.Info("trades archived", slog.Int64("count", n))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ArchiveOnce archives and prunes everything older than the retention
// cutoff. It returns the number of rows moved.
func (a *Archiver) ArchiveOnce(ctx context.Context) (int64, error) {
	before := a.now().UTC().Add(-a.retention)

	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	key := archiveKey(before, a.now().UTC())
	if err := a.writer.Write(ctx, key, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}

	deleted, err := a.trades.DeleteBefore(ctx, before)
	if err != nil {
		// The upload is durable; the rows will be re-archived into a new
		// object on the next run, so cold storage may hold duplicates but
		// never loses rows.
		return 0, fmt.Errorf("s3blob: archive prune: %w", err)
	}

	a.logger.Debug("archive object written",
		slog.String("key", key),
		slog.Int64("rows", deleted),
	)
	return deleted, nil
}

// archiveKey partitions archive objects by the year-month of the cutoff,
// with the run timestamp making each batch its own object so successive
// runs in the same month never overwrite earlier batches:
//
//	archive/trades/2025-01/20250401T060000Z.jsonl
func archiveKey(before, runAt time.Time) string {
	return fmt.Sprintf("archive/trades/%s/%s.jsonl",
		before.Format("2006-01"), runAt.Format("20060102T150405Z"))
}

// tradeRecord is the archived wire form of a trade row.
type tradeRecord struct {
	ID           int64     `json:"id"`
	UUID         string    `json:"uuid"`
	AnalysisID   int64     `json:"analysisId"`
	TokenSymbol  string    `json:"tokenSymbol"`
	TokenAmount  float64   `json:"tokenAmount"`
	PriceUSD     float64   `json:"priceUsd"`
	TxHash       *string   `json:"txHash,omitempty"`
	IsPaperTrade bool      `json:"isPaperTrade"`
	Status       string    `json:"status"`
	ExecutedAt   time.Time `json:"executedAt"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
}

// marshalJSONL serializes trades as newline-delimited JSON, one compact
// object per line.
func marshalJSONL(trades []domain.Trade) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, t := range trades {
		rec := tradeRecord{
			ID:           t.ID,
			UUID:         t.UUID,
			AnalysisID:   t.AnalysisID,
			TokenSymbol:  t.TokenSymbol,
			TokenAmount:  t.TokenAmount,
			PriceUSD:     t.PriceUSD,
			TxHash:       t.TxHash,
			IsPaperTrade: t.IsPaperTrade,
			Status:       string(t.Status),
			ExecutedAt:   t.ExecutedAt,
			ErrorMessage: t.ErrorMessage,
		}
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
