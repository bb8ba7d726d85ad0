package s3blob

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentitrade/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
	err     error
}

func (w *memWriter) Write(_ context.Context, key string, data []byte, _ string) error {
	if w.err != nil {
		return w.err
	}
	w.objects[key] = append([]byte(nil), data...)
	return nil
}

type memArchiveStore struct {
	trades    []domain.Trade
	deleted   []time.Time
	deleteErr error
}

func (s *memArchiveStore) ListBefore(_ context.Context, before time.Time) ([]domain.Trade, error) {
	var out []domain.Trade
	for _, t := range s.trades {
		if t.ExecutedAt.Before(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memArchiveStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	s.deleted = append(s.deleted, before)
	var kept []domain.Trade
	var n int64
	for _, t := range s.trades {
		if t.ExecutedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	s.trades = kept
	return n, nil
}

func archiveFixture() (*Archiver, *memWriter, *memArchiveStore) {
	tx := "5TxSignature"
	store := &memArchiveStore{trades: []domain.Trade{
		{ID: 1, UUID: "u-1", AnalysisID: 10, TokenSymbol: "SOL", TokenAmount: 0.03, PriceUSD: 150,
			TxHash: &tx, Status: domain.TradeStatusCompleted,
			ExecutedAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)},
		{ID: 2, UUID: "u-2", AnalysisID: 11, TokenSymbol: "WIF", TokenAmount: 2, PriceUSD: 2,
			IsPaperTrade: true, Status: domain.TradeStatusCompleted,
			ExecutedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 3, UUID: "u-3", AnalysisID: 12, TokenSymbol: "SOL", Status: domain.TradeStatusCompleted,
			ExecutedAt: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)},
	}}
	writer := &memWriter{objects: map[string][]byte{}}
	a := NewArchiver(writer, store, 90*24*time.Hour, time.Hour, slog.Default())
	a.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return a, writer, store
}

func TestArchiveOnceMovesOldTrades(t *testing.T) {
	a, writer, store := archiveFixture()

	n, err := a.ArchiveOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "rows older than retention are moved")

	require.Len(t, writer.objects, 1)
	data, ok := writer.objects["archive/trades/2025-03/20250601T120000Z.jsonl"]
	require.True(t, ok, "object is keyed by cutoff month and run time, got %v", keys(writer.objects))

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"uuid":"u-1"`)
	assert.Contains(t, string(lines[0]), `"txHash":"5TxSignature"`)
	assert.Contains(t, string(lines[1]), `"isPaperTrade":true`)

	require.Len(t, store.trades, 1, "recent rows stay in the primary store")
	assert.Equal(t, int64(3), store.trades[0].ID)
}

func TestArchiveOnceKeepsEarlierBatchesInSameMonth(t *testing.T) {
	a, writer, store := archiveFixture()
	store.trades = append(store.trades, domain.Trade{
		ID: 4, UUID: "u-4", AnalysisID: 13, TokenSymbol: "BONK",
		Status:     domain.TradeStatusCompleted,
		ExecutedAt: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	})

	n, err := a.ArchiveOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	// Four days later the u-4 row has aged past retention too; its cutoff
	// falls in the same month as the first run's.
	a.now = func() time.Time {
		return time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)
	}
	n, err = a.ArchiveOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.Len(t, writer.objects, 2, "each run writes its own object, got %v", keys(writer.objects))
	first := writer.objects["archive/trades/2025-03/20250601T120000Z.jsonl"]
	second := writer.objects["archive/trades/2025-03/20250605T120000Z.jsonl"]
	assert.Contains(t, string(first), `"uuid":"u-1"`, "first batch survives the second run")
	assert.Contains(t, string(second), `"uuid":"u-4"`)
	assert.NotContains(t, string(second), `"uuid":"u-1"`)
}

func TestArchiveOnceNoOldTrades(t *testing.T) {
	a, writer, store := archiveFixture()
	store.trades = store.trades[2:] // only the recent row

	n, err := a.ArchiveOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.objects, "no object is written when nothing qualifies")
}

func TestArchiveOnceUploadFailureKeepsRows(t *testing.T) {
	a, writer, store := archiveFixture()
	writer.err = errors.New("access denied")

	_, err := a.ArchiveOnce(context.Background())
	require.Error(t, err)
	assert.Len(t, store.trades, 3, "a failed upload must not prune the store")
	assert.Empty(t, store.deleted)
}

func TestArchiveOnceDeleteFailureSurfaces(t *testing.T) {
	a, _, store := archiveFixture()
	store.deleteErr = errors.New("connection refused")

	_, err := a.ArchiveOnce(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "prune"))
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
