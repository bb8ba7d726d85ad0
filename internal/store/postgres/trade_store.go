package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sentitrade/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL. The trades table
// doubles as the exposure ledger: risk reads aggregate completed rows within
// a rolling window directly, with no separate cache to go stale.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, uuid, analysis_id, token_symbol, token_amount,
	price_usd, transaction_hash, is_paper_trade, status, executed_at, error_message`

func scanTrade(row pgx.Row) (domain.Trade, error) {
	var (
		t      domain.Trade
		status string
	)
	if err := row.Scan(
		&t.ID, &t.UUID, &t.AnalysisID, &t.TokenSymbol, &t.TokenAmount,
		&t.PriceUSD, &t.TxHash, &t.IsPaperTrade, &status, &t.ExecutedAt, &t.ErrorMessage,
	); err != nil {
		return domain.Trade{}, err
	}
	t.Status = domain.TradeStatus(status)
	return t, nil
}

// Create inserts a trade row and returns its id.
func (s *TradeStore) Create(ctx context.Context, trade domain.Trade) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO trades (
			uuid, analysis_id, token_symbol, token_amount, price_usd,
			transaction_hash, is_paper_trade, status, executed_at, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		trade.UUID, trade.AnalysisID, trade.TokenSymbol, trade.TokenAmount,
		trade.PriceUSD, trade.TxHash, trade.IsPaperTrade, string(trade.Status),
		trade.ExecutedAt, trade.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: create trade for analysis %d: %w", trade.AnalysisID, err)
	}
	return id, nil
}

// MarkCompleted transitions a pending trade to completed with its realized
// amount, price, and transaction hash.
func (s *TradeStore) MarkCompleted(ctx context.Context, id int64, tokenAmount, priceUSD float64, txHash *string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE trades
		SET status = 'completed', token_amount = $2, price_usd = $3,
			transaction_hash = $4, error_message = NULL
		WHERE id = $1 AND status = 'pending'`,
		id, tokenAmount, priceUSD, txHash)
	if err != nil {
		return fmt.Errorf("postgres: mark trade %d completed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailedByAnalysis locates the pending trade for analysisID and marks it
// failed with the given message, preserving the at-most-one-non-failed-trade
// invariant: the existing row is resolved rather than a duplicate created.
func (s *TradeStore) MarkFailedByAnalysis(ctx context.Context, analysisID int64, errMsg string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE trades SET status = 'failed', error_message = $2
		WHERE analysis_id = $1 AND status = 'pending'`,
		analysisID, errMsg)
	if err != nil {
		return fmt.Errorf("postgres: mark trade failed for analysis %d: %w", analysisID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindNonFailedByAnalysis returns the pending or completed trade for an
// analysis, or domain.ErrNotFound. The partial unique index guarantees at
// most one such row.
func (s *TradeStore) FindNonFailedByAnalysis(ctx context.Context, analysisID int64) (domain.Trade, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+tradeSelectCols+`
		FROM trades WHERE analysis_id = $1 AND status <> 'failed'`, analysisID)

	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trade{}, domain.ErrNotFound
		}
		return domain.Trade{}, fmt.Errorf("postgres: find trade for analysis %d: %w", analysisID, err)
	}
	return t, nil
}

// ExposureSince returns the summed USD value of completed trades executed at
// or after since.
func (s *TradeStore) ExposureSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(token_amount * price_usd), 0)
		FROM trades WHERE status = 'completed' AND executed_at >= $1`, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: exposure since %s: %w", since.Format(time.RFC3339), err)
	}
	return total, nil
}

// TokenExposureSince is ExposureSince restricted to one token symbol.
func (s *TradeStore) TokenExposureSince(ctx context.Context, symbol string, since time.Time) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(token_amount * price_usd), 0)
		FROM trades
		WHERE status = 'completed' AND token_symbol = $1 AND executed_at >= $2`,
		symbol, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: token exposure %s: %w", symbol, err)
	}
	return total, nil
}

// DistributionSince returns per-token completed-trade USD value, largest
// first.
func (s *TradeStore) DistributionSince(ctx context.Context, since time.Time) ([]domain.TokenExposure, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token_symbol, COALESCE(SUM(token_amount * price_usd), 0), COUNT(*)
		FROM trades
		WHERE status = 'completed' AND executed_at >= $1
		GROUP BY token_symbol
		ORDER BY 2 DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: trade distribution: %w", err)
	}
	defer rows.Close()

	var out []domain.TokenExposure
	for rows.Next() {
		var e domain.TokenExposure
		if err := rows.Scan(&e.TokenSymbol, &e.USDValue, &e.TradeCount); err != nil {
			return nil, fmt.Errorf("postgres: scan distribution: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByStatus counts trades with the given status executed at or after
// since.
func (s *TradeStore) CountByStatus(ctx context.Context, status domain.TradeStatus, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM trades WHERE status = $1 AND executed_at >= $2`,
		string(status), since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count %s trades: %w", status, err)
	}
	return n, nil
}

// ListRecent returns trades newest first with joined analysis and post
// context for the trade-history API.
func (s *TradeStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.TradeWithContext, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.uuid, t.analysis_id, t.token_symbol, t.token_amount,
			t.price_usd, t.transaction_hash, t.is_paper_trade, t.status,
			t.executed_at, t.error_message,
			a.sentiment_score, a.confidence, a.decision,
			p.post_text, p.author_username, p.post_url
		FROM trades t
		JOIN analysis_results a ON a.id = t.analysis_id
		JOIN posts p ON p.id = a.post_id
		ORDER BY t.executed_at DESC
		LIMIT $1 OFFSET $2`, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeWithContext
	for rows.Next() {
		var (
			tc       domain.TradeWithContext
			status   string
			decision string
		)
		if err := rows.Scan(
			&tc.Trade.ID, &tc.Trade.UUID, &tc.Trade.AnalysisID, &tc.Trade.TokenSymbol,
			&tc.Trade.TokenAmount, &tc.Trade.PriceUSD, &tc.Trade.TxHash,
			&tc.Trade.IsPaperTrade, &status, &tc.Trade.ExecutedAt, &tc.Trade.ErrorMessage,
			&tc.SentimentScore, &tc.Confidence, &decision,
			&tc.PostText, &tc.AuthorUsername, &tc.PostURL,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan recent trade: %w", err)
		}
		tc.Trade.Status = domain.TradeStatus(status)
		tc.Decision = domain.Decision(decision)
		out = append(out, tc)
	}
	return out, rows.Err()
}

// ListBefore returns all trades executed strictly before the given time, for
// archiving.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeSelectCols+`
		FROM trades WHERE executed_at < $1 ORDER BY executed_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteBefore deletes all trades executed before the given time and returns
// the number removed. Only called after a successful archive write.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE executed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
