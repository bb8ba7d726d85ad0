package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sentitrade/internal/domain"
)

// AnalysisStore implements domain.AnalysisStore using PostgreSQL. The rows
// are written by the analysis service; this store only reads them.
type AnalysisStore struct {
	pool *pgxpool.Pool
}

// NewAnalysisStore creates an AnalysisStore backed by the given pool.
func NewAnalysisStore(pool *pgxpool.Pool) *AnalysisStore {
	return &AnalysisStore{pool: pool}
}

const analysisSelectCols = `id, post_id, sentiment_score, confidence, decision,
	reasons, market_conditions, processed_at`

func scanAnalysis(row pgx.Row) (domain.AnalysisResult, error) {
	var (
		a               domain.AnalysisResult
		decision        string
		reasonsJSON     []byte
		marketCondsJSON []byte
	)
	if err := row.Scan(
		&a.ID, &a.PostID, &a.SentimentScore, &a.Confidence,
		&decision, &reasonsJSON, &marketCondsJSON, &a.ProcessedAt,
	); err != nil {
		return domain.AnalysisResult{}, err
	}
	a.Decision = domain.Decision(decision)

	if len(reasonsJSON) > 0 {
		if err := json.Unmarshal(reasonsJSON, &a.Reasons); err != nil {
			return domain.AnalysisResult{}, fmt.Errorf("decode reasons: %w", err)
		}
	}
	if len(marketCondsJSON) > 0 {
		var mc domain.MarketConditions
		if err := json.Unmarshal(marketCondsJSON, &mc); err != nil {
			return domain.AnalysisResult{}, fmt.Errorf("decode market conditions: %w", err)
		}
		a.MarketConditions = &mc
	}
	return a, nil
}

// GetByID fetches one analysis result. It returns domain.ErrNotFound when
// the row does not exist.
func (s *AnalysisStore) GetByID(ctx context.Context, id int64) (domain.AnalysisResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+analysisSelectCols+` FROM analysis_results WHERE id = $1`, id)

	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AnalysisResult{}, domain.ErrNotFound
		}
		return domain.AnalysisResult{}, fmt.Errorf("postgres: get analysis %d: %w", id, err)
	}
	return a, nil
}

// ListUnprocessed returns tradeable analyses newer than cutoff with no trade
// row. Only buy decisions above the confidence floor qualify: anything else
// can never produce a trade, so fetching it again every tick is pointless.
// For qualifying analyses the anti-join is what makes one "handled" — every
// processing attempt leaves a trade row behind, including rejection audit
// rows. Results come back oldest first so stale-but-valid signals are acted
// on in arrival order.
func (s *AnalysisStore) ListUnprocessed(ctx context.Context, cutoff time.Time, minConfidence float64, limit int) ([]domain.AnalysisResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+analysisSelectCols+`
		FROM analysis_results a
		WHERE a.processed_at >= $1
		  AND a.decision = 'buy'
		  AND a.confidence > $2
		  AND NOT EXISTS (SELECT 1 FROM trades t WHERE t.analysis_id = a.id)
		ORDER BY a.processed_at ASC
		LIMIT $3`, cutoff, minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unprocessed analyses: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalysisResult
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Compile-time interface check.
var _ domain.AnalysisStore = (*AnalysisStore)(nil)
