package token

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentitrade/internal/domain"
)

func testResolver(defaultSymbol string) *Resolver {
	return NewResolver(NewRegexExtractor(), Default(), defaultSymbol, 0.5, slog.Default())
}

func TestResolveFirstCandidateFromText(t *testing.T) {
	r := testResolver("SOL")

	info, err := r.Resolve(domain.AnalysisResult{ID: 1}, domain.Post{
		PostText: "loading up on $WIF and $BONK today",
	})
	require.NoError(t, err)
	assert.Equal(t, "WIF", info.Symbol)
}

func TestResolveFiltersUnknownSymbols(t *testing.T) {
	r := testResolver("SOL")

	info, err := r.Resolve(domain.AnalysisResult{ID: 2}, domain.Post{
		PostText: "$NOTREAL is going to zero but $JUP looks strong",
	})
	require.NoError(t, err)
	assert.Equal(t, "JUP", info.Symbol)
}

func TestResolveRelatedTokensAbovePositivityFloor(t *testing.T) {
	r := testResolver("SOL")

	analysis := domain.AnalysisResult{
		ID: 3,
		MarketConditions: &domain.MarketConditions{
			OverallSentiment: "bullish",
			RelatedTokens: []domain.RelatedToken{
				{Symbol: "RAY", Sentiment: 0.3},  // below floor, skipped
				{Symbol: "ORCA", Sentiment: 0.8}, // included
			},
		},
	}
	info, err := r.Resolve(analysis, domain.Post{PostText: "defi summer is back"})
	require.NoError(t, err)
	assert.Equal(t, "ORCA", info.Symbol)
}

func TestResolveTextBeatsMarketConditions(t *testing.T) {
	r := testResolver("SOL")

	analysis := domain.AnalysisResult{
		ID: 4,
		MarketConditions: &domain.MarketConditions{
			RelatedTokens: []domain.RelatedToken{{Symbol: "ORCA", Sentiment: 0.9}},
		},
	}
	info, err := r.Resolve(analysis, domain.Post{PostText: "$BONK to the moon"})
	require.NoError(t, err)
	assert.Equal(t, "BONK", info.Symbol)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	r := testResolver("SOL")

	info, err := r.Resolve(domain.AnalysisResult{ID: 5}, domain.Post{
		PostText: "feeling bullish about everything",
	})
	require.NoError(t, err)
	assert.Equal(t, "SOL", info.Symbol)
}

func TestResolveUnsupportedDefault(t *testing.T) {
	r := testResolver("DOGE") // not in the instrument table

	_, err := r.Resolve(domain.AnalysisResult{ID: 6}, domain.Post{
		PostText: "nothing tradable here",
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedToken)
}
