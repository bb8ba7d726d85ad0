package token

import (
	"log/slog"
	"strings"

	"sentitrade/internal/domain"
)

// Default returns the built-in instrument table: symbol to mint address with
// decimal precision and a rough USD estimate for paper fills. Append-only
// configuration; estimates are deliberately coarse and only back paper mode
// when no cached price exists.
func Default() domain.TokenMap {
	return domain.TokenMap{
		"SOL":  {Symbol: "SOL", Mint: "So11111111111111111111111111111111111111112", Decimals: 9, EstimatedPriceUSD: 150},
		"USDC": {Symbol: "USDC", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6, EstimatedPriceUSD: 1},
		"USDT": {Symbol: "USDT", Mint: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Decimals: 6, EstimatedPriceUSD: 1},
		"JUP":  {Symbol: "JUP", Mint: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", Decimals: 6, EstimatedPriceUSD: 0.9},
		"BONK": {Symbol: "BONK", Mint: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Decimals: 5, EstimatedPriceUSD: 0.00002},
		"WIF":  {Symbol: "WIF", Mint: "EKpQGSJtjMvqKoisjV3WRNYLHsXU8bEH6ZVnqUB6nQvH", Decimals: 6, EstimatedPriceUSD: 2},
		"RAY":  {Symbol: "RAY", Mint: "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", Decimals: 6, EstimatedPriceUSD: 4},
		"ORCA": {Symbol: "ORCA", Mint: "orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE", Decimals: 6, EstimatedPriceUSD: 3},
	}
}

// Resolver turns an analysis result plus its source post into a tradable
// instrument.
type Resolver struct {
	extractor       Extractor
	tokens          domain.TokenMap
	defaultSymbol   string
	positivityFloor float64
	logger          *slog.Logger
}

// NewResolver creates a Resolver over the given instrument table. Related
// tokens from market conditions are only considered when their sentiment is
// at or above positivityFloor. defaultSymbol is the fallback when nothing
// extractable survives filtering (typically the network's native asset).
func NewResolver(extractor Extractor, tokens domain.TokenMap, defaultSymbol string, positivityFloor float64, logger *slog.Logger) *Resolver {
	return &Resolver{
		extractor:       extractor,
		tokens:          tokens,
		defaultSymbol:   strings.ToUpper(defaultSymbol),
		positivityFloor: positivityFloor,
		logger:          logger.With(slog.String("component", "resolver")),
	}
}

// Candidates returns the ordered candidate list for a signal: post-text
// extractions first, then positively-mentioned related tokens, both filtered
// to the instrument table, with the default symbol appended when nothing
// survives. The list is never empty.
func (r *Resolver) Candidates(analysis domain.AnalysisResult, post domain.Post) []string {
	var out []string
	seen := make(map[string]bool)

	add := func(sym string) {
		sym = strings.ToUpper(sym)
		if seen[sym] {
			return
		}
		if _, ok := r.tokens.Lookup(sym); !ok {
			return
		}
		seen[sym] = true
		out = append(out, sym)
	}

	for _, sym := range r.extractor.Extract(post.PostText) {
		add(sym)
	}

	if analysis.MarketConditions != nil {
		for _, rt := range analysis.MarketConditions.RelatedTokens {
			if rt.Sentiment >= r.positivityFloor {
				add(rt.Symbol)
			}
		}
	}

	if len(out) == 0 {
		out = append(out, r.defaultSymbol)
	}
	return out
}

// Resolve picks the trading target for a signal. Selection is the first
// candidate: a deterministic, order-dependent tie-break, fixed as policy.
// It returns domain.ErrUnsupportedToken when the pick is not in the
// instrument table; callers must treat that as a no-trade outcome, not an
// operational error.
func (r *Resolver) Resolve(analysis domain.AnalysisResult, post domain.Post) (domain.TokenInfo, error) {
	candidates := r.Candidates(analysis, post)
	pick := candidates[0]

	info, ok := r.tokens.Lookup(pick)
	if !ok {
		r.logger.Warn("selected symbol not tradable",
			slog.String("symbol", pick),
			slog.Int64("analysis_id", analysis.ID),
		)
		return domain.TokenInfo{}, domain.ErrUnsupportedToken
	}

	r.logger.Debug("resolved trading target",
		slog.String("symbol", info.Symbol),
		slog.Int64("analysis_id", analysis.ID),
		slog.Int("candidates", len(candidates)),
	)
	return info, nil
}
