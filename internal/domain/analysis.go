// Package domain defines the core data types, store interfaces, and sentinel
// errors shared across the sentiment trade engine. Types here are plain
// structs; persistence and transport concerns live in their own packages.
package domain

import "time"

// Decision is the trading decision the analysis producer attached to a post.
type Decision string

const (
	DecisionBuy  Decision = "buy"
	DecisionSell Decision = "sell"
	DecisionHold Decision = "hold"
)

// Reasons groups the signal lists the analyzer extracted from a post.
type Reasons struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
	Neutral  []string `json:"neutral"`
}

// RelatedToken is a symbol the analyzer associated with the post, with its
// own sentiment reading.
type RelatedToken struct {
	Symbol    string  `json:"symbol"`
	Sentiment float64 `json:"sentiment"`
}

// MarketConditions carries the analyzer's broader market read, when present.
type MarketConditions struct {
	OverallSentiment string         `json:"overallSentiment"`
	RelatedTokens    []RelatedToken `json:"relatedTokens"`
}

// AnalysisResult is one immutable sentiment signal produced by the analysis
// service. The engine only ever reads these rows.
type AnalysisResult struct {
	ID               int64
	PostID           int64
	SentimentScore   float64 // in [-1, 1]
	Confidence       float64 // in [0, 1]
	Decision         Decision
	Reasons          Reasons
	MarketConditions *MarketConditions
	ProcessedAt      time.Time
}

// Post is the source social-media post an analysis refers to. Read-only
// lookup input for token-symbol extraction.
type Post struct {
	ID                int64
	PostText          string
	AuthorUsername    string
	AuthorDisplayName string
	PostURL           string
	PostedAt          time.Time
}
