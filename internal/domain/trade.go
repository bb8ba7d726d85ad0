package domain

import "time"

// TradeStatus is the persisted execution state of a trade.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusCompleted TradeStatus = "completed"
	TradeStatusFailed    TradeStatus = "failed"
)

// Trade is the unit of execution state. One analysis result yields at most
// one non-failed trade; the UUID is the idempotency anchor for retries.
// Rows are created by the execution driver and never deleted (only archived).
type Trade struct {
	ID           int64
	UUID         string
	AnalysisID   int64
	TokenSymbol  string
	TokenAmount  float64
	PriceUSD     float64
	TxHash       *string
	IsPaperTrade bool
	Status       TradeStatus
	ExecutedAt   time.Time
	ErrorMessage *string
}

// NotionalUSD returns the USD value of the trade.
func (t Trade) NotionalUSD() float64 {
	return t.TokenAmount * t.PriceUSD
}

// TradeWithContext joins a trade with the analysis and post that produced it,
// for the trade-history API.
type TradeWithContext struct {
	Trade          Trade
	SentimentScore float64
	Confidence     float64
	Decision       Decision
	PostText       string
	AuthorUsername string
	PostURL        string
}

// TradeEvent is published on the signal bus when a trade reaches a terminal
// state, and fans out to WebSocket clients and notification channels.
type TradeEvent struct {
	Event        string  `json:"event"` // "trade_completed", "trade_failed", "risk_rejected"
	TradeUUID    string  `json:"tradeUuid,omitempty"`
	AnalysisID   int64   `json:"analysisId"`
	TokenSymbol  string  `json:"tokenSymbol"`
	TokenAmount  float64 `json:"tokenAmount,omitempty"`
	PriceUSD     float64 `json:"priceUsd,omitempty"`
	NotionalUSD  float64 `json:"notionalUsd,omitempty"`
	TxHash       string  `json:"txHash,omitempty"`
	IsPaperTrade bool    `json:"isPaperTrade"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	Timestamp    int64   `json:"timestamp"`
}
