package domain

// TokenExposure is the completed-trade USD value for one token within a
// rolling window.
type TokenExposure struct {
	TokenSymbol string  `json:"tokenSymbol"`
	USDValue    float64 `json:"usdValue"`
	TradeCount  int64   `json:"tradeCount"`
}

// PortfolioSummary is the aggregate view served by GET /api/portfolio.
type PortfolioSummary struct {
	Exposure24hUSD  float64         `json:"exposure24hUsd"`
	ExposureDayUSD  float64         `json:"exposureDayUsd"`
	ExposureWeekUSD float64         `json:"exposureWeekUsd"`
	MaxExposureUSD  float64         `json:"maxExposureUsd"`
	Distribution    []TokenExposure `json:"distribution"`
	CompletedCount  int64           `json:"completedCount"`
	FailedCount     int64           `json:"failedCount"`
	PendingCount    int64           `json:"pendingCount"`
	PaperTrading    bool            `json:"paperTrading"`
}
