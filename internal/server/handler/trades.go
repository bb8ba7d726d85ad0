package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sentitrade/internal/domain"
)

// TradeReader is the slice of the trade store the trades endpoint needs.
type TradeReader interface {
	ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.TradeWithContext, error)
}

// TradesHandler serves trade history.
type TradesHandler struct {
	trades TradeReader
	logger *slog.Logger
}

// NewTradesHandler creates a TradesHandler.
func NewTradesHandler(trades TradeReader, logger *slog.Logger) *TradesHandler {
	return &TradesHandler{trades: trades, logger: logger}
}

// tradeView is the wire form of one trade joined with the signal that
// produced it.
type tradeView struct {
	ID             int64   `json:"id"`
	UUID           string  `json:"uuid"`
	AnalysisID     int64   `json:"analysisId"`
	TokenSymbol    string  `json:"tokenSymbol"`
	TokenAmount    float64 `json:"tokenAmount"`
	PriceUSD       float64 `json:"priceUsd"`
	NotionalUSD    float64 `json:"notionalUsd"`
	TxHash         *string `json:"txHash,omitempty"`
	IsPaperTrade   bool    `json:"isPaperTrade"`
	Status         string  `json:"status"`
	ExecutedAt     string  `json:"executedAt"`
	ErrorMessage   *string `json:"errorMessage,omitempty"`
	SentimentScore float64 `json:"sentimentScore"`
	Confidence     float64 `json:"confidence"`
	Decision       string  `json:"decision"`
	PostText       string  `json:"postText,omitempty"`
	AuthorUsername string  `json:"authorUsername,omitempty"`
	PostURL        string  `json:"postUrl,omitempty"`
}

type listTradesResponse struct {
	Trades []tradeView `json:"trades"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// ListTrades returns recent trades with their originating signal context,
// newest first.
// GET /api/trades?limit=50&offset=0
func (h *TradesHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	rows, err := h.trades.ListRecent(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	views := make([]tradeView, 0, len(rows))
	for _, row := range rows {
		t := row.Trade
		views = append(views, tradeView{
			ID:             t.ID,
			UUID:           t.UUID,
			AnalysisID:     t.AnalysisID,
			TokenSymbol:    t.TokenSymbol,
			TokenAmount:    t.TokenAmount,
			PriceUSD:       t.PriceUSD,
			NotionalUSD:    t.NotionalUSD(),
			TxHash:         t.TxHash,
			IsPaperTrade:   t.IsPaperTrade,
			Status:         string(t.Status),
			ExecutedAt:     t.ExecutedAt.UTC().Format(time.RFC3339),
			ErrorMessage:   t.ErrorMessage,
			SentimentScore: row.SentimentScore,
			Confidence:     row.Confidence,
			Decision:       string(row.Decision),
			PostText:       row.PostText,
			AuthorUsername: row.AuthorUsername,
			PostURL:        row.PostURL,
		})
	}

	writeJSON(w, http.StatusOK, listTradesResponse{
		Trades: views,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}
