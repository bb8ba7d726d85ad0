package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentitrade/internal/domain"
	"sentitrade/internal/executor"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthCheckOK(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"postgres": stubPinger{},
		"redis":    stubPinger{},
	}, slog.Default())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Components["postgres"])
	assert.Equal(t, "ok", body.Components["redis"])
}

func TestHealthCheckDegraded(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"postgres": stubPinger{},
		"redis":    stubPinger{err: errors.New("connection refused")},
	}, slog.Default())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Contains(t, body.Components["redis"], "connection refused")
}

type stubTradeReader struct {
	rows    []domain.TradeWithContext
	gotOpts domain.ListOpts
	err     error
}

func (s *stubTradeReader) ListRecent(_ context.Context, opts domain.ListOpts) ([]domain.TradeWithContext, error) {
	s.gotOpts = opts
	return s.rows, s.err
}

func TestListTrades(t *testing.T) {
	tx := "5TxSignature"
	reader := &stubTradeReader{rows: []domain.TradeWithContext{
		{
			Trade: domain.Trade{
				ID: 1, UUID: "u-1", AnalysisID: 42, TokenSymbol: "SOL",
				TokenAmount: 0.0333, PriceUSD: 150, TxHash: &tx,
				Status:     domain.TradeStatusCompleted,
				ExecutedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			},
			SentimentScore: 0.9,
			Confidence:     0.95,
			Decision:       domain.DecisionBuy,
			PostText:       "big $SOL news",
			AuthorUsername: "trader",
		},
	}}
	h := NewTradesHandler(reader, slog.Default())

	rec := httptest.NewRecorder()
	h.ListTrades(rec, httptest.NewRequest(http.MethodGet, "/api/trades?limit=10&offset=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ListOpts{Limit: 10, Offset: 5}, reader.gotOpts)

	var body listTradesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Trades, 1)
	got := body.Trades[0]
	assert.Equal(t, "u-1", got.UUID)
	assert.Equal(t, "SOL", got.TokenSymbol)
	assert.InDelta(t, 0.0333*150, got.NotionalUSD, 1e-9)
	require.NotNil(t, got.TxHash)
	assert.Equal(t, "5TxSignature", *got.TxHash)
	assert.Equal(t, "buy", got.Decision)
	assert.Equal(t, "2025-06-01T12:00:00Z", got.ExecutedAt)
}

func TestListTradesCapsLimit(t *testing.T) {
	reader := &stubTradeReader{}
	h := NewTradesHandler(reader, slog.Default())

	rec := httptest.NewRecorder()
	h.ListTrades(rec, httptest.NewRequest(http.MethodGet, "/api/trades?limit=9999", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, reader.gotOpts.Limit)
	assert.Contains(t, rec.Body.String(), `"trades":[]`, "empty result is [], not null")
}

type stubPortfolio struct {
	summary domain.PortfolioSummary
	err     error
}

func (s stubPortfolio) Summary(context.Context) (domain.PortfolioSummary, error) {
	return s.summary, s.err
}

func TestGetPortfolio(t *testing.T) {
	h := NewPortfolioHandler(stubPortfolio{summary: domain.PortfolioSummary{
		Exposure24hUSD: 120.5,
		MaxExposureUSD: 2000,
		Distribution:   []domain.TokenExposure{{TokenSymbol: "SOL", USDValue: 100, TradeCount: 3}},
		CompletedCount: 4,
		PaperTrading:   true,
	}}, slog.Default())

	rec := httptest.NewRecorder()
	h.GetPortfolio(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"exposure24hUsd":120.5`)
	assert.Contains(t, rec.Body.String(), `"paperTrading":true`)
}

func TestGetPortfolioError(t *testing.T) {
	h := NewPortfolioHandler(stubPortfolio{err: errors.New("connection refused")}, slog.Default())

	rec := httptest.NewRecorder()
	h.GetPortfolio(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type stubTrigger struct {
	outcome   executor.Outcome
	err       error
	processed int
	gotID     int64
	gotWindow time.Duration
}

func (s *stubTrigger) ProcessAnalysis(_ context.Context, id int64) (executor.Outcome, error) {
	s.gotID = id
	return s.outcome, s.err
}

func (s *stubTrigger) ProcessPending(_ context.Context, window time.Duration) (int, error) {
	s.gotWindow = window
	return s.processed, s.err
}

func TestProcessAnalysisByID(t *testing.T) {
	trigger := &stubTrigger{outcome: executor.Outcome{
		Kind:  executor.OutcomeExecuted,
		Trade: &domain.Trade{UUID: "u-1", Status: domain.TradeStatusCompleted},
	}}
	h := NewProcessHandler(trigger, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/process-analysis", strings.NewReader(`{"analysisId":42}`))
	h.ProcessAnalysis(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), trigger.gotID)
	assert.Contains(t, rec.Body.String(), `"outcome":"executed"`)
	assert.Contains(t, rec.Body.String(), `"tradeUuid":"u-1"`)
}

func TestProcessAnalysisEmptyBodyDrainsPending(t *testing.T) {
	trigger := &stubTrigger{processed: 3}
	h := NewProcessHandler(trigger, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/process-analysis", strings.NewReader(""))
	h.ProcessAnalysis(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Hour, trigger.gotWindow)
	assert.Contains(t, rec.Body.String(), `"processed":3`)
}

func TestProcessAnalysisNotFound(t *testing.T) {
	trigger := &stubTrigger{err: domain.ErrNotFound}
	h := NewProcessHandler(trigger, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/process-analysis", strings.NewReader(`{"analysisId":99}`))
	h.ProcessAnalysis(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcessAnalysisBadBody(t *testing.T) {
	h := NewProcessHandler(&stubTrigger{}, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/process-analysis", strings.NewReader(`{not json`))
	h.ProcessAnalysis(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
