// Package executor turns a sentiment analysis result into at most one trade.
// The driver runs the full pipeline for a single signal: idempotency check,
// token resolution, position sizing, risk check, then paper or live
// execution against the DEX aggregator. Every processing attempt on a
// tradable signal leaves a trade row behind, so a signal is never executed
// twice and rejections stay auditable.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sentitrade/internal/domain"
	"sentitrade/internal/platform/jupiter"
)

const (
	// usdcMint is the quote currency for all live swaps.
	usdcMint     = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	usdcDecimals = 6

	// BusChannel is the signal-bus channel trade events are published on.
	BusChannel = "trades"

	// CooldownSource keys the aggregator back-off record shared with the
	// intake loop.
	CooldownSource = "jupiter"
)

// Quoter fetches swap quotes and builds swap transactions. Implemented by
// the Jupiter client.
type Quoter interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*jupiter.Quote, error)
	BuildSwapTransaction(ctx context.Context, quote *jupiter.Quote, userPublicKey string) ([]byte, error)
}

// ChainClient submits and confirms transactions. Implemented by the Solana
// RPC client.
type ChainClient interface {
	SubmitTransaction(ctx context.Context, signedTx []byte, maxRetries int) (string, error)
	LatestBlockhash(ctx context.Context) (string, int64, error)
	ConfirmTransaction(ctx context.Context, signature string) error
}

// Signer holds the trading key. A nil Signer forces paper mode.
type Signer interface {
	PublicKey() string
	SignTransaction(rawTx []byte) ([]byte, error)
}

// Resolver picks the trading target for a signal.
type Resolver interface {
	Resolve(analysis domain.AnalysisResult, post domain.Post) (domain.TokenInfo, error)
}

// Sizer converts a signal into a USD notional. Zero means no trade.
type Sizer interface {
	NotionalUSD(analysis domain.AnalysisResult) float64
}

// RiskChecker validates a proposed trade against portfolio exposure limits.
type RiskChecker interface {
	Check(ctx context.Context, symbol string, notionalUSD float64) error
}

// OutcomeKind classifies what the driver did with a signal.
type OutcomeKind string

const (
	// OutcomeExecuted means a completed trade row was written (paper or live).
	OutcomeExecuted OutcomeKind = "executed"
	// OutcomeDuplicate means a pending or completed trade already existed.
	OutcomeDuplicate OutcomeKind = "duplicate"
	// OutcomeSkipped means the signal could not produce a trade (non-buy,
	// low confidence, unsupported token).
	OutcomeSkipped OutcomeKind = "skipped"
	// OutcomeRejected means the risk guard refused the trade.
	OutcomeRejected OutcomeKind = "rejected"
	// OutcomeFailed means execution was attempted and failed.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome reports the terminal state of one Execute call.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Trade  *domain.Trade
}

// Config holds the execution tunables.
type Config struct {
	SlippageBps      int
	QuoteTimeout     time.Duration
	ConfirmTimeout   time.Duration
	SubmitMaxRetries int
	PaperTrading     bool
	// RateLimitBackoff is how long intake pauses after the aggregator
	// returns 429. Defaults to one minute.
	RateLimitBackoff time.Duration
}

// Deps are the driver's collaborators. Signer may be nil (paper mode);
// everything else is required.
type Deps struct {
	Trades    domain.TradeStore
	Posts     domain.PostStore
	Prices    domain.PriceCache
	Cooldowns domain.CooldownStore
	Bus       domain.SignalBus
	Resolver  Resolver
	Sizer     Sizer
	Risk      RiskChecker
	Quoter    Quoter
	Chain     ChainClient
	Signer    Signer
}

// Driver executes one signal at a time. It is safe for concurrent use as
// long as the stores are; in practice the intake loop serializes calls.
type Driver struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewDriver creates a Driver.
func NewDriver(deps Deps, cfg Config, logger *slog.Logger) *Driver {
	if cfg.RateLimitBackoff <= 0 {
		cfg.RateLimitBackoff = time.Minute
	}
	return &Driver{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "executor")),
		now:    time.Now,
	}
}

// Paper reports whether the driver fills trades locally instead of on-chain.
// True when configured, and forced when no signing key is present.
func (d *Driver) Paper() bool {
	return d.cfg.PaperTrading || d.deps.Signer == nil
}

// Execute runs the full pipeline for one analysis result. The returned
// Outcome describes the terminal state; the error return is reserved for
// infrastructure failures (store unreachable) where the signal's state is
// unknown and a retry is appropriate.
func (d *Driver) Execute(ctx context.Context, analysis domain.AnalysisResult) (Outcome, error) {
	log := d.logger.With(slog.Int64("analysis_id", analysis.ID))

	// 1. Idempotency: at most one non-failed trade per analysis.
	existing, err := d.deps.Trades.FindNonFailedByAnalysis(ctx, analysis.ID)
	if err == nil {
		log.Debug("analysis already has a live trade",
			slog.String("trade_uuid", existing.UUID),
			slog.String("status", string(existing.Status)),
		)
		return Outcome{Kind: OutcomeDuplicate, Reason: domain.ErrAlreadyProcessed.Error(), Trade: &existing}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return Outcome{}, fmt.Errorf("executor: idempotency check: %w", err)
	}

	// 2. Load the source post. A missing post is not fatal: resolution falls
	// back to market conditions and the default symbol.
	post, err := d.deps.Posts.GetByID(ctx, analysis.PostID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return Outcome{}, fmt.Errorf("executor: load post %d: %w", analysis.PostID, err)
		}
		log.Warn("source post missing, resolving from market conditions only",
			slog.Int64("post_id", analysis.PostID),
		)
		post = domain.Post{}
	}

	// 3. Resolve the trading target.
	info, err := d.deps.Resolver.Resolve(analysis, post)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedToken) {
			trade := d.recordNoTrade(ctx, log, analysis, "", "unsupported token")
			return Outcome{Kind: OutcomeSkipped, Reason: "unsupported token", Trade: trade}, nil
		}
		return Outcome{}, fmt.Errorf("executor: resolve token: %w", err)
	}

	// 4. Size the position. Zero means the signal is not tradable.
	notional := d.deps.Sizer.NotionalUSD(analysis)
	if notional <= 0 {
		log.Debug("signal not tradable",
			slog.String("decision", string(analysis.Decision)),
			slog.Float64("confidence", analysis.Confidence),
		)
		return Outcome{Kind: OutcomeSkipped, Reason: "below confidence threshold or non-buy decision"}, nil
	}

	// 5. Risk check against the exposure ledger.
	if err := d.deps.Risk.Check(ctx, info.Symbol, notional); err != nil {
		if errors.Is(err, domain.ErrRiskRejected) {
			log.Warn("risk guard rejected trade",
				slog.String("symbol", info.Symbol),
				slog.Float64("notional_usd", notional),
				slog.String("reason", err.Error()),
			)
			trade := d.recordNoTrade(ctx, log, analysis, info.Symbol, err.Error())
			d.publish(ctx, log, domain.TradeEvent{
				Event:        "risk_rejected",
				AnalysisID:   analysis.ID,
				TokenSymbol:  info.Symbol,
				NotionalUSD:  notional,
				IsPaperTrade: d.Paper(),
				ErrorMessage: err.Error(),
				Timestamp:    d.now().Unix(),
			})
			return Outcome{Kind: OutcomeRejected, Reason: err.Error(), Trade: trade}, nil
		}
		return Outcome{}, fmt.Errorf("executor: risk check: %w", err)
	}

	// 6. Execute.
	if d.Paper() {
		return d.executePaper(ctx, log, analysis, info, notional)
	}
	return d.executeLive(ctx, log, analysis, info, notional)
}

// executePaper fills the trade locally at the best available price estimate:
// the cached market price when present, otherwise the instrument table's
// rough estimate. No network calls are made.
func (d *Driver) executePaper(ctx context.Context, log *slog.Logger, analysis domain.AnalysisResult, info domain.TokenInfo, notional float64) (Outcome, error) {
	price := info.EstimatedPriceUSD
	if cached, _, err := d.deps.Prices.GetPrice(ctx, info.Symbol); err == nil && cached > 0 {
		price = cached
	}
	if price <= 0 {
		trade := d.recordNoTrade(ctx, log, analysis, info.Symbol, "no price estimate")
		return Outcome{Kind: OutcomeFailed, Reason: "no price estimate", Trade: trade}, nil
	}

	trade := domain.Trade{
		UUID:         uuid.New().String(),
		AnalysisID:   analysis.ID,
		TokenSymbol:  info.Symbol,
		TokenAmount:  notional / price,
		PriceUSD:     price,
		IsPaperTrade: true,
		Status:       domain.TradeStatusCompleted,
		ExecutedAt:   d.now(),
	}
	id, err := d.deps.Trades.Create(ctx, trade)
	if err != nil {
		return Outcome{}, fmt.Errorf("executor: create paper trade: %w", err)
	}
	trade.ID = id

	log.Info("paper trade filled",
		slog.String("trade_uuid", trade.UUID),
		slog.String("symbol", info.Symbol),
		slog.Float64("token_amount", trade.TokenAmount),
		slog.Float64("price_usd", price),
		slog.Float64("notional_usd", notional),
	)
	d.publishCompleted(ctx, log, trade)
	return Outcome{Kind: OutcomeExecuted, Trade: &trade}, nil
}

// executeLive writes a pending row, then runs the swap. Any failure past
// this point marks the row failed so the signal is never retried blindly.
func (d *Driver) executeLive(ctx context.Context, log *slog.Logger, analysis domain.AnalysisResult, info domain.TokenInfo, notional float64) (Outcome, error) {
	trade := domain.Trade{
		UUID:        uuid.New().String(),
		AnalysisID:  analysis.ID,
		TokenSymbol: info.Symbol,
		Status:      domain.TradeStatusPending,
		ExecutedAt:  d.now(),
	}
	id, err := d.deps.Trades.Create(ctx, trade)
	if err != nil {
		return Outcome{}, fmt.Errorf("executor: create pending trade: %w", err)
	}
	trade.ID = id

	txSig, tokenAmount, price, err := d.swap(ctx, log, info, notional)
	if err != nil {
		msg := failureMessage(err)
		log.Error("trade execution failed",
			slog.String("trade_uuid", trade.UUID),
			slog.String("symbol", info.Symbol),
			slog.String("error", err.Error()),
		)
		d.failPending(ctx, log, analysis.ID, msg)
		d.publish(ctx, log, domain.TradeEvent{
			Event:        "trade_failed",
			TradeUUID:    trade.UUID,
			AnalysisID:   analysis.ID,
			TokenSymbol:  info.Symbol,
			NotionalUSD:  notional,
			ErrorMessage: msg,
			Timestamp:    d.now().Unix(),
		})
		trade.Status = domain.TradeStatusFailed
		trade.ErrorMessage = &msg
		return Outcome{Kind: OutcomeFailed, Reason: msg, Trade: &trade}, nil
	}

	if err := d.deps.Trades.MarkCompleted(ctx, id, tokenAmount, price, &txSig); err != nil {
		// The swap went through; losing the completion write must not
		// produce a retry, so surface it loudly instead.
		return Outcome{}, fmt.Errorf("executor: mark trade %d completed (tx %s): %w", id, txSig, err)
	}
	trade.TokenAmount = tokenAmount
	trade.PriceUSD = price
	trade.TxHash = &txSig
	trade.Status = domain.TradeStatusCompleted

	// Cache the realized price so paper fills track the market.
	if err := d.deps.Prices.SetPrice(ctx, info.Symbol, price, d.now()); err != nil {
		log.Warn("price cache write failed", slog.String("error", err.Error()))
	}

	log.Info("trade completed",
		slog.String("trade_uuid", trade.UUID),
		slog.String("symbol", info.Symbol),
		slog.Float64("token_amount", tokenAmount),
		slog.Float64("price_usd", price),
		slog.String("tx", txSig),
	)
	d.publishCompleted(ctx, log, trade)
	return Outcome{Kind: OutcomeExecuted, Trade: &trade}, nil
}

// swap runs quote, build, sign, submit, confirm. It returns the transaction
// signature plus the realized token amount and per-token USD price.
func (d *Driver) swap(ctx context.Context, log *slog.Logger, info domain.TokenInfo, notional float64) (string, float64, float64, error) {
	quoteCtx, cancel := context.WithTimeout(ctx, d.cfg.QuoteTimeout)
	defer cancel()

	amountIn := usdcAtomic(notional)
	quote, err := d.deps.Quoter.GetQuote(quoteCtx, usdcMint, info.Mint, amountIn, d.cfg.SlippageBps)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			d.backOff(ctx, log)
		}
		return "", 0, 0, fmt.Errorf("quote: %w", err)
	}

	out, err := decimal.NewFromString(quote.OutAmount)
	if err != nil || out.Sign() <= 0 {
		return "", 0, 0, fmt.Errorf("quote: bad out amount %q", quote.OutAmount)
	}
	tokenAmount := out.Shift(int32(-info.Decimals))
	priceUSD := decimal.NewFromFloat(notional).Div(tokenAmount)

	rawTx, err := d.deps.Quoter.BuildSwapTransaction(quoteCtx, quote, d.deps.Signer.PublicKey())
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			d.backOff(ctx, log)
		}
		return "", 0, 0, fmt.Errorf("build swap: %w", err)
	}

	signedTx, err := d.deps.Signer.SignTransaction(rawTx)
	if err != nil {
		return "", 0, 0, fmt.Errorf("sign: %w", err)
	}

	// RPC reachability gate before committing funds.
	blockhash, height, err := d.deps.Chain.LatestBlockhash(ctx)
	if err != nil {
		return "", 0, 0, fmt.Errorf("rpc unreachable: %w", err)
	}
	log.Debug("submitting swap",
		slog.String("blockhash", blockhash),
		slog.Int64("block_height", height),
		slog.String("out_amount", quote.OutAmount),
	)

	txSig, err := d.deps.Chain.SubmitTransaction(ctx, signedTx, d.cfg.SubmitMaxRetries)
	if err != nil {
		return "", 0, 0, fmt.Errorf("submit: %w", err)
	}

	confirmCtx, cancelConfirm := context.WithTimeout(ctx, d.cfg.ConfirmTimeout)
	defer cancelConfirm()
	if err := d.deps.Chain.ConfirmTransaction(confirmCtx, txSig); err != nil {
		return "", 0, 0, fmt.Errorf("confirm %s: %w", txSig, err)
	}

	return txSig, tokenAmount.InexactFloat64(), priceUSD.InexactFloat64(), nil
}

// recordNoTrade persists a zero-amount failed row so the signal counts as
// handled and the rejection reason is queryable. Write failures are logged,
// not fatal: the worst case is one re-evaluation on the next poll.
func (d *Driver) recordNoTrade(ctx context.Context, log *slog.Logger, analysis domain.AnalysisResult, symbol, reason string) *domain.Trade {
	trade := domain.Trade{
		UUID:         uuid.New().String(),
		AnalysisID:   analysis.ID,
		TokenSymbol:  symbol,
		IsPaperTrade: d.Paper(),
		Status:       domain.TradeStatusFailed,
		ExecutedAt:   d.now(),
		ErrorMessage: &reason,
	}
	id, err := d.deps.Trades.Create(ctx, trade)
	if err != nil {
		log.Error("rejection audit row write failed", slog.String("error", err.Error()))
		return nil
	}
	trade.ID = id
	return &trade
}

// failPending marks the pending row failed. The write uses a detached
// context so shutdown cannot orphan a pending trade.
func (d *Driver) failPending(ctx context.Context, log *slog.Logger, analysisID int64, msg string) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.deps.Trades.MarkFailedByAnalysis(wctx, analysisID, msg); err != nil {
		log.Error("mark trade failed",
			slog.Int64("analysis_id", analysisID),
			slog.String("error", err.Error()),
		)
	}
}

// backOff records an aggregator cooldown so the intake loop pauses instead
// of hammering a rate-limited API.
func (d *Driver) backOff(ctx context.Context, log *slog.Logger) {
	until := d.now().Add(d.cfg.RateLimitBackoff)
	if err := d.deps.Cooldowns.SetNextAllowedAt(ctx, CooldownSource, until); err != nil {
		log.Warn("cooldown write failed", slog.String("error", err.Error()))
		return
	}
	log.Warn("aggregator rate limited, backing off", slog.Time("until", until))
}

func (d *Driver) publishCompleted(ctx context.Context, log *slog.Logger, trade domain.Trade) {
	ev := domain.TradeEvent{
		Event:        "trade_completed",
		TradeUUID:    trade.UUID,
		AnalysisID:   trade.AnalysisID,
		TokenSymbol:  trade.TokenSymbol,
		TokenAmount:  trade.TokenAmount,
		PriceUSD:     trade.PriceUSD,
		NotionalUSD:  trade.NotionalUSD(),
		IsPaperTrade: trade.IsPaperTrade,
		Timestamp:    trade.ExecutedAt.Unix(),
	}
	if trade.TxHash != nil {
		ev.TxHash = *trade.TxHash
	}
	d.publish(ctx, log, ev)
}

// publish fans a trade event out on the signal bus. Event delivery is best
// effort; trade state lives in the store.
func (d *Driver) publish(ctx context.Context, log *slog.Logger, ev domain.TradeEvent) {
	if d.deps.Bus == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error("encode trade event", slog.String("error", err.Error()))
		return
	}
	if err := d.deps.Bus.Publish(ctx, BusChannel, payload); err != nil {
		log.Warn("trade event publish failed",
			slog.String("event", ev.Event),
			slog.String("error", err.Error()),
		)
	}
}

// failureMessage maps execution errors to the persisted error message.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoQuote):
		return "no quote found"
	case errors.Is(err, domain.ErrRateLimited):
		return "aggregator rate limited"
	default:
		return err.Error()
	}
}

// usdcAtomic converts a USD notional to USDC atomic units.
func usdcAtomic(notional float64) uint64 {
	return uint64(decimal.NewFromFloat(notional).Shift(usdcDecimals).Round(0).IntPart())
}
