// Package intake polls the analysis store for fresh, unprocessed signals
// and feeds them one at a time to the execution driver. Batches are small,
// items are paced, and runs are serialized: the loop never races a manual
// trigger from the API.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sentitrade/internal/domain"
	"sentitrade/internal/executor"
)

// Processor executes a single signal. Implemented by the execution driver.
type Processor interface {
	Execute(ctx context.Context, analysis domain.AnalysisResult) (executor.Outcome, error)
}

// Config tunes the polling loop.
type Config struct {
	PollInterval  time.Duration
	BatchSize     int
	ItemDelay     time.Duration
	RecencyCutoff time.Duration
	// MinConfidence filters the intake query to signals that can actually
	// size to a trade. Matches the sizer's confidence threshold.
	MinConfidence float64
}

// Loop is the signal intake loop.
type Loop struct {
	analyses  domain.AnalysisStore
	cooldowns domain.CooldownStore
	proc      Processor
	cfg       Config
	logger    *slog.Logger

	// mu serializes batch runs and manual triggers.
	mu  sync.Mutex
	now func() time.Time
}

// NewLoop creates a Loop.
func NewLoop(analyses domain.AnalysisStore, cooldowns domain.CooldownStore, proc Processor, cfg Config, logger *slog.Logger) *Loop {
	return &Loop{
		analyses:  analyses,
		cooldowns: cooldowns,
		proc:      proc,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "intake")),
		now:       time.Now,
	}
}

// Run polls until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("intake loop started",
		slog.Duration("poll_interval", l.cfg.PollInterval),
		slog.Int("batch_size", l.cfg.BatchSize),
	)
	defer l.logger.Info("intake loop stopped")

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := l.tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("intake tick failed", slog.String("error", err.Error()))
			}
		}
	}
}

// tick fetches and processes one batch. A tick during an aggregator
// cooldown does nothing; fetch errors abort the tick and the next one
// starts clean.
func (l *Loop) tick(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.coolingDown(ctx) {
		return nil
	}

	cutoff := l.now().Add(-l.cfg.RecencyCutoff)
	batch, err := l.analyses.ListUnprocessed(ctx, cutoff, l.cfg.MinConfidence, l.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("intake: list unprocessed: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}
	l.processBatch(ctx, batch)
	return nil
}

// ProcessAnalysis runs one signal by ID, regardless of its age or
// confidence. Backs the manual-trigger API.
func (l *Loop) ProcessAnalysis(ctx context.Context, id int64) (executor.Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	analysis, err := l.analyses.GetByID(ctx, id)
	if err != nil {
		return executor.Outcome{}, fmt.Errorf("intake: load analysis %d: %w", id, err)
	}
	return l.proc.Execute(ctx, analysis)
}

// ProcessPending drains every unprocessed signal newer than window ago and
// returns how many reached a terminal outcome. It stops early when a whole
// batch fails to make progress, so a persistent store error cannot spin.
func (l *Loop) ProcessPending(ctx context.Context, window time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-window)
	processed := 0
	for {
		batch, err := l.analyses.ListUnprocessed(ctx, cutoff, l.cfg.MinConfidence, l.cfg.BatchSize)
		if err != nil {
			return processed, fmt.Errorf("intake: list unprocessed: %w", err)
		}
		if len(batch) == 0 {
			return processed, nil
		}
		n := l.processBatch(ctx, batch)
		processed += n
		if n == 0 {
			return processed, nil
		}
		if err := ctx.Err(); err != nil {
			return processed, err
		}
	}
}

// processBatch runs the batch sequentially with the configured pacing. A
// failing signal is logged and skipped; it never blocks the rest of the
// batch. Returns the number of signals that reached a terminal outcome.
func (l *Loop) processBatch(ctx context.Context, batch []domain.AnalysisResult) int {
	done := 0
	for i, analysis := range batch {
		if i > 0 && l.cfg.ItemDelay > 0 {
			select {
			case <-ctx.Done():
				return done
			case <-time.After(l.cfg.ItemDelay):
			}
		}

		out, err := l.proc.Execute(ctx, analysis)
		if err != nil {
			l.logger.Error("signal processing failed",
				slog.Int64("analysis_id", analysis.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		done++
		l.logger.Info("signal processed",
			slog.Int64("analysis_id", analysis.ID),
			slog.String("outcome", string(out.Kind)),
			slog.String("reason", out.Reason),
		)
	}
	return done
}

// coolingDown reports whether the aggregator back-off is active. Read
// failures do not stop intake.
func (l *Loop) coolingDown(ctx context.Context) bool {
	at, err := l.cooldowns.NextAllowedAt(ctx, executor.CooldownSource)
	if err != nil {
		l.logger.Warn("cooldown read failed", slog.String("error", err.Error()))
		return false
	}
	if at.After(l.now()) {
		l.logger.Debug("aggregator cooldown active", slog.Time("until", at))
		return true
	}
	return false
}
