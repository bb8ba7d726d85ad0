package intake

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentitrade/internal/domain"
	"sentitrade/internal/executor"
)

type fakeAnalysisStore struct {
	mu      sync.Mutex
	byID    map[int64]domain.AnalysisResult
	pending []domain.AnalysisResult
	listErr error

	gotCutoff  time.Time
	gotMinConf float64
}

func (s *fakeAnalysisStore) GetByID(_ context.Context, id int64) (domain.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return domain.AnalysisResult{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *fakeAnalysisStore) ListUnprocessed(_ context.Context, cutoff time.Time, minConfidence float64, limit int) ([]domain.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.gotCutoff = cutoff
	s.gotMinConf = minConfidence
	if limit > len(s.pending) {
		limit = len(s.pending)
	}
	batch := append([]domain.AnalysisResult(nil), s.pending[:limit]...)
	return batch, nil
}

// settle removes signals the processor handled, mimicking the trades
// anti-join.
func (s *fakeAnalysisStore) settle(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep := s.pending[:0]
	for _, a := range s.pending {
		settled := false
		for _, id := range ids {
			if a.ID == id {
				settled = true
				break
			}
		}
		if !settled {
			keep = append(keep, a)
		}
	}
	s.pending = keep
}

type fakeProcessor struct {
	mu      sync.Mutex
	calls   []int64
	outcome executor.Outcome
	errFor  map[int64]error
	store   *fakeAnalysisStore
}

func (p *fakeProcessor) Execute(_ context.Context, analysis domain.AnalysisResult) (executor.Outcome, error) {
	p.mu.Lock()
	p.calls = append(p.calls, analysis.ID)
	err := p.errFor[analysis.ID]
	p.mu.Unlock()
	if err != nil {
		return executor.Outcome{}, err
	}
	if p.store != nil {
		p.store.settle(analysis.ID)
	}
	return p.outcome, nil
}

func (p *fakeProcessor) callIDs() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.calls...)
}

type fixedCooldowns struct {
	until time.Time
}

func (c *fixedCooldowns) SetNextAllowedAt(_ context.Context, _ string, at time.Time) error {
	c.until = at
	return nil
}

func (c *fixedCooldowns) NextAllowedAt(context.Context, string) (time.Time, error) {
	return c.until, nil
}

func analyses(ids ...int64) []domain.AnalysisResult {
	out := make([]domain.AnalysisResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.AnalysisResult{ID: id, PostID: id, Decision: domain.DecisionBuy, Confidence: 0.9})
	}
	return out
}

func newLoopFixture(pending []domain.AnalysisResult) (*Loop, *fakeAnalysisStore, *fakeProcessor, *fixedCooldowns) {
	store := &fakeAnalysisStore{byID: map[int64]domain.AnalysisResult{}, pending: pending}
	for _, a := range pending {
		store.byID[a.ID] = a
	}
	proc := &fakeProcessor{
		outcome: executor.Outcome{Kind: executor.OutcomeExecuted},
		errFor:  map[int64]error{},
		store:   store,
	}
	cooldowns := &fixedCooldowns{}
	loop := NewLoop(store, cooldowns, proc, Config{
		PollInterval:  5 * time.Second,
		BatchSize:     2,
		ItemDelay:     time.Millisecond,
		RecencyCutoff: 30 * time.Minute,
		MinConfidence: 0.80,
	}, slog.Default())
	loop.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return loop, store, proc, cooldowns
}

func TestTickProcessesBatchInOrder(t *testing.T) {
	loop, store, proc, _ := newLoopFixture(analyses(1, 2, 3))

	require.NoError(t, loop.tick(context.Background()))
	assert.Equal(t, []int64{1, 2}, proc.callIDs(), "batch size bounds one tick")

	assert.Equal(t, loop.now().Add(-30*time.Minute), store.gotCutoff)
	assert.Equal(t, 0.80, store.gotMinConf)

	require.NoError(t, loop.tick(context.Background()))
	assert.Equal(t, []int64{1, 2, 3}, proc.callIDs())
}

func TestTickSkipsDuringCooldown(t *testing.T) {
	loop, _, proc, cooldowns := newLoopFixture(analyses(1))
	cooldowns.until = loop.now().Add(time.Minute)

	require.NoError(t, loop.tick(context.Background()))
	assert.Empty(t, proc.callIDs())

	cooldowns.until = loop.now().Add(-time.Second)
	require.NoError(t, loop.tick(context.Background()))
	assert.Equal(t, []int64{1}, proc.callIDs())
}

func TestTickContinuesPastFailingSignal(t *testing.T) {
	loop, _, proc, _ := newLoopFixture(analyses(1, 2))
	proc.errFor[1] = errors.New("store unreachable")

	require.NoError(t, loop.tick(context.Background()))
	assert.Equal(t, []int64{1, 2}, proc.callIDs(), "a failing signal must not block the batch")
}

func TestTickReportsListError(t *testing.T) {
	loop, store, proc, _ := newLoopFixture(analyses(1))
	store.listErr = errors.New("connection refused")

	err := loop.tick(context.Background())
	require.Error(t, err)
	assert.Empty(t, proc.callIDs())
}

func TestProcessPendingDrainsAllBatches(t *testing.T) {
	loop, _, proc, _ := newLoopFixture(analyses(1, 2, 3, 4, 5))

	n, err := loop.ProcessPending(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, proc.callIDs())
}

func TestProcessPendingStopsWithoutProgress(t *testing.T) {
	loop, _, proc, _ := newLoopFixture(analyses(1))
	proc.errFor[1] = errors.New("store unreachable")

	n, err := loop.ProcessPending(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []int64{1}, proc.callIDs(), "a stuck signal is attempted once, not spun on")
}

func TestProcessAnalysisByID(t *testing.T) {
	loop, _, proc, _ := newLoopFixture(analyses(7))

	out, err := loop.ProcessAnalysis(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, executor.OutcomeExecuted, out.Kind)
	assert.Equal(t, []int64{7}, proc.callIDs())

	_, err = loop.ProcessAnalysis(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	loop, _, _, _ := newLoopFixture(nil)
	loop.cfg.PollInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
