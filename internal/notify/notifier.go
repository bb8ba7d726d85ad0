// Package notify delivers trade events to operator channels. The notifier
// subscribes to the engine's trade event bus and fans each event out to all
// configured senders (Telegram, Discord), optionally filtered by event type
// so operators receive only the alerts they care about.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"sentitrade/internal/domain"
	"sentitrade/internal/executor"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel ("telegram", "discord").
	Name() string
}

// Notifier consumes trade events and dispatches them to senders. Delivery
// is best effort: a failing channel never blocks the others, and nothing
// here feeds back into trade execution.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types; empty means all
	logger  *slog.Logger
}

// New creates a Notifier delivering to the given senders. When events is
// non-empty, only those event types are forwarded.
func New(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Run subscribes to the trade event channel and delivers events until the
// context is cancelled.
func (n *Notifier) Run(ctx context.Context, bus domain.SignalBus) error {
	if !n.Enabled() {
		<-ctx.Done()
		return ctx.Err()
	}

	ch, err := bus.Subscribe(ctx, executor.BusChannel)
	if err != nil {
		return fmt.Errorf("notify: subscribe: %w", err)
	}
	n.logger.Info("notifier started", slog.Int("senders", len(n.senders)))
	defer n.logger.Info("notifier stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			n.handle(ctx, payload)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, payload []byte) {
	var ev domain.TradeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		n.logger.Warn("undecodable trade event", slog.String("error", err.Error()))
		return
	}
	if len(n.events) > 0 && !n.events[ev.Event] {
		n.logger.Debug("event filtered out", slog.String("event", ev.Event))
		return
	}

	title, message := formatEvent(ev)
	if err := n.dispatch(ctx, title, message); err != nil {
		n.logger.Error("notification delivery incomplete", slog.String("error", err.Error()))
	}
}

// dispatch sends to every channel, collecting failures into one error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.Debug("notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// formatEvent renders a trade event as an operator-facing title and body.
func formatEvent(ev domain.TradeEvent) (title, message string) {
	mode := "live"
	if ev.IsPaperTrade {
		mode = "paper"
	}

	switch ev.Event {
	case "trade_completed":
		title = fmt.Sprintf("Trade completed: %s", ev.TokenSymbol)
		message = fmt.Sprintf("%.6f %s at $%.4f ($%.2f, %s)",
			ev.TokenAmount, ev.TokenSymbol, ev.PriceUSD, ev.NotionalUSD, mode)
		if ev.TxHash != "" {
			message += "\ntx: " + ev.TxHash
		}
	case "trade_failed":
		title = fmt.Sprintf("Trade failed: %s", ev.TokenSymbol)
		message = fmt.Sprintf("analysis %d: %s", ev.AnalysisID, ev.ErrorMessage)
	case "risk_rejected":
		title = fmt.Sprintf("Risk guard rejected: %s", ev.TokenSymbol)
		message = fmt.Sprintf("$%.2f blocked: %s", ev.NotionalUSD, ev.ErrorMessage)
	default:
		title = ev.Event
		message = fmt.Sprintf("analysis %d, token %s", ev.AnalysisID, ev.TokenSymbol)
	}
	return title, message
}
