// Package trader drives the position lifecycle: it routes buy signals from
// completed analysis jobs through the entry guard, sizes and submits orders,
// and executes the sell monitor's exit decisions. Every executed trade leaves
// an audit row and a typed event on the bus.
package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/balkhaev/trader-api/internal/analyzer"
	"github.com/balkhaev/trader-api/internal/events"
	"github.com/balkhaev/trader-api/internal/execution"
	"github.com/balkhaev/trader-api/internal/model"
	"github.com/balkhaev/trader-api/internal/portfolio"
)

// Config holds entry sizing and default risk bounds.
type Config struct {
	// CapitalPerTrade is the quote-currency notional for a full-size entry.
	CapitalPerTrade float64

	// SizeFactors scales CapitalPerTrade per strategy name; strategies
	// without an entry trade at factor 1. The short strategy historically
	// trades smaller than the long one.
	SizeFactors map[string]float64

	// Preference orders strategies when several vote to buy the same symbol
	// in one analysis pass; the first listed wins the entry.
	Preference []string

	// Default risk bounds stamped on new positions (PnL ratios).
	StopLossPct   float64
	TakeProfitPct float64
}

// DefaultConfig returns the production entry tuning.
func DefaultConfig() Config {
	return Config{
		CapitalPerTrade: 100,
		SizeFactors: map[string]float64{
			"long":  1,
			"short": 0.5,
			"rsi":   1,
			"e0v1e": 1,
		},
		Preference:    []string{"long", "rsi", "e0v1e", "short"},
		StopLossPct:   0.05,
		TakeProfitPct: 0.10,
	}
}

// Trader owns the entry and exit execution paths. It implements
// portfolio.Exiter for the sell monitor.
//
// The sizing and risk tunables in cfg are guarded by mu so SetRisk can swap
// them while scheduler workers are opening positions; SizeFactors and
// Preference are fixed at construction and read without the lock.
type Trader struct {
	mu       sync.RWMutex
	cfg      Config
	table    *portfolio.Table
	executor model.OrderExecutor
	store    model.PositionStore
	audit    model.AuditStore
	bus      *events.Bus
	log      *slog.Logger
}

// New wires the trader. store, audit and bus may be nil in tests.
func New(cfg Config, table *portfolio.Table, executor model.OrderExecutor,
	store model.PositionStore, audit model.AuditStore, bus *events.Bus, logger *slog.Logger) *Trader {
	if cfg.CapitalPerTrade <= 0 {
		cfg.CapitalPerTrade = 100
	}
	return &Trader{
		cfg:      cfg,
		table:    table,
		executor: executor,
		store:    store,
		audit:    audit,
		bus:      bus,
		log:      logger,
	}
}

// SetRisk swaps the sizing and risk tunables without a restart. Bounds are
// PnL ratios. Non-positive values leave the corresponding field unchanged;
// already open positions keep the bounds they were stamped with.
func (t *Trader) SetRisk(capitalPerTrade, stopLossPct, takeProfitPct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if capitalPerTrade > 0 {
		t.cfg.CapitalPerTrade = capitalPerTrade
	}
	if stopLossPct > 0 {
		t.cfg.StopLossPct = stopLossPct
	}
	if takeProfitPct > 0 {
		t.cfg.TakeProfitPct = takeProfitPct
	}
}

// HandleResult routes a completed analysis: the first preferred strategy
// with a buy vote gets to open the position. Failures are logged, never
// propagated — the scheduler must keep draining.
func (t *Trader) HandleResult(ctx context.Context, res *analyzer.Result) {
	for _, name := range t.preference(res) {
		ms, ok := res.PerStrategy[name]
		if !ok || ms.Signal != model.SignalBuy {
			continue
		}
		if err := t.OpenPosition(ctx, res.Symbol, name, res.LastPrice, ms); err != nil {
			if !errors.Is(err, errSkipped) {
				t.log.Warn("entry failed", "symbol", res.Symbol, "strategy", name, "error", err)
			}
			continue
		}
		return
	}
}

// errSkipped marks a guard rejection: not an error, only a counter.
var errSkipped = errors.New("entry skipped by guard")

// OpenPosition runs the full entry path: reserve, size, submit, commit.
// The reservation is always released unless the commit succeeds.
func (t *Trader) OpenPosition(ctx context.Context, symbol, strategyName string, lastPrice float64, ms model.MetaSignal) error {
	if lastPrice <= 0 {
		return fmt.Errorf("open %s: no market price", symbol)
	}
	if !t.table.TryReserve(symbol) {
		return errSkipped
	}

	committed := false
	defer func() {
		if !committed {
			t.table.Release(symbol)
		}
	}()

	t.mu.RLock()
	capital := t.cfg.CapitalPerTrade * t.sizeFactor(strategyName)
	stopLossPct, takeProfitPct := t.cfg.StopLossPct, t.cfg.TakeProfitPct
	t.mu.RUnlock()
	qty := capital / lastPrice

	orderID, err := t.executor.SubmitOrder(ctx, symbol, model.SideBuy, qty, model.OrderMarket)
	if err != nil {
		if errors.Is(err, execution.ErrOrderRejected) {
			t.log.Warn("order rejected", "symbol", symbol, "strategy", strategyName,
				"qty", qty, "price", lastPrice)
			t.publish(events.Event{
				Kind: events.KindOrderRejected, Symbol: symbol, Strategy: strategyName,
				Price: lastPrice, Qty: qty,
			})
		}
		return fmt.Errorf("submit buy %s: %w", symbol, err)
	}

	now := time.Now().UTC()
	pos := &model.Position{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		EntryPrice:      lastPrice,
		EntryTime:       now,
		Qty:             qty,
		CapitalInvested: capital,
		StopLossPct:     stopLossPct,
		TakeProfitPct:   takeProfitPct,
		Strategy:        strategyName,
		Status:          model.StatusOpen,
		LastPrice:       lastPrice,
	}

	if err := t.table.Commit(pos); err != nil {
		return fmt.Errorf("commit %s: %w", symbol, err)
	}
	committed = true

	if t.store != nil {
		if err := t.store.SaveOpenPosition(pos); err != nil {
			t.log.Error("persist open position", "symbol", symbol, "error", err)
		}
	}
	if t.audit != nil {
		if err := t.audit.RecordBuy(model.BuyAudit{
			Symbol: symbol, Strategy: strategyName, OrderID: orderID,
			Price: lastPrice, Qty: qty, Diagnostics: diagJSON(ms), At: now,
		}); err != nil {
			t.log.Error("audit buy", "symbol", symbol, "error", err)
		}
	}

	t.log.Info("position opened", "symbol", symbol, "strategy", strategyName,
		"qty", qty, "price", lastPrice, "order_id", orderID)
	t.publish(events.Event{
		Kind: events.KindPositionOpened, Symbol: symbol, Strategy: strategyName,
		Price: lastPrice, Qty: qty, Position: snapshot(pos),
	})
	return nil
}

// ClosePosition fully exits pos at price. Part of the portfolio.Exiter
// contract; the monitor guarantees PnL was marked from the same price.
func (t *Trader) ClosePosition(ctx context.Context, pos *model.Position, price float64, reason string) error {
	if _, err := t.executor.SubmitOrder(ctx, pos.Symbol, model.SideSell, pos.Qty, model.OrderMarket); err != nil {
		return fmt.Errorf("submit sell %s: %w", pos.Symbol, err)
	}

	now := time.Now().UTC()
	closed, ok := t.table.ClosePosition(pos.Symbol, price, reason, now)
	if !ok {
		return nil // already closed, first close won
	}

	if t.store != nil {
		if err := t.store.UpdatePosition(closed); err != nil {
			t.log.Error("persist close", "symbol", pos.Symbol, "error", err)
		}
	}
	if t.audit != nil {
		if err := t.audit.RecordSell(model.SellAudit{
			Symbol: closed.Symbol, Strategy: closed.Strategy, Price: price, Qty: closed.Qty,
			PnL: closed.PnL, PnLPct: closed.PnLPct, Reason: reason, At: now,
		}); err != nil {
			t.log.Error("audit sell", "symbol", pos.Symbol, "error", err)
		}
	}

	t.log.Info("position closed", "symbol", closed.Symbol, "strategy", closed.Strategy,
		"reason", reason, "pnl_pct", fmt.Sprintf("%.2f%%", closed.PnLPct*100))
	t.publish(events.Event{
		Kind: events.KindPositionClosed, Symbol: closed.Symbol, Strategy: closed.Strategy,
		Price: price, Qty: closed.Qty, PnL: closed.PnL, PnLPct: closed.PnLPct,
		Reason: reason, Position: snapshot(closed),
	})
	return nil
}

// PartialExit sells fraction of the position's remaining quantity.
func (t *Trader) PartialExit(ctx context.Context, pos *model.Position, price float64, fraction float64) error {
	if fraction <= 0 || fraction >= 1 {
		return fmt.Errorf("partial exit %s: bad fraction %v", pos.Symbol, fraction)
	}
	qty := pos.Qty * fraction

	if _, err := t.executor.SubmitOrder(ctx, pos.Symbol, model.SideSell, qty, model.OrderMarket); err != nil {
		return fmt.Errorf("submit partial sell %s: %w", pos.Symbol, err)
	}

	pos.Qty -= qty
	now := time.Now().UTC()

	if t.store != nil {
		if err := t.store.UpdatePosition(pos); err != nil {
			t.log.Error("persist partial exit", "symbol", pos.Symbol, "error", err)
		}
	}
	if t.audit != nil {
		if err := t.audit.RecordSell(model.SellAudit{
			Symbol: pos.Symbol, Strategy: pos.Strategy, Price: price, Qty: qty,
			PnL: (price - pos.EntryPrice) * qty, PnLPct: pos.PnLPct,
			Reason: model.CloseReasonTakeProfit, Partial: true, At: now,
		}); err != nil {
			t.log.Error("audit partial sell", "symbol", pos.Symbol, "error", err)
		}
	}

	t.log.Info("partial exit", "symbol", pos.Symbol, "fraction", fraction,
		"qty", qty, "price", price)
	t.publish(events.Event{
		Kind: events.KindPartialExit, Symbol: pos.Symbol, Strategy: pos.Strategy,
		Price: price, Qty: qty, PnLPct: pos.PnLPct, Position: snapshot(pos),
	})
	return nil
}

func (t *Trader) preference(res *analyzer.Result) []string {
	if len(t.cfg.Preference) > 0 {
		return t.cfg.Preference
	}
	return res.BuySignals()
}

func (t *Trader) sizeFactor(strategyName string) float64 {
	if f, ok := t.cfg.SizeFactors[strategyName]; ok && f > 0 {
		return f
	}
	return 1
}

func (t *Trader) publish(ev events.Event) {
	if t.bus != nil {
		t.bus.Publish(ev)
	}
}

func snapshot(pos *model.Position) *model.Position {
	cp := *pos
	return &cp
}

func diagJSON(ms model.MetaSignal) string {
	b, err := json.Marshal(ms.Diagnostics)
	if err != nil {
		return "[]"
	}
	return string(b)
}
