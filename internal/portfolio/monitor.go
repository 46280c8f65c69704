package portfolio

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/balkhaev/trader-api/internal/indicator"
	"github.com/balkhaev/trader-api/internal/model"
	"github.com/balkhaev/trader-api/internal/strategy"
)

// Exiter executes exit decisions: full closes and partial ladder exits.
// Implemented by the trader so the monitor never talks to the venue directly.
type Exiter interface {
	// ClosePosition fully closes pos at price with the given reason.
	ClosePosition(ctx context.Context, pos *model.Position, price float64, reason string) error

	// PartialExit sells fraction of the position's current quantity.
	PartialExit(ctx context.Context, pos *model.Position, price float64, fraction float64) error
}

// MonitorConfig tunes the sell loop. Zero values disable the corresponding
// rule (trailing stop, partial ladder, min hold).
type MonitorConfig struct {
	Interval time.Duration

	// Fallback risk bounds for positions created without their own.
	StopLossPct   float64
	TakeProfitPct float64

	// RideTrendMult stretches the take-profit bound while the 1m Supertrend
	// stays bullish: the position rides until profit reaches
	// TakeProfitPct * RideTrendMult. 0 or 1 disables the override.
	RideTrendMult float64

	// Trailing stop: arm at TrailingArmPct unrealized profit, close when
	// profit falls below TrailingStopPct afterwards.
	TrailingArmPct  float64
	TrailingStopPct float64

	// Partial take-profit ladder milestones, ascending. tp1 sells 30% of the
	// position, tp2 half of the remainder, tp3 the rest.
	TP1Pct float64
	TP2Pct float64
	TP3Pct float64

	// MinHold skips the strategy technical exit for young positions. Hard
	// risk rules above still apply.
	MinHold time.Duration

	CandleLimit int
}

// DefaultMonitorConfig returns the production sell-loop tuning.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:      30 * time.Second,
		StopLossPct:   0.05,
		TakeProfitPct: 0.10,
		RideTrendMult: 1.5,
		CandleLimit:   200,
	}
}

// Monitor is the fixed-interval sell loop. Each tick it walks every open
// position, takes one price snapshot, recomputes PnL, and applies the exit
// rules in strict precedence order; at most one rule fires per position per
// tick.
type Monitor struct {
	table      *Table
	source     model.MarketSource
	strategies map[string]strategy.Strategy
	exiter     Exiter
	store      model.PositionStore
	cfg        MonitorConfig
	periods    indicator.Periods
	log        *slog.Logger
}

var sellIntervals = []model.Interval{
	model.Interval1, model.Interval3, model.Interval15, model.Interval30,
}

// NewMonitor wires the sell loop. strategies is keyed by strategy name as
// stamped on positions; store may be nil in tests.
func NewMonitor(table *Table, source model.MarketSource, strategies map[string]strategy.Strategy,
	exiter Exiter, store model.PositionStore, cfg MonitorConfig, logger *slog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = 200
	}
	return &Monitor{
		table:      table,
		source:     source,
		strategies: strategies,
		exiter:     exiter,
		store:      store,
		cfg:        cfg,
		periods:    indicator.DefaultPeriods(),
		log:        logger,
	}
}

// Run drives the tick loop until ctx is cancelled. In-flight tick work
// finishes before Run returns.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.log.Info("sell monitor started", "interval", m.cfg.Interval.String())
	for {
		select {
		case <-ctx.Done():
			m.log.Info("sell monitor stopped")
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick evaluates every open position once.
func (m *Monitor) Tick(ctx context.Context) {
	for _, pos := range m.table.OpenPositions() {
		if err := m.evaluate(ctx, pos, time.Now().UTC()); err != nil {
			log.Printf("[monitor] %s: %v", pos.Symbol, err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// evaluate applies the exit precedence to one position using a single price
// snapshot. First match wins.
func (m *Monitor) evaluate(ctx context.Context, pos *model.Position, now time.Time) error {
	ticker, err := m.source.FetchTicker(ctx, pos.Symbol)
	if err != nil {
		return err
	}
	price := ticker.LastPrice
	pos.MarkPrice(price)
	profit := pos.PnLPct

	candles, err := m.fetchSellCandles(ctx, pos.Symbol)
	if err != nil {
		return err
	}

	// 1. Hard stop-loss / take-profit.
	if sl := m.stopLoss(pos); profit <= -sl {
		return m.exiter.ClosePosition(ctx, pos, price, model.CloseReasonStopLoss)
	}
	if tp := m.takeProfit(pos); profit >= tp {
		if m.rideTrend(price, profit, tp, candles[model.Interval1]) {
			log.Printf("[monitor] %s: take-profit deferred, 1m trend still bullish (pnl %.2f%%)", pos.Symbol, profit*100)
		} else {
			return m.exiter.ClosePosition(ctx, pos, price, model.CloseReasonTakeProfit)
		}
	}

	// 2. Trailing stop: arm once, never re-arm, trip below the floor.
	if m.cfg.TrailingArmPct > 0 {
		if !pos.TrailingArmed && profit >= m.cfg.TrailingArmPct {
			pos.TrailingArmed = true
			m.persist(pos)
			return nil
		}
		if pos.TrailingArmed && profit < m.cfg.TrailingStopPct {
			return m.exiter.ClosePosition(ctx, pos, price, model.CloseReasonTrailingStop)
		}
	}

	// 3. Partial take-profit ladder; each level fires at most once.
	if m.cfg.TP1Pct > 0 {
		switch {
		case !pos.TP1 && profit >= m.cfg.TP1Pct:
			if err := m.exiter.PartialExit(ctx, pos, price, 0.3); err != nil {
				return err
			}
			pos.TP1 = true
			m.persist(pos)
			return nil
		case pos.TP1 && !pos.TP2 && profit >= m.cfg.TP2Pct:
			if err := m.exiter.PartialExit(ctx, pos, price, 0.5); err != nil {
				return err
			}
			pos.TP2 = true
			m.persist(pos)
			return nil
		case pos.TP2 && !pos.TP3 && profit >= m.cfg.TP3Pct:
			pos.TP3 = true
			return m.exiter.ClosePosition(ctx, pos, price, model.CloseReasonTakeProfit)
		}
	}

	// 4. Young positions keep their technical exit disabled.
	if m.cfg.MinHold > 0 && pos.Age(now) < m.cfg.MinHold {
		return nil
	}

	// 5. Strategy technical exit.
	strat, ok := m.strategies[pos.Strategy]
	if !ok {
		return nil
	}
	snap := indicator.Compute(candles[model.Interval30], m.periods)
	ms := strat.EvaluateSell(strategy.SellContext{
		Snapshot:  &snap,
		LastPrice: price,
		Candles:   candles,
		Position:  pos,
		Profit:    profit,
		Now:       now,
	})
	if ms.Signal == model.SignalSell {
		return m.exiter.ClosePosition(ctx, pos, price, model.CloseReasonSignal)
	}
	return nil
}

func (m *Monitor) fetchSellCandles(ctx context.Context, symbol string) (map[model.Interval][]model.Candle, error) {
	out := make(map[model.Interval][]model.Candle, len(sellIntervals))
	for _, iv := range sellIntervals {
		series, err := m.source.FetchCandles(ctx, symbol, iv, m.cfg.CandleLimit)
		if err != nil {
			return nil, err
		}
		out[iv] = series
	}
	return out, nil
}

// rideTrend reports whether a tripped take-profit should be deferred because
// the short-term trend is still running. The deferral is bounded: once profit
// reaches TakeProfitPct * RideTrendMult the close always goes through.
func (m *Monitor) rideTrend(price, profit, tp float64, candles1 []model.Candle) bool {
	if m.cfg.RideTrendMult <= 1 {
		return false
	}
	if profit >= tp*m.cfg.RideTrendMult {
		return false
	}
	st := strategy.SupertrendSignal(price, candles1, 10, 2)
	return st.Signal == model.SignalBuy
}

func (m *Monitor) stopLoss(pos *model.Position) float64 {
	if pos.StopLossPct > 0 {
		return pos.StopLossPct
	}
	return m.cfg.StopLossPct
}

func (m *Monitor) takeProfit(pos *model.Position) float64 {
	if pos.TakeProfitPct > 0 {
		return pos.TakeProfitPct
	}
	return m.cfg.TakeProfitPct
}

func (m *Monitor) persist(pos *model.Position) {
	if m.store == nil {
		return
	}
	if err := m.store.UpdatePosition(pos); err != nil {
		log.Printf("[monitor] persist %s: %v", pos.Symbol, err)
	}
}
