package strategy

import (
	"testing"
	"time"

	"github.com/balkhaev/trader-api/internal/indicator"
	"github.com/balkhaev/trader-api/internal/model"
)

func fp(v float64) *float64 { return &v }

// e0v1eSnapshot builds a snapshot with every field the strategy gates on.
func e0v1eSnapshot() *indicator.Snapshot {
	return &indicator.Snapshot{
		RSI:      fp(50),
		RSIFast:  fp(30),
		RSISlow:  fp(45),
		SMA:      fp(100),
		CTI:      fp(0),
		StochRSI: &indicator.StochRSIResult{},
		MACD:     &indicator.MACDResult{},
		CCI:      fp(0),
		FastK:    fp(50),
		MA120:    fp(100),
		MA240:    fp(100),
	}
}

func TestE0V1E_BuyRequiresIndicators(t *testing.T) {
	s := NewE0V1E(DefaultE0V1EParams())

	snap := e0v1eSnapshot()
	snap.CTI = nil

	got := s.EvaluateBuy(Context{Snapshot: snap, LastPrice: 95})
	if got.Signal != model.SignalNeutral {
		t.Fatalf("missing CTI must be neutral, got %d", got.Signal)
	}
	if got.Diagnostics[0].Name != "Insufficient Data" {
		t.Fatalf("unexpected diagnostic %q", got.Diagnostics[0].Name)
	}
}

func TestE0V1E_BuyAllConditions(t *testing.T) {
	s := NewE0V1E(DefaultE0V1EParams())

	// Drifting-down closes give a well-defined previous slow RSI.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 110 - float64(i)*0.5
	}
	candles30 := mkCandles(closes...)

	prev, ok := indicator.LastRSI(closes[:len(closes)-1], 20)
	if !ok {
		t.Fatal("previous slow RSI should be computable")
	}

	snap := e0v1eSnapshot()
	snap.RSISlow = fp(prev - 1) // decreasing
	snap.RSIFast = fp(35)       // < 40
	snap.RSI = fp(50)           // > 42
	snap.SMA = fp(100)
	snap.CTI = fp(0.1) // < 0.69

	ctx := Context{
		Snapshot:  snap,
		LastPrice: 95, // < 100 * 0.973
		Candles:   map[model.Interval][]model.Candle{model.Interval30: candles30},
	}

	if got := s.EvaluateBuy(ctx); got.Signal != model.SignalBuy {
		t.Fatalf("all conditions met, want buy, got %d", got.Signal)
	}

	// Any single failed condition vetoes the entry.
	veto := []func(*indicator.Snapshot, *Context){
		func(a *indicator.Snapshot, c *Context) { a.RSISlow = fp(prev + 1) },
		func(a *indicator.Snapshot, c *Context) { a.RSIFast = fp(45) },
		func(a *indicator.Snapshot, c *Context) { a.RSI = fp(40) },
		func(a *indicator.Snapshot, c *Context) { c.LastPrice = 99 },
		func(a *indicator.Snapshot, c *Context) { a.CTI = fp(0.8) },
	}
	for i, mut := range veto {
		snap := e0v1eSnapshot()
		snap.RSISlow = fp(prev - 1)
		snap.RSIFast = fp(35)
		snap.RSI = fp(50)
		snap.SMA = fp(100)
		snap.CTI = fp(0.1)
		ctx := Context{
			Snapshot:  snap,
			LastPrice: 95,
			Candles:   map[model.Interval][]model.Candle{model.Interval30: candles30},
		}
		mut(snap, &ctx)
		if got := s.EvaluateBuy(ctx); got.Signal != model.SignalNeutral {
			t.Errorf("veto case %d: want neutral, got %d", i, got.Signal)
		}
	}
}

func TestE0V1E_SellFastKProfit(t *testing.T) {
	s := NewE0V1E(DefaultE0V1EParams())

	pos := &model.Position{
		Symbol:     "BTCUSDT",
		EntryPrice: 100,
		EntryTime:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:     model.StatusOpen,
	}
	snap := e0v1eSnapshot()
	snap.FastK = fp(90) // > 84

	got := s.EvaluateSell(SellContext{
		Snapshot:  snap,
		LastPrice: 105,
		Position:  pos,
		Profit:    0.05,
	})
	if got.Signal != model.SignalSell {
		t.Fatalf("exhausted fastk in profit should sell, got %d", got.Signal)
	}

	// Same fastk at a loss must not trigger.
	got = s.EvaluateSell(SellContext{
		Snapshot:  snap,
		LastPrice: 98,
		Position:  pos,
		Profit:    -0.02,
	})
	if got.Signal != model.SignalNeutral {
		t.Fatalf("fastk exit needs positive profit, got %d", got.Signal)
	}
}

func TestE0V1E_SellCCILoss(t *testing.T) {
	s := NewE0V1E(DefaultE0V1EParams())

	entry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	pos := &model.Position{Symbol: "BTCUSDT", EntryPrice: 100, EntryTime: entry, Status: model.StatusOpen}

	// 1m series dips 12% below entry after it was opened.
	candles1 := mkCandles(100, 95, 88, 96, 98)
	for i := range candles1 {
		candles1[i].Time = entry.Add(time.Duration(i+1) * time.Minute)
	}

	snap := e0v1eSnapshot()
	snap.CCI = fp(150) // > 120
	snap.MA120 = fp(200)
	snap.MA240 = fp(200) // entry below both MAs, hold flags stay unset

	got := s.EvaluateSell(SellContext{
		Snapshot:  snap,
		LastPrice: 98,
		Candles:   map[model.Interval][]model.Candle{model.Interval1: candles1},
		Position:  pos,
		Profit:    -0.02, // > -0.05
	})
	if got.Signal != model.SignalSell {
		t.Fatalf("deep excursion + hot CCI should sell, got %d", got.Signal)
	}

	// Without the deep excursion the same CCI reading holds.
	pos2 := &model.Position{Symbol: "BTCUSDT", EntryPrice: 100, EntryTime: entry, Status: model.StatusOpen}
	got = s.EvaluateSell(SellContext{
		Snapshot:  snap,
		LastPrice: 98,
		Candles:   map[model.Interval][]model.Candle{model.Interval1: mkCandles(100, 99, 98)},
		Position:  pos2,
		Profit:    -0.02,
	})
	if got.Signal != model.SignalNeutral {
		t.Fatalf("shallow excursion must not trigger the CCI exit, got %d", got.Signal)
	}
}

func TestE0V1E_SellMABreakdown(t *testing.T) {
	s := NewE0V1E(DefaultE0V1EParams())

	entry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	pos := &model.Position{Symbol: "ETHUSDT", EntryPrice: 100, EntryTime: entry, Status: model.StatusOpen}

	// Entry is 25% above MA120: the fast-hold flag arms on first evaluation.
	snap := e0v1eSnapshot()
	snap.MA120 = fp(80)
	snap.MA240 = fp(80)

	got := s.EvaluateSell(SellContext{Snapshot: snap, LastPrice: 95, Position: pos, Profit: -0.05})
	if got.Signal != model.SignalNeutral {
		t.Fatalf("price above MA120 must not sell, got %d", got.Signal)
	}
	if !pos.HeldAboveMAFast {
		t.Fatal("fast hold flag should arm when entry is far above MA120")
	}

	got = s.EvaluateSell(SellContext{Snapshot: snap, LastPrice: 75, Position: pos, Profit: -0.25})
	if got.Signal != model.SignalSell {
		t.Fatalf("price under MA120 with armed fast flag should sell, got %d", got.Signal)
	}
	if pos.HeldAboveMAFast {
		t.Fatal("fast hold flag must clear once the exit fires")
	}
}
