package trader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/balkhaev/trader-api/internal/analyzer"
	"github.com/balkhaev/trader-api/internal/events"
	"github.com/balkhaev/trader-api/internal/execution"
	"github.com/balkhaev/trader-api/internal/model"
	"github.com/balkhaev/trader-api/internal/portfolio"
)

type fakeExecutor struct {
	reject bool
	orders []string // "side symbol qty"
}

func (f *fakeExecutor) SubmitOrder(_ context.Context, symbol string, side model.OrderSide, qty float64, _ model.OrderType) (string, error) {
	if f.reject {
		return "", fmt.Errorf("%w: test", execution.ErrOrderRejected)
	}
	f.orders = append(f.orders, fmt.Sprintf("%s %s %.4f", side, symbol, qty))
	return fmt.Sprintf("ORD-%d", len(f.orders)), nil
}

func newTrader(table *portfolio.Table, exec *fakeExecutor, bus *events.Bus) *Trader {
	return New(DefaultConfig(), table, exec, nil, nil, bus,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func buyResult(symbol string, strategies ...string) *analyzer.Result {
	per := make(map[string]model.MetaSignal)
	for _, s := range strategies {
		per[s] = model.MetaSignal{Signal: model.SignalBuy}
	}
	return &analyzer.Result{Symbol: symbol, LastPrice: 100, PerStrategy: per}
}

func TestTrader_OpensFirstPreferredStrategy(t *testing.T) {
	table := portfolio.NewTable(5)
	exec := &fakeExecutor{}
	bus := events.NewBus(8)
	sub := bus.Subscribe()
	tr := newTrader(table, exec, bus)

	tr.HandleResult(context.Background(), buyResult("BTCUSDT", "short", "long"))

	pos, ok := table.Get("BTCUSDT")
	if !ok {
		t.Fatal("position should exist")
	}
	if pos.Strategy != "long" {
		t.Fatalf("preference order should pick long, got %s", pos.Strategy)
	}
	if pos.Qty != 1 { // 100 capital / 100 price at factor 1
		t.Fatalf("qty = %v, want 1", pos.Qty)
	}
	ev := <-sub
	if ev.Kind != events.KindPositionOpened || ev.Symbol != "BTCUSDT" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestTrader_ShortTradesSmaller(t *testing.T) {
	table := portfolio.NewTable(5)
	exec := &fakeExecutor{}
	tr := newTrader(table, exec, nil)

	tr.HandleResult(context.Background(), buyResult("ETHUSDT", "short"))

	pos, ok := table.Get("ETHUSDT")
	if !ok {
		t.Fatal("position should exist")
	}
	if pos.Qty != 0.5 { // factor 0.5
		t.Fatalf("short entry qty = %v, want 0.5", pos.Qty)
	}
}

func TestTrader_DuplicateEntrySkipped(t *testing.T) {
	table := portfolio.NewTable(5)
	exec := &fakeExecutor{}
	tr := newTrader(table, exec, nil)

	ctx := context.Background()
	tr.HandleResult(ctx, buyResult("BTCUSDT", "long"))
	tr.HandleResult(ctx, buyResult("BTCUSDT", "long"))

	if len(exec.orders) != 1 {
		t.Fatalf("duplicate symbol must not reach the executor, got %v", exec.orders)
	}
	if table.DuplicateSkips() == 0 {
		t.Fatal("skip counter should increment")
	}
}

func TestTrader_RejectionReleasesReservation(t *testing.T) {
	table := portfolio.NewTable(1)
	exec := &fakeExecutor{reject: true}
	bus := events.NewBus(8)
	sub := bus.Subscribe()
	tr := newTrader(table, exec, bus)

	ctx := context.Background()
	tr.HandleResult(ctx, buyResult("BTCUSDT", "long"))

	if _, ok := table.Get("BTCUSDT"); ok {
		t.Fatal("rejected order must not create a position")
	}
	if _, reserved := table.Counts(); reserved != 0 {
		t.Fatal("reservation must be released on rejection")
	}
	if ev := <-sub; ev.Kind != events.KindOrderRejected {
		t.Fatalf("expected rejection event, got %+v", ev)
	}

	// Capacity 1 is free again: the next entry goes through.
	exec.reject = false
	tr.HandleResult(ctx, buyResult("ETHUSDT", "long"))
	if _, ok := table.Get("ETHUSDT"); !ok {
		t.Fatal("slot should be reusable after a rejection")
	}
}

func TestTrader_CloseIsIdempotent(t *testing.T) {
	table := portfolio.NewTable(5)
	exec := &fakeExecutor{}
	tr := newTrader(table, exec, nil)

	ctx := context.Background()
	tr.HandleResult(ctx, buyResult("BTCUSDT", "long"))
	pos, _ := table.Get("BTCUSDT")
	pos.MarkPrice(110)

	if err := tr.ClosePosition(ctx, pos, 110, model.CloseReasonTakeProfit); err != nil {
		t.Fatalf("close: %v", err)
	}
	if pos.Status != model.StatusTakeProfit {
		t.Fatalf("status = %v", pos.Status)
	}

	// Second close: the table treats it as a no-op.
	if err := tr.ClosePosition(ctx, pos, 90, model.CloseReasonStopLoss); err != nil {
		t.Fatalf("idempotent close: %v", err)
	}
	if pos.Status != model.StatusTakeProfit || pos.CloseReason != model.CloseReasonTakeProfit {
		t.Fatal("terminal state must not regress")
	}
}

func TestTrader_SetRiskAppliesToNewEntries(t *testing.T) {
	table := portfolio.NewTable(5)
	exec := &fakeExecutor{}
	tr := newTrader(table, exec, nil)

	ctx := context.Background()
	tr.SetRisk(200, 0.02, 0.2)
	tr.HandleResult(ctx, buyResult("BTCUSDT", "long"))

	pos, ok := table.Get("BTCUSDT")
	if !ok {
		t.Fatal("position should exist")
	}
	if pos.Qty != 2 { // 200 capital / 100 price
		t.Fatalf("qty = %v, want 2", pos.Qty)
	}
	if pos.StopLossPct != 0.02 || pos.TakeProfitPct != 0.2 {
		t.Fatalf("new bounds not stamped: sl=%v tp=%v", pos.StopLossPct, pos.TakeProfitPct)
	}

	// Non-positive values leave the tunables unchanged.
	tr.SetRisk(0, 0, 0)
	tr.HandleResult(ctx, buyResult("ETHUSDT", "long"))
	pos2, _ := table.Get("ETHUSDT")
	if pos2.Qty != 2 || pos2.StopLossPct != 0.02 {
		t.Fatalf("zero-valued SetRisk must be a no-op: %+v", pos2)
	}
}

func TestTrader_PartialExitReducesQty(t *testing.T) {
	table := portfolio.NewTable(5)
	exec := &fakeExecutor{}
	tr := newTrader(table, exec, nil)

	ctx := context.Background()
	tr.HandleResult(ctx, buyResult("BTCUSDT", "long"))
	pos, _ := table.Get("BTCUSDT")
	pos.MarkPrice(106)

	if err := tr.PartialExit(ctx, pos, 106, 0.3); err != nil {
		t.Fatalf("partial exit: %v", err)
	}
	if math.Abs(pos.Qty-0.7) > 1e-12 {
		t.Fatalf("qty after 30%% exit = %v, want 0.7", pos.Qty)
	}
	if !pos.Open() {
		t.Fatal("partial exit must keep the position open")
	}
}
