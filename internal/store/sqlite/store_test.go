package sqlite

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/balkhaev/trader-api/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DBPath: filepath.Join(t.TempDir(), "trader.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PositionRoundTrip(t *testing.T) {
	s := openTestStore(t)

	entry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pos := &model.Position{
		ID:              "pos-1",
		Symbol:          "BTCUSDT",
		Strategy:        "long",
		Status:          model.StatusOpen,
		EntryPrice:      100,
		EntryTime:       entry,
		Qty:             0.5,
		CapitalInvested: 50,
		StopLossPct:     0.05,
		TakeProfitPct:   0.10,
		TP1:             true,
		TrailingArmed:   true,
		HeldAboveMA:     true,
	}
	if err := s.SaveOpenPosition(pos); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.LoadOpenPositions()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 open position, got %d", len(loaded))
	}
	got := loaded[0]
	if got.ID != "pos-1" || got.Symbol != "BTCUSDT" || got.Strategy != "long" {
		t.Fatalf("identity mismatch: %+v", got)
	}
	if !got.EntryTime.Equal(entry) {
		t.Errorf("entry time = %v, want %v", got.EntryTime, entry)
	}
	if !got.TP1 || got.TP2 || !got.TrailingArmed || !got.HeldAboveMA || got.HeldAboveMAFast {
		t.Errorf("flags not preserved: %+v", got)
	}
	if got.Qty != 0.5 || got.StopLossPct != 0.05 {
		t.Errorf("numeric fields not preserved: %+v", got)
	}
}

func TestStore_ClosedPositionNotRehydrated(t *testing.T) {
	s := openTestStore(t)

	pos := &model.Position{
		ID: "pos-2", Symbol: "ETHUSDT", Strategy: "rsi",
		Status: model.StatusOpen, EntryPrice: 2000, EntryTime: time.Now().UTC(), Qty: 1,
	}
	if err := s.SaveOpenPosition(pos); err != nil {
		t.Fatalf("save: %v", err)
	}

	pos.Close(1900, model.CloseReasonStopLoss, time.Now().UTC())
	if err := s.UpdatePosition(pos); err != nil {
		t.Fatalf("update: %v", err)
	}

	loaded, err := s.LoadOpenPositions()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("closed position should not rehydrate, got %d rows", len(loaded))
	}
}

func TestStore_AuditAndStats(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	err := s.RecordBuy(model.BuyAudit{
		Symbol: "BTCUSDT", Strategy: "e0v1e", OrderID: "PAPER-1",
		Price: 100, Qty: 1, Diagnostics: `{"rsi":38}`, At: base,
	})
	if err != nil {
		t.Fatalf("record buy: %v", err)
	}

	sells := []model.SellAudit{
		{Symbol: "BTCUSDT", Strategy: "e0v1e", OrderID: "PAPER-2", Price: 105, Qty: 0.3, PnL: 1.5, PnLPct: 0.05, Reason: "take_profit", Partial: true, At: base.Add(time.Hour)},
		{Symbol: "BTCUSDT", Strategy: "e0v1e", OrderID: "PAPER-3", Price: 110, Qty: 0.7, PnL: 7, PnLPct: 0.10, Reason: "take_profit", At: base.Add(2 * time.Hour)},
		{Symbol: "ETHUSDT", Strategy: "long", OrderID: "PAPER-4", Price: 95, Qty: 1, PnL: -5, PnLPct: -0.05, Reason: "stop_loss", At: base.Add(3 * time.Hour)},
	}
	for _, sa := range sells {
		if err := s.RecordSell(sa); err != nil {
			t.Fatalf("record sell %s: %v", sa.OrderID, err)
		}
	}

	recent, err := s.RecentSells(2)
	if err != nil {
		t.Fatalf("recent sells: %v", err)
	}
	if len(recent) != 2 || recent[0].OrderID != "PAPER-4" || recent[1].OrderID != "PAPER-3" {
		t.Fatalf("unexpected recent sells: %+v", recent)
	}
	if recent[1].Partial {
		t.Error("full exit flagged partial")
	}

	stats, err := s.Stats(base)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	// Partial exits excluded: 2 full trades, 1 win
	if stats.Trades != 2 || stats.Wins != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if math.Abs(stats.TotalPnL-2) > 1e-9 {
		t.Errorf("total pnl = %v, want 2", stats.TotalPnL)
	}
	if math.Abs(stats.WinRate-0.5) > 1e-9 {
		t.Errorf("win rate = %v, want 0.5", stats.WinRate)
	}
}
