package portfolio

import (
	"sync"
	"testing"
	"time"

	"github.com/balkhaev/trader-api/internal/model"
)

func openPosition(symbol string) *model.Position {
	return &model.Position{
		ID:         symbol + "-1",
		Symbol:     symbol,
		EntryPrice: 100,
		EntryTime:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Qty:        1,
		Status:     model.StatusOpen,
	}
}

func TestTable_ConcurrentReserveSingleWinner(t *testing.T) {
	table := NewTable(5)

	const attempts = 64
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if table.TryReserve("BTCUSDT") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("exactly one concurrent reserve must win, got %d", wins)
	}
	if table.DuplicateSkips() != attempts-1 {
		t.Fatalf("expected %d duplicate skips, got %d", attempts-1, table.DuplicateSkips())
	}
}

func TestTable_CapacityCountsReservations(t *testing.T) {
	table := NewTable(2)

	if !table.TryReserve("AAAUSDT") {
		t.Fatal("first reserve should pass")
	}
	if err := table.Commit(openPosition("AAAUSDT")); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !table.TryReserve("BBBUSDT") {
		t.Fatal("second reserve should pass")
	}

	// One open + one reserved = cap reached.
	if table.TryReserve("CCCUSDT") {
		t.Fatal("reserve over capacity must fail closed")
	}

	table.Release("BBBUSDT")
	if !table.TryReserve("CCCUSDT") {
		t.Fatal("reserve should pass after a release")
	}
}

func TestTable_SetCapacityAppliesToNewReservations(t *testing.T) {
	table := NewTable(1)

	if !table.TryReserve("AAAUSDT") {
		t.Fatal("first reserve should pass")
	}
	if table.TryReserve("BBBUSDT") {
		t.Fatal("reserve over capacity must fail closed")
	}

	table.SetCapacity(2)
	if !table.TryReserve("BBBUSDT") {
		t.Fatal("raised capacity should admit the next reserve")
	}

	// Shrinking below the current usage blocks new entries but closes nothing.
	table.SetCapacity(1)
	if _, reserved := table.Counts(); reserved != 2 {
		t.Fatalf("existing reservations must survive a shrink, got %d", reserved)
	}
	if table.TryReserve("CCCUSDT") {
		t.Fatal("shrunk capacity must fail new reserves closed")
	}

	// Non-positive values are ignored.
	table.SetCapacity(0)
	if table.TryReserve("CCCUSDT") {
		t.Fatal("capacity 0 must not be applied")
	}
}

func TestTable_CommitRequiresReservation(t *testing.T) {
	table := NewTable(2)
	if err := table.Commit(openPosition("AAAUSDT")); err == nil {
		t.Fatal("commit without reservation must fail")
	}
}

func TestTable_OpenSymbolBlocksReserve(t *testing.T) {
	table := NewTable(5)
	table.TryReserve("AAAUSDT")
	if err := table.Commit(openPosition("AAAUSDT")); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if table.TryReserve("AAAUSDT") {
		t.Fatal("symbol with an open position must not be reservable")
	}
}

func TestTable_CloseIsIdempotent(t *testing.T) {
	table := NewTable(5)
	table.TryReserve("AAAUSDT")
	pos := openPosition("AAAUSDT")
	if err := table.Commit(pos); err != nil {
		t.Fatalf("commit: %v", err)
	}

	now := time.Now()
	closed, ok := table.ClosePosition("AAAUSDT", 110, model.CloseReasonTakeProfit, now)
	if !ok || closed.Status != model.StatusTakeProfit {
		t.Fatalf("first close should succeed, got ok=%v status=%v", ok, closed.Status)
	}
	if closed.CloseReason != model.CloseReasonTakeProfit {
		t.Fatalf("close reason = %q", closed.CloseReason)
	}

	if _, ok := table.ClosePosition("AAAUSDT", 90, model.CloseReasonStopLoss, now); ok {
		t.Fatal("second close must be a no-op")
	}
	if pos.Status != model.StatusTakeProfit || pos.CloseReason != model.CloseReasonTakeProfit {
		t.Fatal("terminal state must never regress")
	}

	// The slot is free again.
	if !table.TryReserve("AAAUSDT") {
		t.Fatal("closed symbol should be reservable again")
	}
}

func TestTable_Rehydrate(t *testing.T) {
	table := NewTable(5)

	closedPos := openPosition("DEADUSDT")
	closedPos.Close(90, model.CloseReasonStopLoss, time.Now())

	n := table.Rehydrate([]*model.Position{openPosition("AAAUSDT"), closedPos, nil})
	if n != 1 {
		t.Fatalf("expected 1 rehydrated position, got %d", n)
	}
	if _, ok := table.Get("AAAUSDT"); !ok {
		t.Fatal("rehydrated position missing")
	}
	if _, ok := table.Get("DEADUSDT"); ok {
		t.Fatal("closed position must not rehydrate")
	}
}
