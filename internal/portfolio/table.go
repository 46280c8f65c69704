// Package portfolio owns the open-position table, the entry-guard
// reservation set, and the periodic sell monitor.
//
// The table and the reservation set are the only mutable shared state in the
// engine; every check-then-act on them happens under one mutex so two fast
// scheduler ticks can never both pass a stale capacity check.
package portfolio

import (
	"fmt"
	"sync"
	"time"

	"github.com/balkhaev/trader-api/internal/model"
)

// Table is the position table plus the entry-guard reservation set.
type Table struct {
	mu           sync.Mutex
	maxPositions int
	open         map[string]*model.Position
	reserved     map[string]struct{}
	dupSkips     uint64
}

// NewTable creates an empty table with the given concurrent-position cap.
func NewTable(maxPositions int) *Table {
	if maxPositions <= 0 {
		maxPositions = 1
	}
	return &Table{
		maxPositions: maxPositions,
		open:         make(map[string]*model.Position),
		reserved:     make(map[string]struct{}),
	}
}

// SetCapacity adjusts the concurrent-position cap at runtime. Lowering it
// below the current open count closes nothing; it only blocks new entries
// until positions drain.
func (t *Table) SetCapacity(maxPositions int) {
	if maxPositions <= 0 {
		return
	}
	t.mu.Lock()
	t.maxPositions = maxPositions
	t.mu.Unlock()
}

// TryReserve claims an entry slot for symbol before any network call.
// It fails closed when the symbol is already reserved or open, or when
// open + reserved would exceed the cap. A duplicate attempt is not an
// error, only a counter increment.
func (t *Table) TryReserve(symbol string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.reserved[symbol]; ok {
		t.dupSkips++
		return false
	}
	if _, ok := t.open[symbol]; ok {
		t.dupSkips++
		return false
	}
	if len(t.open)+len(t.reserved) >= t.maxPositions {
		return false
	}
	t.reserved[symbol] = struct{}{}
	return true
}

// Release frees a reservation without creating a position. Safe to call on a
// symbol that is not reserved.
func (t *Table) Release(symbol string) {
	t.mu.Lock()
	delete(t.reserved, symbol)
	t.mu.Unlock()
}

// Commit converts a reservation into an open position. The caller must hold
// the reservation obtained from TryReserve.
func (t *Table) Commit(pos *model.Position) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.reserved[pos.Symbol]; !ok {
		return fmt.Errorf("commit %s: no reservation held", pos.Symbol)
	}
	delete(t.reserved, pos.Symbol)
	t.open[pos.Symbol] = pos
	return nil
}

// ClosePosition transitions the symbol's position to a terminal state and
// removes it from the open set. Closing an unknown or already closed symbol
// is a no-op; the first close wins.
func (t *Table) ClosePosition(symbol string, price float64, reason string, at time.Time) (*model.Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.open[symbol]
	if !ok {
		return nil, false
	}
	if !pos.Close(price, reason, at) {
		return nil, false
	}
	delete(t.open, symbol)
	return pos, true
}

// Get returns the open position for symbol, if any.
func (t *Table) Get(symbol string) (*model.Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos, ok := t.open[symbol]
	return pos, ok
}

// OpenPositions returns a snapshot slice of the open positions. The pointers
// are live; only the sell monitor mutates them after commit.
func (t *Table) OpenPositions() []*model.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*model.Position, 0, len(t.open))
	for _, p := range t.open {
		out = append(out, p)
	}
	return out
}

// Counts returns the current open and reserved totals.
func (t *Table) Counts() (open, reserved int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open), len(t.reserved)
}

// DuplicateSkips returns how many entry attempts were skipped because the
// symbol was already reserved or open.
func (t *Table) DuplicateSkips() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dupSkips
}

// Rehydrate loads previously persisted open positions at startup. Positions
// that are not open are ignored.
func (t *Table) Rehydrate(positions []*model.Position) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, p := range positions {
		if p == nil || !p.Open() {
			continue
		}
		if _, dup := t.open[p.Symbol]; dup {
			continue
		}
		t.open[p.Symbol] = p
		n++
	}
	return n
}
