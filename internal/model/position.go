package model

import (
	"time"
)

// PositionStatus is the lifecycle state of a position. Transitions only go
// forward: open -> closed | stop_loss | take_profit.
type PositionStatus string

const (
	StatusOpen       PositionStatus = "open"
	StatusClosed     PositionStatus = "closed"
	StatusStopLoss   PositionStatus = "stop_loss"
	StatusTakeProfit PositionStatus = "take_profit"
)

// Close reasons stamped on a position exactly once, at close time.
const (
	CloseReasonStopLoss     = "stop_loss"
	CloseReasonTakeProfit   = "take_profit"
	CloseReasonTrailingStop = "trailing_stop"
	CloseReasonSignal       = "signal"
)

// Position is one tracked spot position. It is created by the entry path
// after the guard admits a buy, mutated by every sell-monitor tick, and
// closed exactly once.
type Position struct {
	ID              string         `json:"id"`
	Symbol          string         `json:"symbol"`
	EntryPrice      float64        `json:"entry_price"`
	EntryTime       time.Time      `json:"entry_time"`
	Qty             float64        `json:"qty"`
	CapitalInvested float64        `json:"capital_invested"`
	StopLossPct     float64        `json:"stop_loss_pct"`
	TakeProfitPct   float64        `json:"take_profit_pct"`
	Strategy        string         `json:"strategy"`
	Status          PositionStatus `json:"status"`

	LastPrice float64 `json:"last_price"`
	PnL       float64 `json:"pnl"`
	PnLPct    float64 `json:"pnl_pct"`

	ExitPrice   float64   `json:"exit_price,omitempty"`
	ExitTime    time.Time `json:"exit_time,omitempty"`
	CloseReason string    `json:"close_reason,omitempty"`

	// Partial take-profit ladder flags; each level fires at most once.
	TP1 bool `json:"tp1"`
	TP2 bool `json:"tp2"`
	TP3 bool `json:"tp3"`

	// TrailingArmed is set the first time unrealized profit reaches the
	// trailing-stop arm offset. Never cleared while the position is open.
	TrailingArmed bool `json:"trailing_armed"`

	// Per-trade scratch memory for the mean-reversion strategy. Kept on the
	// position so state cannot leak across trades or restarts.
	HeldAboveMA     bool `json:"held_above_ma"`
	HeldAboveMAFast bool `json:"held_above_ma_fast"`
}

// Open reports whether the position is still live.
func (p *Position) Open() bool {
	return p.Status == StatusOpen
}

// Age returns how long the position has been held as of now.
func (p *Position) Age(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}

// MarkPrice recomputes PnL fields from the latest known price. Must be
// called before any exit decision or persistence so PnL is never stale.
func (p *Position) MarkPrice(price float64) {
	p.LastPrice = price
	p.PnL = (price - p.EntryPrice) * p.Qty
	if p.EntryPrice > 0 {
		p.PnLPct = (price - p.EntryPrice) / p.EntryPrice
	}
}

// Close transitions the position to a terminal state. Closing an already
// closed position is a no-op; the first close wins.
func (p *Position) Close(price float64, reason string, at time.Time) bool {
	if p.Status != StatusOpen {
		return false
	}
	p.MarkPrice(price)
	p.ExitPrice = price
	p.ExitTime = at
	p.CloseReason = reason
	switch reason {
	case CloseReasonStopLoss:
		p.Status = StatusStopLoss
	case CloseReasonTakeProfit:
		p.Status = StatusTakeProfit
	default:
		p.Status = StatusClosed
	}
	return true
}
