// Package execution implements the order-executor port. The live venue
// client stays behind model.OrderExecutor; this package ships the paper
// executor used in simulation mode and in tests.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/balkhaev/trader-api/internal/model"
)

// ErrOrderRejected is returned when the venue (or the simulator) refuses an
// order. The caller releases its entry-guard reservation and moves on; no
// position is created.
var ErrOrderRejected = errors.New("order rejected")

// Fill is one simulated execution.
type Fill struct {
	OrderID  string          `json:"order_id"`
	Symbol   string          `json:"symbol"`
	Side     model.OrderSide `json:"side"`
	Qty      float64         `json:"qty"`
	Price    float64         `json:"price"`
	Slippage float64         `json:"slippage"`
	FilledAt time.Time       `json:"filled_at"`
}

// PaperExecutor fills orders instantly at the source's last price plus
// simulated slippage. Implements model.OrderExecutor.
type PaperExecutor struct {
	source      model.MarketSource
	slippageBps float64

	mu       sync.Mutex
	fills    []Fill
	orderSeq int64
}

// NewPaperExecutor creates a paper executor. slippageBps is the simulated
// slippage in basis points (5 = 0.05%).
func NewPaperExecutor(source model.MarketSource, slippageBps float64) *PaperExecutor {
	return &PaperExecutor{
		source:      source,
		slippageBps: slippageBps,
		fills:       make([]Fill, 0, 256),
	}
}

// SubmitOrder simulates a market fill. Orders with a non-positive or
// non-finite quantity are rejected the way a real venue would reject them.
func (p *PaperExecutor) SubmitOrder(ctx context.Context, symbol string, side model.OrderSide, qty float64, orderType model.OrderType) (string, error) {
	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return "", fmt.Errorf("%w: invalid qty %v for %s", ErrOrderRejected, qty, symbol)
	}

	ticker, err := p.source.FetchTicker(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("paper fill %s: %w", symbol, err)
	}
	price := ticker.LastPrice
	if price <= 0 {
		return "", fmt.Errorf("%w: no market price for %s", ErrOrderRejected, symbol)
	}

	slip := price * p.slippageBps / 10000
	if side == model.SideBuy {
		price += slip
	} else {
		price -= slip
	}

	p.mu.Lock()
	p.orderSeq++
	orderID := fmt.Sprintf("PAPER-%d", p.orderSeq)
	p.fills = append(p.fills, Fill{
		OrderID:  orderID,
		Symbol:   symbol,
		Side:     side,
		Qty:      qty,
		Price:    price,
		Slippage: slip,
		FilledAt: time.Now().UTC(),
	})
	p.mu.Unlock()

	log.Printf("[paper] %s %s qty=%.6f price=%.4f (slip=%.4f) order=%s",
		side, symbol, qty, price, slip, orderID)
	return orderID, nil
}

// Fills returns a snapshot of all fills so far.
func (p *PaperExecutor) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}
