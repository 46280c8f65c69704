package model

import (
	"context"
	"time"
)

// ── External collaborator ports ──
// These interfaces decouple the signal engine and position lifecycle from the
// exchange client and storage implementations (Redis, SQLite).

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "Buy"
	SideSell OrderSide = "Sell"
)

// OrderType is the venue order type.
type OrderType string

const (
	OrderMarket OrderType = "Market"
	OrderLimit  OrderType = "Limit"
)

// MarketSource supplies candle series and ticker snapshots.
type MarketSource interface {
	// FetchCandles returns up to limit candles ascending by time. The series
	// may be shorter than limit near listing time.
	FetchCandles(ctx context.Context, symbol string, interval Interval, limit int) ([]Candle, error)

	// FetchTicker returns the latest snapshot for one symbol.
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)

	// FetchTickers returns snapshots for the whole tradable universe.
	FetchTickers(ctx context.Context) ([]Ticker, error)
}

// OrderExecutor submits orders to the venue. De-duplication is the entry
// guard's responsibility, not the executor's.
type OrderExecutor interface {
	// SubmitOrder places an order and returns the venue order ID.
	SubmitOrder(ctx context.Context, symbol string, side OrderSide, qty float64, orderType OrderType) (string, error)
}

// PositionStore persists position lifecycle rows.
type PositionStore interface {
	SaveOpenPosition(pos *Position) error
	UpdatePosition(pos *Position) error

	// LoadOpenPositions rehydrates the in-memory table at startup.
	LoadOpenPositions() ([]*Position, error)
}

// BuyAudit is one executed entry, persisted for later analysis.
type BuyAudit struct {
	Symbol      string
	Strategy    string
	OrderID     string
	Price       float64
	Qty         float64
	Diagnostics string // JSON-encoded MetaSignal diagnostics
	At          time.Time
}

// SellAudit is one executed exit, full or partial.
type SellAudit struct {
	Symbol   string
	Strategy string
	OrderID  string
	Price    float64
	Qty      float64
	PnL      float64
	PnLPct   float64
	Reason   string
	Partial  bool
	At       time.Time
}

// AuditStore records buy/sell audit rows.
type AuditStore interface {
	RecordBuy(buy BuyAudit) error
	RecordSell(sell SellAudit) error
}
