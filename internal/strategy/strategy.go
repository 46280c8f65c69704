// Package strategy provides the pluggable buy/sell signal strategies.
//
// A Strategy consumes an indicator snapshot plus raw candle series at several
// timeframes and produces a MetaSignal for buy evaluation and, separately,
// for sell evaluation against an open position. Strategies are pure: all
// shared state they need lives on the Position record itself.
package strategy

import (
	"time"

	"github.com/balkhaev/trader-api/internal/indicator"
	"github.com/balkhaev/trader-api/internal/model"
)

// Context carries everything a buy evaluation may need.
type Context struct {
	Snapshot  *indicator.Snapshot
	LastPrice float64
	Candles   map[model.Interval][]model.Candle
}

// SellContext carries everything a sell evaluation may need. Position is the
// open position under evaluation; Profit is its current PnL ratio, computed
// once per tick from a single price snapshot.
type SellContext struct {
	Snapshot  *indicator.Snapshot
	LastPrice float64
	Candles   map[model.Interval][]model.Candle
	Position  *model.Position
	Profit    float64
	Now       time.Time
}

// Strategy is the interface all trading strategies implement.
// Both evaluations must return a neutral signal with an explanatory
// diagnostic on insufficient history, never an error.
type Strategy interface {
	Name() string
	EvaluateBuy(ctx Context) model.MetaSignal
	EvaluateSell(ctx SellContext) model.MetaSignal
}

const insufficientData = "Insufficient Data"
