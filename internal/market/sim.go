// Package market supplies market data: a deterministic simulated source for
// paper mode and tests, and a WebSocket stream client keeping a live ticker
// cache plus recent trades per symbol.
package market

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/balkhaev/trader-api/internal/model"
)

// intervalDuration maps a candle interval to wall-clock length.
func intervalDuration(iv model.Interval) time.Duration {
	switch iv {
	case model.Interval1:
		return time.Minute
	case model.Interval3:
		return 3 * time.Minute
	case model.Interval5:
		return 5 * time.Minute
	case model.Interval15:
		return 15 * time.Minute
	case model.Interval30:
		return 30 * time.Minute
	case model.Interval240:
		return 4 * time.Hour
	default:
		return time.Minute
	}
}

// SimSource is a deterministic random-walk market. The walk is seeded from
// the symbol name, so a given symbol always produces the same series — tests
// and paper runs are reproducible.
type SimSource struct {
	mu         sync.Mutex
	universe   []string
	drift      float64
	volatility float64
}

// NewSimSource creates a simulated market over the given symbol universe.
func NewSimSource(universe []string) *SimSource {
	return &SimSource{
		universe:   universe,
		drift:      0.0001,
		volatility: 0.004,
	}
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64())
}

func basePrice(symbol string) float64 {
	// Spread symbols across a plausible price range.
	return 1 + float64(symbolSeed(symbol)%100000)/100
}

// FetchCandles generates a random-walk series ending at the current bar.
func (s *SimSource) FetchCandles(ctx context.Context, symbol string, iv model.Interval, limit int) ([]model.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 200
	}

	rng := rand.New(rand.NewSource(symbolSeed(symbol) ^ int64(len(iv))))
	step := intervalDuration(iv)
	start := time.Now().UTC().Truncate(step).Add(-step * time.Duration(limit-1))

	price := basePrice(symbol)
	out := make([]model.Candle, 0, limit)
	for i := 0; i < limit; i++ {
		change := s.drift + s.volatility*rng.NormFloat64()
		open := price
		price = price * (1 + change)
		high := math.Max(open, price) * (1 + 0.2*s.volatility*rng.Float64())
		low := math.Min(open, price) * (1 - 0.2*s.volatility*rng.Float64())
		out = append(out, model.Candle{
			Time:   start.Add(step * time.Duration(i)),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 500 + 1000*rng.Float64(),
		})
	}
	return out, nil
}

// FetchTicker derives the ticker from the tail of the 1m walk.
func (s *SimSource) FetchTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	candles, err := s.FetchCandles(ctx, symbol, model.Interval1, 2)
	if err != nil {
		return model.Ticker{}, err
	}
	last := candles[len(candles)-1]
	prev := candles[0]
	change := 0.0
	if prev.Close > 0 {
		change = (last.Close - prev.Close) / prev.Close * 100
	}
	return model.Ticker{
		Symbol:      symbol,
		LastPrice:   last.Close,
		Volume24h:   3_000_000 + last.Volume*1000,
		Turnover24h: 600_000 + last.Volume*100,
		Change24h:   change + 2.5, // keep the sim universe interesting to the screener
	}, nil
}

// FetchTickers returns a snapshot for every symbol in the universe.
func (s *SimSource) FetchTickers(ctx context.Context) ([]model.Ticker, error) {
	s.mu.Lock()
	universe := append([]string(nil), s.universe...)
	s.mu.Unlock()

	out := make([]model.Ticker, 0, len(universe))
	for _, symbol := range universe {
		t, err := s.FetchTicker(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("sim ticker %s: %w", symbol, err)
		}
		out = append(out, t)
	}
	return out, nil
}
