// Package analyzer runs the per-symbol analysis pass: multi-timeframe candle
// fetches, indicator snapshots, and every registered strategy's buy
// evaluation, combined into one composite Result.
package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/balkhaev/trader-api/internal/indicator"
	"github.com/balkhaev/trader-api/internal/model"
	"github.com/balkhaev/trader-api/internal/strategy"
)

// Intervals fetched for every analysis job, ascending by timeframe.
var analysisIntervals = []model.Interval{
	model.Interval1,
	model.Interval3,
	model.Interval15,
	model.Interval30,
	model.Interval240,
}

// Result is the composite output of one symbol analysis.
type Result struct {
	Symbol      string                      `json:"symbol"`
	LastPrice   float64                     `json:"last_price"`
	PerStrategy map[string]model.MetaSignal `json:"signals"`
	TA30        *indicator.Snapshot         `json:"ta30"`
	TA240       *indicator.Snapshot         `json:"ta240"`
	Volume24h   float64                     `json:"volume_24h"`
	Turnover24h float64                     `json:"turnover_24h"`
	Change24h   float64                     `json:"change_24h"`
	AnalyzedAt  time.Time                   `json:"analyzed_at"`
}

// BuySignals returns the names of strategies that voted to enter.
func (r *Result) BuySignals() []string {
	var out []string
	for name, ms := range r.PerStrategy {
		if ms.Signal == model.SignalBuy {
			out = append(out, name)
		}
	}
	return out
}

// Analyzer fetches market data and evaluates the active strategy set.
type Analyzer struct {
	source      model.MarketSource
	strategies  []strategy.Strategy
	candleLimit int
	periods     indicator.Periods
}

// New creates an analyzer over the given source and strategy set.
func New(source model.MarketSource, strategies []strategy.Strategy, candleLimit int) *Analyzer {
	if candleLimit <= 0 {
		candleLimit = 200
	}
	return &Analyzer{
		source:      source,
		strategies:  strategies,
		candleLimit: candleLimit,
		periods:     indicator.DefaultPeriods(),
	}
}

// Analyze runs one full pass for a symbol. The candle series for every
// timeframe and the ticker are fetched in parallel; any fetch failure fails
// the whole job so the scheduler can skip this cycle and retry later.
func (a *Analyzer) Analyze(ctx context.Context, symbol string) (*Result, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		candles  = make(map[model.Interval][]model.Candle, len(analysisIntervals))
		ticker   model.Ticker
		fetchErr error
	)

	setErr := func(err error) {
		mu.Lock()
		if fetchErr == nil {
			fetchErr = err
		}
		mu.Unlock()
	}

	for _, iv := range analysisIntervals {
		wg.Add(1)
		go func(iv model.Interval) {
			defer wg.Done()
			series, err := a.source.FetchCandles(ctx, symbol, iv, a.candleLimit)
			if err != nil {
				setErr(fmt.Errorf("fetch candles %s/%s: %w", symbol, iv, err))
				return
			}
			mu.Lock()
			candles[iv] = series
			mu.Unlock()
		}(iv)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		t, err := a.source.FetchTicker(ctx, symbol)
		if err != nil {
			setErr(fmt.Errorf("fetch ticker %s: %w", symbol, err))
			return
		}
		mu.Lock()
		ticker = t
		mu.Unlock()
	}()

	wg.Wait()
	if fetchErr != nil {
		return nil, fetchErr
	}

	ta30 := indicator.Compute(candles[model.Interval30], a.periods)
	ta240 := indicator.Compute(candles[model.Interval240], a.periods)

	sctx := strategy.Context{
		Snapshot:  &ta30,
		LastPrice: ticker.LastPrice,
		Candles:   candles,
	}

	perStrategy := make(map[string]model.MetaSignal, len(a.strategies))
	for _, s := range a.strategies {
		perStrategy[s.Name()] = s.EvaluateBuy(sctx)
	}

	return &Result{
		Symbol:      symbol,
		LastPrice:   ticker.LastPrice,
		PerStrategy: perStrategy,
		TA30:        &ta30,
		TA240:       &ta240,
		Volume24h:   ticker.Volume24h,
		Turnover24h: ticker.Turnover24h,
		Change24h:   ticker.Change24h,
		AnalyzedAt:  time.Now().UTC(),
	}, nil
}
