package market

import (
	"context"

	"github.com/balkhaev/trader-api/internal/model"
)

// HybridSource overlays live stream tickers on top of a fallback candle
// source. Candle history comes from the fallback; ticker reads prefer the
// stream cache and fall back when a symbol has not ticked yet.
type HybridSource struct {
	stream   *Stream
	fallback model.MarketSource
}

// NewHybridSource combines a running Stream with a fallback source.
func NewHybridSource(stream *Stream, fallback model.MarketSource) *HybridSource {
	return &HybridSource{stream: stream, fallback: fallback}
}

func (h *HybridSource) FetchCandles(ctx context.Context, symbol string, interval model.Interval, limit int) ([]model.Candle, error) {
	return h.fallback.FetchCandles(ctx, symbol, interval, limit)
}

func (h *HybridSource) FetchTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	if t, ok := h.stream.LastTicker(symbol); ok {
		return t, nil
	}
	return h.fallback.FetchTicker(ctx, symbol)
}

func (h *HybridSource) FetchTickers(ctx context.Context) ([]model.Ticker, error) {
	tickers, err := h.fallback.FetchTickers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tickers {
		if t, ok := h.stream.LastTicker(tickers[i].Symbol); ok {
			tickers[i] = t
		}
	}
	return tickers, nil
}
