package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/balkhaev/trader-api/internal/model"
)

// ScreenerConfig holds the universe filter thresholds.
type ScreenerConfig struct {
	QuoteSuffix string  // e.g. "USDT"
	MinVolume   float64 // 24h base volume floor
	MinTurnover float64 // 24h quote turnover floor
	MinChange   float64 // minimum absolute 24h change, percent
	Limit       int     // cap on returned symbols, 0 = no cap
}

// DefaultScreenerConfig matches the production universe filter.
func DefaultScreenerConfig() ScreenerConfig {
	return ScreenerConfig{
		QuoteSuffix: "USDT",
		MinVolume:   2_000_000,
		MinTurnover: 500_000,
		MinChange:   2,
		Limit:       0,
	}
}

// Screener narrows the full tradable universe down to symbols volatile and
// liquid enough to be worth an analysis job.
type Screener struct {
	source model.MarketSource
	cfg    ScreenerConfig
}

// NewScreener creates a screener with the given thresholds.
func NewScreener(source model.MarketSource, cfg ScreenerConfig) *Screener {
	return &Screener{source: source, cfg: cfg}
}

// TrendingSymbols fetches the universe and returns passing symbols ordered by
// 24h volume, most liquid first.
func (s *Screener) TrendingSymbols(ctx context.Context) ([]string, error) {
	tickers, err := s.source.FetchTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tickers: %w", err)
	}

	passed := tickers[:0]
	for _, t := range tickers {
		if s.match(t) {
			passed = append(passed, t)
		}
	}

	sort.Slice(passed, func(i, j int) bool {
		return passed[i].Volume24h > passed[j].Volume24h
	})
	if s.cfg.Limit > 0 && len(passed) > s.cfg.Limit {
		passed = passed[:s.cfg.Limit]
	}

	out := make([]string, len(passed))
	for i, t := range passed {
		out[i] = t.Symbol
	}
	return out, nil
}

func (s *Screener) match(t model.Ticker) bool {
	if s.cfg.QuoteSuffix != "" && !strings.HasSuffix(t.Symbol, s.cfg.QuoteSuffix) {
		return false
	}
	if t.Volume24h <= s.cfg.MinVolume {
		return false
	}
	if t.Turnover24h <= s.cfg.MinTurnover {
		return false
	}
	change := t.Change24h
	if change < 0 {
		change = -change
	}
	return change > s.cfg.MinChange
}
