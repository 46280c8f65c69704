package strategy

import "github.com/balkhaev/trader-api/internal/model"

// ShortParams are the tunables for the short-biased strategy.
type ShortParams struct {
	CandlesLimit int
	Multiplier   float64
	EMAPeriod    int
	ADXFloor     float64
	SellPeriod   int
}

// DefaultShortParams mirrors the production tuning.
func DefaultShortParams() ShortParams {
	return ShortParams{
		CandlesLimit: 10,
		Multiplier:   1,
		EMAPeriod:    200,
		ADXFloor:     25,
		SellPeriod:   10,
	}
}

// Short looks for a local pullback inside a larger uptrend: the 1m and 3m
// Supertrend signals are reversed and crossed against the higher timeframes
// plus ADX strength and the global EMA direction.
type Short struct {
	params ShortParams
}

// NewShort creates the short strategy with the given tunables.
func NewShort(params ShortParams) *Short {
	return &Short{params: params}
}

func (s *Short) Name() string { return "short" }

func (s *Short) EvaluateBuy(ctx Context) model.MetaSignal {
	p := s.params
	a := ctx.Snapshot

	adx := model.SignalNeutral
	var adxValue float64
	if a != nil && a.ADX != nil {
		adxValue = a.ADX.ADX
		adx = model.BoolToSignal(a.ADX.ADX > p.ADXFloor)
	}

	_, diff := aboveEMA(ctx.Candles[model.Interval240], p.EMAPeriod)
	globalBullish := model.BoolToSignal(diff > 0)

	st240 := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval240], p.CandlesLimit, p.Multiplier)
	st30 := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval30], p.CandlesLimit, p.Multiplier)
	st15 := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval15], p.CandlesLimit, p.Multiplier)
	st3 := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval3], p.CandlesLimit, p.Multiplier)
	st1 := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval1], p.CandlesLimit, p.Multiplier)

	st1Reversed := Reverse(st1.Signal)
	st3Reversed := Reverse(st3.Signal)

	sig := Crossing([]model.Signal{
		st1Reversed,
		st3Reversed,
		st15.Signal,
		st30.Signal,
		st240.Signal,
		adx,
		globalBullish,
	})

	return model.MetaSignal{
		Signal: sig,
		Diagnostics: []model.Diagnostic{
			{Name: "Supertrend reversed 1m", Signal: st1Reversed},
			{Name: "Supertrend reversed 3m", Signal: st3Reversed},
			{Name: "Supertrend 15m", Signal: st15.Signal},
			{Name: "Supertrend 30m", Signal: st30.Signal},
			{Name: "Supertrend 240m", Signal: st240.Signal},
			{Name: "Powered ADX", Signal: adx, Data: model.Number(adxValue)},
			{Name: "Global EMA bullish", Signal: globalBullish, Data: model.Number(diff)},
		},
	}
}

// EvaluateSell exits when three short-horizon Supertrend variants agree on a
// reversal: 1m at two multipliers and 3m.
func (s *Short) EvaluateSell(ctx SellContext) model.MetaSignal {
	p := s.params
	st1 := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval1], p.SellPeriod, 1)
	st1f2 := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval1], p.SellPeriod, 2)
	st3 := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval3], p.SellPeriod, 2)

	sig := Crossing([]model.Signal{st1.Signal, st1f2.Signal, st3.Signal})

	return model.MetaSignal{
		Signal: sig,
		Diagnostics: []model.Diagnostic{
			{Name: "Supertrend 1m (10,1)", Signal: st1.Signal},
			{Name: "Supertrend 1m (10,2)", Signal: st1f2.Signal},
			{Name: "Supertrend 3m (10,2)", Signal: st3.Signal},
		},
	}
}
