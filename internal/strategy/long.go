package strategy

import (
	"github.com/balkhaev/trader-api/internal/indicator"
	"github.com/balkhaev/trader-api/internal/model"
)

// LongParams are the tunables for the trend-following long strategy.
type LongParams struct {
	CandlesLimit int     // Supertrend period on every timeframe
	GlobalMult   float64 // Supertrend multiplier, 240m horizon
	ShortMult    float64 // Supertrend multiplier, 3m horizon
	EMAPeriod    int     // global trend EMA on 240m candles
	ADXFloor     float64 // minimum trend strength
	RSIFloor     float64 // oversold floor
	StochRSICeil float64 // overbought ceiling
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	SellMult     float64 // Supertrend multiplier for the technical exit
	SellPeriod   int
}

// DefaultLongParams mirrors the production tuning.
func DefaultLongParams() LongParams {
	return LongParams{
		CandlesLimit: 10,
		GlobalMult:   2,
		ShortMult:    1,
		EMAPeriod:    200,
		ADXFloor:     25,
		RSIFloor:     30,
		StochRSICeil: 20,
		MACDFast:     8,
		MACDSlow:     21,
		MACDSignal:   5,
		SellMult:     2,
		SellPeriod:   10,
	}
}

// Long is the trend-following long strategy: a bullish long-horizon
// Supertrend plus a stack of confirmations that must all hold.
type Long struct {
	params LongParams
}

// NewLong creates the long strategy with the given tunables.
func NewLong(params LongParams) *Long {
	return &Long{params: params}
}

func (s *Long) Name() string { return "long" }

func (s *Long) EvaluateBuy(ctx Context) model.MetaSignal {
	p := s.params
	a := ctx.Snapshot

	globalTrend := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval240], p.CandlesLimit, p.GlobalMult)

	// Cheap precondition gate before any rule evaluation.
	if globalTrend.Signal == model.SignalNeutral ||
		a == nil || a.MACD == nil || a.MACD.Histogram == nil ||
		a.StochRSI == nil || a.ADX == nil || a.RSI == nil {
		return model.Neutral(insufficientData, model.DiagValue{})
	}

	if above, _ := aboveEMA(ctx.Candles[model.Interval240], p.EMAPeriod); !above {
		return model.Neutral("Global EMA trend bearish", model.DiagValue{})
	}

	if !isVolumeIncreasing(ctx.Candles[model.Interval15]) {
		return model.Neutral("Volume not increasing", model.DiagValue{})
	}

	shortTrend := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval3], p.CandlesLimit, p.ShortMult)
	if shortTrend.Signal != model.SignalBuy {
		return model.Neutral("Short-term trend bearish (3m)", model.DiagValue{})
	}

	candles30 := ctx.Candles[model.Interval30]
	hist := indicator.MACDHistogram(model.Closes(candles30), p.MACDFast, p.MACDSlow, p.MACDSignal)

	bullishDivergence := isBullishDivergence(candles30, hist)
	volumeIncreasing := isVolumeIncreasing(candles30)
	adxPower := a.ADX.ADX > p.ADXFloor
	above, _ := aboveEMA(ctx.Candles[model.Interval240], p.EMAPeriod)
	notWeakRSI := *a.RSI > p.RSIFloor
	stochOversold := a.StochRSI.StochRSI < p.StochRSICeil

	all := bullishDivergence && volumeIncreasing && adxPower && above && notWeakRSI && stochOversold

	return model.MetaSignal{
		Signal: model.BoolToSignal(all),
		Diagnostics: []model.Diagnostic{
			{Name: "Bullish Divergence Detected", Signal: model.BoolToSignal(bullishDivergence)},
			{Name: "Volume Increasing", Signal: model.BoolToSignal(volumeIncreasing)},
			{Name: "ADX Confirms Trend", Signal: model.BoolToSignal(adxPower), Data: model.Number(a.ADX.ADX)},
			{Name: "EMA Trend Confirms", Signal: model.BoolToSignal(above)},
			{Name: "RSI Not Weak", Signal: model.BoolToSignal(notWeakRSI), Data: model.Number(*a.RSI)},
			{Name: "Stochastic RSI Oversold", Signal: model.BoolToSignal(stochOversold), Data: model.Number(a.StochRSI.StochRSI)},
		},
		NewTrend: shortTrend.NewTrend,
	}
}

// EvaluateSell is the technical exit: a Supertrend reversal confirmed on both
// the 3m and 15m horizons. Hard stop-loss/take-profit and hold-time rules run
// before this, in the sell monitor.
func (s *Long) EvaluateSell(ctx SellContext) model.MetaSignal {
	p := s.params
	st3 := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval3], p.SellPeriod, p.SellMult)
	st15 := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval15], p.SellPeriod, p.SellMult)

	sig := Crossing([]model.Signal{st3.Signal, st15.Signal})

	return model.MetaSignal{
		Signal: sig,
		Diagnostics: []model.Diagnostic{
			{Name: "Supertrend 3m", Signal: st3.Signal},
			{Name: "Supertrend 15m", Signal: st15.Signal},
		},
	}
}
