package strategy

import (
	"github.com/balkhaev/trader-api/internal/indicator"
	"github.com/balkhaev/trader-api/internal/model"
)

// RSIConfirmParams are the tunables for the RSI-confirmation strategy.
type RSIConfirmParams struct {
	CandlesLimit int
	GlobalMult   float64
	ShortMult    float64
	EMAPeriod    int
	ADXFloor     float64
	RSICeil      float64 // oversold ceiling for the primary RSI check
	StochRSICeil float64
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	MinConfirms  int // confirming signals required besides preconditions
	SellPeriod   int
	SellMult     float64
}

// DefaultRSIConfirmParams mirrors the production tuning.
func DefaultRSIConfirmParams() RSIConfirmParams {
	return RSIConfirmParams{
		CandlesLimit: 10,
		GlobalMult:   2,
		ShortMult:    1,
		EMAPeriod:    200,
		ADXFloor:     25,
		RSICeil:      30,
		StochRSICeil: 20,
		MACDFast:     8,
		MACDSlow:     21,
		MACDSignal:   5,
		MinConfirms:  2,
		SellPeriod:   10,
		SellMult:     2,
	}
}

// RSIConfirm shares the long strategy's precondition gate but accepts the
// trade on a vote count: at least MinConfirms of the independent confirming
// signals must be true, rather than all of them.
type RSIConfirm struct {
	params RSIConfirmParams
}

// NewRSIConfirm creates the RSI-confirmation strategy.
func NewRSIConfirm(params RSIConfirmParams) *RSIConfirm {
	return &RSIConfirm{params: params}
}

func (s *RSIConfirm) Name() string { return "rsi" }

func (s *RSIConfirm) EvaluateBuy(ctx Context) model.MetaSignal {
	p := s.params
	a := ctx.Snapshot

	globalTrend := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval240], p.CandlesLimit, p.GlobalMult)

	if globalTrend.Signal == model.SignalNeutral ||
		a == nil || a.MACD == nil || a.MACD.Histogram == nil ||
		a.StochRSI == nil || a.ADX == nil || a.RSI == nil {
		return model.Neutral(insufficientData, model.DiagValue{})
	}

	above, _ := aboveEMA(ctx.Candles[model.Interval240], p.EMAPeriod)
	if !above {
		return model.Neutral("Global EMA trend bearish", model.DiagValue{})
	}

	shortTrend := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval3], p.CandlesLimit, p.ShortMult)
	if shortTrend.Signal != model.SignalBuy {
		return model.Neutral("Short-term trend bearish (3m)", model.DiagValue{})
	}

	candles30 := ctx.Candles[model.Interval30]
	hist := indicator.MACDHistogram(model.Closes(candles30), p.MACDFast, p.MACDSlow, p.MACDSignal)

	rsiOversold := *a.RSI < p.RSICeil
	bullishDivergence := isBullishDivergence(candles30, hist)
	volumeIncreasing := isVolumeIncreasing(candles30)
	adxPower := a.ADX.ADX > p.ADXFloor
	stochOversold := a.StochRSI.StochRSI < p.StochRSICeil
	bullishEngulfing := isBullishEngulfing(ctx.Candles[model.Interval15])

	confirms := 0
	for _, ok := range []bool{rsiOversold, bullishDivergence, volumeIncreasing, adxPower, above, stochOversold, bullishEngulfing} {
		if ok {
			confirms++
		}
	}

	return model.MetaSignal{
		Signal: model.BoolToSignal(confirms >= p.MinConfirms),
		Diagnostics: []model.Diagnostic{
			{Name: "RSI Oversold", Signal: model.BoolToSignal(rsiOversold), Data: model.Number(*a.RSI)},
			{Name: "Bullish Divergence Detected", Signal: model.BoolToSignal(bullishDivergence)},
			{Name: "Volume Increasing", Signal: model.BoolToSignal(volumeIncreasing)},
			{Name: "ADX Confirms Trend", Signal: model.BoolToSignal(adxPower), Data: model.Number(a.ADX.ADX)},
			{Name: "EMA Trend Confirms", Signal: model.BoolToSignal(above)},
			{Name: "Stochastic RSI Oversold", Signal: model.BoolToSignal(stochOversold), Data: model.Number(a.StochRSI.StochRSI)},
			{Name: "Bullish Engulfing Pattern", Signal: model.BoolToSignal(bullishEngulfing)},
		},
	}
}

// EvaluateSell exits as soon as the 3m Supertrend used for entry stops being
// bullish; a neutral reading already means the trend is over.
func (s *RSIConfirm) EvaluateSell(ctx SellContext) model.MetaSignal {
	p := s.params
	st3 := SupertrendSignal(ctx.LastPrice, ctx.Candles[model.Interval3], p.SellPeriod, p.SellMult)

	if st3.Signal != model.SignalBuy {
		return model.MetaSignal{
			Signal: model.SignalSell,
			Diagnostics: []model.Diagnostic{
				{Name: "Supertrend Reversal Detected", Signal: model.SignalSell, Data: model.Number(float64(st3.Signal))},
			},
		}
	}

	return model.MetaSignal{
		Signal: model.SignalNeutral,
		Diagnostics: []model.Diagnostic{
			{Name: "Trend Continues", Signal: model.SignalBuy},
		},
	}
}
