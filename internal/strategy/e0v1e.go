package strategy

import (
	"fmt"

	"github.com/balkhaev/trader-api/internal/indicator"
	"github.com/balkhaev/trader-api/internal/model"
)

// E0V1EParams are the tunables for the mean-reversion strategy.
type E0V1EParams struct {
	BuyRSIFast   float64 // fast RSI must be below this
	BuyRSI       float64 // slow-ish RSI must be above this
	BuySMARatio  float64 // price must be below sma * ratio
	BuyCTI       float64 // CTI must be below this
	SellFastK    float64 // fast stochastic exhaustion ceiling
	SellLossCCI  float64 // CCI ceiling for the adverse-excursion exit
	SellLossCCIP float64 // minimum profit for the CCI exit to apply
	RSISlowPer   int     // period used for the previous-bar slow RSI
}

// DefaultE0V1EParams mirrors the production tuning.
func DefaultE0V1EParams() E0V1EParams {
	return E0V1EParams{
		BuyRSIFast:   40,
		BuyRSI:       42,
		BuySMARatio:  0.973,
		BuyCTI:       0.69,
		SellFastK:    84,
		SellLossCCI:  120,
		SellLossCCIP: -0.05,
		RSISlowPer:   20,
	}
}

// E0V1E is a mean-reversion strategy: it buys dips confirmed by a cooling
// slow RSI and a depressed CTI, and sells on stochastic exhaustion or a
// moving-average breakdown. Its per-trade memory (whether the entry was ever
// confirmed above the 120/240-bar MAs) lives on the Position record so state
// cannot leak between trades.
type E0V1E struct {
	params E0V1EParams
}

// NewE0V1E creates the mean-reversion strategy.
func NewE0V1E(params E0V1EParams) *E0V1E {
	return &E0V1E{params: params}
}

func (s *E0V1E) Name() string { return "e0v1e" }

func (s *E0V1E) EvaluateBuy(ctx Context) model.MetaSignal {
	p := s.params
	a := ctx.Snapshot

	if a == nil || a.RSI == nil || a.SMA == nil || a.RSIFast == nil || a.RSISlow == nil || a.CTI == nil {
		return model.Neutral(insufficientData, model.DiagValue{})
	}

	candles30 := ctx.Candles[model.Interval30]
	if len(candles30) < 2 {
		return model.Neutral(insufficientData, model.DiagValue{})
	}
	closes := model.Closes(candles30)
	prevRSISlow, ok := indicator.LastRSI(closes[:len(closes)-1], p.RSISlowPer)
	if !ok {
		return model.Neutral("Insufficient Data for previous slow RSI", model.DiagValue{})
	}

	rsiSlowDecreasing := *a.RSISlow < prevRSISlow
	rsiFastLow := *a.RSIFast < p.BuyRSIFast
	rsiHigh := *a.RSI > p.BuyRSI
	belowSMA := ctx.LastPrice < *a.SMA*p.BuySMARatio
	ctiLow := *a.CTI < p.BuyCTI

	all := rsiSlowDecreasing && rsiFastLow && rsiHigh && belowSMA && ctiLow

	return model.MetaSignal{
		Signal: model.BoolToSignal(all),
		Diagnostics: []model.Diagnostic{
			{Name: "slow RSI decreasing", Signal: model.BoolToSignal(rsiSlowDecreasing),
				Data: model.String(fmt.Sprintf("current: %.2f, prev: %.2f", *a.RSISlow, prevRSISlow))},
			{Name: "fast RSI low", Signal: model.BoolToSignal(rsiFastLow), Data: model.Number(*a.RSIFast)},
			{Name: "RSI above floor", Signal: model.BoolToSignal(rsiHigh), Data: model.Number(*a.RSI)},
			{Name: "price below SMA ratio", Signal: model.BoolToSignal(belowSMA),
				Data: model.String(fmt.Sprintf("price: %.4f, sma: %.4f", ctx.LastPrice, *a.SMA))},
			{Name: "CTI low", Signal: model.BoolToSignal(ctiLow), Data: model.Number(*a.CTI)},
		},
	}
}

func (s *E0V1E) EvaluateSell(ctx SellContext) model.MetaSignal {
	p := s.params
	a := ctx.Snapshot
	pos := ctx.Position

	if a == nil || a.RSI == nil || a.StochRSI == nil || a.MACD == nil || a.SMA == nil ||
		a.CCI == nil || a.FastK == nil || a.MA120 == nil || a.MA240 == nil {
		return model.Neutral(insufficientData, model.DiagValue{})
	}

	openRate := pos.EntryPrice

	// Per-trade confirmation flags; set once, stored on the position.
	if !pos.HeldAboveMA && openRate > *a.MA120 && openRate > *a.MA240 {
		pos.HeldAboveMA = true
	}
	if !pos.HeldAboveMAFast && openRate > 0 && (openRate-*a.MA120)/openRate >= 0.1 {
		pos.HeldAboveMAFast = true
	}

	// Worst price seen since entry, from the 1m series.
	minRate := openRate
	for _, c := range ctx.Candles[model.Interval1] {
		if c.Time.Before(pos.EntryTime) {
			continue
		}
		if c.Low < minRate {
			minRate = c.Low
		}
	}
	minProfit := minRate/openRate - 1

	fastkProfitSell := ctx.Profit > 0 && *a.FastK > p.SellFastK
	cciLossSell := minProfit <= -0.1 && ctx.Profit > p.SellLossCCIP && *a.CCI > p.SellLossCCI
	ma120SellFast := pos.HeldAboveMAFast && ctx.LastPrice < *a.MA120
	ma120Sell := pos.HeldAboveMA && ctx.LastPrice < *a.MA120 && ctx.LastPrice < *a.MA240 && minProfit <= -0.1

	sig := model.SignalNeutral
	reason := ""
	switch {
	case fastkProfitSell:
		sig = model.SignalSell
		reason = "fastk_profit_sell"
	case cciLossSell:
		sig = model.SignalSell
		reason = "cci_loss_sell"
	case ma120SellFast:
		sig = model.SignalSell
		reason = "ma120_sell_fast"
		pos.HeldAboveMAFast = false
	case ma120Sell:
		sig = model.SignalSell
		reason = "ma120_sell"
		pos.HeldAboveMA = false
	}

	return model.MetaSignal{
		Signal: sig,
		Diagnostics: []model.Diagnostic{
			{Name: "Reason", Signal: sig, Data: model.String(reason)},
			{Name: "fastk", Signal: model.BoolToSignal(*a.FastK > p.SellFastK), Data: model.Number(*a.FastK)},
			{Name: "cci", Signal: model.BoolToSignal(*a.CCI > p.SellLossCCI), Data: model.Number(*a.CCI)},
			{Name: "currentProfit", Signal: model.BoolToSignal(ctx.Profit > 0), Data: model.Number(ctx.Profit)},
			{Name: "minProfit", Signal: model.BoolToSignal(minProfit > 0), Data: model.Number(minProfit)},
			{Name: "ma120", Signal: model.BoolToSignal(ctx.LastPrice < *a.MA120), Data: model.Number(*a.MA120)},
			{Name: "ma240", Signal: model.BoolToSignal(ctx.LastPrice < *a.MA240), Data: model.Number(*a.MA240)},
		},
	}
}
