package indicator

import "github.com/balkhaev/trader-api/internal/model"

// Periods holds the lookback windows for a full snapshot computation.
type Periods struct {
	SMA         int
	MA120       int
	MA240       int
	RSI         int
	RSIFast     int
	RSISlow     int
	MACDFast    int
	MACDSlow    int
	MACDSignal  int
	Bollinger   int
	BollingerSD float64
	StochRSI    int
	StochPeriod int
	StochSignal int
	ADX         int
	CCI         int
	CTI         int
	ATR         int
	Momentum    int
	EMA         int
}

// DefaultPeriods returns the standard windows used for the 30m analysis pass.
func DefaultPeriods() Periods {
	return Periods{
		SMA:         15,
		MA120:       50,
		MA240:       25,
		RSI:         14,
		RSIFast:     4,
		RSISlow:     20,
		MACDFast:    12,
		MACDSlow:    26,
		MACDSignal:  9,
		Bollinger:   20,
		BollingerSD: 2,
		StochRSI:    14,
		StochPeriod: 5,
		StochSignal: 3,
		ADX:         14,
		CCI:         20,
		CTI:         20,
		ATR:         14,
		Momentum:    10,
		EMA:         20,
	}
}

// Snapshot is a full set of indicator values computed over one candle series.
// Nil fields mean the series was shorter than that indicator's window;
// callers must treat absence as "insufficient data", not as zero.
type Snapshot struct {
	LastPrice float64          `json:"last_price"`
	SMA       *float64         `json:"sma,omitempty"`
	MA120     *float64         `json:"ma120,omitempty"`
	MA240     *float64         `json:"ma240,omitempty"`
	RSI       *float64         `json:"rsi,omitempty"`
	RSIFast   *float64         `json:"rsi_fast,omitempty"`
	RSISlow   *float64         `json:"rsi_slow,omitempty"`
	MACD      *MACDResult      `json:"macd,omitempty"`
	Bollinger *BollingerResult `json:"bollinger,omitempty"`
	StochRSI  *StochRSIResult  `json:"stochastic_rsi,omitempty"`
	FastK     *float64         `json:"fastk,omitempty"`
	ADX       *ADXResult       `json:"adx,omitempty"`
	CCI       *float64         `json:"cci,omitempty"`
	CTI       *float64         `json:"cti,omitempty"`
	ATR       *float64         `json:"atr,omitempty"`
	OBV       *float64         `json:"obv,omitempty"`
	Momentum  *float64         `json:"momentum,omitempty"`
	EMA       *float64         `json:"ema,omitempty"`
}

// Compute derives a full indicator snapshot from one candle series.
// Pure and deterministic; indicators whose window exceeds the series length
// are simply left absent.
func Compute(candles []model.Candle, p Periods) Snapshot {
	snap := Snapshot{}
	if len(candles) == 0 {
		return snap
	}

	closes := model.Closes(candles)
	highs := model.Highs(candles)
	lows := model.Lows(candles)
	volumes := model.Volumes(candles)
	snap.LastPrice = closes[len(closes)-1]

	if v, ok := LastSMA(closes, p.SMA); ok {
		snap.SMA = fp(v)
	}
	if v, ok := LastSMA(closes, p.MA120); ok {
		snap.MA120 = fp(v)
	}
	if v, ok := LastSMA(closes, p.MA240); ok {
		snap.MA240 = fp(v)
	}
	if v, ok := LastRSI(closes, p.RSI); ok {
		snap.RSI = fp(v)
	}
	if v, ok := LastRSI(closes, p.RSIFast); ok {
		snap.RSIFast = fp(v)
	}
	if v, ok := LastRSI(closes, p.RSISlow); ok {
		snap.RSISlow = fp(v)
	}
	if v, ok := LastMACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal); ok {
		snap.MACD = &v
	}
	if v, ok := LastBollinger(closes, p.Bollinger, p.BollingerSD); ok {
		snap.Bollinger = &v
	}
	if v, ok := LastStochRSI(closes, p.RSI, p.StochRSI, 3, 3); ok {
		snap.StochRSI = &v
	}
	if v, ok := LastFastK(highs, lows, closes, p.StochPeriod); ok {
		snap.FastK = fp(v)
	}
	if v, ok := LastADX(highs, lows, closes, p.ADX); ok {
		snap.ADX = &v
	}
	if v, ok := LastCCI(highs, lows, closes, p.CCI); ok {
		snap.CCI = fp(v)
	}
	if v, ok := LastCTI(closes, p.CTI); ok {
		snap.CTI = fp(v)
	}
	if v, ok := LastATR(highs, lows, closes, p.ATR); ok {
		snap.ATR = fp(v)
	}
	if v, ok := LastOBV(closes, volumes); ok {
		snap.OBV = fp(v)
	}
	if v, ok := LastMomentum(closes, p.Momentum); ok {
		snap.Momentum = fp(v)
	}
	if v, ok := LastEMA(closes, p.EMA); ok {
		snap.EMA = fp(v)
	}
	return snap
}
