package indicator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/balkhaev/trader-api/internal/model"
)

func series(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		price := 100 + 0.5*float64(i) + float64(i%5)
		out[i] = model.Candle{
			Open: price - 0.5, High: price + 1, Low: price - 1,
			Close: price, Volume: 1000 + float64(i),
		}
	}
	return out
}

func TestCompute_EmptySeries(t *testing.T) {
	snap := Compute(nil, DefaultPeriods())
	if snap.LastPrice != 0 {
		t.Errorf("empty series last price = %v", snap.LastPrice)
	}
	if snap.SMA != nil || snap.RSI != nil || snap.OBV != nil {
		t.Error("empty series must leave every field absent")
	}
}

// Three candles are under every default window, so all windowed fields must
// come back absent. OBV has no window and only needs two closes.
func TestCompute_ShortSeriesLeavesFieldsAbsent(t *testing.T) {
	snap := Compute(series(3), DefaultPeriods())

	present := []struct {
		name string
		set  bool
	}{
		{"sma", snap.SMA != nil},
		{"ma120", snap.MA120 != nil},
		{"ma240", snap.MA240 != nil},
		{"rsi", snap.RSI != nil},
		{"rsi_fast", snap.RSIFast != nil},
		{"rsi_slow", snap.RSISlow != nil},
		{"macd", snap.MACD != nil},
		{"bollinger", snap.Bollinger != nil},
		{"stoch_rsi", snap.StochRSI != nil},
		{"fastk", snap.FastK != nil},
		{"adx", snap.ADX != nil},
		{"cci", snap.CCI != nil},
		{"cti", snap.CTI != nil},
		{"atr", snap.ATR != nil},
		{"momentum", snap.Momentum != nil},
		{"ema", snap.EMA != nil},
	}
	for _, f := range present {
		if f.set {
			t.Errorf("%s: set with only 3 candles", f.name)
		}
	}
	if snap.OBV == nil {
		t.Error("obv should be set with 3 candles")
	}
	if snap.LastPrice == 0 {
		t.Error("last price should always be set")
	}
}

func TestCompute_LongSeriesPopulatesEverything(t *testing.T) {
	snap := Compute(series(300), DefaultPeriods())

	missing := []struct {
		name string
		set  bool
	}{
		{"sma", snap.SMA != nil},
		{"ma120", snap.MA120 != nil},
		{"ma240", snap.MA240 != nil},
		{"rsi", snap.RSI != nil},
		{"rsi_fast", snap.RSIFast != nil},
		{"rsi_slow", snap.RSISlow != nil},
		{"macd", snap.MACD != nil},
		{"bollinger", snap.Bollinger != nil},
		{"stoch_rsi", snap.StochRSI != nil},
		{"fastk", snap.FastK != nil},
		{"adx", snap.ADX != nil},
		{"cci", snap.CCI != nil},
		{"cti", snap.CTI != nil},
		{"atr", snap.ATR != nil},
		{"obv", snap.OBV != nil},
		{"momentum", snap.Momentum != nil},
		{"ema", snap.EMA != nil},
	}
	for _, f := range missing {
		if !f.set {
			t.Errorf("%s: absent with 300 candles", f.name)
		}
	}
}

// Absent fields must not leak downstream: the serialized snapshot carries no
// key at all for them, so consumers cannot mistake absence for zero.
func TestSnapshotJSON_OmitsAbsentFields(t *testing.T) {
	b, err := json.Marshal(Compute(series(3), DefaultPeriods()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(b)
	for _, key := range []string{`"sma"`, `"rsi"`, `"macd"`, `"atr"`, `"momentum"`} {
		if strings.Contains(out, key) {
			t.Errorf("short-series snapshot should omit %s: %s", key, out)
		}
	}
	if !strings.Contains(out, `"last_price"`) || !strings.Contains(out, `"obv"`) {
		t.Errorf("computed fields should serialize: %s", out)
	}
}
