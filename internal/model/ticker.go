package model

import "encoding/json"

// Ticker is a point-in-time market snapshot for one symbol. No history kept.
type Ticker struct {
	Symbol      string  `json:"symbol"`
	LastPrice   float64 `json:"last_price"`
	Volume24h   float64 `json:"volume_24h"`
	Turnover24h float64 `json:"turnover_24h"`
	Change24h   float64 `json:"change_24h"` // fractional, e.g. 0.034 = +3.4%
}

// JSON returns the JSON-encoded ticker (ignoring errors for hot-path usage).
func (t *Ticker) JSON() []byte {
	b, _ := json.Marshal(t)
	return b
}
