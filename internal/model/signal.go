package model

import "encoding/json"

// Signal is the tri-state output of every signal evaluation:
// -1 bearish/sell, 0 neutral/no-action, 1 bullish/buy.
type Signal int

const (
	SignalSell    Signal = -1
	SignalNeutral Signal = 0
	SignalBuy     Signal = 1
)

// BoolToSignal maps a confirmation flag to a buy/neutral signal.
func BoolToSignal(b bool) Signal {
	if b {
		return SignalBuy
	}
	return SignalNeutral
}

// DiagKind tags the payload variant carried by a Diagnostic.
type DiagKind int

const (
	DiagNone DiagKind = iota
	DiagNumber
	DiagString
	DiagBool
)

// DiagValue is a tagged Number|String|Bool payload for diagnostics.
// It replaces the loosely typed "any" data the system previously carried.
type DiagValue struct {
	Kind DiagKind
	Num  float64
	Str  string
	Bool bool
}

// Number wraps a float diagnostic payload.
func Number(v float64) DiagValue { return DiagValue{Kind: DiagNumber, Num: v} }

// String wraps a string diagnostic payload.
func String(v string) DiagValue { return DiagValue{Kind: DiagString, Str: v} }

// Bool wraps a boolean diagnostic payload.
func Bool(v bool) DiagValue { return DiagValue{Kind: DiagBool, Bool: v} }

// MarshalJSON emits the underlying value, or null when no payload is set.
func (d DiagValue) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case DiagNumber:
		return json.Marshal(d.Num)
	case DiagString:
		return json.Marshal(d.Str)
	case DiagBool:
		return json.Marshal(d.Bool)
	default:
		return []byte("null"), nil
	}
}

// Diagnostic is one named contributor to a MetaSignal. Diagnostics are
// observability output only and never affect control flow.
type Diagnostic struct {
	Name   string    `json:"name"`
	Signal Signal    `json:"signal"`
	Data   DiagValue `json:"data,omitempty"`
}

// MetaSignal is the full result of a buy or sell evaluation.
type MetaSignal struct {
	Signal      Signal       `json:"signal"`
	Diagnostics []Diagnostic `json:"indicators"`
	NewTrend    bool         `json:"new_trend,omitempty"`
}

// Neutral builds a neutral MetaSignal carrying a single named diagnostic,
// typically a failed precondition.
func Neutral(name string, data DiagValue) MetaSignal {
	return MetaSignal{
		Signal:      SignalNeutral,
		Diagnostics: []Diagnostic{{Name: name, Signal: SignalNeutral, Data: data}},
	}
}
