package strategy

import (
	"testing"

	"github.com/balkhaev/trader-api/internal/model"
)

func TestCrossing(t *testing.T) {
	cases := []struct {
		name string
		in   []model.Signal
		want model.Signal
	}{
		{"empty", nil, model.SignalNeutral},
		{"all buy", []model.Signal{1, 1, 1}, model.SignalBuy},
		{"all sell", []model.Signal{-1, -1}, model.SignalSell},
		{"all neutral", []model.Signal{0, 0, 0}, model.SignalNeutral},
		{"one dissent vetoes", []model.Signal{1, 1, 0, 1}, model.SignalNeutral},
		{"mixed directions", []model.Signal{1, -1}, model.SignalNeutral},
		{"single buy", []model.Signal{1}, model.SignalBuy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Crossing(tc.in); got != tc.want {
				t.Errorf("Crossing(%v) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestReverse(t *testing.T) {
	if Reverse(model.SignalBuy) != model.SignalSell {
		t.Error("buy should reverse to sell")
	}
	if Reverse(model.SignalSell) != model.SignalBuy {
		t.Error("sell should reverse to buy")
	}
	if Reverse(model.SignalNeutral) != model.SignalNeutral {
		t.Error("neutral must stay neutral")
	}
	// Reverse is its own inverse.
	for _, s := range []model.Signal{-1, 0, 1} {
		if Reverse(Reverse(s)) != s {
			t.Errorf("Reverse(Reverse(%d)) != %d", s, s)
		}
	}
}
