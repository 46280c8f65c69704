package config

import (
	"errors"
	"testing"
)

func TestSettings_ValidUpdateApplies(t *testing.T) {
	s, err := NewSettings(DefaultStrategyConfig())
	if err != nil {
		t.Fatalf("new settings: %v", err)
	}

	next := DefaultStrategyConfig()
	next.StopLossPct = 3
	next.MaxPositions = 8
	if err := s.Update(next); err != nil {
		t.Fatalf("update: %v", err)
	}

	got := s.Current()
	if got.StopLossPct != 3 || got.MaxPositions != 8 {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestSettings_InvalidUpdateRejected(t *testing.T) {
	s, err := NewSettings(DefaultStrategyConfig())
	if err != nil {
		t.Fatalf("new settings: %v", err)
	}
	before := s.Current()

	bad := []StrategyConfig{
		func() StrategyConfig { c := DefaultStrategyConfig(); c.CapitalPerTrade = -1; return c }(),
		func() StrategyConfig { c := DefaultStrategyConfig(); c.StopLossPct = 120; return c }(),
		func() StrategyConfig { c := DefaultStrategyConfig(); c.StopLossPct = -0.5; return c }(),
		func() StrategyConfig { c := DefaultStrategyConfig(); c.TakeProfitPct = 0; return c }(),
	}

	for i, next := range bad {
		err := s.Update(next)
		if err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d: expected *ValidationError, got %T", i, err)
		}
		// Previous configuration stays live
		if got := s.Current(); got != before {
			t.Fatalf("case %d: live config mutated: %+v", i, got)
		}
	}
}

func TestStrategyFromEnv_OverlaysOnBase(t *testing.T) {
	t.Setenv("CAPITAL_PER_TRADE", "250")
	t.Setenv("MAX_POSITIONS", "8")
	t.Setenv("STOP_LOSS_PCT", "")
	t.Setenv("TAKE_PROFIT_PCT", "not-a-number")

	base := DefaultStrategyConfig()
	got := StrategyFromEnv(base)

	if got.CapitalPerTrade != 250 || got.MaxPositions != 8 {
		t.Fatalf("env values not applied: %+v", got)
	}
	// Unset and unparsable vars keep the base values.
	if got.StopLossPct != base.StopLossPct || got.TakeProfitPct != base.TakeProfitPct {
		t.Fatalf("base values not preserved: %+v", got)
	}
	if got.TickIntervalSec != base.TickIntervalSec {
		t.Fatalf("untouched field changed: %+v", got)
	}
}

func TestStrategyFromEnv_InvalidBatchRejectedByUpdate(t *testing.T) {
	s, err := NewSettings(DefaultStrategyConfig())
	if err != nil {
		t.Fatalf("new settings: %v", err)
	}
	before := s.Current()

	t.Setenv("STOP_LOSS_PCT", "150")
	if err := s.Update(StrategyFromEnv(s.Current())); err == nil {
		t.Fatal("out-of-range reload must be rejected")
	}
	if s.Current() != before {
		t.Fatal("rejected reload must leave the live config untouched")
	}
}

func TestNewSettings_RejectsInvalidInitial(t *testing.T) {
	c := DefaultStrategyConfig()
	c.TakeProfitPct = -1
	if _, err := NewSettings(c); err == nil {
		t.Fatal("expected error for invalid initial config")
	}
}
