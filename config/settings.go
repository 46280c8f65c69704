package config

import (
	"fmt"
	"sync"
)

// StrategyConfig is the hot-reloadable trading surface. Percentages are in
// [0,100] terms, not ratios.
type StrategyConfig struct {
	CapitalPerTrade float64 `json:"capital_per_trade"`
	MaxPositions    int     `json:"max_positions"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
	TickIntervalSec int     `json:"tick_interval_sec"`
}

// DefaultStrategyConfig returns the baseline tunables.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		CapitalPerTrade: 100,
		MaxPositions:    5,
		StopLossPct:     5,
		TakeProfitPct:   10,
		TickIntervalSec: 30,
	}
}

// StrategyFromEnv overlays the strategy tunables from the environment on top
// of base. Called at boot and again on each reload; values stay unvalidated
// here so Settings.Update can reject the whole batch atomically.
func StrategyFromEnv(base StrategyConfig) StrategyConfig {
	return StrategyConfig{
		CapitalPerTrade: getEnvFloat("CAPITAL_PER_TRADE", base.CapitalPerTrade),
		MaxPositions:    getEnvInt("MAX_POSITIONS", base.MaxPositions),
		StopLossPct:     getEnvFloat("STOP_LOSS_PCT", base.StopLossPct),
		TakeProfitPct:   getEnvFloat("TAKE_PROFIT_PCT", base.TakeProfitPct),
		TickIntervalSec: getEnvInt("TICK_INTERVAL_SEC", base.TickIntervalSec),
	}
}

// ValidationError reports a rejected config update. The live configuration is
// untouched when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s %s", e.Field, e.Reason)
}

// Validate checks the tunables before they can go live.
func (c StrategyConfig) Validate() error {
	if c.CapitalPerTrade < 0 {
		return &ValidationError{Field: "capital_per_trade", Reason: "must not be negative"}
	}
	if c.MaxPositions < 0 {
		return &ValidationError{Field: "max_positions", Reason: "must not be negative"}
	}
	if c.StopLossPct < 0 || c.StopLossPct > 100 {
		return &ValidationError{Field: "stop_loss_pct", Reason: "must be within [0,100]"}
	}
	if c.TakeProfitPct <= 0 {
		return &ValidationError{Field: "take_profit_pct", Reason: "must be positive"}
	}
	if c.TickIntervalSec <= 0 {
		return &ValidationError{Field: "tick_interval_sec", Reason: "must be positive"}
	}
	return nil
}

// Settings holds the live StrategyConfig behind a mutex so updates can land
// without a restart. Invalid updates are rejected and the previous
// configuration stays in effect.
type Settings struct {
	mu  sync.RWMutex
	cur StrategyConfig
}

// NewSettings validates and installs the initial configuration.
func NewSettings(initial StrategyConfig) (*Settings, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &Settings{cur: initial}, nil
}

// Current returns a copy of the live configuration.
func (s *Settings) Current() StrategyConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Update swaps the live configuration atomically. A validation failure leaves
// the previous configuration in place.
func (s *Settings) Update(next StrategyConfig) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()
	return nil
}
