package domain

import "fmt"

// SizingType selects how order quantity is derived from an alert.
type SizingType string

const (
	SizingPercentage SizingType = "percentage" // quantity = alert quantity * value/100
	SizingFixed      SizingType = "fixed"      // quantity = value (USD) / alert price
)

// TradingMode controls whether alerts are executed automatically.
type TradingMode string

const (
	ModeAuto   TradingMode = "auto"
	ModeManual TradingMode = "manual"
)

// TradingConfig is the per-session trading configuration. It is read by the
// classifier/sizing engine and written by the settings collaborator.
type TradingConfig struct {
	Mode                 TradingMode
	SizingType           SizingType
	SizingValue          float64 // Percent for percentage sizing, USD for fixed
	MaxPositionSize      float64 // Max notional in quote currency; 0 disables the cap
	StopLossPercent      float64
	TakeProfitPercent    float64
	TestMode             bool
	MultientryBaseAmount float64 // Base USD amount per multientry level

	enabledStrategies map[StrategyType]bool
}

// NewTradingConfig returns a config with both strategy types enabled.
func NewTradingConfig() *TradingConfig {
	return &TradingConfig{
		Mode:        ModeAuto,
		SizingType:  SizingPercentage,
		SizingValue: 100,
		enabledStrategies: map[StrategyType]bool{
			StrategySimple:     true,
			StrategyMultientry: true,
		},
	}
}

// StrategyEnabled reports whether the given strategy type is enabled.
func (c *TradingConfig) StrategyEnabled(st StrategyType) bool {
	return c.enabledStrategies[st]
}

// EnableStrategy adds a strategy type to the enabled set.
func (c *TradingConfig) EnableStrategy(st StrategyType) {
	if c.enabledStrategies == nil {
		c.enabledStrategies = make(map[StrategyType]bool)
	}
	c.enabledStrategies[st] = true
}

// DisableStrategy removes a strategy type from the enabled set. Disabling
// the last enabled strategy is rejected: the enabled set is never empty.
func (c *TradingConfig) DisableStrategy(st StrategyType) error {
	if !c.enabledStrategies[st] {
		return nil
	}
	remaining := 0
	for _, on := range c.enabledStrategies {
		if on {
			remaining++
		}
	}
	if remaining <= 1 {
		return fmt.Errorf("cannot disable strategy %q: at least one strategy must remain enabled", st)
	}
	delete(c.enabledStrategies, st)
	return nil
}

// EnabledStrategies returns the currently enabled strategy types.
func (c *TradingConfig) EnabledStrategies() []StrategyType {
	out := make([]StrategyType, 0, len(c.enabledStrategies))
	for st, on := range c.enabledStrategies {
		if on {
			out = append(out, st)
		}
	}
	return out
}
