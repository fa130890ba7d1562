package classify

import (
	"context"
	"fmt"
	"strings"

	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/exchange"
	"alertTraderBot/internal/ports"
)

// strategyPrefixes is the fixed naming convention mapping the label token
// before the first underscore to a strategy type. "BB_RSI" classifies by
// "BB"; "ME_LEVELS" by "ME".
var strategyPrefixes = map[string]domain.StrategyType{
	"BB":    domain.StrategySimple,
	"RSI":   domain.StrategySimple,
	"MACD":  domain.StrategySimple,
	"EMA":   domain.StrategySimple,
	"ME":    domain.StrategyMultientry,
	"MULTI": domain.StrategyMultientry,
}

// StrategyTypeOf classifies an alert strategy label. Unrecognized prefixes
// fail with an error naming the offending label.
func StrategyTypeOf(label string) (domain.StrategyType, error) {
	prefix := label
	if i := strings.Index(label, "_"); i >= 0 {
		prefix = label[:i]
	}
	st, ok := strategyPrefixes[strings.ToUpper(strings.TrimSpace(prefix))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ports.ErrUnknownStrategy, label)
	}
	return st, nil
}

// ParsedAlert is the enriched alert handed to the execution engine: the
// classification outcome, the calculated quantity/price/notional and the
// resolved effective credentials.
type ParsedAlert struct {
	Alert        *domain.TradeAlert
	StrategyType domain.StrategyType
	Quantity     float64
	Price        float64
	Notional     float64
	Credentials  domain.ResolvedCredentials
}

// Classifier maps alerts to strategy types, gates them against the enabled
// set and computes order sizing. It performs no network or storage effects.
type Classifier struct {
	logger ports.Logger
}

// New creates a new Classifier instance.
func New(logger ports.Logger) (*Classifier, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for classifier")
	}
	return &Classifier{logger: logger}, nil
}

// Parse runs classification, gating, credential resolution and sizing for
// one alert.
func (c *Classifier) Parse(ctx context.Context, alert *domain.TradeAlert, cfg *domain.TradingConfig, creds []*domain.ExchangeCredentials) (*ParsedAlert, error) {
	st, err := StrategyTypeOf(alert.Strategy)
	if err != nil {
		return nil, err
	}

	if !cfg.StrategyEnabled(st) {
		return nil, fmt.Errorf("%w: %s", ports.ErrStrategyDisabled, st)
	}

	resolved, err := ResolveActive(creds, cfg.TestMode)
	if err != nil {
		return nil, err
	}

	capability := exchange.CapabilityOf(resolved.Exchange)
	if !capability.Supported {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnsupportedExchange, resolved.Exchange)
	}
	if resolved.MarketType == domain.MarketFutures && !capability.SupportsFutures {
		return nil, fmt.Errorf("%w: %s does not support futures trading", ports.ErrConfigurationError, resolved.Exchange)
	}

	qty, notional, err := calculateQuantity(alert, cfg)
	if err != nil {
		return nil, err
	}

	c.logger.Debug(ctx, "Alert classified", map[string]interface{}{
		"alertID":  alert.ID,
		"strategy": alert.Strategy,
		"type":     st,
		"exchange": resolved.Exchange,
		"quantity": qty,
		"notional": notional,
	})

	return &ParsedAlert{
		Alert:        alert,
		StrategyType: st,
		Quantity:     qty,
		Price:        alert.Price,
		Notional:     notional,
		Credentials:  resolved,
	}, nil
}

// ResolveActive selects the single active credential set. Zero active sets
// is a fatal configuration error; more than one violates the single-active
// invariant and is rejected rather than silently picking one.
func ResolveActive(creds []*domain.ExchangeCredentials, testMode bool) (domain.ResolvedCredentials, error) {
	var active *domain.ExchangeCredentials
	for _, c := range creds {
		if !c.IsActive {
			continue
		}
		if active != nil {
			return domain.ResolvedCredentials{}, fmt.Errorf("%w: more than one exchange configured as active", ports.ErrConfigurationError)
		}
		active = c
	}
	if active == nil {
		return domain.ResolvedCredentials{}, ports.ErrNoActiveExchange
	}
	return active.Resolve(testMode), nil
}

// calculateQuantity applies percentage or fixed sizing, then clamps the
// quantity so notional never exceeds the configured position cap.
func calculateQuantity(alert *domain.TradeAlert, cfg *domain.TradingConfig) (qty, notional float64, err error) {
	switch cfg.SizingType {
	case domain.SizingPercentage:
		qty = alert.Quantity * cfg.SizingValue / 100
	case domain.SizingFixed:
		if alert.Price <= 0 {
			return 0, 0, fmt.Errorf("%w: fixed sizing requires a positive alert price", ports.ErrInvalidRequest)
		}
		qty = cfg.SizingValue / alert.Price
	default:
		return 0, 0, fmt.Errorf("%w: unknown sizing type %q", ports.ErrConfigurationError, cfg.SizingType)
	}
	if qty <= 0 {
		return 0, 0, fmt.Errorf("%w: calculated quantity is not positive", ports.ErrInvalidRequest)
	}

	notional = qty * alert.Price
	if cfg.MaxPositionSize > 0 && notional > cfg.MaxPositionSize {
		// Clamp so notional lands exactly on the cap.
		qty = cfg.MaxPositionSize / alert.Price
		notional = cfg.MaxPositionSize
	}
	return qty, notional, nil
}
