package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Opposite returns the side that closes a position opened with s.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderKind distinguishes market orders from limit orders.
type OrderKind string

const (
	KindMarket OrderKind = "MARKET"
	KindLimit  OrderKind = "LIMIT"
)

// StrategyType is the classification an alert's strategy label maps to.
// Exactly two types exist: simple single-order signals and multi-leg
// (multientry) signals.
type StrategyType string

const (
	StrategySimple     StrategyType = "simple"
	StrategyMultientry StrategyType = "multientry"
)

// AlertStatus represents the lifecycle state of a TradeAlert.
type AlertStatus string

const (
	AlertPending  AlertStatus = "pending"
	AlertExecuted AlertStatus = "executed"
	AlertIgnored  AlertStatus = "ignored"
	AlertFailed   AlertStatus = "failed"
)

// CloseReason indicates why a multientry position was closed.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonStopLoss   CloseReason = "SL"
)

// MarketType selects spot or futures trading for exchanges that share a
// single API between the two.
type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)
