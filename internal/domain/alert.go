package domain

import "time"

// TradeAlert represents a trading signal received from the external alert
// source. Alerts are created by the signal source and mutated only by the
// execution engine; history retention is the storage adapter's concern.
type TradeAlert struct {
	ID         string      // Unique identifier assigned by the alert source
	Symbol     string      // Trading pair as emitted by the source (e.g., "BTCUSDT")
	Side       OrderSide   // BUY or SELL
	Quantity   float64     // Quantity suggested by the source (base asset units)
	Price      float64     // Reference price at alert time
	Strategy   string      // Originating strategy label (e.g., "BB_RSI", "ME_LEVELS")
	RawAlert   string      // Compact multientry payload, empty for simple alerts
	StopLoss   float64     // Optional stop-loss price (0 if unset)
	TakeProfit float64     // Optional take-profit price (0 if unset)
	Status     AlertStatus // pending -> executed|ignored|failed

	// Execution outcome, populated by the engine.
	ExecutedPrice float64
	ExecutedAt    time.Time
	Error         string // Failure detail, empty on success
	RawResponse   string // Verbatim exchange response body, kept for audit

	CreatedAt time.Time
}

// MarkExecuted records a successful execution outcome on the alert.
func (a *TradeAlert) MarkExecuted(price float64, raw string, at time.Time) {
	a.Status = AlertExecuted
	a.ExecutedPrice = price
	a.ExecutedAt = at
	a.RawResponse = raw
	a.Error = ""
}

// MarkFailed records a failure outcome on the alert. The raw exchange
// response (if any) is preserved so the failure stays inspectable.
func (a *TradeAlert) MarkFailed(err error, raw string) {
	a.Status = AlertFailed
	if err != nil {
		a.Error = err.Error()
	}
	a.RawResponse = raw
}
