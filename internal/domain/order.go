package domain

// OrderRequest is the canonical order intent handed to an exchange adapter.
// Symbol carries the pair as emitted by the alert source; adapters rewrite
// it to the exchange's own convention when building the payload.
type OrderRequest struct {
	Symbol   string
	Side     OrderSide
	Kind     OrderKind
	Quantity float64
	Price    float64 // Required for limit orders, ignored for market orders
}

// OrderStatus is the canonical status vocabulary all response normalizers
// converge to.
type OrderStatus string

const (
	OrderFilled    OrderStatus = "filled"
	OrderPartial   OrderStatus = "partial"
	OrderCancelled OrderStatus = "cancelled"
	OrderRejected  OrderStatus = "rejected"
)

// OrderResult is the exchange-agnostic outcome of one order placement.
// Produced fresh per network call and never mutated afterward; Raw always
// carries the verbatim response body for audit.
type OrderResult struct {
	OrderID        string
	Symbol         string
	Side           OrderSide
	RequestedQty   float64
	RequestedPrice float64
	ExecutedQty    float64
	ExecutedPrice  float64
	Status         OrderStatus
	Error          string // Exchange-reported error, empty on success
	Raw            string // Verbatim response body
}
