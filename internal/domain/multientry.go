package domain

import "time"

// MultientryLevelCount is the fixed number of levels a multientry alert may
// carry (L1..L4).
const MultientryLevelCount = 4

// MultientryLevel is one decoded level of a compact multientry alert.
// L1 executes as a market order, L2-L4 as limit orders. Levels are derived
// from the alert string and never persisted independently.
type MultientryLevel struct {
	Level    int // 1..4
	Price    float64
	Quantity float64 // baseAmount * level / price
	Kind     OrderKind
}

// LegStatus represents the state machine of one multientry leg:
// pending -> {filled, cancelled, rejected}.
type LegStatus string

const (
	LegPending   LegStatus = "pending"
	LegFilled    LegStatus = "filled"
	LegCancelled LegStatus = "cancelled"
	LegRejected  LegStatus = "rejected"
)

// OrderLeg records the outcome of one level of a multientry position.
type OrderLeg struct {
	Level           int
	ExchangeOrderID string
	Status          LegStatus
	Quantity        float64 // Requested quantity
	Price           float64 // Requested price (level price)
	FilledQuantity  float64
	FilledPrice     float64
}

// MultientryOrder tracks an in-flight multi-leg position keyed by the
// correlation id extracted from the alert payload. Saving under the same
// correlation id supersedes the prior record.
type MultientryOrder struct {
	CorrelationID string
	AlertID       string
	Symbol        string
	Exchange      string
	Side          OrderSide
	CreatedAt     time.Time
	Legs          []OrderLeg
}

// FilledLegs returns the legs that reached filled state, L1 first.
func (m *MultientryOrder) FilledLegs() []*OrderLeg {
	var out []*OrderLeg
	for i := range m.Legs {
		if m.Legs[i].Status == LegFilled {
			out = append(out, &m.Legs[i])
		}
	}
	return out
}

// PendingLegs returns the legs still awaiting a fill.
func (m *MultientryOrder) PendingLegs() []*OrderLeg {
	var out []*OrderLeg
	for i := range m.Legs {
		if m.Legs[i].Status == LegPending {
			out = append(out, &m.Legs[i])
		}
	}
	return out
}
