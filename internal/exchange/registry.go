package exchange

import "strings"

// Capability describes the static metadata of one supported exchange.
type Capability struct {
	Supported            bool // False for unrecognized exchange names
	SupportsFutures      bool
	SharedSpotFuturesAPI bool // One API serves spot and futures (category-style selection)
	LeverageViaAPI       bool
	MinLeverage          int
	MaxLeverage          int
}

// futuresSuffix on a display name resolves to the base exchange's capability
// (e.g. "Binance Futures" -> binance).
const futuresSuffix = " futures"

var capabilities = map[string]Capability{
	"binance": {
		Supported:            true,
		SupportsFutures:      true,
		SharedSpotFuturesAPI: false, // Separate spot and futures hosts
		LeverageViaAPI:       true,
		MinLeverage:          1,
		MaxLeverage:          125,
	},
	"bybit": {
		Supported:            true,
		SupportsFutures:      true,
		SharedSpotFuturesAPI: true, // V5 unified API, category field
		LeverageViaAPI:       true,
		MinLeverage:          1,
		MaxLeverage:          100,
	},
	"btcc": {
		Supported:            true,
		SupportsFutures:      true,
		SharedSpotFuturesAPI: true,
		LeverageViaAPI:       false, // Leverage is an account setting, not per-order
		MinLeverage:          1,
		MaxLeverage:          150,
	},
	"kraken": {
		Supported:            true,
		SupportsFutures:      false, // Kraken futures is a separate API, not wired here
		SharedSpotFuturesAPI: false,
		LeverageViaAPI:       false,
	},
	"coinbase": {
		Supported:            true,
		SupportsFutures:      false,
		SharedSpotFuturesAPI: false,
		LeverageViaAPI:       false,
	},
}

// CanonicalName normalizes an exchange display name to the registry key:
// lowercased, trimmed, with any futures suffix stripped.
func CanonicalName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, futuresSuffix)
	return strings.TrimSpace(n)
}

// CapabilityOf looks up the capability metadata for an exchange name.
// The lookup fails closed: unrecognized names return a zero Capability with
// Supported=false.
func CapabilityOf(name string) Capability {
	return capabilities[CanonicalName(name)]
}
