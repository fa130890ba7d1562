package exchange

import (
	"fmt"

	"alertTraderBot/internal/ports"
)

// ForExchange selects the adapter implementing an exchange's payload,
// signing and normalization conventions. Display names with a futures
// suffix resolve to the base exchange's adapter.
func ForExchange(name string) (ports.ExchangeAdapter, error) {
	switch CanonicalName(name) {
	case "binance":
		return &Binance{}, nil
	case "bybit":
		return &Bybit{}, nil
	case "btcc":
		return &BTCC{}, nil
	case "kraken":
		return &Kraken{}, nil
	case "coinbase":
		return &Coinbase{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ports.ErrUnsupportedExchange, name)
}
