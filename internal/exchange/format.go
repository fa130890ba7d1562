package exchange

import (
	"strings"

	"github.com/shopspring/decimal"
)

// wireDecimals is the maximum number of decimal places sent on the wire.
// Eight places cover the finest step size of the supported exchanges.
const wireDecimals = 8

// formatAmount renders a quantity or price for an exchange payload without
// float formatting artifacts (no exponent notation, no trailing zeros).
func formatAmount(v float64) string {
	d := decimal.NewFromFloat(v)
	if d.Exponent() < -wireDecimals {
		d = d.Round(wireDecimals)
	}
	return d.String()
}

// rewriteQuoteUSD rewrites a USDT-quoted alert pair to the exchange's
// USD-quoted convention (e.g. "BTCUSDT" -> "BTCUSD").
func rewriteQuoteUSD(symbol string) string {
	if base, ok := strings.CutSuffix(symbol, "USDT"); ok && base != "" {
		return base + "USD"
	}
	return symbol
}

// rewriteQuoteDashUSD rewrites a USDT-quoted alert pair to a dash-separated
// USD product id (e.g. "BTCUSDT" -> "BTC-USD").
func rewriteQuoteDashUSD(symbol string) string {
	if base, ok := strings.CutSuffix(symbol, "USDT"); ok && base != "" {
		return base + "-USD"
	}
	return symbol
}

// parseAmount reads an exchange-reported decimal string, tolerating empty
// and malformed values by returning zero.
func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
