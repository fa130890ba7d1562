package exchange

import (
	"fmt"
	"net/http"

	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/ports"
)

// Endpoint identifies one concrete exchange REST call: method, host and path.
// The host depends on {exchange, spot|futures, live|test}.
type Endpoint struct {
	Method  string
	BaseURL string
	Path    string
}

// URL returns the absolute URL without query parameters.
func (e Endpoint) URL() string {
	return e.BaseURL + e.Path
}

func binanceBase(mt domain.MarketType, testMode bool) string {
	if mt == domain.MarketFutures {
		if testMode {
			return "https://testnet.binancefuture.com"
		}
		return "https://fapi.binance.com"
	}
	if testMode {
		return "https://testnet.binance.vision"
	}
	return "https://api.binance.com"
}

func bybitBase(testMode bool) string {
	if testMode {
		return "https://api-testnet.bybit.com"
	}
	return "https://api.bybit.com"
}

func btccBase(testMode bool) string {
	if testMode {
		return "https://testnet.btcc.com"
	}
	return "https://api.btcc.com"
}

func coinbaseBase(testMode bool) string {
	if testMode {
		return "https://api-sandbox.coinbase.com"
	}
	return "https://api.coinbase.com"
}

// krakenBase is the same for live and test: Kraken exposes no spot testnet,
// so test mode falls back to the live host.
const krakenBase = "https://api.kraken.com"

// OrderEndpoint resolves the order-placement endpoint for an exchange.
func OrderEndpoint(name string, mt domain.MarketType, testMode bool) (Endpoint, error) {
	switch CanonicalName(name) {
	case "binance":
		path := "/api/v3/order"
		if mt == domain.MarketFutures {
			path = "/fapi/v1/order"
		}
		return Endpoint{Method: http.MethodPost, BaseURL: binanceBase(mt, testMode), Path: path}, nil
	case "bybit":
		return Endpoint{Method: http.MethodPost, BaseURL: bybitBase(testMode), Path: "/v5/order/create"}, nil
	case "btcc":
		return Endpoint{Method: http.MethodPost, BaseURL: btccBase(testMode), Path: "/v1/trade/order"}, nil
	case "kraken":
		return Endpoint{Method: http.MethodPost, BaseURL: krakenBase, Path: "/0/private/AddOrder"}, nil
	case "coinbase":
		return Endpoint{Method: http.MethodPost, BaseURL: coinbaseBase(testMode), Path: "/api/v3/brokerage/orders"}, nil
	}
	return Endpoint{}, fmt.Errorf("%w: %s", ports.ErrUnsupportedExchange, name)
}

// CancelEndpoint resolves the order-cancel endpoint. Exchanges without a
// dedicated cancel path follow the order -> cancelOrder path substitution
// convention; Binance cancels with a DELETE on the order path.
func CancelEndpoint(name string, mt domain.MarketType, testMode bool) (Endpoint, error) {
	ep, err := OrderEndpoint(name, mt, testMode)
	if err != nil {
		return Endpoint{}, err
	}
	switch CanonicalName(name) {
	case "binance":
		ep.Method = http.MethodDelete
	case "bybit":
		ep.Path = "/v5/order/cancel"
	case "btcc":
		ep.Path = "/v1/trade/cancelOrder"
	case "kraken":
		ep.Path = "/0/private/CancelOrder"
	case "coinbase":
		ep.Path = "/api/v3/brokerage/orders/batch_cancel"
	}
	return ep, nil
}

// PingEndpoint resolves the authenticated endpoint used by the one-shot
// credential validation check.
func PingEndpoint(name string, mt domain.MarketType, testMode bool) (Endpoint, error) {
	switch CanonicalName(name) {
	case "binance":
		path := "/api/v3/account"
		if mt == domain.MarketFutures {
			path = "/fapi/v2/balance"
		}
		return Endpoint{Method: http.MethodGet, BaseURL: binanceBase(mt, testMode), Path: path}, nil
	case "bybit":
		return Endpoint{Method: http.MethodGet, BaseURL: bybitBase(testMode), Path: "/v5/account/wallet-balance"}, nil
	case "btcc":
		return Endpoint{Method: http.MethodGet, BaseURL: btccBase(testMode), Path: "/v1/account/balance"}, nil
	case "kraken":
		return Endpoint{Method: http.MethodPost, BaseURL: krakenBase, Path: "/0/private/Balance"}, nil
	case "coinbase":
		return Endpoint{Method: http.MethodGet, BaseURL: coinbaseBase(testMode), Path: "/api/v3/brokerage/accounts"}, nil
	}
	return Endpoint{}, fmt.Errorf("%w: %s", ports.ErrUnsupportedExchange, name)
}
