package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/ports"
)

func binanceCreds() *domain.ResolvedCredentials {
	return &domain.ResolvedCredentials{
		Exchange:  "binance",
		APIKey:    "test-key",
		APISecret: "test-secret",
	}
}

func TestBinanceBuildOrder(t *testing.T) {
	b := &Binance{}

	t.Run("Market order omits price and time in force", func(t *testing.T) {
		p, err := b.BuildOrder(&domain.OrderRequest{
			Symbol:   "BTCUSDT",
			Side:     domain.Buy,
			Kind:     domain.KindMarket,
			Quantity: 0.5,
		}, binanceCreds())
		require.NoError(t, err)
		assert.Equal(t, "BTCUSDT", p.Query.Get("symbol"))
		assert.Equal(t, "BUY", p.Query.Get("side"))
		assert.Equal(t, "MARKET", p.Query.Get("type"))
		assert.Equal(t, "0.5", p.Query.Get("quantity"))
		assert.Empty(t, p.Query.Get("price"))
		assert.Empty(t, p.Query.Get("timeInForce"))
		assert.NotEmpty(t, p.ClientOrderID)
		assert.Equal(t, p.ClientOrderID, p.Query.Get("newClientOrderId"))
	})

	t.Run("Limit order carries price and GTC", func(t *testing.T) {
		p, err := b.BuildOrder(&domain.OrderRequest{
			Symbol:   "BTCUSDT",
			Side:     domain.Sell,
			Kind:     domain.KindLimit,
			Quantity: 1,
			Price:    42000,
		}, binanceCreds())
		require.NoError(t, err)
		assert.Equal(t, "LIMIT", p.Query.Get("type"))
		assert.Equal(t, "42000", p.Query.Get("price"))
		assert.Equal(t, "GTC", p.Query.Get("timeInForce"))
	})

	t.Run("Limit order without price is rejected", func(t *testing.T) {
		_, err := b.BuildOrder(&domain.OrderRequest{
			Symbol: "BTCUSDT", Side: domain.Buy, Kind: domain.KindLimit, Quantity: 1,
		}, binanceCreds())
		assert.ErrorIs(t, err, ports.ErrInvalidRequest)
	})
}

func TestBinanceSign(t *testing.T) {
	b := &Binance{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	payload, err := b.BuildOrder(&domain.OrderRequest{
		Symbol: "BTCUSDT", Side: domain.Buy, Kind: domain.KindMarket, Quantity: 0.5,
	}, binanceCreds())
	require.NoError(t, err)

	signed, err := b.Sign(binanceCreds(), &ports.SignRequest{
		Method:  "POST",
		BaseURL: "https://api.binance.com",
		Path:    "/api/v3/order",
		Payload: payload,
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "test-key", signed.Headers["X-MBX-APIKEY"])
	assert.Empty(t, signed.Body, "all parameters travel in the query string")

	u, err := url.Parse(signed.URL)
	require.NoError(t, err)
	assert.Equal(t, "api.binance.com", u.Host)
	assert.Equal(t, "/api/v3/order", u.Path)

	// The signature must cover exactly the query string preceding it.
	encoded, sig, found := strings.Cut(u.RawQuery, "&signature=")
	require.True(t, found)
	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(encoded))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), sig)

	q, err := url.ParseQuery(encoded)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(now.UnixMilli(), 10), q.Get("timestamp"))
	assert.Equal(t, "5000", q.Get("recvWindow"))

	t.Run("Deterministic for a fixed clock", func(t *testing.T) {
		again, err := b.Sign(binanceCreds(), &ports.SignRequest{
			Method:  "POST",
			BaseURL: "https://api.binance.com",
			Path:    "/api/v3/order",
			Payload: payload,
		}, now)
		require.NoError(t, err)
		assert.Equal(t, signed.URL, again.URL)
	})

	t.Run("Missing credentials", func(t *testing.T) {
		_, err := b.Sign(&domain.ResolvedCredentials{}, &ports.SignRequest{}, now)
		assert.ErrorIs(t, err, ports.ErrSigningFailed)
	})
}

func TestBinanceNormalizeOrderResponse(t *testing.T) {
	b := &Binance{}
	req := &domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.Buy, Kind: domain.KindMarket, Quantity: 0.5, Price: 50000}

	t.Run("Filled futures response with avgPrice", func(t *testing.T) {
		body := `{"orderId":123456,"symbol":"BTCUSDT","status":"FILLED","avgPrice":"50100.5","executedQty":"0.5"}`
		res := b.NormalizeOrderResponse([]byte(body), req)
		assert.Equal(t, domain.OrderFilled, res.Status)
		assert.Equal(t, "123456", res.OrderID)
		assert.Equal(t, 0.5, res.ExecutedQty)
		assert.Equal(t, 50100.5, res.ExecutedPrice)
		assert.Equal(t, body, res.Raw)
	})

	t.Run("Filled spot response averages fills", func(t *testing.T) {
		body := `{"orderId":1,"status":"FILLED","executedQty":"0.4","fills":[{"price":"50000","qty":"0.2"},{"price":"50200","qty":"0.2"}]}`
		res := b.NormalizeOrderResponse([]byte(body), req)
		assert.Equal(t, domain.OrderFilled, res.Status)
		assert.InDelta(t, 50100.0, res.ExecutedPrice, 1e-9)
	})

	t.Run("Resting limit order is partial", func(t *testing.T) {
		res := b.NormalizeOrderResponse([]byte(`{"orderId":2,"status":"NEW","executedQty":"0"}`), req)
		assert.Equal(t, domain.OrderPartial, res.Status)
	})

	t.Run("Cancelled and expired map to cancelled", func(t *testing.T) {
		for _, st := range []string{"CANCELED", "EXPIRED"} {
			res := b.NormalizeOrderResponse([]byte(`{"orderId":3,"status":"`+st+`"}`), req)
			assert.Equal(t, domain.OrderCancelled, res.Status, st)
		}
	})

	t.Run("Error envelope", func(t *testing.T) {
		res := b.NormalizeOrderResponse([]byte(`{"code":-2010,"msg":"Account has insufficient balance"}`), req)
		assert.Equal(t, domain.OrderRejected, res.Status)
		assert.Equal(t, "Account has insufficient balance", res.Error)
	})

	t.Run("Unknown status degrades to rejected", func(t *testing.T) {
		res := b.NormalizeOrderResponse([]byte(`{"orderId":4,"status":"WEIRD"}`), req)
		assert.Equal(t, domain.OrderRejected, res.Status)
		assert.Contains(t, res.Error, "WEIRD")
	})

	t.Run("Malformed body never panics", func(t *testing.T) {
		res := b.NormalizeOrderResponse([]byte(`<html>gateway error</html>`), req)
		assert.Equal(t, domain.OrderRejected, res.Status)
		assert.Equal(t, "<html>gateway error</html>", res.Raw)
	})

	t.Run("No fill falls back to requested price", func(t *testing.T) {
		res := b.NormalizeOrderResponse([]byte(`{"orderId":5,"status":"NEW","executedQty":"0"}`), req)
		assert.Equal(t, 50000.0, res.ExecutedPrice)
	})
}
