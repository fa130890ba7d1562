package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/ports"
)

// binanceRecvWindow bounds how long a signed request stays valid (ms).
const binanceRecvWindow = "5000"

// Binance implements the query-string HMAC family: all parameters travel in
// the query string, the signature is appended to it and the API key rides in
// a header.
type Binance struct{}

// Name returns the canonical exchange name.
func (b *Binance) Name() string { return "binance" }

// BuildOrder translates the canonical intent into Binance order parameters.
func (b *Binance) BuildOrder(req *domain.OrderRequest, creds *domain.ResolvedCredentials) (*ports.OrderPayload, error) {
	if req.Kind == domain.KindLimit && req.Price <= 0 {
		return nil, fmt.Errorf("%w: limit order requires a positive price", ports.ErrInvalidRequest)
	}
	cid := "atb-" + uuid.NewString()[:30] // newClientOrderId caps at 36 chars

	v := url.Values{}
	v.Set("symbol", req.Symbol)
	v.Set("side", string(req.Side))
	v.Set("newClientOrderId", cid)
	v.Set("quantity", formatAmount(req.Quantity))
	switch req.Kind {
	case domain.KindMarket:
		v.Set("type", "MARKET")
	case domain.KindLimit:
		v.Set("type", "LIMIT")
		v.Set("price", formatAmount(req.Price))
		v.Set("timeInForce", "GTC")
	}
	return &ports.OrderPayload{Query: v, ClientOrderID: cid}, nil
}

// BuildCancel produces the parameters cancelling an open order.
func (b *Binance) BuildCancel(symbol, orderID string, creds *domain.ResolvedCredentials) (*ports.OrderPayload, error) {
	v := url.Values{}
	v.Set("symbol", symbol)
	v.Set("orderId", orderID)
	return &ports.OrderPayload{Query: v}, nil
}

// Sign appends timestamp, receive window and the HMAC-SHA256 signature to
// the query string and carries the key in X-MBX-APIKEY.
func (b *Binance) Sign(creds *domain.ResolvedCredentials, req *ports.SignRequest, now time.Time) (*ports.SignedRequest, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, fmt.Errorf("%w: binance requires API key and secret", ports.ErrSigningFailed)
	}
	q := url.Values{}
	if req.Payload != nil {
		for k, vals := range req.Payload.Query {
			q[k] = vals
		}
	}
	q.Set("timestamp", strconv.FormatInt(now.UnixMilli(), 10))
	q.Set("recvWindow", binanceRecvWindow)

	encoded := q.Encode()
	mac := hmac.New(sha256.New, []byte(creds.APISecret))
	mac.Write([]byte(encoded))
	signature := hex.EncodeToString(mac.Sum(nil))

	return &ports.SignedRequest{
		Method: req.Method,
		URL:    req.BaseURL + req.Path + "?" + encoded + "&signature=" + signature,
		Headers: map[string]string{
			"X-MBX-APIKEY": creds.APIKey,
		},
	}, nil
}

// binanceOrderResponse is the subset of the order response this engine
// reads. Unknown fields are ignored on purpose.
type binanceOrderResponse struct {
	OrderID     json.Number `json:"orderId"`
	Symbol      string      `json:"symbol"`
	Status      string      `json:"status"`
	Price       string      `json:"price"`
	AvgPrice    string      `json:"avgPrice"`
	ExecutedQty string      `json:"executedQty"`
	CumQuote    string      `json:"cummulativeQuoteQty"`
	Fills       []struct {
		Price string `json:"price"`
		Qty   string `json:"qty"`
	} `json:"fills"`
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// NormalizeOrderResponse maps the Binance status vocabulary to the canonical
// set. Malformed bodies degrade to rejected with the raw body preserved.
func (b *Binance) NormalizeOrderResponse(body []byte, req *domain.OrderRequest) *domain.OrderResult {
	res := newRejectedResult(body, req)

	var r binanceOrderResponse
	if err := json.Unmarshal(body, &r); err != nil {
		res.Error = "unparseable response body"
		return res
	}
	if r.Code != 0 {
		res.Error = r.Msg
		return res
	}

	res.OrderID = r.OrderID.String()
	switch r.Status {
	case "FILLED":
		res.Status = domain.OrderFilled
	case "NEW", "PARTIALLY_FILLED":
		res.Status = domain.OrderPartial
	case "CANCELED", "EXPIRED":
		res.Status = domain.OrderCancelled
	case "REJECTED":
		res.Status = domain.OrderRejected
	default:
		res.Status = domain.OrderRejected
		res.Error = "unknown order status: " + r.Status
		return res
	}

	res.ExecutedQty = parseAmount(r.ExecutedQty)
	res.ExecutedPrice = parseAmount(r.AvgPrice)
	if res.ExecutedPrice == 0 && len(r.Fills) > 0 {
		// Spot responses report fills rather than an average price.
		var notional, qty float64
		for _, f := range r.Fills {
			p, q := parseAmount(f.Price), parseAmount(f.Qty)
			notional += p * q
			qty += q
		}
		if qty > 0 {
			res.ExecutedPrice = notional / qty
		}
	}
	if res.ExecutedPrice == 0 {
		res.ExecutedPrice = parseAmount(r.Price)
	}
	applyPriceDefault(res, req)
	return res
}
