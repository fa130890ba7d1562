package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/ports"
)

const bybitRecvWindow = "5000"

// Bybit implements the V5 timestamp HMAC family: the signature covers
// timestamp + api key + receive window + JSON body and travels in dedicated
// X-BAPI headers. One unified API serves spot and linear futures; the
// category field is selected from the credential's market type.
type Bybit struct{}

// Name returns the canonical exchange name.
func (b *Bybit) Name() string { return "bybit" }

type bybitOrderPayload struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Qty         string `json:"qty"`
	Price       string `json:"price,omitempty"`
	TimeInForce string `json:"timeInForce,omitempty"`
	OrderLinkID string `json:"orderLinkId,omitempty"`
}

func bybitCategory(mt domain.MarketType) string {
	if mt == domain.MarketFutures {
		return "linear"
	}
	return "spot"
}

func bybitSide(side domain.OrderSide) string {
	if side == domain.Buy {
		return "Buy"
	}
	return "Sell"
}

// BuildOrder translates the canonical intent into a V5 create-order body.
func (b *Bybit) BuildOrder(req *domain.OrderRequest, creds *domain.ResolvedCredentials) (*ports.OrderPayload, error) {
	if req.Kind == domain.KindLimit && req.Price <= 0 {
		return nil, fmt.Errorf("%w: limit order requires a positive price", ports.ErrInvalidRequest)
	}
	cid := uuid.NewString()
	p := bybitOrderPayload{
		Category:    bybitCategory(creds.MarketType),
		Symbol:      req.Symbol,
		Side:        bybitSide(req.Side),
		OrderType:   "Market",
		Qty:         formatAmount(req.Quantity),
		OrderLinkID: cid,
	}
	if req.Kind == domain.KindLimit {
		p.OrderType = "Limit"
		p.Price = formatAmount(req.Price)
		p.TimeInForce = "GTC"
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bybit order payload: %w", err)
	}
	return &ports.OrderPayload{Body: body, ContentType: "application/json", ClientOrderID: cid}, nil
}

// BuildCancel produces the V5 cancel-order body.
func (b *Bybit) BuildCancel(symbol, orderID string, creds *domain.ResolvedCredentials) (*ports.OrderPayload, error) {
	body, err := json.Marshal(map[string]string{
		"category": bybitCategory(creds.MarketType),
		"symbol":   symbol,
		"orderId":  orderID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode bybit cancel payload: %w", err)
	}
	return &ports.OrderPayload{Body: body, ContentType: "application/json"}, nil
}

// Sign computes HMAC-SHA256(timestamp + apiKey + recvWindow + body) and
// places it in the X-BAPI headers alongside the raw key.
func (b *Bybit) Sign(creds *domain.ResolvedCredentials, req *ports.SignRequest, now time.Time) (*ports.SignedRequest, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, fmt.Errorf("%w: bybit requires API key and secret", ports.ErrSigningFailed)
	}
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	var body []byte
	if req.Payload != nil {
		body = req.Payload.Body
	}

	mac := hmac.New(sha256.New, []byte(creds.APISecret))
	mac.Write([]byte(ts + creds.APIKey + bybitRecvWindow + string(body)))
	signature := hex.EncodeToString(mac.Sum(nil))

	headers := map[string]string{
		"X-BAPI-API-KEY":     creds.APIKey,
		"X-BAPI-TIMESTAMP":   ts,
		"X-BAPI-RECV-WINDOW": bybitRecvWindow,
		"X-BAPI-SIGN":        signature,
	}
	if len(body) > 0 {
		headers["Content-Type"] = "application/json"
	}
	return &ports.SignedRequest{
		Method:  req.Method,
		URL:     req.BaseURL + req.Path,
		Headers: headers,
		Body:    body,
	}, nil
}

type bybitOrderResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	} `json:"result"`
}

// NormalizeOrderResponse maps a V5 response to the canonical result. The
// create endpoint acknowledges without fill details: an accepted market
// order is reported as filled at the requested quantity and price, while an
// accepted limit order is resting on the book and stays partial with no
// executed quantity.
func (b *Bybit) NormalizeOrderResponse(body []byte, req *domain.OrderRequest) *domain.OrderResult {
	res := newRejectedResult(body, req)

	var r bybitOrderResponse
	if err := json.Unmarshal(body, &r); err != nil {
		res.Error = "unparseable response body"
		return res
	}
	if r.RetCode != 0 {
		res.Error = r.RetMsg
		return res
	}
	res.OrderID = r.Result.OrderID
	res.ExecutedPrice = req.Price
	if req.Kind == domain.KindLimit {
		res.Status = domain.OrderPartial
		return res
	}
	res.Status = domain.OrderFilled
	res.ExecutedQty = req.Quantity
	return res
}
