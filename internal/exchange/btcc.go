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

const btccRecvWindow = "5000"

// BTCC implements the header HMAC-V2 family: the signature covers
// timestamp + receive window + JSON body and is placed in dedicated headers
// alongside the raw key.
type BTCC struct{}

// Name returns the canonical exchange name.
func (b *BTCC) Name() string { return "btcc" }

type btccOrderPayload struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Quantity      string `json:"quantity"`
	Price         string `json:"price,omitempty"`
	TimeInForce   string `json:"timeInForce,omitempty"`
	ClientOrderID string `json:"clientOrderId"`
}

// BuildOrder translates the canonical intent into a BTCC order body.
func (b *BTCC) BuildOrder(req *domain.OrderRequest, creds *domain.ResolvedCredentials) (*ports.OrderPayload, error) {
	if req.Kind == domain.KindLimit && req.Price <= 0 {
		return nil, fmt.Errorf("%w: limit order requires a positive price", ports.ErrInvalidRequest)
	}
	cid := uuid.NewString()
	p := btccOrderPayload{
		Symbol:        req.Symbol,
		Side:          string(req.Side),
		Type:          string(req.Kind),
		Quantity:      formatAmount(req.Quantity),
		ClientOrderID: cid,
	}
	if req.Kind == domain.KindLimit {
		p.Price = formatAmount(req.Price)
		p.TimeInForce = "GTC"
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode btcc order payload: %w", err)
	}
	return &ports.OrderPayload{Body: body, ContentType: "application/json", ClientOrderID: cid}, nil
}

// BuildCancel produces the body for the cancelOrder endpoint.
func (b *BTCC) BuildCancel(symbol, orderID string, creds *domain.ResolvedCredentials) (*ports.OrderPayload, error) {
	body, err := json.Marshal(map[string]string{
		"symbol":  symbol,
		"orderId": orderID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode btcc cancel payload: %w", err)
	}
	return &ports.OrderPayload{Body: body, ContentType: "application/json"}, nil
}

// Sign computes HMAC-SHA256(timestamp + recvWindow + body) and carries it in
// the X-BTCC headers next to the raw key.
func (b *BTCC) Sign(creds *domain.ResolvedCredentials, req *ports.SignRequest, now time.Time) (*ports.SignedRequest, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, fmt.Errorf("%w: btcc requires API key and secret", ports.ErrSigningFailed)
	}
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	var body []byte
	if req.Payload != nil {
		body = req.Payload.Body
	}

	mac := hmac.New(sha256.New, []byte(creds.APISecret))
	mac.Write([]byte(ts + btccRecvWindow + string(body)))
	signature := hex.EncodeToString(mac.Sum(nil))

	headers := map[string]string{
		"X-BTCC-APIKEY":      creds.APIKey,
		"X-BTCC-TIMESTAMP":   ts,
		"X-BTCC-RECV-WINDOW": btccRecvWindow,
		"X-BTCC-SIGN":        signature,
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

type btccOrderResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		OrderID     json.Number `json:"orderId"`
		Status      string      `json:"status"`
		ExecutedQty string      `json:"executedQty"`
		AvgPrice    string      `json:"avgPrice"`
	} `json:"data"`
}

// NormalizeOrderResponse maps the BTCC envelope to the canonical result.
func (b *BTCC) NormalizeOrderResponse(body []byte, req *domain.OrderRequest) *domain.OrderResult {
	res := newRejectedResult(body, req)

	var r btccOrderResponse
	if err := json.Unmarshal(body, &r); err != nil {
		res.Error = "unparseable response body"
		return res
	}
	if r.Code != 0 {
		res.Error = r.Msg
		return res
	}

	res.OrderID = r.Data.OrderID.String()
	switch r.Data.Status {
	case "FILLED":
		res.Status = domain.OrderFilled
	case "NEW", "PARTIALLY_FILLED":
		res.Status = domain.OrderPartial
	case "CANCELED":
		res.Status = domain.OrderCancelled
	case "REJECTED":
		res.Status = domain.OrderRejected
	case "":
		// Some deployments acknowledge without a status field.
		res.Status = domain.OrderFilled
	default:
		res.Status = domain.OrderRejected
		res.Error = "unknown order status: " + r.Data.Status
		return res
	}

	res.ExecutedQty = parseAmount(r.Data.ExecutedQty)
	res.ExecutedPrice = parseAmount(r.Data.AvgPrice)
	applyPriceDefault(res, req)
	if res.Status == domain.OrderFilled && res.ExecutedQty == 0 {
		res.ExecutedQty = req.Quantity
	}
	return res
}
