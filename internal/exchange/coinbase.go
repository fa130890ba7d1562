package exchange

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/ports"
)

// Coinbase implements the generic header-auth family: the raw key, secret
// and optional passphrase are passed as headers, with no request signing in
// this design. Products are dash-separated and USD-quoted, so the alert
// source's USDT quote is rewritten.
type Coinbase struct{}

// Name returns the canonical exchange name.
func (c *Coinbase) Name() string { return "coinbase" }

type coinbaseOrderPayload struct {
	ProductID     string `json:"product_id"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Size          string `json:"size"`
	Price         string `json:"price,omitempty"`
	TimeInForce   string `json:"time_in_force,omitempty"`
	ClientOrderID string `json:"client_order_id"`
}

// BuildOrder translates the canonical intent into a brokerage order body.
func (c *Coinbase) BuildOrder(req *domain.OrderRequest, creds *domain.ResolvedCredentials) (*ports.OrderPayload, error) {
	if req.Kind == domain.KindLimit && req.Price <= 0 {
		return nil, fmt.Errorf("%w: limit order requires a positive price", ports.ErrInvalidRequest)
	}
	cid := uuid.NewString()
	p := coinbaseOrderPayload{
		ProductID:     rewriteQuoteDashUSD(req.Symbol),
		Side:          string(req.Side),
		Type:          string(req.Kind),
		Size:          formatAmount(req.Quantity),
		ClientOrderID: cid,
	}
	if req.Kind == domain.KindLimit {
		p.Price = formatAmount(req.Price)
		p.TimeInForce = "GTC"
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode coinbase order payload: %w", err)
	}
	return &ports.OrderPayload{Body: body, ContentType: "application/json", ClientOrderID: cid}, nil
}

// BuildCancel produces the batch-cancel body for one order id.
func (c *Coinbase) BuildCancel(symbol, orderID string, creds *domain.ResolvedCredentials) (*ports.OrderPayload, error) {
	body, err := json.Marshal(map[string][]string{"order_ids": {orderID}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode coinbase cancel payload: %w", err)
	}
	return &ports.OrderPayload{Body: body, ContentType: "application/json"}, nil
}

// Sign passes the credentials as raw headers; the request is otherwise
// unchanged.
func (c *Coinbase) Sign(creds *domain.ResolvedCredentials, req *ports.SignRequest, now time.Time) (*ports.SignedRequest, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, fmt.Errorf("%w: coinbase requires API key and secret", ports.ErrSigningFailed)
	}
	var body []byte
	if req.Payload != nil {
		body = req.Payload.Body
	}
	headers := map[string]string{
		"X-API-KEY":    creds.APIKey,
		"X-API-SECRET": creds.APISecret,
	}
	if creds.Passphrase != "" {
		headers["X-API-PASSPHRASE"] = creds.Passphrase
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

type coinbaseOrderResponse struct {
	OrderID            string `json:"order_id"`
	Status             string `json:"status"`
	FilledSize         string `json:"filled_size"`
	AverageFilledPrice string `json:"average_filled_price"`
	Success            *bool  `json:"success"`
	ErrorMessage       string `json:"error_message"`
}

// NormalizeOrderResponse maps the brokerage response to the canonical
// result.
func (c *Coinbase) NormalizeOrderResponse(body []byte, req *domain.OrderRequest) *domain.OrderResult {
	res := newRejectedResult(body, req)

	var r coinbaseOrderResponse
	if err := json.Unmarshal(body, &r); err != nil {
		res.Error = "unparseable response body"
		return res
	}
	if r.Success != nil && !*r.Success {
		res.Error = r.ErrorMessage
		return res
	}
	if r.OrderID == "" {
		res.Error = "response carries no order id"
		return res
	}

	res.OrderID = r.OrderID
	switch r.Status {
	case "FILLED", "DONE":
		res.Status = domain.OrderFilled
	case "OPEN", "PENDING", "PARTIALLY_FILLED":
		res.Status = domain.OrderPartial
	case "CANCELLED", "EXPIRED":
		res.Status = domain.OrderCancelled
	case "":
		res.Status = domain.OrderFilled
	default:
		res.Status = domain.OrderRejected
		res.Error = "unknown order status: " + r.Status
		return res
	}

	res.ExecutedQty = parseAmount(r.FilledSize)
	res.ExecutedPrice = parseAmount(r.AverageFilledPrice)
	applyPriceDefault(res, req)
	if res.Status == domain.OrderFilled && res.ExecutedQty == 0 {
		res.ExecutedQty = req.Quantity
	}
	return res
}
