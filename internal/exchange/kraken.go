package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/ports"
)

// Kraken implements the nonce+path HMAC family: a nonce is embedded in the
// form body, the signed message is path + SHA256(nonce + body), the key is
// the base64-decoded secret and the signature is base64-encoded HMAC-SHA512.
// Kraken pairs are USD-quoted, so the alert source's USDT quote is rewritten.
type Kraken struct{}

// Name returns the canonical exchange name.
func (k *Kraken) Name() string { return "kraken" }

func krakenSide(side domain.OrderSide) string {
	if side == domain.Buy {
		return "buy"
	}
	return "sell"
}

// BuildOrder translates the canonical intent into AddOrder form parameters.
// The nonce is added at signing time, not here.
func (k *Kraken) BuildOrder(req *domain.OrderRequest, creds *domain.ResolvedCredentials) (*ports.OrderPayload, error) {
	if req.Kind == domain.KindLimit && req.Price <= 0 {
		return nil, fmt.Errorf("%w: limit order requires a positive price", ports.ErrInvalidRequest)
	}
	cid := uuid.NewString()

	v := url.Values{}
	v.Set("pair", rewriteQuoteUSD(req.Symbol))
	v.Set("type", krakenSide(req.Side))
	v.Set("volume", formatAmount(req.Quantity))
	v.Set("cl_ord_id", cid)
	switch req.Kind {
	case domain.KindMarket:
		v.Set("ordertype", "market")
	case domain.KindLimit:
		v.Set("ordertype", "limit")
		v.Set("price", formatAmount(req.Price))
	}
	return &ports.OrderPayload{
		Body:          []byte(v.Encode()),
		ContentType:   "application/x-www-form-urlencoded",
		ClientOrderID: cid,
	}, nil
}

// BuildCancel produces the CancelOrder form parameters.
func (k *Kraken) BuildCancel(symbol, orderID string, creds *domain.ResolvedCredentials) (*ports.OrderPayload, error) {
	v := url.Values{}
	v.Set("txid", orderID)
	return &ports.OrderPayload{
		Body:        []byte(v.Encode()),
		ContentType: "application/x-www-form-urlencoded",
	}, nil
}

// Sign embeds the nonce in the body and signs path + SHA256(nonce + body)
// with HMAC-SHA512 under the base64-decoded secret.
func (k *Kraken) Sign(creds *domain.ResolvedCredentials, req *ports.SignRequest, now time.Time) (*ports.SignedRequest, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, fmt.Errorf("%w: kraken requires API key and secret", ports.ErrSigningFailed)
	}
	secret, err := base64.StdEncoding.DecodeString(creds.APISecret)
	if err != nil {
		return nil, fmt.Errorf("%w: kraken secret is not valid base64: %v", ports.ErrSigningFailed, err)
	}

	var v url.Values
	if req.Payload != nil && len(req.Payload.Body) > 0 {
		v, err = url.ParseQuery(string(req.Payload.Body))
		if err != nil {
			return nil, fmt.Errorf("%w: malformed kraken payload: %v", ports.ErrSigningFailed, err)
		}
	} else {
		v = url.Values{}
	}
	nonce := strconv.FormatInt(now.UnixNano(), 10)
	v.Set("nonce", nonce)
	body := v.Encode()

	digest := sha256.Sum256([]byte(nonce + body))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(req.Path))
	mac.Write(digest[:])
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return &ports.SignedRequest{
		Method: req.Method,
		URL:    req.BaseURL + req.Path,
		Headers: map[string]string{
			"API-Key":      creds.APIKey,
			"API-Sign":     signature,
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: []byte(body),
	}, nil
}

type krakenOrderResponse struct {
	Error  []string `json:"error"`
	Result struct {
		TxID  []string `json:"txid"`
		Descr struct {
			Order string `json:"order"`
		} `json:"descr"`
	} `json:"result"`
}

// NormalizeOrderResponse maps the Kraken envelope to the canonical result.
// AddOrder acknowledges with transaction ids only: an accepted market order
// is reported as filled at the requested quantity and price, while an
// accepted limit order is resting on the book and stays partial with no
// executed quantity.
func (k *Kraken) NormalizeOrderResponse(body []byte, req *domain.OrderRequest) *domain.OrderResult {
	res := newRejectedResult(body, req)

	var r krakenOrderResponse
	if err := json.Unmarshal(body, &r); err != nil {
		res.Error = "unparseable response body"
		return res
	}
	if len(r.Error) > 0 {
		res.Error = strings.Join(r.Error, ", ")
		return res
	}
	if len(r.Result.TxID) == 0 {
		res.Error = "response carries no transaction id"
		return res
	}
	res.OrderID = r.Result.TxID[0]
	res.ExecutedPrice = req.Price
	if req.Kind == domain.KindLimit {
		res.Status = domain.OrderPartial
		return res
	}
	res.Status = domain.OrderFilled
	res.ExecutedQty = req.Quantity
	return res
}
