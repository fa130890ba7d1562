package ports

import (
	"context"
	"net/url"
	"time"

	"alertTraderBot/internal/domain"
)

// OrderPayload is the exchange-native representation of an order produced by
// a payload builder. Query-string exchanges populate Query; JSON/form-body
// exchanges populate Body. Builders perform no I/O.
type OrderPayload struct {
	Query         url.Values // Signed query-string parameters (nil for body exchanges)
	Body          []byte     // Request body (nil for query-string exchanges)
	ContentType   string     // Content-Type for the body, empty when no body is sent
	ClientOrderID string     // Exchange-specific client order id embedded in the payload
}

// SignRequest describes the request a signing adapter must authenticate.
// Path is the URL path relative to the host (signed literally by exchanges
// whose scheme covers it).
type SignRequest struct {
	Method  string
	BaseURL string
	Path    string
	Payload *OrderPayload
}

// SignedRequest is the concrete HTTP request to send: the final URL
// (including any signed query string) plus authentication headers and body.
// Secrets never leave the signing layer except inside these fields.
type SignedRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// ExchangeAdapter bundles the three per-exchange concerns behind one seam:
// payload building, request signing, and response normalization. Every
// method is deterministic and side-effect-free; Sign takes the current time
// explicitly so signatures are reproducible in tests.
type ExchangeAdapter interface {
	// Name returns the canonical (lowercase) exchange name.
	Name() string

	// BuildOrder translates a canonical order intent into the exchange's
	// native payload. Market orders omit price and time-in-force.
	BuildOrder(req *domain.OrderRequest, creds *domain.ResolvedCredentials) (*OrderPayload, error)

	// BuildCancel produces the payload that cancels an open order.
	BuildCancel(symbol, orderID string, creds *domain.ResolvedCredentials) (*OrderPayload, error)

	// Sign authenticates the request, returning the headers and/or modified
	// URL and body to send.
	Sign(creds *domain.ResolvedCredentials, req *SignRequest, now time.Time) (*SignedRequest, error)

	// NormalizeOrderResponse maps the exchange's response body to the
	// canonical order result. It never fails: unknown shapes degrade to a
	// rejected result with the raw body preserved.
	NormalizeOrderResponse(body []byte, req *domain.OrderRequest) *domain.OrderResult
}

// HTTPResponse is the transport-level outcome of one exchange call.
type HTTPResponse struct {
	StatusCode int
	Body       []byte
}

// RequestExecutor is the single seam through which network calls occur.
// Implementations apply the per-call timeout and map transport failures to
// ErrTimeout / ErrConnectionFailed.
type RequestExecutor interface {
	Do(ctx context.Context, req *SignedRequest) (*HTTPResponse, error)
}
