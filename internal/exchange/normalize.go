package exchange

import "alertTraderBot/internal/domain"

// newRejectedResult seeds a canonical result with the request fields and the
// verbatim body. Normalizers upgrade the status as they parse; anything they
// cannot interpret stays rejected instead of crashing the pipeline.
func newRejectedResult(body []byte, req *domain.OrderRequest) *domain.OrderResult {
	return &domain.OrderResult{
		Symbol:         req.Symbol,
		Side:           req.Side,
		RequestedQty:   req.Quantity,
		RequestedPrice: req.Price,
		Status:         domain.OrderRejected,
		Raw:            string(body),
	}
}

// applyPriceDefault falls back to the requested price when the exchange
// reported no executed price and nothing was filled.
func applyPriceDefault(res *domain.OrderResult, req *domain.OrderRequest) {
	if res.ExecutedPrice == 0 && res.ExecutedQty == 0 {
		res.ExecutedPrice = req.Price
	}
}
