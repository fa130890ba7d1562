package app

import (
	"context"
	"fmt"

	"alertTraderBot/internal/classify"
	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/exchange"
	"alertTraderBot/internal/multientry"
	"alertTraderBot/internal/ports"
)

// CloseResult aggregates the outcome of a multientry close workflow. The
// close is not an all-or-nothing transaction: per-leg failures are collected
// here while the remaining legs keep processing.
type CloseResult struct {
	CorrelationID string
	Reason        domain.CloseReason
	Closed        int // Filled legs closed via market order
	Cancelled     int // Pending legs cancelled
	Errors        []string
}

// executeMultientry fans one multientry alert out into its levels, executing
// them strictly sequentially: L1 as a market order, L2-L4 as limit orders.
// A failure on one leg is recorded against that leg and never aborts the
// remaining legs. All legs are persisted under the correlation id once the
// loop completes.
func (s *Service) executeMultientry(ctx context.Context, parsed *classify.ParsedAlert, cfg *domain.TradingConfig) error {
	alert := parsed.Alert

	levels, correlationID, err := multientry.ParseLevels(alert.RawAlert, cfg.MultientryBaseAmount)
	if err != nil {
		alert.MarkFailed(err, "")
		s.saveAlert(ctx, alert)
		return err
	}

	order := &domain.MultientryOrder{
		CorrelationID: correlationID,
		AlertID:       alert.ID,
		Symbol:        alert.Symbol,
		Exchange:      parsed.Credentials.Exchange,
		Side:          alert.Side,
		CreatedAt:     s.now(),
	}

	var firstFill *domain.OrderResult
	for _, lvl := range levels {
		leg := domain.OrderLeg{
			Level:    lvl.Level,
			Status:   domain.LegPending,
			Quantity: lvl.Quantity,
			Price:    lvl.Price,
		}
		req := &domain.OrderRequest{
			Symbol:   alert.Symbol,
			Side:     alert.Side,
			Kind:     lvl.Kind,
			Quantity: lvl.Quantity,
			Price:    lvl.Price,
		}

		result, err := s.placeOrder(ctx, &parsed.Credentials, req)
		if err != nil {
			leg.Status = domain.LegRejected
			s.logger.Warn(ctx, "Multientry leg failed", map[string]interface{}{
				"correlationID": correlationID,
				"level":         lvl.Level,
				"error":         err.Error(),
			})
		} else {
			leg.ExchangeOrderID = result.OrderID
			leg.Status = legStatusFrom(result.Status)
			if leg.Status == domain.LegFilled {
				leg.FilledQuantity = result.ExecutedQty
				leg.FilledPrice = result.ExecutedPrice
				if firstFill == nil {
					firstFill = result
				}
			}
		}
		order.Legs = append(order.Legs, leg)
	}

	if err := s.orderRepo.SaveOrder(ctx, order); err != nil {
		s.logger.Error(ctx, err, "Failed to persist multientry order", map[string]interface{}{"correlationID": correlationID})
	}

	placed := 0
	for _, leg := range order.Legs {
		if leg.Status != domain.LegRejected {
			placed++
		}
	}
	if placed == 0 {
		err := fmt.Errorf("%w: all %d multientry legs failed", ports.ErrOrderPlacementFailed, len(order.Legs))
		alert.MarkFailed(err, "")
		s.saveAlert(ctx, alert)
		return err
	}

	executedPrice := alert.Price
	raw := ""
	if firstFill != nil {
		executedPrice = firstFill.ExecutedPrice
		raw = firstFill.Raw
	}
	alert.MarkExecuted(executedPrice, raw, s.now())
	s.saveAlert(ctx, alert)

	s.logger.Info(ctx, "Multientry alert executed", map[string]interface{}{
		"correlationID": correlationID,
		"legs":          len(order.Legs),
		"placed":        placed,
	})
	return nil
}

// HandleCloseAlert drives the close workflow for a multientry position:
// filled legs are closed first (L1, then the rest) via market orders sized
// to each leg's filled quantity, then still-pending legs are cancelled.
// Per-leg failures are appended to the result's error list and never stop
// processing of the remaining legs.
func (s *Service) HandleCloseAlert(ctx context.Context, rawClose string, cfg *domain.TradingConfig, creds []*domain.ExchangeCredentials) (*CloseResult, error) {
	reason, correlationID, err := multientry.ParseClose(rawClose)
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: no multientry order for correlation id %q", ports.ErrNotFound, correlationID)
	}

	resolved, err := classify.ResolveActive(creds, cfg.TestMode)
	if err != nil {
		return nil, err
	}
	// The stored exchange order ids only mean something to the exchange that
	// issued them. Refuse to close against a different active exchange.
	if exchange.CanonicalName(resolved.Exchange) != exchange.CanonicalName(order.Exchange) {
		return nil, fmt.Errorf("%w: order %s was opened on %s but the active exchange is %s",
			ports.ErrConfigurationError, correlationID, order.Exchange, resolved.Exchange)
	}

	result := &CloseResult{CorrelationID: correlationID, Reason: reason}

	// Filled legs first; legs are stored sorted by level, so L1 leads.
	for _, leg := range order.FilledLegs() {
		req := &domain.OrderRequest{
			Symbol:   order.Symbol,
			Side:     order.Side.Opposite(),
			Kind:     domain.KindMarket,
			Quantity: leg.FilledQuantity,
		}
		res, err := s.placeOrder(ctx, &resolved, req)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("close L%d: %v", leg.Level, err))
			continue
		}
		if res.Status == domain.OrderRejected {
			result.Errors = append(result.Errors, fmt.Sprintf("close L%d: %s", leg.Level, res.Error))
			continue
		}
		result.Closed++
	}

	for _, leg := range order.PendingLegs() {
		if err := s.cancelOrder(ctx, &resolved, order.Symbol, leg.ExchangeOrderID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("cancel L%d: %v", leg.Level, err))
		} else {
			result.Cancelled++
		}
		// Pending legs end up cancelled after the close pass regardless of
		// the cancel call's outcome.
		leg.Status = domain.LegCancelled
	}

	if err := s.orderRepo.SaveOrder(ctx, order); err != nil {
		s.logger.Error(ctx, err, "Failed to persist closed multientry order", map[string]interface{}{"correlationID": correlationID})
	}

	s.logger.Info(ctx, "Multientry position closed", map[string]interface{}{
		"correlationID": correlationID,
		"reason":        reason,
		"closed":        result.Closed,
		"cancelled":     result.Cancelled,
		"errors":        len(result.Errors),
	})
	return result, nil
}

func legStatusFrom(status domain.OrderStatus) domain.LegStatus {
	switch status {
	case domain.OrderFilled:
		return domain.LegFilled
	case domain.OrderPartial:
		return domain.LegPending
	case domain.OrderCancelled:
		return domain.LegCancelled
	default:
		return domain.LegRejected
	}
}
