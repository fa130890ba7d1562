// Package app hosts the execution engine: it orchestrates classification,
// payload building, signing, the network call and response normalization,
// and drives the multientry position lifecycle.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"alertTraderBot/internal/classify"
	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/exchange"
	"alertTraderBot/internal/ports"
)

// Service executes trade alerts against the active exchange. One alert is
// processed to completion before the next; the RequestExecutor is the only
// place network calls happen.
type Service struct {
	logger     ports.Logger
	classifier *classify.Classifier
	executor   ports.RequestExecutor
	alertRepo  ports.AlertRepository
	orderRepo  ports.MultientryRepository

	now func() time.Time // Injected for deterministic signing in tests
}

// Config holds the dependencies of the execution service.
type Config struct {
	Logger     ports.Logger
	Classifier *classify.Classifier
	Executor   ports.RequestExecutor
	AlertRepo  ports.AlertRepository
	OrderRepo  ports.MultientryRepository
}

// NewService creates a new execution service instance.
func NewService(cfg Config) (*Service, error) {
	if cfg.Logger == nil || cfg.Classifier == nil || cfg.Executor == nil || cfg.AlertRepo == nil || cfg.OrderRepo == nil {
		return nil, fmt.Errorf("missing required dependencies for execution service")
	}
	return &Service{
		logger:     cfg.Logger,
		classifier: cfg.Classifier,
		executor:   cfg.Executor,
		alertRepo:  cfg.AlertRepo,
		orderRepo:  cfg.OrderRepo,
		now:        time.Now,
	}, nil
}

// HandleAlert processes one trade alert start to finish: classification and
// sizing, then either a single order or the multientry fan-out. The outcome
// (status, error, raw exchange response) is always recorded on the alert
// before returning.
func (s *Service) HandleAlert(ctx context.Context, alert *domain.TradeAlert, cfg *domain.TradingConfig, creds []*domain.ExchangeCredentials) error {
	if alert.Status == "" {
		alert.Status = domain.AlertPending
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = s.now()
	}

	parsed, err := s.classifier.Parse(ctx, alert, cfg, creds)
	if err != nil {
		if errors.Is(err, ports.ErrStrategyDisabled) {
			alert.Status = domain.AlertIgnored
			alert.Error = err.Error()
		} else {
			alert.MarkFailed(err, "")
		}
		s.saveAlert(ctx, alert)
		return err
	}

	if parsed.StrategyType == domain.StrategyMultientry {
		return s.executeMultientry(ctx, parsed, cfg)
	}
	return s.executeSimple(ctx, parsed)
}

// executeSimple places one market order for a simple signal.
func (s *Service) executeSimple(ctx context.Context, parsed *classify.ParsedAlert) error {
	alert := parsed.Alert
	req := &domain.OrderRequest{
		Symbol:   alert.Symbol,
		Side:     alert.Side,
		Kind:     domain.KindMarket,
		Quantity: parsed.Quantity,
		Price:    parsed.Price,
	}

	result, err := s.placeOrder(ctx, &parsed.Credentials, req)
	if err != nil {
		raw := ""
		if result != nil {
			raw = result.Raw
		}
		alert.MarkFailed(err, raw)
		s.saveAlert(ctx, alert)
		return err
	}
	if result.Status == domain.OrderRejected {
		err := fmt.Errorf("%w: %s", ports.ErrOrderPlacementFailed, result.Error)
		alert.MarkFailed(err, result.Raw)
		s.saveAlert(ctx, alert)
		return err
	}

	alert.MarkExecuted(result.ExecutedPrice, result.Raw, s.now())
	s.saveAlert(ctx, alert)
	s.logger.Info(ctx, "Alert executed", map[string]interface{}{
		"alertID":  alert.ID,
		"symbol":   alert.Symbol,
		"side":     alert.Side,
		"orderID":  result.OrderID,
		"quantity": result.ExecutedQty,
		"price":    result.ExecutedPrice,
	})
	return nil
}

// placeOrder runs the build -> sign -> POST -> normalize pipeline for one
// order. On a non-success HTTP status the returned result is a rejected one
// carrying the exchange's own message and the raw body, alongside the error.
func (s *Service) placeOrder(ctx context.Context, creds *domain.ResolvedCredentials, req *domain.OrderRequest) (*domain.OrderResult, error) {
	adapter, err := exchange.ForExchange(creds.Exchange)
	if err != nil {
		return nil, err
	}
	ep, err := exchange.OrderEndpoint(creds.Exchange, creds.MarketType, creds.TestMode)
	if err != nil {
		return nil, err
	}
	payload, err := adapter.BuildOrder(req, creds)
	if err != nil {
		return nil, err
	}
	signed, err := adapter.Sign(creds, &ports.SignRequest{
		Method:  ep.Method,
		BaseURL: ep.BaseURL,
		Path:    ep.Path,
		Payload: payload,
	}, s.now())
	if err != nil {
		return nil, err
	}

	resp, err := s.executor.Do(ctx, signed)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := apiErrorMessage(resp.Body)
		apiErr := fmt.Errorf("%w: %s returned HTTP %d", ports.ErrExchangeAPI, adapter.Name(), resp.StatusCode)
		if msg != "" {
			apiErr = fmt.Errorf("%w: %s returned HTTP %d: %s", ports.ErrExchangeAPI, adapter.Name(), resp.StatusCode, msg)
		}
		return &domain.OrderResult{
			Symbol:         req.Symbol,
			Side:           req.Side,
			RequestedQty:   req.Quantity,
			RequestedPrice: req.Price,
			Status:         domain.OrderRejected,
			Error:          msg,
			Raw:            string(resp.Body),
		}, apiErr
	}
	return adapter.NormalizeOrderResponse(resp.Body, req), nil
}

// cancelOrder issues the exchange's cancel call for one open order.
func (s *Service) cancelOrder(ctx context.Context, creds *domain.ResolvedCredentials, symbol, orderID string) error {
	adapter, err := exchange.ForExchange(creds.Exchange)
	if err != nil {
		return err
	}
	ep, err := exchange.CancelEndpoint(creds.Exchange, creds.MarketType, creds.TestMode)
	if err != nil {
		return err
	}
	payload, err := adapter.BuildCancel(symbol, orderID, creds)
	if err != nil {
		return err
	}
	signed, err := adapter.Sign(creds, &ports.SignRequest{
		Method:  ep.Method,
		BaseURL: ep.BaseURL,
		Path:    ep.Path,
		Payload: payload,
	}, s.now())
	if err != nil {
		return err
	}

	resp, err := s.executor.Do(ctx, signed)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := apiErrorMessage(resp.Body)
		if msg != "" {
			return fmt.Errorf("%w: %s returned HTTP %d: %s", ports.ErrOrderCancelFailed, adapter.Name(), resp.StatusCode, msg)
		}
		return fmt.Errorf("%w: %s returned HTTP %d", ports.ErrOrderCancelFailed, adapter.Name(), resp.StatusCode)
	}
	return nil
}

// ValidateCredentials performs the one-shot credential check: it signs a
// request to the exchange's authenticated ping endpoint with the same
// signing primitives used for orders and reports success or failure.
func (s *Service) ValidateCredentials(ctx context.Context, creds *domain.ExchangeCredentials, testMode bool) error {
	resolved := creds.Resolve(testMode)
	if !exchange.CapabilityOf(resolved.Exchange).Supported {
		return fmt.Errorf("%w: %s", ports.ErrUnsupportedExchange, resolved.Exchange)
	}
	adapter, err := exchange.ForExchange(resolved.Exchange)
	if err != nil {
		return err
	}
	ep, err := exchange.PingEndpoint(resolved.Exchange, resolved.MarketType, testMode)
	if err != nil {
		return err
	}
	signed, err := adapter.Sign(&resolved, &ports.SignRequest{
		Method:  ep.Method,
		BaseURL: ep.BaseURL,
		Path:    ep.Path,
	}, s.now())
	if err != nil {
		return err
	}

	resp, err := s.executor.Do(ctx, signed)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := apiErrorMessage(resp.Body)
		if msg != "" {
			return fmt.Errorf("%w: HTTP %d: %s", ports.ErrAuthenticationFailed, resp.StatusCode, msg)
		}
		return fmt.Errorf("%w: HTTP %d", ports.ErrAuthenticationFailed, resp.StatusCode)
	}
	return nil
}

// saveAlert records the alert outcome; a storage failure must never mask
// the execution outcome, so it is logged rather than returned.
func (s *Service) saveAlert(ctx context.Context, alert *domain.TradeAlert) {
	if err := s.alertRepo.SaveAlert(ctx, alert); err != nil {
		s.logger.Error(ctx, err, "Failed to persist alert outcome", map[string]interface{}{"alertID": alert.ID})
	}
}

// apiErrorMessage pulls the exchange's own error message out of a response
// body, trying the field names the supported exchanges use.
func apiErrorMessage(body []byte) string {
	var envelope struct {
		Msg          string          `json:"msg"`
		Message      string          `json:"message"`
		RetMsg       string          `json:"retMsg"`
		ErrorMessage string          `json:"error_message"`
		Error        json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	for _, m := range []string{envelope.Msg, envelope.Message, envelope.RetMsg, envelope.ErrorMessage} {
		if m != "" {
			return m
		}
	}
	if len(envelope.Error) > 0 {
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil {
			return s
		}
		var list []string
		if json.Unmarshal(envelope.Error, &list) == nil && len(list) > 0 {
			return list[0]
		}
	}
	return ""
}
