package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertTraderBot/internal/classify"
	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/ports"
)

// Mock implementations

type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

// mockExecutor replays a script of responses/errors, one per call, and
// records every signed request it receives.
type mockExecutor struct {
	requests  []*ports.SignedRequest
	responses []*ports.HTTPResponse
	errs      []error
}

func (m *mockExecutor) Do(ctx context.Context, req *ports.SignedRequest) (*ports.HTTPResponse, error) {
	i := len(m.requests)
	m.requests = append(m.requests, req)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.responses) && m.responses[i] != nil {
		return m.responses[i], nil
	}
	return &ports.HTTPResponse{StatusCode: 200, Body: []byte(`{}`)}, nil
}

type mockAlertRepo struct {
	saved   []*domain.TradeAlert
	saveErr error
}

func (m *mockAlertRepo) SaveAlert(ctx context.Context, alert *domain.TradeAlert) error {
	m.saved = append(m.saved, alert)
	return m.saveErr
}

func (m *mockAlertRepo) FindAlertByID(ctx context.Context, id string) (*domain.TradeAlert, error) {
	return nil, nil
}

func (m *mockAlertRepo) RecentAlerts(ctx context.Context, limit int) ([]*domain.TradeAlert, error) {
	return nil, nil
}

type mockOrderRepo struct {
	saved   []*domain.MultientryOrder
	found   *domain.MultientryOrder
	findErr error
}

func (m *mockOrderRepo) SaveOrder(ctx context.Context, order *domain.MultientryOrder) error {
	m.saved = append(m.saved, order)
	return nil
}

func (m *mockOrderRepo) FindByCorrelationID(ctx context.Context, correlationID string) (*domain.MultientryOrder, error) {
	return m.found, m.findErr
}

type serviceFixture struct {
	service   *Service
	executor  *mockExecutor
	alertRepo *mockAlertRepo
	orderRepo *mockOrderRepo
	logger    *mockLogger
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := &mockLogger{}
	classifier, err := classify.New(logger)
	require.NoError(t, err)

	executor := &mockExecutor{}
	alertRepo := &mockAlertRepo{}
	orderRepo := &mockOrderRepo{}

	service, err := NewService(Config{
		Logger:     logger,
		Classifier: classifier,
		Executor:   executor,
		AlertRepo:  alertRepo,
		OrderRepo:  orderRepo,
	})
	require.NoError(t, err)
	return &serviceFixture{service: service, executor: executor, alertRepo: alertRepo, orderRepo: orderRepo, logger: logger}
}

func binanceActiveCreds() []*domain.ExchangeCredentials {
	return []*domain.ExchangeCredentials{{
		Exchange:  "binance",
		APIKey:    "key",
		APISecret: "secret",
		IsActive:  true,
	}}
}

func bybitActiveCreds() []*domain.ExchangeCredentials {
	return []*domain.ExchangeCredentials{{
		Exchange:  "bybit",
		APIKey:    "key",
		APISecret: "secret",
		IsActive:  true,
	}}
}

func tradingConfig() *domain.TradingConfig {
	cfg := domain.NewTradingConfig()
	cfg.MultientryBaseAmount = 100
	return cfg
}

func simpleAlert() *domain.TradeAlert {
	return &domain.TradeAlert{
		ID:       "alert-1",
		Symbol:   "BTCUSDT",
		Side:     domain.Buy,
		Quantity: 0.5,
		Price:    50000,
		Strategy: "BB_RSI",
	}
}

func TestNewService(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}

func TestHandleAlertSimple(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful market order", func(t *testing.T) {
		f := newFixture(t)
		f.executor.responses = []*ports.HTTPResponse{{
			StatusCode: 200,
			Body:       []byte(`{"orderId":777,"status":"FILLED","executedQty":"0.5","avgPrice":"50100"}`),
		}}
		alert := simpleAlert()

		err := f.service.HandleAlert(ctx, alert, tradingConfig(), binanceActiveCreds())
		require.NoError(t, err)

		require.Len(t, f.executor.requests, 1, "exactly one network call per simple alert")
		req := f.executor.requests[0]
		assert.Equal(t, "POST", req.Method)
		assert.Contains(t, req.URL, "https://api.binance.com/api/v3/order")
		assert.Contains(t, req.URL, "side=BUY")
		assert.Equal(t, "key", req.Headers["X-MBX-APIKEY"])

		assert.Equal(t, domain.AlertExecuted, alert.Status)
		assert.Equal(t, 50100.0, alert.ExecutedPrice)
		assert.NotEmpty(t, alert.RawResponse)
		require.Len(t, f.alertRepo.saved, 1)
	})

	t.Run("Test mode routes to the testnet host", func(t *testing.T) {
		f := newFixture(t)
		f.executor.responses = []*ports.HTTPResponse{{
			StatusCode: 200,
			Body:       []byte(`{"orderId":1,"status":"FILLED","executedQty":"0.5","avgPrice":"50100"}`),
		}}
		cfg := tradingConfig()
		cfg.TestMode = true

		err := f.service.HandleAlert(ctx, simpleAlert(), cfg, binanceActiveCreds())
		require.NoError(t, err)
		require.Len(t, f.executor.requests, 1)
		assert.Contains(t, f.executor.requests[0].URL, "https://testnet.binance.vision")
	})

	t.Run("Unknown strategy never reaches the network", func(t *testing.T) {
		f := newFixture(t)
		alert := simpleAlert()
		alert.Strategy = "FOOBAR"

		err := f.service.HandleAlert(ctx, alert, tradingConfig(), binanceActiveCreds())
		assert.ErrorIs(t, err, ports.ErrUnknownStrategy)
		assert.Empty(t, f.executor.requests)
		assert.Equal(t, domain.AlertFailed, alert.Status)
		require.Len(t, f.alertRepo.saved, 1, "failure outcome is still recorded")
	})

	t.Run("Disabled strategy is ignored, not failed", func(t *testing.T) {
		f := newFixture(t)
		cfg := tradingConfig()
		require.NoError(t, cfg.DisableStrategy(domain.StrategySimple))
		alert := simpleAlert()

		err := f.service.HandleAlert(ctx, alert, cfg, binanceActiveCreds())
		assert.ErrorIs(t, err, ports.ErrStrategyDisabled)
		assert.Empty(t, f.executor.requests)
		assert.Equal(t, domain.AlertIgnored, alert.Status)
	})

	t.Run("No active exchange", func(t *testing.T) {
		f := newFixture(t)
		creds := binanceActiveCreds()
		creds[0].IsActive = false

		err := f.service.HandleAlert(ctx, simpleAlert(), tradingConfig(), creds)
		assert.ErrorIs(t, err, ports.ErrNoActiveExchange)
		assert.Empty(t, f.executor.requests)
	})

	t.Run("Exchange API error records the raw body", func(t *testing.T) {
		f := newFixture(t)
		body := `{"code":-2010,"msg":"Account has insufficient balance"}`
		f.executor.responses = []*ports.HTTPResponse{{StatusCode: 400, Body: []byte(body)}}
		alert := simpleAlert()

		err := f.service.HandleAlert(ctx, alert, tradingConfig(), binanceActiveCreds())
		assert.ErrorIs(t, err, ports.ErrExchangeAPI)
		assert.Contains(t, err.Error(), "insufficient balance")
		assert.Equal(t, domain.AlertFailed, alert.Status)
		assert.Equal(t, body, alert.RawResponse)
	})

	t.Run("Timeout surfaces distinctly", func(t *testing.T) {
		f := newFixture(t)
		f.executor.errs = []error{fmt.Errorf("%w: POST https://api.binance.com/api/v3/order", ports.ErrTimeout)}
		alert := simpleAlert()

		err := f.service.HandleAlert(ctx, alert, tradingConfig(), binanceActiveCreds())
		assert.ErrorIs(t, err, ports.ErrTimeout)
		assert.NotErrorIs(t, err, ports.ErrExchangeAPI)
		assert.Equal(t, domain.AlertFailed, alert.Status)
	})

	t.Run("Rejected order fails the alert", func(t *testing.T) {
		f := newFixture(t)
		f.executor.responses = []*ports.HTTPResponse{{
			StatusCode: 200,
			Body:       []byte(`{"orderId":9,"status":"REJECTED"}`),
		}}
		alert := simpleAlert()

		err := f.service.HandleAlert(ctx, alert, tradingConfig(), binanceActiveCreds())
		assert.ErrorIs(t, err, ports.ErrOrderPlacementFailed)
		assert.Equal(t, domain.AlertFailed, alert.Status)
	})
}

func multientryAlert() *domain.TradeAlert {
	return &domain.TradeAlert{
		ID:       "alert-me-1",
		Symbol:   "BTCUSDT",
		Side:     domain.Buy,
		Quantity: 1,
		Price:    100,
		Strategy: "ME_LEVELS",
		RawAlert: "L1,100:L2,95:L3,90:ID,ABC1",
	}
}

func TestHandleAlertMultientry(t *testing.T) {
	ctx := context.Background()

	t.Run("One leg failure never aborts the rest", func(t *testing.T) {
		f := newFixture(t)
		f.executor.responses = []*ports.HTTPResponse{
			{StatusCode: 200, Body: []byte(`{"orderId":1,"status":"FILLED","executedQty":"1","avgPrice":"100"}`)},
			nil, // Slot consumed by the scripted error below
			{StatusCode: 200, Body: []byte(`{"orderId":3,"status":"NEW","executedQty":"0"}`)},
		}
		f.executor.errs = []error{nil, fmt.Errorf("%w: connection refused", ports.ErrConnectionFailed), nil}
		alert := multientryAlert()

		err := f.service.HandleAlert(ctx, alert, tradingConfig(), binanceActiveCreds())
		require.NoError(t, err, "a partial fan-out is not a failure")

		require.Len(t, f.executor.requests, 3, "all legs are attempted")
		require.Len(t, f.orderRepo.saved, 1)
		order := f.orderRepo.saved[0]
		assert.Equal(t, "ABC1", order.CorrelationID)
		require.Len(t, order.Legs, 3)
		assert.Equal(t, domain.LegFilled, order.Legs[0].Status)
		assert.Equal(t, domain.LegRejected, order.Legs[1].Status)
		assert.Equal(t, domain.LegPending, order.Legs[2].Status)

		assert.Equal(t, domain.AlertExecuted, alert.Status)
		assert.Equal(t, 100.0, alert.ExecutedPrice, "first fill price is the alert's executed price")
	})

	t.Run("Legs execute in level order with scaled quantities", func(t *testing.T) {
		f := newFixture(t)
		f.executor.responses = []*ports.HTTPResponse{
			{StatusCode: 200, Body: []byte(`{"orderId":1,"status":"FILLED","executedQty":"1","avgPrice":"100"}`)},
			{StatusCode: 200, Body: []byte(`{"orderId":2,"status":"NEW","executedQty":"0"}`)},
			{StatusCode: 200, Body: []byte(`{"orderId":3,"status":"NEW","executedQty":"0"}`)},
		}

		err := f.service.HandleAlert(ctx, multientryAlert(), tradingConfig(), binanceActiveCreds())
		require.NoError(t, err)
		require.Len(t, f.executor.requests, 3)

		// L1 is a market order; L2 and L3 are limit orders at their level price.
		q1 := requestQuery(t, f.executor.requests[0].URL)
		assert.Equal(t, "MARKET", q1.Get("type"))
		assert.Equal(t, "1", q1.Get("quantity"))

		q2 := requestQuery(t, f.executor.requests[1].URL)
		assert.Equal(t, "LIMIT", q2.Get("type"))
		assert.Equal(t, "95", q2.Get("price"))

		q3 := requestQuery(t, f.executor.requests[2].URL)
		assert.Equal(t, "LIMIT", q3.Get("type"))
		assert.Equal(t, "90", q3.Get("price"))
	})

	t.Run("All legs failing fails the alert", func(t *testing.T) {
		f := newFixture(t)
		netErr := fmt.Errorf("%w: connection refused", ports.ErrConnectionFailed)
		f.executor.errs = []error{netErr, netErr, netErr}
		alert := multientryAlert()

		err := f.service.HandleAlert(ctx, alert, tradingConfig(), binanceActiveCreds())
		assert.ErrorIs(t, err, ports.ErrOrderPlacementFailed)
		assert.Equal(t, domain.AlertFailed, alert.Status)
		require.Len(t, f.orderRepo.saved, 1, "the failed legs are still persisted")
	})

	t.Run("Malformed level string fails before any network call", func(t *testing.T) {
		f := newFixture(t)
		alert := multientryAlert()
		alert.RawAlert = "L1,100:L2,95" // No ID segment

		err := f.service.HandleAlert(ctx, alert, tradingConfig(), binanceActiveCreds())
		assert.ErrorIs(t, err, ports.ErrMalformedAlert)
		assert.Empty(t, f.executor.requests)
		assert.Equal(t, domain.AlertFailed, alert.Status)
	})
}

func TestHandleCloseAlert(t *testing.T) {
	ctx := context.Background()

	seedOrder := func() *domain.MultientryOrder {
		return &domain.MultientryOrder{
			CorrelationID: "ABC1",
			AlertID:       "alert-me-1",
			Symbol:        "BTCUSDT",
			Exchange:      "binance",
			Side:          domain.Buy,
			Legs: []domain.OrderLeg{
				{Level: 1, ExchangeOrderID: "11", Status: domain.LegFilled, Quantity: 1, Price: 100, FilledQuantity: 1, FilledPrice: 100},
				{Level: 2, ExchangeOrderID: "22", Status: domain.LegPending, Quantity: 2, Price: 95},
				{Level: 3, ExchangeOrderID: "", Status: domain.LegRejected, Quantity: 3, Price: 90},
			},
		}
	}

	t.Run("Closes filled legs then cancels pending ones", func(t *testing.T) {
		f := newFixture(t)
		f.orderRepo.found = seedOrder()
		f.executor.responses = []*ports.HTTPResponse{
			{StatusCode: 200, Body: []byte(`{"orderId":91,"status":"FILLED","executedQty":"1","avgPrice":"110"}`)},
			{StatusCode: 200, Body: []byte(`{"orderId":22,"status":"CANCELED"}`)},
		}

		result, err := f.service.HandleCloseAlert(ctx, "TP:ID,ABC1", tradingConfig(), binanceActiveCreds())
		require.NoError(t, err)
		assert.Equal(t, domain.CloseReasonTakeProfit, result.Reason)
		assert.Equal(t, 1, result.Closed)
		assert.Equal(t, 1, result.Cancelled)
		assert.Empty(t, result.Errors)

		require.Len(t, f.executor.requests, 2, "one close and one cancel; the rejected leg is untouched")

		closeReq := f.executor.requests[0]
		assert.Equal(t, "POST", closeReq.Method)
		q := requestQuery(t, closeReq.URL)
		assert.Equal(t, "SELL", q.Get("side"), "close is the opposite side of entry")
		assert.Equal(t, "MARKET", q.Get("type"))
		assert.Equal(t, "1", q.Get("quantity"), "close is sized to the filled quantity")

		cancelReq := f.executor.requests[1]
		assert.Equal(t, "DELETE", cancelReq.Method)
		cq := requestQuery(t, cancelReq.URL)
		assert.Equal(t, "22", cq.Get("orderId"))

		require.Len(t, f.orderRepo.saved, 1)
		saved := f.orderRepo.saved[0]
		assert.Equal(t, domain.LegCancelled, saved.Legs[1].Status)
		assert.Equal(t, domain.LegRejected, saved.Legs[2].Status)
	})

	t.Run("Cancel failure is collected, pending leg still ends cancelled", func(t *testing.T) {
		f := newFixture(t)
		f.orderRepo.found = seedOrder()
		f.executor.responses = []*ports.HTTPResponse{
			{StatusCode: 200, Body: []byte(`{"orderId":91,"status":"FILLED","executedQty":"1","avgPrice":"110"}`)},
			{StatusCode: 400, Body: []byte(`{"code":-2011,"msg":"Unknown order sent"}`)},
		}

		result, err := f.service.HandleCloseAlert(ctx, "SL:ID,ABC1", tradingConfig(), binanceActiveCreds())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Closed)
		assert.Equal(t, 0, result.Cancelled)
		require.Len(t, result.Errors, 1)
		assert.True(t, strings.HasPrefix(result.Errors[0], "cancel L2"))

		require.Len(t, f.orderRepo.saved, 1)
		assert.Equal(t, domain.LegCancelled, f.orderRepo.saved[0].Legs[1].Status)
	})

	t.Run("Active exchange differing from the order's is refused", func(t *testing.T) {
		f := newFixture(t)
		f.orderRepo.found = seedOrder() // Opened on binance

		_, err := f.service.HandleCloseAlert(ctx, "TP:ID,ABC1", tradingConfig(), bybitActiveCreds())
		assert.ErrorIs(t, err, ports.ErrConfigurationError)
		assert.Empty(t, f.executor.requests, "order ids must never be sent to a different exchange")
		assert.Empty(t, f.orderRepo.saved)
	})

	t.Run("Unknown correlation id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.HandleCloseAlert(ctx, "TP:ID,NOPE", tradingConfig(), binanceActiveCreds())
		assert.ErrorIs(t, err, ports.ErrNotFound)
		assert.Empty(t, f.executor.requests)
	})

	t.Run("Malformed close alert", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.HandleCloseAlert(ctx, "XX:ID,ABC1", tradingConfig(), binanceActiveCreds())
		assert.ErrorIs(t, err, ports.ErrMalformedAlert)
	})
}

func TestValidateCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("Healthy credentials", func(t *testing.T) {
		f := newFixture(t)
		f.executor.responses = []*ports.HTTPResponse{{StatusCode: 200, Body: []byte(`{"balances":[]}`)}}

		err := f.service.ValidateCredentials(ctx, binanceActiveCreds()[0], false)
		require.NoError(t, err)
		require.Len(t, f.executor.requests, 1)
		assert.Equal(t, "GET", f.executor.requests[0].Method)
		assert.Contains(t, f.executor.requests[0].URL, "/api/v3/account")
	})

	t.Run("Authentication failure", func(t *testing.T) {
		f := newFixture(t)
		f.executor.responses = []*ports.HTTPResponse{{StatusCode: 401, Body: []byte(`{"msg":"Invalid API-key"}`)}}

		err := f.service.ValidateCredentials(ctx, binanceActiveCreds()[0], false)
		assert.ErrorIs(t, err, ports.ErrAuthenticationFailed)
		assert.Contains(t, err.Error(), "Invalid API-key")
	})

	t.Run("Unsupported exchange", func(t *testing.T) {
		f := newFixture(t)
		creds := binanceActiveCreds()[0]
		creds.Exchange = "ftx"
		err := f.service.ValidateCredentials(ctx, creds, false)
		assert.ErrorIs(t, err, ports.ErrUnsupportedExchange)
	})
}

// Exchanges that only acknowledge order placement must not fabricate fills.
// A resting limit leg stays pending through the entry fan-out and is
// cancelled on close rather than market-closed for quantity that was never
// acquired.
func TestRestingLimitLegsAreCancelledNotClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ack := func(id string) *ports.HTTPResponse {
		return &ports.HTTPResponse{
			StatusCode: 200,
			Body:       []byte(`{"retCode":0,"retMsg":"OK","result":{"orderId":"` + id + `"}}`),
		}
	}
	f.executor.responses = []*ports.HTTPResponse{ack("b1"), ack("b2"), ack("b3")}

	err := f.service.HandleAlert(ctx, multientryAlert(), tradingConfig(), bybitActiveCreds())
	require.NoError(t, err)

	require.Len(t, f.orderRepo.saved, 1)
	entry := f.orderRepo.saved[0]
	require.Len(t, entry.Legs, 3)
	assert.Equal(t, domain.LegFilled, entry.Legs[0].Status)
	assert.Equal(t, 1.0, entry.Legs[0].FilledQuantity)
	assert.Equal(t, domain.LegPending, entry.Legs[1].Status, "an acknowledged limit leg is resting, not filled")
	assert.Equal(t, 0.0, entry.Legs[1].FilledQuantity)
	assert.Equal(t, domain.LegPending, entry.Legs[2].Status)

	f.orderRepo.found = entry
	f.executor.responses = append(f.executor.responses, ack("c1"), ack("b2"), ack("b3"))

	result, err := f.service.HandleCloseAlert(ctx, "TP:ID,ABC1", tradingConfig(), bybitActiveCreds())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Closed, "only the filled leg is market-closed")
	assert.Equal(t, 2, result.Cancelled)
	assert.Empty(t, result.Errors)

	require.Len(t, f.executor.requests, 6)

	closeReq := f.executor.requests[3]
	assert.Contains(t, closeReq.URL, "/v5/order/create")
	var closeBody map[string]interface{}
	require.NoError(t, json.Unmarshal(closeReq.Body, &closeBody))
	assert.Equal(t, "Sell", closeBody["side"])
	assert.Equal(t, "Market", closeBody["orderType"])
	assert.Equal(t, "1", closeBody["qty"], "close is sized to the quantity actually filled")

	cancelReq := f.executor.requests[4]
	assert.Contains(t, cancelReq.URL, "/v5/order/cancel")
	var cancelBody map[string]interface{}
	require.NoError(t, json.Unmarshal(cancelReq.Body, &cancelBody))
	assert.Equal(t, "b2", cancelBody["orderId"])
}

// Storage failures are logged, never returned: the execution outcome must
// not be masked by a persistence problem.
func TestStorageFailureDoesNotMaskOutcome(t *testing.T) {
	f := newFixture(t)
	f.alertRepo.saveErr = errors.New("disk full")
	f.executor.responses = []*ports.HTTPResponse{{
		StatusCode: 200,
		Body:       []byte(`{"orderId":1,"status":"FILLED","executedQty":"0.5","avgPrice":"50100"}`),
	}}
	alert := simpleAlert()

	err := f.service.HandleAlert(context.Background(), alert, tradingConfig(), binanceActiveCreds())
	require.NoError(t, err)
	assert.Equal(t, domain.AlertExecuted, alert.Status)
	assert.NotEmpty(t, f.logger.errorMsgs)
}

func requestQuery(t *testing.T, rawURL string) url.Values {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Query()
}
