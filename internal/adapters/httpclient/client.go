// Package httpclient provides the resty-based RequestExecutor. It is the
// single point where exchange network calls occur.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"

	"alertTraderBot/internal/ports"
)

// defaultTimeout bounds every exchange call independently.
const defaultTimeout = 30 * time.Second

// Client implements ports.RequestExecutor on top of resty.
type Client struct {
	client  *resty.Client
	logger  ports.Logger
	timeout time.Duration
}

// Config holds configuration for the HTTP executor.
type Config struct {
	Logger  ports.Logger
	Timeout time.Duration // Per-call timeout; defaults to 30s
}

// New creates a new HTTP executor.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for HTTP client")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client:  resty.New().SetHeader("Accept", "application/json"),
		logger:  cfg.Logger,
		timeout: timeout,
	}, nil
}

// Do executes one signed exchange request under its own timeout. Timeouts
// and transport failures are mapped to the distinct ports errors so the
// engine can surface them apart from exchange-level rejections.
func (c *Client) Do(ctx context.Context, req *ports.SignedRequest) (*ports.HTTPResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	r := c.client.R().SetContext(callCtx)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	if len(req.Body) > 0 {
		r.SetBody(req.Body)
	}

	started := time.Now()
	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		if isTimeout(callCtx, err) {
			c.logger.Warn(ctx, "Exchange request timed out", map[string]interface{}{
				"method": req.Method, "url": req.URL, "elapsed": time.Since(started).String(),
			})
			return nil, fmt.Errorf("%w: %s %s", ports.ErrTimeout, req.Method, req.URL)
		}
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %s %s", ports.ErrContextCanceled, req.Method, req.URL)
		}
		c.logger.Error(ctx, err, "Exchange request failed", map[string]interface{}{
			"method": req.Method, "url": req.URL,
		})
		return nil, fmt.Errorf("%w: %v", ports.ErrConnectionFailed, err)
	}

	c.logger.Debug(ctx, "Exchange request completed", map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL,
		"status":  resp.StatusCode(),
		"elapsed": time.Since(started).String(),
	})
	return &ports.HTTPResponse{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
