package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown         = errors.New("unknown error occurred")
	ErrInvalidRequest  = errors.New("invalid request parameters or format")
	ErrNotFound        = errors.New("resource not found")
	ErrTimeout         = errors.New("operation timed out")
	ErrContextCanceled = errors.New("operation canceled via context")

	// Configuration Errors (fatal, surfaced immediately, no retry)
	ErrConfigurationError = errors.New("invalid or missing configuration")
	ErrNoActiveExchange   = errors.New("no exchange configured")
	ErrUnknownStrategy    = errors.New("unknown strategy")
	ErrStrategyDisabled   = errors.New("strategy disabled")

	// Parse Errors (fatal for the offending alert only)
	ErrMalformedAlert = errors.New("malformed alert string")

	// Exchange Specific Errors
	ErrUnsupportedExchange  = errors.New("exchange is not supported")
	ErrSigningFailed        = errors.New("failed to construct request signature")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrExchangeAPI          = errors.New("exchange API returned an error")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrOrderPlacementFailed = errors.New("failed to place order")
	ErrOrderCancelFailed    = errors.New("failed to cancel order")
	ErrOrderNotFound        = errors.New("order not found")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
)
