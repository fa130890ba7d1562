package domain

import "time"

// ExchangeCredentials holds the API key material for one exchange as stored
// by the credential collaborator. At most one credential set is active at a
// time; the classifier enforces that invariant when resolving.
type ExchangeCredentials struct {
	Exchange   string     // Exchange display name (e.g., "Binance", "Binance Futures")
	APIKey     string     // Live API key
	APISecret  string     // Live API secret
	Passphrase string     // Optional passphrase (exchanges that require one)
	TestAPIKey string     // Optional separate test-mode key
	TestSecret string     // Optional separate test-mode secret
	TestPhrase string     // Optional separate test-mode passphrase
	MarketType MarketType // spot/futures selector for shared-API exchanges
	Leverage   int        // Configured leverage (0 if unset)
	IsActive   bool       // Whether this set is the active one
	CreatedAt  time.Time
}

// ResolvedCredentials is the effective key set for a single execution.
// Resolving never mutates the underlying ExchangeCredentials record; test
// keys are substituted transparently for the one call being made.
type ResolvedCredentials struct {
	Exchange   string
	APIKey     string
	APISecret  string
	Passphrase string
	MarketType MarketType
	Leverage   int
	TestMode   bool
}

// Resolve produces the effective credentials for this call. When testMode is
// on and a test key pair exists, it is substituted for the live pair.
func (c *ExchangeCredentials) Resolve(testMode bool) ResolvedCredentials {
	r := ResolvedCredentials{
		Exchange:   c.Exchange,
		APIKey:     c.APIKey,
		APISecret:  c.APISecret,
		Passphrase: c.Passphrase,
		MarketType: c.MarketType,
		Leverage:   c.Leverage,
		TestMode:   testMode,
	}
	if testMode && c.TestAPIKey != "" && c.TestSecret != "" {
		r.APIKey = c.TestAPIKey
		r.APISecret = c.TestSecret
		if c.TestPhrase != "" {
			r.Passphrase = c.TestPhrase
		}
	}
	return r
}
