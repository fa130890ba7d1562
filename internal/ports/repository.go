package ports

import (
	"context"

	"alertTraderBot/internal/domain"
)

// AlertRepository defines the contract with the external alert-history
// store. History is append-only; the store caps retention to the
// most-recent-N alerts.
type AlertRepository interface {
	// SaveAlert inserts the alert or updates it in place when the ID is
	// already known (status transitions, execution outcome).
	SaveAlert(ctx context.Context, alert *domain.TradeAlert) error
	// FindAlertByID retrieves one alert. Returns nil, nil when absent.
	FindAlertByID(ctx context.Context, id string) (*domain.TradeAlert, error)
	// RecentAlerts retrieves the most recent alerts, newest first.
	RecentAlerts(ctx context.Context, limit int) ([]*domain.TradeAlert, error)
}

// MultientryRepository defines the correlation-id-keyed multi-leg order
// table. Saving under an existing correlation id supersedes the prior
// record.
type MultientryRepository interface {
	SaveOrder(ctx context.Context, order *domain.MultientryOrder) error
	// FindByCorrelationID retrieves a multi-leg order. Returns nil, nil when
	// no order exists under the id.
	FindByCorrelationID(ctx context.Context, correlationID string) (*domain.MultientryOrder, error)
}

// CredentialsRepository defines the contract with the credential store.
type CredentialsRepository interface {
	SaveCredentials(ctx context.Context, creds *domain.ExchangeCredentials) error
	ListCredentials(ctx context.Context) ([]*domain.ExchangeCredentials, error)
	DeleteCredentials(ctx context.Context, exchange string) error
}
