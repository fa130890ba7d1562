// Package sqlite implements the storage contracts: the capped append-only
// alert history, the correlation-id-keyed multientry order table and the
// credential store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"alertTraderBot/internal/domain"
	"alertTraderBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// defaultHistoryLimit caps the retained alert history (most-recent-N).
const defaultHistoryLimit = 200

// Repository implements ports.AlertRepository, ports.MultientryRepository
// and ports.CredentialsRepository using SQLite.
type Repository struct {
	db           *sql.DB
	logger       ports.Logger
	historyLimit int
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath       string
	Logger       ports.Logger
	HistoryLimit int // Most-recent-N alerts to retain; defaults to 200
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/alert_trader.db"
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger, historyLimit: historyLimit}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath, "historyLimit": historyLimit})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		strategy TEXT NOT NULL,
		raw_alert TEXT NOT NULL DEFAULT '',
		stop_loss REAL NOT NULL DEFAULT 0,
		take_profit REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		executed_price REAL NOT NULL DEFAULT 0,
		executed_at TIMESTAMP DEFAULT NULL,
		error TEXT NOT NULL DEFAULT '',
		raw_response TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS multientry_orders (
		correlation_id TEXT PRIMARY KEY,
		alert_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		side TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS multientry_legs (
		correlation_id TEXT NOT NULL,
		level INTEGER NOT NULL,
		exchange_order_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		filled_quantity REAL NOT NULL DEFAULT 0,
		filled_price REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (correlation_id, level)
	);

	CREATE TABLE IF NOT EXISTS credentials (
		exchange TEXT PRIMARY KEY,
		api_key TEXT NOT NULL,
		api_secret TEXT NOT NULL,
		passphrase TEXT NOT NULL DEFAULT '',
		test_api_key TEXT NOT NULL DEFAULT '',
		test_secret TEXT NOT NULL DEFAULT '',
		test_phrase TEXT NOT NULL DEFAULT '',
		market_type TEXT NOT NULL DEFAULT 'spot',
		leverage INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts (created_at);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- AlertRepository Implementation ---

// SaveAlert upserts the alert by ID, then caps the retained history to the
// most-recent-N records.
func (r *Repository) SaveAlert(ctx context.Context, alert *domain.TradeAlert) error {
	const query = `
	INSERT INTO alerts (id, symbol, side, quantity, price, strategy, raw_alert, stop_loss, take_profit,
		status, executed_price, executed_at, error, raw_response, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		executed_price = excluded.executed_price,
		executed_at = excluded.executed_at,
		error = excluded.error,
		raw_response = excluded.raw_response`

	var executedAt interface{}
	if !alert.ExecutedAt.IsZero() {
		executedAt = alert.ExecutedAt
	}
	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.Symbol, alert.Side, alert.Quantity, alert.Price, alert.Strategy, alert.RawAlert,
		alert.StopLoss, alert.TakeProfit, alert.Status, alert.ExecutedPrice, executedAt, alert.Error,
		alert.RawResponse, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to save alert %s: %v", ports.ErrUpdateFailed, alert.ID, err)
	}

	const trim = `
	DELETE FROM alerts WHERE id NOT IN (
		SELECT id FROM alerts ORDER BY created_at DESC, id DESC LIMIT ?
	)`
	if _, err := r.db.ExecContext(ctx, trim, r.historyLimit); err != nil {
		return fmt.Errorf("%w: failed to trim alert history: %v", ports.ErrUpdateFailed, err)
	}
	return nil
}

func scanAlert(row interface {
	Scan(dest ...interface{}) error
}) (*domain.TradeAlert, error) {
	var (
		a          domain.TradeAlert
		executedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Symbol, &a.Side, &a.Quantity, &a.Price, &a.Strategy, &a.RawAlert,
		&a.StopLoss, &a.TakeProfit, &a.Status, &a.ExecutedPrice, &executedAt, &a.Error,
		&a.RawResponse, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if executedAt.Valid {
		a.ExecutedAt = executedAt.Time
	}
	return &a, nil
}

const alertColumns = `id, symbol, side, quantity, price, strategy, raw_alert, stop_loss, take_profit,
	status, executed_price, executed_at, error, raw_response, created_at`

// FindAlertByID retrieves one alert. Returns nil, nil when absent.
func (r *Repository) FindAlertByID(ctx context.Context, id string) (*domain.TradeAlert, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query alert %s: %v", ports.ErrQueryFailed, id, err)
	}
	return alert, nil
}

// RecentAlerts retrieves the most recent alerts, newest first.
func (r *Repository) RecentAlerts(ctx context.Context, limit int) ([]*domain.TradeAlert, error) {
	if limit <= 0 || limit > r.historyLimit {
		limit = r.historyLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query recent alerts: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var alerts []*domain.TradeAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan alert row: %v", ports.ErrQueryFailed, err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// --- MultientryRepository Implementation ---

// SaveOrder stores a multi-leg order under its correlation id, superseding
// any prior record with the same id.
func (r *Repository) SaveOrder(ctx context.Context, order *domain.MultientryOrder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ports.ErrUpdateFailed, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO multientry_orders (correlation_id, alert_id, symbol, exchange, side, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.CorrelationID, order.AlertID, order.Symbol, order.Exchange, order.Side, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to save multientry order %s: %v", ports.ErrUpdateFailed, order.CorrelationID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM multientry_legs WHERE correlation_id = ?`, order.CorrelationID); err != nil {
		return fmt.Errorf("%w: failed to clear legs for %s: %v", ports.ErrUpdateFailed, order.CorrelationID, err)
	}
	for _, leg := range order.Legs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO multientry_legs (correlation_id, level, exchange_order_id, status, quantity, price, filled_quantity, filled_price)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			order.CorrelationID, leg.Level, leg.ExchangeOrderID, leg.Status, leg.Quantity, leg.Price, leg.FilledQuantity, leg.FilledPrice)
		if err != nil {
			return fmt.Errorf("%w: failed to save leg L%d for %s: %v", ports.ErrUpdateFailed, leg.Level, order.CorrelationID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit multientry order %s: %v", ports.ErrUpdateFailed, order.CorrelationID, err)
	}
	return nil
}

// FindByCorrelationID retrieves a multi-leg order with its legs sorted by
// level. Returns nil, nil when no order exists under the id.
func (r *Repository) FindByCorrelationID(ctx context.Context, correlationID string) (*domain.MultientryOrder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT correlation_id, alert_id, symbol, exchange, side, created_at
		FROM multientry_orders WHERE correlation_id = ?`, correlationID)

	var order domain.MultientryOrder
	err := row.Scan(&order.CorrelationID, &order.AlertID, &order.Symbol, &order.Exchange, &order.Side, &order.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query multientry order %s: %v", ports.ErrQueryFailed, correlationID, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT level, exchange_order_id, status, quantity, price, filled_quantity, filled_price
		FROM multientry_legs WHERE correlation_id = ? ORDER BY level`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query legs for %s: %v", ports.ErrQueryFailed, correlationID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg domain.OrderLeg
		if err := rows.Scan(&leg.Level, &leg.ExchangeOrderID, &leg.Status, &leg.Quantity, &leg.Price, &leg.FilledQuantity, &leg.FilledPrice); err != nil {
			return nil, fmt.Errorf("%w: failed to scan leg row: %v", ports.ErrQueryFailed, err)
		}
		order.Legs = append(order.Legs, leg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed reading leg rows: %v", ports.ErrQueryFailed, err)
	}
	return &order, nil
}

// --- CredentialsRepository Implementation ---

// SaveCredentials upserts a credential set. Activating one set deactivates
// all others, preserving the at-most-one-active invariant.
func (r *Repository) SaveCredentials(ctx context.Context, creds *domain.ExchangeCredentials) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ports.ErrUpdateFailed, err)
	}
	defer tx.Rollback()

	if creds.IsActive {
		if _, err := tx.ExecContext(ctx, `UPDATE credentials SET is_active = 0 WHERE exchange != ?`, creds.Exchange); err != nil {
			return fmt.Errorf("%w: failed to deactivate other credentials: %v", ports.ErrUpdateFailed, err)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO credentials (exchange, api_key, api_secret, passphrase, test_api_key,
			test_secret, test_phrase, market_type, leverage, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		creds.Exchange, creds.APIKey, creds.APISecret, creds.Passphrase, creds.TestAPIKey,
		creds.TestSecret, creds.TestPhrase, creds.MarketType, creds.Leverage, creds.IsActive, creds.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to save credentials for %s: %v", ports.ErrUpdateFailed, creds.Exchange, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit credentials for %s: %v", ports.ErrUpdateFailed, creds.Exchange, err)
	}
	return nil
}

// ListCredentials returns all stored credential sets.
func (r *Repository) ListCredentials(ctx context.Context) ([]*domain.ExchangeCredentials, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT exchange, api_key, api_secret, passphrase, test_api_key, test_secret, test_phrase,
			market_type, leverage, is_active, created_at
		FROM credentials ORDER BY exchange`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query credentials: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []*domain.ExchangeCredentials
	for rows.Next() {
		var c domain.ExchangeCredentials
		err := rows.Scan(&c.Exchange, &c.APIKey, &c.APISecret, &c.Passphrase, &c.TestAPIKey,
			&c.TestSecret, &c.TestPhrase, &c.MarketType, &c.Leverage, &c.IsActive, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan credentials row: %v", ports.ErrQueryFailed, err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// DeleteCredentials removes the credential set for an exchange.
func (r *Repository) DeleteCredentials(ctx context.Context, exchange string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE exchange = ?`, exchange); err != nil {
		return fmt.Errorf("%w: failed to delete credentials for %s: %v", ports.ErrUpdateFailed, exchange, err)
	}
	return nil
}
