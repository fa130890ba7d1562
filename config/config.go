package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"alertTraderBot/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Trading behaviour
	Trading *domain.TradingConfig

	// Database
	DBPath       string
	HistoryLimit int // Most-recent-N alerts retained

	// Logging
	LogLevel string
	LogFile  string // Optional rotated log file

	// Network
	HTTPTimeout time.Duration // Per exchange call
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{Trading: domain.NewTradingConfig()}
	var errs []string

	// Trading parameters
	mode := strings.ToLower(getEnv("TRADING_MODE", string(domain.ModeAuto)))
	switch domain.TradingMode(mode) {
	case domain.ModeAuto, domain.ModeManual:
		cfg.Trading.Mode = domain.TradingMode(mode)
	default:
		errs = append(errs, fmt.Sprintf("TRADING_MODE must be auto or manual, got %q", mode))
	}

	sizing := strings.ToLower(getEnv("SIZING_TYPE", string(domain.SizingPercentage)))
	switch domain.SizingType(sizing) {
	case domain.SizingPercentage, domain.SizingFixed:
		cfg.Trading.SizingType = domain.SizingType(sizing)
	default:
		errs = append(errs, fmt.Sprintf("SIZING_TYPE must be percentage or fixed, got %q", sizing))
	}

	var err error
	cfg.Trading.SizingValue, err = getEnvAsFloatRequired("SIZING_VALUE", 100.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SIZING_VALUE: %v", err))
	} else if cfg.Trading.SizingValue <= 0 {
		errs = append(errs, "SIZING_VALUE must be positive")
	}

	cfg.Trading.MaxPositionSize, err = getEnvAsFloatRequired("MAX_POSITION_SIZE", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_POSITION_SIZE: %v", err))
	} else if cfg.Trading.MaxPositionSize < 0 {
		errs = append(errs, "MAX_POSITION_SIZE cannot be negative")
	}

	cfg.Trading.StopLossPercent = getEnvAsFloat("STOP_LOSS_PERCENT", 0)
	cfg.Trading.TakeProfitPercent = getEnvAsFloat("TAKE_PROFIT_PERCENT", 0)
	cfg.Trading.TestMode = getEnvAsBool("TEST_MODE", true) // Default to test mode for safety

	cfg.Trading.MultientryBaseAmount, err = getEnvAsFloatRequired("MULTIENTRY_BASE_AMOUNT", 100.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MULTIENTRY_BASE_AMOUNT: %v", err))
	} else if cfg.Trading.MultientryBaseAmount <= 0 {
		errs = append(errs, "MULTIENTRY_BASE_AMOUNT must be positive")
	}

	// Enabled strategies: comma-separated list; defaults to all enabled.
	if raw := getEnv("ENABLED_STRATEGIES", ""); raw != "" {
		wanted := make(map[domain.StrategyType]bool)
		for _, name := range strings.Split(raw, ",") {
			st := domain.StrategyType(strings.ToLower(strings.TrimSpace(name)))
			switch st {
			case domain.StrategySimple, domain.StrategyMultientry:
				wanted[st] = true
				cfg.Trading.EnableStrategy(st)
			default:
				errs = append(errs, fmt.Sprintf("unknown strategy type %q in ENABLED_STRATEGIES", name))
			}
		}
		for _, st := range []domain.StrategyType{domain.StrategySimple, domain.StrategyMultientry} {
			if wanted[st] {
				continue
			}
			if err := cfg.Trading.DisableStrategy(st); err != nil {
				errs = append(errs, fmt.Sprintf("invalid ENABLED_STRATEGIES: %v", err))
			}
		}
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/alert_trader.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	cfg.HistoryLimit = getEnvAsInt("HISTORY_LIMIT", 200)
	if cfg.HistoryLimit <= 0 {
		errs = append(errs, "HISTORY_LIMIT must be positive")
	}

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Network
	timeoutSeconds := getEnvAsInt("HTTP_TIMEOUT_SECONDS", 30)
	if timeoutSeconds <= 0 {
		errs = append(errs, "HTTP_TIMEOUT_SECONDS must be positive")
	}
	cfg.HTTPTimeout = time.Duration(timeoutSeconds) * time.Second

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
