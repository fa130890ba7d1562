package main

import (
	"context"
	"encoding/json"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"strings"

	"alertTraderBot/config"
	"alertTraderBot/internal/adapters/httpclient"
	"alertTraderBot/internal/adapters/logger"
	"alertTraderBot/internal/adapters/sqlite"
	"alertTraderBot/internal/app"
	"alertTraderBot/internal/classify"
	"alertTraderBot/internal/domain"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		FilePath: cfg.LogFile,
	})
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath:       cfg.DBPath,
		Logger:       appLogger,
		HistoryLimit: cfg.HistoryLimit,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()

	// 4. Initialize HTTP Executor
	executor, err := httpclient.New(httpclient.Config{
		Logger:  appLogger,
		Timeout: cfg.HTTPTimeout,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize HTTP executor")
		log.Fatalf("FATAL: Failed to initialize HTTP executor: %v", err)
	}

	// 5. Initialize Classifier and Execution Service
	classifier, err := classify.New(appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize classifier")
		log.Fatalf("FATAL: Failed to initialize classifier: %v", err)
	}
	service, err := app.NewService(app.Config{
		Logger:     appLogger,
		Classifier: classifier,
		Executor:   executor,
		AlertRepo:  repo,
		OrderRepo:  repo,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize execution service")
		log.Fatalf("FATAL: Failed to initialize execution service: %v", err)
	}

	creds, err := repo.ListCredentials(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load exchange credentials")
		log.Fatalf("FATAL: Failed to load exchange credentials: %v", err)
	}

	// 6. Run one alert end to end. The engine is a library; this entry point
	// exists for operational smoke runs fed by ALERT_JSON or ALERT_FILE.
	raw, err := loadAlertPayload()
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load alert payload")
		log.Fatalf("FATAL: Failed to load alert payload: %v", err)
	}
	if raw == "" {
		appLogger.Info(ctx, "No alert payload provided, nothing to do")
		return
	}

	if reason, ok := closeReason(raw); ok {
		result, err := service.HandleCloseAlert(ctx, raw, cfg.Trading, creds)
		if err != nil {
			appLogger.Error(ctx, err, "Close alert failed")
			os.Exit(1)
		}
		appLogger.Info(ctx, "Close alert processed", map[string]interface{}{
			"reason":        reason,
			"correlationID": result.CorrelationID,
			"closed":        result.Closed,
			"cancelled":     result.Cancelled,
			"legErrors":     result.Errors,
		})
		return
	}

	var alert domain.TradeAlert
	if err := json.Unmarshal([]byte(raw), &alert); err != nil {
		appLogger.Error(ctx, err, "FATAL: Alert payload is not valid JSON")
		log.Fatalf("FATAL: Alert payload is not valid JSON: %v", err)
	}
	if err := service.HandleAlert(ctx, &alert, cfg.Trading, creds); err != nil {
		appLogger.Error(ctx, err, "Alert execution failed", map[string]interface{}{"alertID": alert.ID})
		os.Exit(1)
	}
	appLogger.Info(ctx, "Alert processed", map[string]interface{}{
		"alertID": alert.ID,
		"status":  alert.Status,
	})
}

// loadAlertPayload reads the alert from ALERT_JSON, falling back to the file
// named by ALERT_FILE.
func loadAlertPayload() (string, error) {
	if raw := os.Getenv("ALERT_JSON"); raw != "" {
		return raw, nil
	}
	path := os.Getenv("ALERT_FILE")
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// closeReason reports whether the payload is a compact close alert rather
// than a JSON trade alert. The close parser tolerates case and padding, so
// the detection does too.
func closeReason(raw string) (domain.CloseReason, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(normalized, string(domain.CloseReasonTakeProfit)+":"):
		return domain.CloseReasonTakeProfit, true
	case strings.HasPrefix(normalized, string(domain.CloseReasonStopLoss)+":"):
		return domain.CloseReasonStopLoss, true
	}
	return "", false
}
