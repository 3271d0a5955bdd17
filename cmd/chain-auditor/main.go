package main

import (
	"context"
	"os"
	"time"

	"zakatledger/internal/cli"
	"zakatledger/internal/log"
	"zakatledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentAuditor)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.InfoContext(context.Background(), "Starting chain-auditor",
		"interval", cfg.AuditInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	app := cli.Bootstrap(context.Background(), logger, cfg)
	defer app.Close()

	auditor := services.NewChainAuditor(app.Ledger, services.ChainAuditorConfig{
		Interval: cfg.AuditInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := auditor.Stop(ctx); err != nil {
			logger.WarnContext(ctx, "Chain auditor did not stop in time", log.FieldError, err)
		}
	})

	if err := auditor.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start chain auditor", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.InfoContext(context.Background(), "Chain-auditor shutdown complete")
}
