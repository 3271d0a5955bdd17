package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"zakatledger/internal/cli"
	apphttp "zakatledger/internal/http"
	"zakatledger/internal/log"
	"zakatledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	app := cli.Bootstrap(ctx, logger, cfg)
	defer app.Close()

	dispatcher, closeDispatcher, err := cli.NewDispatcher(cfg, app.Snapshots)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize snapshot dispatcher", log.FieldError, err,
			"dispatch", cfg.SnapshotDispatch)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:       app.Ledger,
		Transactions: services.NewTransactionService(app.Ledger, dispatcher),
		Snapshots:    app.Snapshots,
		Configs:      app.Configs,
		Previewer:    services.NewPreviewer(app.Configs),
		Ping:         app.Repo.Ping,
	}, apphttp.Options{
		RequestsPerMinute: cfg.RequestsPerMinute,
		BlockSuspicious:   cfg.BlockSuspicious,
		TrustedProxies:    cfg.TrustedProxies,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Server shutdown error", log.FieldError, err)
		}
		// In-flight requests may still dispatch jobs until the server is down.
		if err := closeDispatcher(ctx); err != nil {
			logger.WarnContext(ctx, "Snapshot jobs still running at shutdown", log.FieldError, err)
		}
	})

	logger.InfoContext(ctx, "Starting zakatledger server",
		"port", cfg.Port,
		"snapshot_dispatch", cfg.SnapshotDispatch)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorContext(ctx, "Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.InfoContext(ctx, "Server stopped gracefully")
}
