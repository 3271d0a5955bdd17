package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"zakatledger/internal/amqp"
	"zakatledger/internal/cli"
	"zakatledger/internal/fiscal"
	"zakatledger/internal/log"
	"zakatledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.InfoContext(context.Background(), "Starting snapshot-worker")

	app := cli.Bootstrap(context.Background(), logger, cfg)
	defer app.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		snapshotWorker := worker.NewSnapshotWorker(app.Snapshots, cfg.SnapshotTimeout)
		g.Go(func() error {
			err := amqpClient.ConsumeSnapshotJobs(gctx, snapshotWorker.HandleSnapshotJob)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		logger.InfoContext(ctx, "Consuming snapshot jobs", "queue", cfg.AMQPQueue)
	} else {
		logger.InfoContext(ctx, "Skipping snapshot job consumption - no AMQP_URL provided")
	}

	source, err := cli.NewConfigSource(ctx, cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize commission config source", log.FieldError, err)
		os.Exit(1)
	}
	if source != nil {
		importer := fiscal.NewImporter(source, app.Configs)
		g.Go(func() error {
			importer.Run(gctx, cfg.ConfigImportInterval)
			return nil
		})
		logger.InfoContext(ctx, "Importing commission configs",
			"source", source.Name(),
			"interval", cfg.ConfigImportInterval)
	} else {
		logger.InfoContext(ctx, "Skipping commission config import - no source configured")
	}

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "Snapshot worker failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.InfoContext(context.Background(), "Snapshot-worker shutdown complete")
}
