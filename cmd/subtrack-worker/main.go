package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"subtrack/internal/amqp"
	"subtrack/internal/config"
	gsheet "subtrack/internal/export/google"
	applog "subtrack/internal/log"
	"subtrack/internal/storage"
	"subtrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting subtrack-worker", applog.FieldOperation, applog.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if cfg.ExportSpreadsheetID == "" {
		logger.Error("EXPORT_SPREADSHEET_ID is required for the export worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheetsClient, err := gsheet.NewClient(context.Background(), cfg.ExportSpreadsheetID, cfg.ExportSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.ExportSpreadsheetID,
		"sheet", cfg.ExportSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, sheetsClient)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			err := amqpClient.ConsumeSubscriptionEvents(gctx, func(msg *amqp.SubscriptionEventMessage) error {
				return exportWorker.HandleEventMessage(gctx, msg)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}

			// A dropped connection means the consume channel closed.
			// Reconnect and resume; anything else is fatal.
			logger.Error("Message consumption stopped",
				applog.FieldOperation, applog.OpSync, "error", err)
			select {
			case <-gctx.Done():
				return nil
			case <-time.After(cfg.ExportRetryInterval):
			}
			if err := amqpClient.Reconnect(gctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}

	// Give in-flight handlers a moment before closing connections.
	time.Sleep(time.Second)
	logger.Info("Worker shutdown complete", applog.FieldOperation, applog.OpShutdown)
}
