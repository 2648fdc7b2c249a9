package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"saldo/internal/amqp"
	"saldo/internal/config"
	"saldo/internal/log"
	"saldo/internal/remote"
	remotememory "saldo/internal/remote/memory"
	"saldo/internal/remote/sheets"
	"saldo/internal/store"
	"saldo/internal/store/memory"
	"saldo/internal/store/sqlite"
	"saldo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	logger.Info("Starting saldo-worker", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	// The worker reads the same store the API writes to.
	var (
		st  store.Store
		err error
	)
	switch cfg.DataBackend {
	case "sqlite":
		st, err = sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
	default:
		st = memory.NewFromFile("data/saldo.json")
	}
	defer st.Close()

	// Push target: Google Sheets when configured, otherwise an in-memory
	// sink so the worker still drains the queue.
	var pusher remote.Pusher
	if cfg.GoogleSpreadsheetID != "" {
		client, err := sheets.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		pusher = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		pusher = remotememory.New()
		logger.Info("Remote sync disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(st, pusher, logger, cfg.SyncInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerSync(ctx, func(msg *amqp.LedgerSyncMessage) error {
			return syncWorker.HandleMessage(ctx, msg)
		})
	})
	g.Go(func() error {
		return syncWorker.RunPeriodic(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
