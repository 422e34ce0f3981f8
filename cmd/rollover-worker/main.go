package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wealthpillar/internal/amqp"
	"wealthpillar/internal/cli"
	"wealthpillar/internal/core"
	"wealthpillar/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting rollover-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	calendar := cli.InitCalendar(logger, cfg.HolidayCalendarFile)

	// Closed periods are published so the report-worker can append them
	// to the spreadsheet. Without AMQP the rollover still runs.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized - closed periods will be reported")
		}
	} else {
		logger.Info("AMQP disabled - closed periods will not be reported")
	}

	service := services.NewCycleService(sqliteRepo, calendar, amqpClient)
	processor := services.NewRolloverProcessor(sqliteRepo, calendar, service, cfg.ExceptionRetentionDays)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Rollover processor configured",
		"interval", cfg.RolloverInterval,
		"retention_days", cfg.ExceptionRetentionDays,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.RolloverInterval)
	defer ticker.Stop()

	// Run an initial pass on startup so restarts never delay a rollover.
	logger.Info("Running initial rollover pass...")
	if count, err := processor.ProcessRollovers(ctx, core.Today()); err != nil {
		logger.Error("Initial rollover pass failed", "error", err)
	} else {
		logger.Info("Initial rollover pass complete", "periods_closed", count)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Processing period rollovers...")
				count, err := processor.ProcessRollovers(ctx, core.Today())
				if err != nil {
					logger.Error("Rollover pass failed", "error", err)
				} else {
					logger.Info("Rollover pass complete",
						"periods_closed", count,
						"next_check", now.Add(cfg.RolloverInterval).Format("15:04:05"))
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down rollover-worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(2 * time.Second):
		logger.Info("Rollover-worker shutdown complete")
	}
}
