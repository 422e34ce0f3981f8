package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"wealthpillar/internal/amqp"
	"wealthpillar/internal/cli"
	"wealthpillar/internal/core"
	applog "wealthpillar/internal/log"
	ports "wealthpillar/internal/sheets"
	gsheet "wealthpillar/internal/sheets/google"
	mem "wealthpillar/internal/sheets/memory"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting report-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pick the report sink: Google Sheets when a spreadsheet is
	// configured, otherwise an in-memory store for local runs.
	var writer ports.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.ReportSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = sheetsClient
		logger.Info("Google Sheets report sink initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = mem.New()
		logger.Warn("No GOOGLE_SPREADSHEET_ID provided - period reports stay in memory")
	}

	// AMQP is the only input of this worker, so a broker is required.
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumePeriodClosed(gctx, func(msg *amqp.PeriodClosedMessage) error {
			report := ports.PeriodReport{
				PersonID:   msg.PersonID,
				PersonName: msg.PersonName,
				Start:      msg.StartDate,
				End:        msg.EndDate,
				Spent:      core.Money{Cents: msg.SpentCents},
			}
			rowRef, err := writer.AppendPeriodReport(gctx, report)
			if err != nil {
				logger.Error("Failed to append period report",
					applog.FieldError, err.Error(),
					applog.FieldPersonID, msg.PersonID,
					applog.FieldWindowStart, msg.StartDate.String(),
					applog.FieldWindowEnd, msg.EndDate.String())
				return err
			}
			logger.Info("Period report appended",
				applog.FieldPersonID, msg.PersonID,
				applog.FieldWindowStart, msg.StartDate.String(),
				applog.FieldWindowEnd, msg.EndDate.String(),
				applog.FieldAmountCents, msg.SpentCents,
				applog.FieldSheetsRef, rowRef)
			return nil
		})
	})

	logger.Info("Consuming period close events", "queue", cfg.AMQPQueue)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Report-worker stopped gracefully")
}
