// cmd/pulldata/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/broker"
	"github.com/dstanton/oanda-tradebot/internal/config"
	"github.com/dstanton/oanda-tradebot/internal/export"
	"github.com/dstanton/oanda-tradebot/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to the config file")
	instrument := flag.String("instrument", "EUR_USD", "instrument to pull")
	granularity := flag.String("granularity", "M15", "candle granularity")
	from := flag.String("from", "2020-01-01", "start date (YYYY-MM-DD)")
	outDir := flag.String("out", "data", "output directory for the CSV")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	start, err := time.Parse("2006-01-02", *from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from date %q: %v\n", *from, err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{LogFile: cfg.LogFile, Development: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := broker.New(broker.Config{
		APIKey:      cfg.APIKey,
		AccountID:   cfg.AccountID,
		Environment: broker.Environment(cfg.Environment),
		Retries:     cfg.Retries,
	}, log.Logger)

	exporter := export.NewHistoryExporter(client, log.Logger)
	options := export.Options{
		Instrument:  *instrument,
		Granularity: *granularity,
		From:        start,
		OutputDir:   *outDir,
	}

	log.Info("Pulling candle history",
		zap.String("instrument", *instrument),
		zap.String("granularity", *granularity),
		zap.Time("from", start))

	series, err := exporter.Pull(ctx, options)
	if err != nil {
		log.Fatal("History pull failed", zap.Error(err))
	}

	path, err := exporter.WriteCSV(series, options)
	if err != nil {
		log.Fatal("CSV write failed", zap.Error(err))
	}

	log.Info("Export complete", zap.Int("candles", len(series)), zap.String("file", path))
}
