// cmd/tradebot/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/bot"
	"github.com/dstanton/oanda-tradebot/internal/config"
	"github.com/dstanton/oanda-tradebot/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to the config file")
	loop := flag.Bool("loop", false, "keep running and trade every candle interval")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.LogFile,
		MaxSize:     50,
		MaxAge:      14,
		MaxBackups:  3,
		Compress:    true,
		Development: cfg.DebugLogging,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting tradebot",
		zap.String("environment", cfg.Environment),
		zap.Strings("instruments", cfg.Instruments),
		zap.String("granularity", cfg.CandleGranularity),
		zap.Bool("loop", *loop))

	runner, err := bot.NewRunner(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize bot", zap.Error(err))
	}

	ctx := context.Background()
	if *loop {
		err = runner.RunLoop(ctx)
	} else {
		err = runner.RunOnce(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Bot execution error", zap.Error(err))
		os.Exit(1)
	}
}
