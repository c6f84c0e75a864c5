// cmd/monitor/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/broker"
	"github.com/dstanton/oanda-tradebot/internal/config"
	"github.com/dstanton/oanda-tradebot/internal/monitor"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal; keep log output away from it.
	client := broker.New(broker.Config{
		APIKey:      cfg.APIKey,
		AccountID:   cfg.AccountID,
		Environment: broker.Environment(cfg.Environment),
		Retries:     cfg.Retries,
	}, zap.NewNop())

	model := monitor.NewModel(client, cfg.AccountID)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor error: %v\n", err)
		os.Exit(1)
	}
}
