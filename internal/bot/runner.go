// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/broker"
	"github.com/dstanton/oanda-tradebot/internal/candle"
	"github.com/dstanton/oanda-tradebot/internal/config"
	"github.com/dstanton/oanda-tradebot/internal/events"
	"github.com/dstanton/oanda-tradebot/internal/logger"
	"github.com/dstanton/oanda-tradebot/internal/notify"
	"github.com/dstanton/oanda-tradebot/internal/predict"
	"github.com/dstanton/oanda-tradebot/internal/scheduler"
	"github.com/dstanton/oanda-tradebot/internal/storage"
	"github.com/dstanton/oanda-tradebot/internal/storage/models"
	"github.com/dstanton/oanda-tradebot/internal/strategy"
)

const (
	eventBufferSize  = 64
	closedTradeSync  = 50
	shutdownDrainMax = 5 * time.Second
)

// closedTradeReader is the slice of the broker client the closed-trade
// sync needs.
type closedTradeReader interface {
	ClosedTrades(ctx context.Context, count int) ([]broker.Trade, error)
}

// Runner owns the full bot lifecycle: it wires the broker client, model,
// strategy, event bus, notifier and storage, then runs trading cycles
// either once or on the candle schedule.
type Runner struct {
	cfg        *config.Config
	log        *logger.Logger
	trades     closedTradeReader
	service    *TradingService
	bus        *events.Bus
	notifier   *notify.Notifier
	store      storage.Storage
	shutdownCh chan os.Signal
}

// NewRunner builds a fully wired runner from the configuration.
func NewRunner(cfg *config.Config, log *logger.Logger) (*Runner, error) {
	client := broker.New(broker.Config{
		APIKey:      cfg.APIKey,
		AccountID:   cfg.AccountID,
		Environment: broker.Environment(cfg.Environment),
		Retries:     cfg.Retries,
	}, log.Logger)

	model, err := predict.Load(cfg.ModelPath, cfg.ModelFeaturesPath, cfg.PredictionThreshold, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	strat := strategy.NewBollingerReversion(cfg.StopLossPips, model, log.Logger)

	bus := events.NewBus(log.Logger, eventBufferSize)

	emailer := notify.NewEmailer(notify.EmailConfig{
		Enabled:   cfg.EmailEnabled,
		Sender:    cfg.EmailSender,
		Recipient: cfg.EmailRecipient,
		SMTPHost:  cfg.SMTPHost,
		SMTPPort:  cfg.SMTPPort,
		Password:  cfg.EmailAppPassword,
	}, log.Logger)
	webhook := notify.NewWebhook(cfg.WebhookURL, log.Logger)
	notifier := notify.NewNotifier(emailer, webhook, bus, log.Logger)
	notifier.Register()

	store, err := openStorage(cfg, log.Logger)
	if err != nil {
		return nil, err
	}

	params := candle.Params{
		BollingerPeriod:  cfg.BollingerPeriod,
		BollingerStdDev:  cfg.BollingerStdDev,
		RSIPeriod:        cfg.RSIPeriod,
		MACDFastPeriod:   cfg.MACDFastPeriod,
		MACDSlowPeriod:   cfg.MACDSlowPeriod,
		MACDSignalPeriod: cfg.MACDSignalPeriod,
	}

	service := NewTradingService(&TradingServiceConfig{
		Broker:      client,
		Strategy:    strat,
		Params:      params,
		Bus:         bus,
		Store:       store,
		Logger:      log,
		Instruments: cfg.Instruments,
		Granularity: cfg.CandleGranularity,
		CandleCount: cfg.CandlesToFetch,
		TradeUnits:  cfg.TradeUnits,
		Workers:     cfg.Workers,
	})

	return &Runner{
		cfg:        cfg,
		log:        log,
		trades:     client,
		service:    service,
		bus:        bus,
		notifier:   notifier,
		store:      store,
		shutdownCh: make(chan os.Signal, 1),
	}, nil
}

// newStorage is swapped out in tests.
var newStorage = defaultStorage

// openStorage connects and migrates the optional Postgres store. An empty
// URL disables persistence.
func openStorage(cfg *config.Config, log *zap.Logger) (storage.Storage, error) {
	if cfg.PostgresURL == "" {
		return nil, nil
	}
	store, err := newStorage(cfg.PostgresURL, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.RunMigrations(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// RunOnce executes a single trading cycle, the mode the scheduled-task
// deployment invokes every candle interval.
func (r *Runner) RunOnce(ctx context.Context) error {
	ctx, cancel := r.withSignals(ctx)
	defer cancel()
	defer r.close()

	result := r.service.RunCycle(ctx)
	r.syncClosedTrades(ctx)

	if err := ctx.Err(); err != nil {
		return err
	}
	if result.Errors > 0 {
		return fmt.Errorf("cycle finished with %d instrument errors", result.Errors)
	}
	return nil
}

// RunLoop keeps the process alive and fires a cycle shortly after each
// candle close until the context is cancelled or a signal arrives.
func (r *Runner) RunLoop(ctx context.Context) error {
	ctx, cancel := r.withSignals(ctx)
	defer cancel()
	defer r.close()

	sched := scheduler.New(r.cfg.GranularityDuration(), r.cfg.SchedulerSkew(), false, r.log.Logger)
	return sched.Run(ctx, func(cycleCtx context.Context) {
		r.service.RunCycle(cycleCtx)
		r.syncClosedTrades(cycleCtx)
	})
}

// syncClosedTrades mirrors recently closed trades into storage so realized
// P/L survives independently of the broker's retention.
func (r *Runner) syncClosedTrades(ctx context.Context) {
	if r.store == nil || ctx.Err() != nil {
		return
	}

	trades, err := r.trades.ClosedTrades(ctx, closedTradeSync)
	if err != nil {
		r.log.Warn("Closed trade sync failed", zap.Error(err))
		return
	}
	if len(trades) == 0 {
		return
	}

	now := time.Now().UTC()
	closed := make([]models.ClosedTrade, 0, len(trades))
	for _, t := range trades {
		closed = append(closed, models.ClosedTrade{
			TradeID:    t.ID,
			Instrument: t.Instrument,
			Units:      t.InitialUnits,
			Price:      t.Price,
			RealizedPL: t.RealizedPL,
			OpenTime:   t.OpenTime,
			CloseTime:  t.CloseTime,
			SyncedAt:   now,
		})
	}
	if err := r.store.UpsertClosedTrades(ctx, closed); err != nil {
		r.log.Warn("Closed trade upsert failed", zap.Error(err))
		return
	}
	r.log.Info("Closed trades synced", zap.Int("trades", len(closed)))
}

func (r *Runner) withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.log.Info("Signal received", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func (r *Runner) close() {
	done := make(chan struct{})
	go func() {
		r.bus.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownDrainMax):
		r.log.Warn("Event bus drain timed out")
	}

	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.log.Warn("Storage close failed", zap.Error(err))
		}
	}

	if err := r.log.Sync(); err != nil {
		if !os.IsNotExist(err) &&
			err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
		}
	}
}
