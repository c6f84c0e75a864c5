// internal/bot/trading_service.go
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/broker"
	"github.com/dstanton/oanda-tradebot/internal/candle"
	"github.com/dstanton/oanda-tradebot/internal/events"
	"github.com/dstanton/oanda-tradebot/internal/logger"
	"github.com/dstanton/oanda-tradebot/internal/storage"
	"github.com/dstanton/oanda-tradebot/internal/storage/models"
	"github.com/dstanton/oanda-tradebot/internal/strategy"
)

// minRows is the smallest enriched series worth evaluating: the slow
// indicator windows plus a few candles of slack.
const minRows = 30

// Broker is the slice of the OANDA client the trading cycle needs.
type Broker interface {
	InstrumentDetails(ctx context.Context, name string) (broker.Instrument, error)
	Candles(ctx context.Context, instrument, granularity string, count int) (candle.Series, error)
	OpenTrade(ctx context.Context, instrument string) (*broker.Trade, error)
	PlaceMarketOrder(ctx context.Context, ticket broker.OrderTicket) (*broker.OrderResult, error)
}

// Decider turns an enriched candle series into a trade decision.
type Decider interface {
	Decide(rows []candle.Row, inst broker.Instrument) (*strategy.Decision, error)
}

// TradingServiceConfig wires the collaborators of a TradingService.
type TradingServiceConfig struct {
	Broker      Broker
	Strategy    Decider
	Params      candle.Params
	Bus         *events.Bus
	Store       storage.Storage // nil disables persistence
	Logger      *logger.Logger
	Instruments []string
	Granularity string
	CandleCount int
	TradeUnits  int
	Workers     int
}

// TradingService runs one evaluation pass over the configured
// instruments: fetch candles, enrich, decide, place orders.
type TradingService struct {
	broker      Broker
	strategy    Decider
	params      candle.Params
	bus         *events.Bus
	store       storage.Storage
	log         *logger.Logger
	logger      *zap.Logger
	instruments []string
	granularity string
	candleCount int
	tradeUnits  int
	workers     int
}

// NewTradingService creates a trading service.
func NewTradingService(cfg *TradingServiceConfig) *TradingService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &TradingService{
		broker:      cfg.Broker,
		strategy:    cfg.Strategy,
		params:      cfg.Params,
		bus:         cfg.Bus,
		store:       cfg.Store,
		log:         cfg.Logger,
		logger:      cfg.Logger.Named("trading_service"),
		instruments: cfg.Instruments,
		granularity: cfg.Granularity,
		candleCount: cfg.CandleCount,
		tradeUnits:  cfg.TradeUnits,
		workers:     workers,
	}
}

// CycleResult aggregates what happened across all instruments in a pass.
type CycleResult struct {
	CycleID  string
	Signals  int
	Orders   int
	Skipped  int
	Errors   int
	Duration time.Duration
}

// RunCycle evaluates every configured instrument once. A failing
// instrument is counted and logged; it never aborts the cycle.
func (s *TradingService) RunCycle(ctx context.Context) CycleResult {
	cycleID := uuid.NewString()
	started := time.Now()
	logger := s.log.WithCycle(cycleID)

	logger.Info("Cycle started", zap.Strings("instruments", s.instruments))
	_ = s.bus.Publish(events.NewCycleStarted(cycleID, s.instruments))

	pool := newWorkerPool(s, cycleID, logger)
	outcomes := pool.run(ctx, s.instruments, s.workers)

	result := CycleResult{CycleID: cycleID}
	for _, o := range outcomes {
		if o.err != nil {
			result.Errors++
		}
		if o.signal {
			result.Signals++
		}
		if o.ordered {
			result.Orders++
		}
		if o.skipped {
			result.Skipped++
		}
	}
	result.Duration = time.Since(started)

	logger.Info("Cycle completed",
		zap.Int("signals", result.Signals),
		zap.Int("orders", result.Orders),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
		zap.Duration("duration", result.Duration))
	_ = s.bus.Publish(events.NewCycleCompleted(
		cycleID, result.Signals, result.Orders, result.Skipped, result.Errors, result.Duration))

	return result
}

// outcome is the result of evaluating a single instrument.
type outcome struct {
	instrument string
	signal     bool
	ordered    bool
	skipped    bool
	err        error
}

func (s *TradingService) processInstrument(ctx context.Context, cycleID, name string, logger *zap.Logger) outcome {
	out := outcome{instrument: name}

	inst, err := s.broker.InstrumentDetails(ctx, name)
	if err != nil {
		logger.Error("Instrument lookup failed", zap.Error(err))
		out.err = fmt.Errorf("instrument details: %w", err)
		return out
	}

	series, err := s.broker.Candles(ctx, name, s.granularity, s.candleCount)
	if err != nil {
		logger.Error("Candle fetch failed", zap.Error(err))
		out.err = fmt.Errorf("fetch candles: %w", err)
		return out
	}
	if len(series) < minRows {
		logger.Warn("Not enough candles to evaluate", zap.Int("candles", len(series)))
		return out
	}

	rows := candle.Enrich(series, s.params)
	decision, err := s.strategy.Decide(rows, inst)
	if err != nil {
		logger.Error("Strategy evaluation failed", zap.Error(err))
		out.err = fmt.Errorf("decide: %w", err)
		return out
	}
	if decision == nil {
		logger.Debug("No signal")
		return out
	}

	out.signal = true
	logger.Info("Signal detected",
		zap.String("side", string(decision.Side)),
		zap.Float64("probability", decision.Probability),
		zap.String("stop_loss", decision.StopLoss),
		zap.String("take_profit", decision.TakeProfit))
	_ = s.bus.Publish(events.NewSignalDetected(
		cycleID, name, decision.Side, decision.StopLoss, decision.TakeProfit, decision.Probability))

	// One position per instrument at a time.
	open, err := s.broker.OpenTrade(ctx, name)
	if err != nil {
		logger.Error("Open trade check failed", zap.Error(err))
		s.saveSignal(ctx, cycleID, decision, false, "open trade check failed")
		out.err = fmt.Errorf("open trade check: %w", err)
		return out
	}
	if open != nil {
		logger.Info("Skipping signal, trade already open", zap.String("trade_id", open.ID))
		_ = s.bus.Publish(events.NewTradeSkipped(cycleID, name, open.ID))
		s.saveSignal(ctx, cycleID, decision, false, "trade already open")
		out.skipped = true
		return out
	}

	s.saveSignal(ctx, cycleID, decision, true, "")

	ticket := broker.OrderTicket{
		Instrument: name,
		Units:      s.tradeUnits,
		Side:       decision.Side,
		StopLoss:   decision.StopLoss,
		TakeProfit: decision.TakeProfit,
	}
	result, err := s.broker.PlaceMarketOrder(ctx, ticket)
	if err != nil {
		logger.Error("Order placement failed", zap.Error(err))
		_ = s.bus.Publish(events.NewOrderRejected(cycleID, name, err.Error()))
		out.err = fmt.Errorf("place order: %w", err)
		return out
	}
	if !result.Executed() || result.CancelReason != "" {
		logger.Warn("Order cancelled by broker", zap.String("reason", result.CancelReason))
		_ = s.bus.Publish(events.NewOrderRejected(cycleID, name, result.CancelReason))
		return out
	}

	out.ordered = true
	logger.Info("Order filled",
		zap.String("transaction_id", result.FillTransactionID),
		zap.Float64("fill_price", result.FillPrice))
	_ = s.bus.Publish(events.NewOrderPlaced(
		cycleID, name, decision.Side, s.tradeUnits,
		decision.StopLoss, decision.TakeProfit,
		result.FillTransactionID, result.FillPrice))

	s.saveOrder(ctx, cycleID, decision, result)
	return out
}

func (s *TradingService) saveSignal(ctx context.Context, cycleID string, d *strategy.Decision, taken bool, skipReason string) {
	if s.store == nil {
		return
	}
	signal := &models.Signal{
		CycleID:     cycleID,
		Instrument:  d.Instrument,
		Side:        string(d.Side),
		Probability: d.Probability,
		StopLoss:    d.StopLoss,
		TakeProfit:  d.TakeProfit,
		Taken:       taken,
		SkipReason:  skipReason,
	}
	if err := s.store.SaveSignal(ctx, signal); err != nil {
		s.logger.Warn("Failed to persist signal", zap.String("instrument", d.Instrument), zap.Error(err))
	}
}

func (s *TradingService) saveOrder(ctx context.Context, cycleID string, d *strategy.Decision, r *broker.OrderResult) {
	if s.store == nil {
		return
	}
	order := &models.Order{
		CycleID:       cycleID,
		Instrument:    d.Instrument,
		Side:          string(d.Side),
		Units:         s.tradeUnits,
		StopLoss:      d.StopLoss,
		TakeProfit:    d.TakeProfit,
		TransactionID: r.FillTransactionID,
		FillPrice:     r.FillPrice,
	}
	if err := s.store.SaveOrder(ctx, order); err != nil {
		s.logger.Warn("Failed to persist order", zap.String("instrument", d.Instrument), zap.Error(err))
	}
}
