// internal/strategy/strategy.go
package strategy

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/broker"
	"github.com/dstanton/oanda-tradebot/internal/candle"
)

// Gate scores a candidate signal and decides whether it is worth trading.
// Implemented by the prediction model; faked in tests.
type Gate interface {
	Evaluate(row candle.Row, upperBreak bool) (probability float64, approved bool, err error)
}

// Decision is an approved trade with its protective prices already
// formatted for the broker.
type Decision struct {
	Instrument  string
	Side        broker.Side
	StopLoss    string
	TakeProfit  string
	Probability float64
	SignalTime  time.Time
}

// BollingerReversion trades reversions to the middle band after a close
// outside the Bollinger envelope, gated by the model.
//
// The signal is evaluated on the candle before last; features are taken
// from the last candle, matching how the model dataset was built. The
// take profit is the middle band, the stop loss a fixed pip offset from
// the feature candle's close.
type BollingerReversion struct {
	slPips float64
	gate   Gate
	logger *zap.Logger
}

// NewBollingerReversion builds the strategy.
func NewBollingerReversion(slPips float64, gate Gate, logger *zap.Logger) *BollingerReversion {
	return &BollingerReversion{
		slPips: slPips,
		gate:   gate,
		logger: logger.Named("strategy"),
	}
}

// Decide inspects the enriched series and returns a Decision, or nil when
// there is nothing to trade.
func (s *BollingerReversion) Decide(rows []candle.Row, inst broker.Instrument) (*Decision, error) {
	if len(rows) < 2 {
		s.logger.Debug("Not enough candles for a signal", zap.Int("rows", len(rows)))
		return nil, nil
	}

	signal := rows[len(rows)-2]
	feature := rows[len(rows)-1]

	if math.IsNaN(signal.Close) || !signal.BandsReady() {
		s.logger.Debug("Signal candle has incomplete bands", zap.Time("candle", signal.Time))
		return nil, nil
	}
	if math.IsNaN(feature.Close) || math.IsNaN(feature.BBMiddle) {
		s.logger.Debug("Feature candle missing close or middle band", zap.Time("candle", feature.Time))
		return nil, nil
	}

	upperBreak := signal.Close > signal.BBUpper
	lowerBreak := signal.Close < signal.BBLower
	if upperBreak == lowerBreak {
		// Neither band broken, or degenerate bands.
		return nil, nil
	}

	s.logger.Info("Bollinger band break detected",
		zap.String("instrument", inst.Name),
		zap.Time("candle", signal.Time),
		zap.Bool("upper", upperBreak))

	probability, approved, err := s.gate.Evaluate(feature, upperBreak)
	if err != nil {
		s.logger.Warn("Could not evaluate signal, skipping",
			zap.String("instrument", inst.Name),
			zap.Error(err))
		return nil, nil
	}
	if !approved {
		s.logger.Info("Model rejected signal",
			zap.String("instrument", inst.Name),
			zap.Float64("probability", probability))
		return nil, nil
	}

	slOffset := s.slPips * inst.PipValue()

	var side broker.Side
	var stopLoss float64
	if upperBreak {
		// Close above the upper band: expect reversion down.
		side = broker.Sell
		stopLoss = feature.Close + slOffset
	} else {
		side = broker.Buy
		stopLoss = feature.Close - slOffset
	}

	decision := &Decision{
		Instrument:  inst.Name,
		Side:        side,
		StopLoss:    inst.FormatPrice(stopLoss),
		TakeProfit:  inst.FormatPrice(feature.BBMiddle),
		Probability: probability,
		SignalTime:  signal.Time,
	}

	s.logger.Info("Trade signal approved",
		zap.String("instrument", inst.Name),
		zap.String("side", string(side)),
		zap.String("stop_loss", decision.StopLoss),
		zap.String("take_profit", decision.TakeProfit),
		zap.Float64("probability", probability))

	return decision, nil
}
