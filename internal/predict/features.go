// internal/predict/features.go
package predict

import (
	"fmt"
	"math"

	"github.com/dstanton/oanda-tradebot/internal/candle"
)

// pipScale converts the raw distance to the middle band into the pip unit
// used during training.
const pipScale = 10000

// Vector assembles the model input for one decision in the order given by
// names. upperBreak selects the break_type encoding (1 upper, 0 lower).
// Any NaN in the result is an error: the model must never see an
// incomplete row.
func Vector(row candle.Row, upperBreak bool, names []string) ([]float64, error) {
	breakType := 0.0
	if upperBreak {
		breakType = 1.0
	}

	// Distance to the middle band in training pips: the reversion target.
	profitPotential := math.NaN()
	if !math.IsNaN(row.Close) && !math.IsNaN(row.BBMiddle) {
		if upperBreak {
			profitPotential = (row.Close - row.BBMiddle) * pipScale
		} else {
			profitPotential = (row.BBMiddle - row.Close) * pipScale
		}
	}

	values := map[string]float64{
		"bb_percent":       row.BBPercent,
		"rsi":              row.RSI,
		"macd":             row.MACD,
		"macd_signal":      row.MACDSignal,
		"price_change_1":   row.PriceChange1,
		"price_change_5":   row.PriceChange5,
		"volatility":       row.Volatility,
		"volume_ratio":     row.VolumeRatio,
		"hour":             float64(row.Hour),
		"day_of_week":      float64(row.DayOfWeek),
		"break_type":       breakType,
		"profit_potential": profitPotential,
	}

	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("model expects unknown feature %q", name)
		}
		if math.IsNaN(v) {
			return nil, fmt.Errorf("feature %q is NaN for candle at %s", name, row.Time)
		}
		out[i] = v
	}
	return out, nil
}
