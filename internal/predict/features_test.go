package predict

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstanton/oanda-tradebot/internal/candle"
)

func completeRow() candle.Row {
	return candle.Row{
		Candle: candle.Candle{
			Time:  time.Date(2024, 6, 3, 13, 0, 0, 0, time.UTC),
			Close: 1.0920,
		},
		BBMiddle:     1.0900,
		BBUpper:      1.0915,
		BBLower:      1.0885,
		BBPercent:    1.17,
		RSI:          71.5,
		MACD:         0.0004,
		MACDSignal:   0.0002,
		VolumeRatio:  1.3,
		PriceChange1: 0.001,
		PriceChange5: 0.004,
		Volatility:   0.0007,
		Hour:         13,
		DayOfWeek:    0,
	}
}

func TestVectorOrderingAndBreakType(t *testing.T) {
	names := []string{"break_type", "rsi", "profit_potential", "hour"}

	vec, err := Vector(completeRow(), true, names)
	require.NoError(t, err)
	require.Len(t, vec, 4)

	assert.InDelta(t, 1.0, vec[0], 1e-9)
	assert.InDelta(t, 71.5, vec[1], 1e-9)
	// Upper break: (close - middle) * 1e4
	assert.InDelta(t, 20.0, vec[2], 1e-6)
	assert.InDelta(t, 13.0, vec[3], 1e-9)

	vec, err = Vector(completeRow(), false, names)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, vec[0], 1e-9)
	// Lower break flips the sign of the reversion distance.
	assert.InDelta(t, -20.0, vec[2], 1e-6)
}

func TestVectorRejectsNaN(t *testing.T) {
	row := completeRow()
	row.RSI = math.NaN()

	_, err := Vector(row, true, []string{"bb_percent", "rsi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"rsi"`)
}

func TestVectorRejectsUnknownFeature(t *testing.T) {
	_, err := Vector(completeRow(), true, []string{"atr"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown feature")
}

func TestVectorSkipsUnrequestedNaN(t *testing.T) {
	// A NaN in a feature the model never asks for is fine.
	row := completeRow()
	row.VolumeRatio = math.NaN()

	vec, err := Vector(row, true, []string{"rsi", "macd"})
	require.NoError(t, err)
	assert.Len(t, vec, 2)
}
