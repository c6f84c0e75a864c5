package candle

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesFromCloses(t0 time.Time, closes ...float64) Series {
	s := make(Series, len(closes))
	for i, c := range closes {
		s[i] = Candle{
			Time:     t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   100,
			Complete: true,
		}
	}
	return s
}

func testParams() Params {
	p := DefaultParams()
	p.BollingerPeriod = 3
	p.RSIPeriod = 3
	return p
}

func TestBollingerBands(t *testing.T) {
	s := seriesFromCloses(time.Now(), 1, 2, 3, 4)
	rows := Enrich(s, testParams())

	// Window not filled yet.
	assert.False(t, rows[0].BandsReady())
	assert.False(t, rows[1].BandsReady())

	// mean(1,2,3) = 2, sample std = 1
	require.True(t, rows[2].BandsReady())
	assert.InDelta(t, 2.0, rows[2].BBMiddle, 1e-9)
	assert.InDelta(t, 4.0, rows[2].BBUpper, 1e-9)
	assert.InDelta(t, 0.0, rows[2].BBLower, 1e-9)
	// %B = (close - lower) / (upper - lower) = (3 - 0) / 4
	assert.InDelta(t, 0.75, rows[2].BBPercent, 1e-9)

	// mean(2,3,4) = 3, sample std = 1
	assert.InDelta(t, 3.0, rows[3].BBMiddle, 1e-9)
	assert.InDelta(t, 5.0, rows[3].BBUpper, 1e-9)
	assert.InDelta(t, 1.0, rows[3].BBLower, 1e-9)
}

func TestBollingerPercentFlatWindow(t *testing.T) {
	s := seriesFromCloses(time.Now(), 5, 5, 5, 5)
	rows := Enrich(s, testParams())

	// Zero band width: %B undefined.
	require.True(t, rows[3].BandsReady())
	assert.True(t, math.IsNaN(rows[3].BBPercent))
}

func TestRSIExtremes(t *testing.T) {
	up := seriesFromCloses(time.Now(), 1, 2, 3, 4, 5)
	rows := Enrich(up, testParams())
	assert.True(t, math.IsNaN(rows[0].RSI))
	assert.InDelta(t, 100.0, rows[4].RSI, 1e-9)

	down := seriesFromCloses(time.Now(), 5, 4, 3, 2, 1)
	rows = Enrich(down, testParams())
	assert.InDelta(t, 0.0, rows[4].RSI, 1e-9)

	flat := seriesFromCloses(time.Now(), 3, 3, 3, 3)
	rows = Enrich(flat, testParams())
	assert.True(t, math.IsNaN(rows[3].RSI))
}

func TestEMARecursion(t *testing.T) {
	// span 3 -> alpha 0.5
	got := ema([]float64{2, 4, 4}, 3)
	assert.InDelta(t, 2.0, got[0], 1e-9)
	assert.InDelta(t, 3.0, got[1], 1e-9)
	assert.InDelta(t, 3.5, got[2], 1e-9)
}

func TestPriceChanges(t *testing.T) {
	s := seriesFromCloses(time.Now(), 100, 110, 121, 121, 121, 121)
	rows := Enrich(s, testParams())

	assert.True(t, math.IsNaN(rows[0].PriceChange1))
	assert.InDelta(t, 0.10, rows[1].PriceChange1, 1e-9)
	assert.InDelta(t, 0.10, rows[2].PriceChange1, 1e-9)

	assert.True(t, math.IsNaN(rows[4].PriceChange5))
	assert.InDelta(t, 0.21, rows[5].PriceChange5, 1e-9)
}

func TestVolumeRatio(t *testing.T) {
	s := seriesFromCloses(time.Now(), 1, 2, 3, 4)
	s[3].Volume = 300 // others are 100

	rows := Enrich(s, testParams())
	assert.InDelta(t, 1.0, rows[1].VolumeRatio, 1e-9)
	// sma(100,100,100,300) = 150; ratio = 300/150
	assert.InDelta(t, 2.0, rows[3].VolumeRatio, 1e-9)
}

func TestVolatilityNeedsTwoSamples(t *testing.T) {
	s := seriesFromCloses(time.Now(), 1, 3)
	rows := Enrich(s, testParams())

	assert.True(t, math.IsNaN(rows[0].Volatility))
	// sample std of (1, 3)
	assert.InDelta(t, math.Sqrt2, rows[1].Volatility, 1e-9)
}

func TestTimeFeatures(t *testing.T) {
	// 2024-06-03 is a Monday.
	t0 := time.Date(2024, 6, 3, 13, 45, 0, 0, time.UTC)
	rows := Enrich(seriesFromCloses(t0, 1), testParams())

	assert.Equal(t, 13, rows[0].Hour)
	assert.Equal(t, 0, rows[0].DayOfWeek)

	sunday := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	rows = Enrich(seriesFromCloses(sunday, 1), testParams())
	assert.Equal(t, 6, rows[0].DayOfWeek)
}

func TestMACDUsesConfiguredSpans(t *testing.T) {
	p := testParams()
	p.MACDFastPeriod = 3
	p.MACDSlowPeriod = 5

	s := seriesFromCloses(time.Now(), 1, 2, 3, 4, 5, 6)
	rows := Enrich(s, p)

	// Fast EMA tracks price more closely than slow on a rising series,
	// so MACD is positive and the signal lags it.
	last := rows[len(rows)-1]
	assert.Greater(t, last.MACD, 0.0)
	assert.Greater(t, last.MACD, last.MACDSignal)
}
