package candle

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Params are the indicator periods. They must match the ones the model
// was trained with.
type Params struct {
	BollingerPeriod  int
	BollingerStdDev  float64
	RSIPeriod        int
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int
}

// DefaultParams mirrors the training configuration.
func DefaultParams() Params {
	return Params{
		BollingerPeriod:  20,
		BollingerStdDev:  2.0,
		RSIPeriod:        14,
		MACDFastPeriod:   12,
		MACDSlowPeriod:   26,
		MACDSignalPeriod: 9,
	}
}

const (
	volumeSMAPeriod  = 20
	volatilityPeriod = 20
)

// Row is a candle enriched with every model feature. Values are NaN while
// their rolling window has not filled; callers must check before use.
type Row struct {
	Candle

	BBMiddle  float64
	BBUpper   float64
	BBLower   float64
	BBPercent float64

	RSI        float64
	MACD       float64
	MACDSignal float64

	VolumeSMA   float64
	VolumeRatio float64

	PriceChange1 float64
	PriceChange5 float64
	Volatility   float64

	Hour      int
	DayOfWeek int // Monday = 0
}

// BandsReady reports whether the Bollinger values of the row are usable.
func (r Row) BandsReady() bool {
	return !math.IsNaN(r.BBUpper) && !math.IsNaN(r.BBLower) && !math.IsNaN(r.BBMiddle)
}

// Enrich computes all indicators over the series. The output has one row
// per input candle, in order.
func Enrich(s Series, p Params) []Row {
	n := len(s)
	rows := make([]Row, n)
	if n == 0 {
		return rows
	}

	closes := s.Closes()
	volumes := s.Volumes()

	bbMiddle := rollingMean(closes, p.BollingerPeriod)
	bbStd := rollingStd(closes, p.BollingerPeriod)

	rsi := relativeStrength(closes, p.RSIPeriod)

	emaFast := ema(closes, p.MACDFastPeriod)
	emaSlow := ema(closes, p.MACDSlowPeriod)
	macd := make([]float64, n)
	for i := range macd {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	macdSignal := ema(macd, p.MACDSignalPeriod)

	volSMA := rollingMeanPartial(volumes, volumeSMAPeriod)
	change1 := pctChange(closes, 1)
	change5 := pctChange(closes, 5)
	volatility := rollingStdPartial(closes, volatilityPeriod)

	for i := 0; i < n; i++ {
		r := Row{Candle: s[i]}

		r.BBMiddle = bbMiddle[i]
		r.BBUpper = bbMiddle[i] + bbStd[i]*p.BollingerStdDev
		r.BBLower = bbMiddle[i] - bbStd[i]*p.BollingerStdDev
		bandRange := r.BBUpper - r.BBLower
		if bandRange == 0 {
			r.BBPercent = math.NaN()
		} else {
			r.BBPercent = (s[i].Close - r.BBLower) / bandRange
		}

		r.RSI = rsi[i]
		r.MACD = macd[i]
		r.MACDSignal = macdSignal[i]

		r.VolumeSMA = volSMA[i]
		if volSMA[i] == 0 {
			r.VolumeRatio = math.NaN()
		} else {
			r.VolumeRatio = volumes[i] / volSMA[i]
		}

		r.PriceChange1 = change1[i]
		r.PriceChange5 = change5[i]
		r.Volatility = volatility[i]

		utc := s[i].Time.UTC()
		r.Hour = utc.Hour()
		r.DayOfWeek = (int(utc.Weekday()) + 6) % 7

		rows[i] = r
	}
	return rows
}

// rollingMean is a full-window rolling average: NaN until the window fills.
func rollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := window - 1; i < len(values); i++ {
		m, err := stats.Mean(values[i-window+1 : i+1])
		if err != nil {
			continue
		}
		out[i] = m
	}
	return out
}

// rollingStd is a full-window rolling sample standard deviation.
func rollingStd(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := window - 1; i < len(values); i++ {
		sd, err := stats.StandardDeviationSample(values[i-window+1 : i+1])
		if err != nil {
			continue
		}
		out[i] = sd
	}
	return out
}

// rollingMeanPartial averages the trailing window, shrinking it at the
// start of the series and skipping NaN inputs.
func rollingMeanPartial(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		var sum float64
		var count int
		for _, v := range values[lo : i+1] {
			if math.IsNaN(v) {
				continue
			}
			sum += v
			count++
		}
		if count > 0 {
			out[i] = sum / float64(count)
		}
	}
	return out
}

// rollingStdPartial is the sample standard deviation over the trailing
// window; at least two observations are needed for a value.
func rollingStdPartial(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		clean := make([]float64, 0, i+1-lo)
		for _, v := range values[lo : i+1] {
			if !math.IsNaN(v) {
				clean = append(clean, v)
			}
		}
		if len(clean) < 2 {
			continue
		}
		sd, err := stats.StandardDeviationSample(clean)
		if err != nil {
			continue
		}
		out[i] = sd
	}
	return out
}

// ema is the recursive exponential moving average seeded with the first
// value (pandas ewm with adjust=false).
func ema(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// pctChange is the fractional change over n candles.
func pctChange(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	for i := n; i < len(values); i++ {
		if values[i-n] == 0 {
			continue
		}
		out[i] = (values[i] - values[i-n]) / values[i-n]
	}
	return out
}

// relativeStrength computes RSI from simple averages of gains and losses
// over the trailing period, shrinking the window at the start. The first
// value is always NaN (no delta); an all-flat window is NaN (0/0).
func relativeStrength(closes []float64, period int) []float64 {
	n := len(closes)
	gains := nanSlice(n)
	losses := nanSlice(n)
	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i], losses[i] = delta, 0
		} else {
			gains[i], losses[i] = 0, -delta
		}
	}

	avgGain := rollingMeanPartial(gains, period)
	avgLoss := rollingMeanPartial(losses, period)

	out := nanSlice(n)
	for i := 0; i < n; i++ {
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
