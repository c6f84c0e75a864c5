// internal/export/export.go
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/candle"
)

// pageSize is the OANDA candle count limit per request.
const pageSize = 5000

// CandleFetcher pages candles forward from a start time. Satisfied by
// the broker client.
type CandleFetcher interface {
	CandlesFrom(ctx context.Context, instrument, granularity string, from time.Time, count int) (candle.Series, error)
}

// Options configures a history pull.
type Options struct {
	Instrument  string
	Granularity string
	From        time.Time
	To          time.Time // zero means yesterday
	OutputDir   string
}

// csvCandle is the CSV row layout for exported candles.
type csvCandle struct {
	Time   string  `csv:"dt"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume int64   `csv:"volume"`
}

// HistoryExporter pulls historical candles and writes them to CSV.
type HistoryExporter struct {
	fetcher CandleFetcher
	logger  *zap.Logger
}

// NewHistoryExporter builds an exporter over the given fetcher.
func NewHistoryExporter(fetcher CandleFetcher, logger *zap.Logger) *HistoryExporter {
	return &HistoryExporter{
		fetcher: fetcher,
		logger:  logger.Named("export"),
	}
}

// Pull pages candles from options.From until options.To (yesterday by
// default), advancing each page from the last received timestamp.
func (e *HistoryExporter) Pull(ctx context.Context, options Options) (candle.Series, error) {
	until := options.To
	if until.IsZero() {
		until = time.Now().UTC().AddDate(0, 0, -1)
	}

	var all candle.Series
	from := options.From

	for {
		page, err := e.fetcher.CandlesFrom(ctx, options.Instrument, options.Granularity, from, pageSize)
		if err != nil {
			return nil, fmt.Errorf("pull candles from %s: %w", from.Format(time.RFC3339), err)
		}
		if len(page) == 0 {
			break
		}

		// Drop the overlap candle when pages share a boundary.
		if len(all) > 0 && !page[0].Time.After(all.Last().Time) {
			page = page[1:]
			if len(page) == 0 {
				break
			}
		}
		all = append(all, page...)

		last := all.Last().Time
		e.logger.Info("Fetched candle page",
			zap.String("instrument", options.Instrument),
			zap.Int("candles", len(all)),
			zap.Time("through", last))

		if !last.After(from) || last.After(until) {
			break
		}
		from = last
	}

	return all, nil
}

// WriteCSV writes the series to <output_dir>/<instrument>_<granularity>.csv
// and returns the file path.
func (e *HistoryExporter) WriteCSV(series candle.Series, options Options) (string, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("no candles to export")
	}

	rows := make([]csvCandle, 0, len(series))
	for _, c := range series {
		rows = append(rows, csvCandle{
			Time:   c.Time.UTC().Format(time.RFC3339),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}

	outputDir := options.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.csv", options.Instrument, options.Granularity)
	outputPath := filepath.Join(outputDir, filename)

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}

	e.logger.Info("Candle history exported",
		zap.String("path", outputPath),
		zap.Int("candles", len(rows)))
	return outputPath, nil
}
