package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dstanton/oanda-tradebot/internal/candle"
)

// pagedFetcher serves a fixed history in pages, like the candles endpoint.
type pagedFetcher struct {
	history candle.Series
	limit   int
	calls   int
}

func (f *pagedFetcher) CandlesFrom(_ context.Context, _, _ string, from time.Time, count int) (candle.Series, error) {
	f.calls++
	limit := f.limit
	if limit <= 0 || limit > count {
		limit = count
	}
	var page candle.Series
	for _, c := range f.history {
		if c.Time.Before(from) {
			continue
		}
		page = append(page, c)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func history(n int) candle.Series {
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := make(candle.Series, n)
	for i := range s {
		s[i] = candle.Candle{
			Time:   t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:   1.08,
			High:   1.09,
			Low:    1.07,
			Close:  1.085,
			Volume: int64(100 + i),
		}
	}
	return s
}

func TestPullPagesThroughHistory(t *testing.T) {
	fetcher := &pagedFetcher{history: history(10), limit: 4}
	exporter := NewHistoryExporter(fetcher, zap.NewNop())

	got, err := exporter.Pull(context.Background(), Options{
		Instrument:  "EUR_USD",
		Granularity: "M15",
		From:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// All 10 candles collected exactly once despite page overlaps.
	require.Len(t, got, 10)
	seen := map[time.Time]bool{}
	for _, c := range got {
		assert.False(t, seen[c.Time], "duplicate candle at %s", c.Time)
		seen[c.Time] = true
	}
	assert.Greater(t, fetcher.calls, 1)
}

func TestPullEmptyHistory(t *testing.T) {
	fetcher := &pagedFetcher{}
	exporter := NewHistoryExporter(fetcher, zap.NewNop())

	got, err := exporter.Pull(context.Background(), Options{
		Instrument:  "EUR_USD",
		Granularity: "M15",
		From:        time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteCSV(t *testing.T) {
	exporter := NewHistoryExporter(&pagedFetcher{}, zap.NewNop())
	dir := t.TempDir()

	path, err := exporter.WriteCSV(history(3), Options{
		Instrument:  "EUR_USD",
		Granularity: "M15",
		OutputDir:   dir,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "EUR_USD_M15.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4) // header + 3 rows
	assert.Equal(t, "dt,open,high,low,close,volume", lines[0])
	assert.Contains(t, lines[1], "2024-06-01T00:00:00Z")
	assert.Contains(t, lines[1], "100")
}

func TestWriteCSVEmptySeries(t *testing.T) {
	exporter := NewHistoryExporter(&pagedFetcher{}, zap.NewNop())
	_, err := exporter.WriteCSV(nil, Options{Instrument: "EUR_USD", Granularity: "M15"})
	require.Error(t, err)
}
