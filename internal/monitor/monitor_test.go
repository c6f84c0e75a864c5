// internal/monitor/monitor_test.go
package monitor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstanton/oanda-tradebot/internal/broker"
)

type fakeReader struct {
	summary    *broker.AccountSummary
	summaryErr error
	open       []broker.Trade
	closed     []broker.Trade
}

func (f *fakeReader) AccountSummary(context.Context) (*broker.AccountSummary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeReader) OpenTrades(context.Context) ([]broker.Trade, error) {
	return f.open, nil
}

func (f *fakeReader) ClosedTrades(context.Context, int) ([]broker.Trade, error) {
	return f.closed, nil
}

func testReader() *fakeReader {
	return &fakeReader{
		summary: &broker.AccountSummary{
			ID:             "101-004-1234567-001",
			Currency:       "EUR",
			Balance:        10000.50,
			NAV:            10012.25,
			PL:             125.40,
			UnrealizedPL:   -3.15,
			OpenTradeCount: 1,
		},
		open: []broker.Trade{
			{ID: "42", Instrument: "EUR_USD", Price: 1.08512, InitialUnits: 1000, UnrealizedPL: -3.15},
		},
		closed: []broker.Trade{
			{ID: "40", Instrument: "EUR_USD", Price: 1.08100, InitialUnits: -1000, RealizedPL: 12.30},
		},
	}
}

func TestFetchGathersAllSections(t *testing.T) {
	snap, err := Fetch(context.Background(), testReader())
	require.NoError(t, err)

	assert.Equal(t, 10000.50, snap.Summary.Balance)
	assert.Len(t, snap.Open, 1)
	assert.Len(t, snap.Closed, 1)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestFetchPropagatesError(t *testing.T) {
	reader := testReader()
	reader.summaryErr = fmt.Errorf("503 service unavailable")

	_, err := Fetch(context.Background(), reader)
	require.Error(t, err)
}

func TestModelViewAfterSnapshot(t *testing.T) {
	model := NewModel(testReader(), "101-004-1234567-001")

	snap, err := Fetch(context.Background(), testReader())
	require.NoError(t, err)
	updated, _ := model.Update(snapshotMsg{snap: snap})
	model = updated.(*Model)

	view := model.View()
	assert.Contains(t, view, "101-004-1234567-001")
	assert.Contains(t, view, "10000.50")
	assert.Contains(t, view, "EUR_USD")
	assert.Contains(t, view, "Open Trades (1)")
	assert.Contains(t, view, "Recently Closed (1)")
}

func TestModelQuitKey(t *testing.T) {
	model := NewModel(testReader(), "acct")

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModelShowsFetchError(t *testing.T) {
	model := NewModel(testReader(), "acct")

	updated, _ := model.Update(fetchErrMsg{err: fmt.Errorf("timeout")})
	model = updated.(*Model)

	assert.True(t, strings.Contains(model.View(), "timeout"))
}
