// internal/monitor/snapshot.go
package monitor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dstanton/oanda-tradebot/internal/broker"
)

// closedTradeLimit bounds how much history the monitor shows.
const closedTradeLimit = 20

// AccountReader is the read-only slice of the broker client the monitor
// polls.
type AccountReader interface {
	AccountSummary(ctx context.Context) (*broker.AccountSummary, error)
	OpenTrades(ctx context.Context) ([]broker.Trade, error)
	ClosedTrades(ctx context.Context, count int) ([]broker.Trade, error)
}

// Snapshot is one refresh of everything the monitor displays.
type Snapshot struct {
	Summary   *broker.AccountSummary
	Open      []broker.Trade
	Closed    []broker.Trade
	FetchedAt time.Time
}

// Fetch gathers summary, open trades and recent closed trades
// concurrently. Any failing fetch fails the whole snapshot.
func Fetch(ctx context.Context, reader AccountReader) (*Snapshot, error) {
	snap := &Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := reader.AccountSummary(gctx)
		if err != nil {
			return err
		}
		snap.Summary = summary
		return nil
	})
	g.Go(func() error {
		open, err := reader.OpenTrades(gctx)
		if err != nil {
			return err
		}
		snap.Open = open
		return nil
	})
	g.Go(func() error {
		closed, err := reader.ClosedTrades(gctx, closedTradeLimit)
		if err != nil {
			return err
		}
		snap.Closed = closed
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.FetchedAt = time.Now()
	return snap, nil
}
