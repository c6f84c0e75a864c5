// internal/broker/trades.go
package broker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Trade is one position on the account, open or closed.
type Trade struct {
	ID           string
	Instrument   string
	Price        float64
	CurrentUnits float64
	InitialUnits float64
	RealizedPL   float64
	UnrealizedPL float64
	State        string
	OpenTime     time.Time
	CloseTime    time.Time
}

type tradeData struct {
	ID           string    `json:"id"`
	Instrument   string    `json:"instrument"`
	Price        string    `json:"price"`
	CurrentUnits string    `json:"currentUnits"`
	InitialUnits string    `json:"initialUnits"`
	RealizedPL   string    `json:"realizedPL"`
	UnrealizedPL string    `json:"unrealizedPL"`
	State        string    `json:"state"`
	OpenTime     time.Time `json:"openTime"`
	CloseTime    time.Time `json:"closeTime"`
}

func (d tradeData) toTrade() Trade {
	return Trade{
		ID:           d.ID,
		Instrument:   d.Instrument,
		Price:        parseFloatOrZero(d.Price),
		CurrentUnits: parseFloatOrZero(d.CurrentUnits),
		InitialUnits: parseFloatOrZero(d.InitialUnits),
		RealizedPL:   parseFloatOrZero(d.RealizedPL),
		UnrealizedPL: parseFloatOrZero(d.UnrealizedPL),
		State:        d.State,
		OpenTime:     d.OpenTime,
		CloseTime:    d.CloseTime,
	}
}

func parseFloatOrZero(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

type tradesResponse struct {
	Trades []tradeData `json:"trades"`
}

// OpenTrade returns the first open trade for the instrument, or nil when
// there is none.
func (c *Client) OpenTrade(ctx context.Context, instrument string) (*Trade, error) {
	var resp tradesResponse
	path := fmt.Sprintf("/v3/accounts/%s/openTrades", c.accountID)
	if err := c.request(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch open trades: %w", err)
	}

	for _, data := range resp.Trades {
		if data.Instrument == instrument {
			trade := data.toTrade()
			return &trade, nil
		}
	}
	return nil, nil
}

// OpenTrades returns every open trade on the account.
func (c *Client) OpenTrades(ctx context.Context) ([]Trade, error) {
	var resp tradesResponse
	path := fmt.Sprintf("/v3/accounts/%s/openTrades", c.accountID)
	if err := c.request(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch open trades: %w", err)
	}

	trades := make([]Trade, 0, len(resp.Trades))
	for _, data := range resp.Trades {
		trades = append(trades, data.toTrade())
	}
	return trades, nil
}

// ClosedTrades returns the most recently closed trades, newest first.
func (c *Client) ClosedTrades(ctx context.Context, count int) ([]Trade, error) {
	query := url.Values{
		"state": {"CLOSED"},
		"count": {strconv.Itoa(count)},
	}
	var resp tradesResponse
	path := fmt.Sprintf("/v3/accounts/%s/trades", c.accountID)
	if err := c.request(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch closed trades: %w", err)
	}

	trades := make([]Trade, 0, len(resp.Trades))
	for _, data := range resp.Trades {
		trades = append(trades, data.toTrade())
	}
	return trades, nil
}

const transactionPageLimit = 1000

// Transaction is a raw entry from the account transaction log.
type Transaction struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Instrument string    `json:"instrument"`
	Units      string    `json:"units"`
	Price      string    `json:"price"`
	PL         string    `json:"pl"`
	Time       time.Time `json:"time"`
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

// Transactions returns the transactions in the id range [from, to] as a
// single page capped at the API limit. A full page means entries inside
// the range were dropped.
func (c *Client) Transactions(ctx context.Context, from, to string) ([]Transaction, error) {
	query := url.Values{
		"from":     {from},
		"to":       {to},
		"pageSize": {strconv.Itoa(transactionPageLimit)},
	}

	var resp transactionsResponse
	path := fmt.Sprintf("/v3/accounts/%s/transactions/idrange", c.accountID)
	if err := c.request(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch transactions %s..%s: %w", from, to, err)
	}

	if len(resp.Transactions) >= transactionPageLimit {
		c.logger.Warn("Transaction page limit reached, entries in range may be missing",
			zap.Int("count", len(resp.Transactions)))
	}
	return resp.Transactions, nil
}
