// internal/broker/account.go
package broker

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// AccountSummary is a snapshot of the account's balance and exposure.
type AccountSummary struct {
	ID                string
	Currency          string
	Balance           float64
	NAV               float64
	PL                float64
	UnrealizedPL      float64
	OpenTradeCount    int
	OpenPositionCount int
	FetchedAt         time.Time
}

type accountSummaryResponse struct {
	Account struct {
		ID                string `json:"id"`
		Currency          string `json:"currency"`
		Balance           string `json:"balance"`
		NAV               string `json:"NAV"`
		PL                string `json:"pl"`
		UnrealizedPL      string `json:"unrealizedPL"`
		OpenTradeCount    int    `json:"openTradeCount"`
		OpenPositionCount int    `json:"openPositionCount"`
	} `json:"account"`
}

// AccountSummary fetches the current account snapshot.
func (c *Client) AccountSummary(ctx context.Context) (*AccountSummary, error) {
	var resp accountSummaryResponse
	path := fmt.Sprintf("/v3/accounts/%s/summary", c.accountID)
	if err := c.request(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch account summary: %w", err)
	}

	return &AccountSummary{
		ID:                resp.Account.ID,
		Currency:          resp.Account.Currency,
		Balance:           parseFloatOrZero(resp.Account.Balance),
		NAV:               parseFloatOrZero(resp.Account.NAV),
		PL:                parseFloatOrZero(resp.Account.PL),
		UnrealizedPL:      parseFloatOrZero(resp.Account.UnrealizedPL),
		OpenTradeCount:    resp.Account.OpenTradeCount,
		OpenPositionCount: resp.Account.OpenPositionCount,
		FetchedAt:         time.Now().UTC(),
	}, nil
}
