// internal/broker/orders.go
package broker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderTicket describes a market order with protective prices attached.
type OrderTicket struct {
	Instrument string
	Units      int // positive; sign is derived from Side
	Side       Side
	StopLoss   string // already formatted to the instrument's precision
	TakeProfit string
}

// OrderResult is the broker's answer to an order submission.
type OrderResult struct {
	CreateTransactionID string
	FillTransactionID   string
	FillPrice           float64
	CancelReason        string
}

// Executed reports whether the order was accepted by the broker.
func (r *OrderResult) Executed() bool {
	return r.FillTransactionID != "" || r.CreateTransactionID != ""
}

type orderRequest struct {
	Order struct {
		Type           string `json:"type"`
		Instrument     string `json:"instrument"`
		Units          string `json:"units"`
		TimeInForce    string `json:"timeInForce"`
		PositionFill   string `json:"positionFill"`
		StopLossOnFill struct {
			Price string `json:"price"`
		} `json:"stopLossOnFill"`
		TakeProfitOnFill struct {
			Price string `json:"price"`
		} `json:"takeProfitOnFill"`
	} `json:"order"`
}

type orderResponse struct {
	OrderCreateTransaction struct {
		ID string `json:"id"`
	} `json:"orderCreateTransaction"`
	OrderFillTransaction struct {
		ID          string `json:"id"`
		Price       string `json:"price"`
		TradeOpened struct {
			Price string `json:"price"`
		} `json:"tradeOpened"`
	} `json:"orderFillTransaction"`
	OrderCancelTransaction struct {
		Reason string `json:"reason"`
	} `json:"orderCancelTransaction"`
}

// PlaceMarketOrder submits a fill-or-kill market order with stop loss and
// take profit on fill.
func (c *Client) PlaceMarketOrder(ctx context.Context, ticket OrderTicket) (*OrderResult, error) {
	if ticket.Units <= 0 {
		return nil, fmt.Errorf("invalid units %d", ticket.Units)
	}
	if ticket.StopLoss == "" || ticket.TakeProfit == "" {
		return nil, fmt.Errorf("order for %s missing stop loss or take profit", ticket.Instrument)
	}

	units := ticket.Units
	if ticket.Side == Sell {
		units = -units
	}

	var req orderRequest
	req.Order.Type = "MARKET"
	req.Order.Instrument = ticket.Instrument
	req.Order.Units = strconv.Itoa(units)
	req.Order.TimeInForce = "FOK"
	req.Order.PositionFill = "DEFAULT"
	req.Order.StopLossOnFill.Price = ticket.StopLoss
	req.Order.TakeProfitOnFill.Price = ticket.TakeProfit

	var resp orderResponse
	path := fmt.Sprintf("/v3/accounts/%s/orders", c.accountID)
	if err := c.request(ctx, http.MethodPost, path, nil, &req, &resp); err != nil {
		return nil, fmt.Errorf("place %s order for %s: %w", ticket.Side, ticket.Instrument, err)
	}

	result := &OrderResult{
		CreateTransactionID: resp.OrderCreateTransaction.ID,
		FillTransactionID:   resp.OrderFillTransaction.ID,
		CancelReason:        resp.OrderCancelTransaction.Reason,
	}

	priceStr := resp.OrderFillTransaction.TradeOpened.Price
	if priceStr == "" {
		priceStr = resp.OrderFillTransaction.Price
	}
	if priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err == nil {
			result.FillPrice = price
		}
	}
	return result, nil
}
