// internal/broker/instruments.go
package broker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dstanton/oanda-tradebot/internal/candle"
)

// Instrument carries the static properties needed to format order prices.
type Instrument struct {
	Name             string
	PipLocation      int // e.g. -4 for EUR_USD
	DisplayPrecision int // decimal places in price strings
}

// PipValue is the price increment of one pip.
func (i Instrument) PipValue() float64 {
	pip := 1.0
	if i.PipLocation >= 0 {
		for n := 0; n < i.PipLocation; n++ {
			pip *= 10
		}
		return pip
	}
	for n := 0; n < -i.PipLocation; n++ {
		pip /= 10
	}
	return pip
}

// FormatPrice renders a price with the instrument's display precision.
func (i Instrument) FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', i.DisplayPrecision, 64)
}

type accountInstrumentsResponse struct {
	Instruments []struct {
		Name             string `json:"name"`
		PipLocation      int    `json:"pipLocation"`
		DisplayPrecision int    `json:"displayPrecision"`
	} `json:"instruments"`
}

// Instruments returns the static details of every instrument tradable on
// the account, keyed by name.
func (c *Client) Instruments(ctx context.Context) (map[string]Instrument, error) {
	var resp accountInstrumentsResponse
	path := fmt.Sprintf("/v3/accounts/%s/instruments", c.accountID)
	if err := c.request(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch account instruments: %w", err)
	}

	out := make(map[string]Instrument, len(resp.Instruments))
	for _, data := range resp.Instruments {
		out[data.Name] = Instrument{
			Name:             data.Name,
			PipLocation:      data.PipLocation,
			DisplayPrecision: data.DisplayPrecision,
		}
	}
	return out, nil
}

// InstrumentDetails returns the details for a single instrument, erroring
// when the account cannot trade it.
func (c *Client) InstrumentDetails(ctx context.Context, name string) (Instrument, error) {
	all, err := c.Instruments(ctx)
	if err != nil {
		return Instrument{}, err
	}
	inst, ok := all[name]
	if !ok {
		return Instrument{}, fmt.Errorf("instrument %q not tradable on account %s", name, c.accountID)
	}
	return inst, nil
}

type candlesResponse struct {
	Instrument  string `json:"instrument"`
	Granularity string `json:"granularity"`
	Candles     []struct {
		Complete bool      `json:"complete"`
		Volume   int64     `json:"volume"`
		Time     time.Time `json:"time"`
		Mid      struct {
			Open  string `json:"o"`
			High  string `json:"h"`
			Low   string `json:"l"`
			Close string `json:"c"`
		} `json:"mid"`
	} `json:"candles"`
}

// Candles fetches the most recent count midpoint candles.
func (c *Client) Candles(ctx context.Context, instrument, granularity string, count int) (candle.Series, error) {
	query := url.Values{
		"price":       {"M"},
		"granularity": {granularity},
		"count":       {strconv.Itoa(count)},
	}
	return c.fetchCandles(ctx, instrument, query)
}

// CandlesFrom fetches up to count midpoint candles starting at from, used
// by the history exporter to page forward through time.
func (c *Client) CandlesFrom(ctx context.Context, instrument, granularity string, from time.Time, count int) (candle.Series, error) {
	query := url.Values{
		"price":       {"M"},
		"granularity": {granularity},
		"count":       {strconv.Itoa(count)},
		"from":        {from.UTC().Format(time.RFC3339)},
	}
	return c.fetchCandles(ctx, instrument, query)
}

func (c *Client) fetchCandles(ctx context.Context, instrument string, query url.Values) (candle.Series, error) {
	var resp candlesResponse
	path := fmt.Sprintf("/v3/instruments/%s/candles", instrument)
	if err := c.request(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch candles for %s: %w", instrument, err)
	}

	series := make(candle.Series, 0, len(resp.Candles))
	for _, data := range resp.Candles {
		open, err := strconv.ParseFloat(data.Mid.Open, 64)
		if err != nil {
			return nil, fmt.Errorf("parse open price: %w", err)
		}
		high, err := strconv.ParseFloat(data.Mid.High, 64)
		if err != nil {
			return nil, fmt.Errorf("parse high price: %w", err)
		}
		low, err := strconv.ParseFloat(data.Mid.Low, 64)
		if err != nil {
			return nil, fmt.Errorf("parse low price: %w", err)
		}
		closePrice, err := strconv.ParseFloat(data.Mid.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close price: %w", err)
		}
		series = append(series, candle.Candle{
			Time:     data.Time,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   data.Volume,
			Complete: data.Complete,
		})
	}
	return series, nil
}
