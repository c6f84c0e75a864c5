package broker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		client:    server.Client(),
		logger:    zap.NewNop(),
		baseURL:   server.URL,
		token:     "test-token",
		accountID: "101-001-1234567-001",
		retries:   3,
	}
}

func TestCandles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/instruments/EUR_USD/candles", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "M", r.URL.Query().Get("price"))
		assert.Equal(t, "M15", r.URL.Query().Get("granularity"))
		assert.Equal(t, "2", r.URL.Query().Get("count"))

		io.WriteString(w, `{
			"instrument": "EUR_USD",
			"granularity": "M15",
			"candles": [
				{"complete": true, "volume": 120, "time": "2024-06-03T12:00:00.000000000Z",
					"mid": {"o": "1.08500", "h": "1.08620", "l": "1.08450", "c": "1.08600"}},
				{"complete": false, "volume": 40, "time": "2024-06-03T12:15:00.000000000Z",
					"mid": {"o": "1.08600", "h": "1.08640", "l": "1.08580", "c": "1.08610"}}
			]
		}`)
	}))
	defer server.Close()

	client := newTestClient(server)
	series, err := client.Candles(context.Background(), "EUR_USD", "M15", 2)
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.InDelta(t, 1.086, series[0].Close, 1e-9)
	assert.Equal(t, int64(120), series[0].Volume)
	assert.True(t, series[0].Complete)
	assert.False(t, series[1].Complete)
	assert.Equal(t, time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC), series[0].Time)
}

func TestInstrumentDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/accounts/101-001-1234567-001/instruments", r.URL.Path)
		io.WriteString(w, `{"instruments": [
			{"name": "EUR_USD", "pipLocation": -4, "displayPrecision": 5},
			{"name": "USD_JPY", "pipLocation": -2, "displayPrecision": 3}
		]}`)
	}))
	defer server.Close()

	client := newTestClient(server)

	inst, err := client.InstrumentDetails(context.Background(), "EUR_USD")
	require.NoError(t, err)
	assert.Equal(t, -4, inst.PipLocation)
	assert.Equal(t, 5, inst.DisplayPrecision)
	assert.InDelta(t, 0.0001, inst.PipValue(), 1e-12)
	assert.Equal(t, "1.08600", inst.FormatPrice(1.086))

	_, err = client.InstrumentDetails(context.Background(), "XAU_XAG")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not tradable")
}

func TestPlaceMarketOrderSell(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/accounts/101-001-1234567-001/orders", r.URL.Path)

		var body map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		order := body["order"]
		assert.Equal(t, "MARKET", order["type"])
		assert.Equal(t, "-1000", order["units"])
		assert.Equal(t, "FOK", order["timeInForce"])
		assert.Equal(t, map[string]interface{}{"price": "1.09100"}, order["stopLossOnFill"])
		assert.Equal(t, map[string]interface{}{"price": "1.08500"}, order["takeProfitOnFill"])

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{
			"orderCreateTransaction": {"id": "6100"},
			"orderFillTransaction": {"id": "6101", "tradeOpened": {"price": "1.08995"}}
		}`)
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.PlaceMarketOrder(context.Background(), OrderTicket{
		Instrument: "EUR_USD",
		Units:      1000,
		Side:       Sell,
		StopLoss:   "1.09100",
		TakeProfit: "1.08500",
	})
	require.NoError(t, err)
	assert.True(t, result.Executed())
	assert.Equal(t, "6101", result.FillTransactionID)
	assert.InDelta(t, 1.08995, result.FillPrice, 1e-9)
}

func TestPlaceMarketOrderRequiresProtectivePrices(t *testing.T) {
	client := newTestClient(httptest.NewServer(http.NotFoundHandler()))
	_, err := client.PlaceMarketOrder(context.Background(), OrderTicket{
		Instrument: "EUR_USD",
		Units:      1000,
		Side:       Buy,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing stop loss")
}

func TestOpenTrade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"trades": [
			{"id": "42", "instrument": "GBP_USD", "price": "1.27000",
				"currentUnits": "1000", "unrealizedPL": "1.25", "state": "OPEN",
				"openTime": "2024-06-03T09:00:00.000000000Z"}
		]}`)
	}))
	defer server.Close()

	client := newTestClient(server)

	trade, err := client.OpenTrade(context.Background(), "GBP_USD")
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, "42", trade.ID)
	assert.InDelta(t, 1000.0, trade.CurrentUnits, 1e-9)

	none, err := client.OpenTrade(context.Background(), "EUR_USD")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"errorCode": "INVALID_INSTRUMENT", "errorMessage": "Invalid value specified"}`)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Candles(context.Background(), "BAD", "M15", 10)
	require.Error(t, err)
	assert.True(t, IsRejection(err))
	assert.Contains(t, err.Error(), "Invalid value specified")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestServerErrorIsRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"account": {"id": "101-001-1234567-001", "currency": "USD",
			"balance": "10000.50", "NAV": "10001.25", "openTradeCount": 1}}`)
	}))
	defer server.Close()

	client := newTestClient(server)
	summary, err := client.AccountSummary(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 10000.50, summary.Balance, 1e-9)
	assert.Equal(t, 1, summary.OpenTradeCount)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
