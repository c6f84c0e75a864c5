// internal/broker/client.go
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Environment selects between the OANDA practice and live hosts.
type Environment string

const (
	Practice Environment = "practice"
	Live     Environment = "live"
)

// BaseURL returns the v20 REST host for the environment.
func (e Environment) BaseURL() string {
	if e == Live {
		return "https://api-fxtrade.oanda.com"
	}
	return "https://api-fxpractice.oanda.com"
}

const (
	defaultRequestTimeout = 10 * time.Second
	defaultRetries        = 3
	retryInitialInterval  = 500 * time.Millisecond
)

// Config holds client construction parameters.
type Config struct {
	APIKey      string
	AccountID   string
	Environment Environment
	Timeout     time.Duration
	Retries     int
}

// Client is an OANDA v20 REST client scoped to one account.
type Client struct {
	client    *http.Client
	logger    *zap.Logger
	baseURL   string
	token     string
	accountID string
	retries   int
}

// New creates a client for the configured account and environment.
func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	return &Client{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:    logger.Named("broker"),
		baseURL:   cfg.Environment.BaseURL(),
		token:     cfg.APIKey,
		accountID: cfg.AccountID,
		retries:   retries,
	}
}

// AccountID returns the account the client trades on.
func (c *Client) AccountID() string {
	return c.accountID
}

// request performs one REST call with retries on transport errors and
// retryable statuses (5xx, 429). Client errors fail immediately with an
// *APIError carrying the broker's message.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	operation := func() ([]byte, error) {
		return c.doOnce(ctx, method, path, query, payload)
	}

	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = retryInitialInterval

	notify := func(err error, duration time.Duration) {
		c.logger.Warn("Retrying OANDA request",
			zap.String("path", path),
			zap.Duration("backoff", duration),
			zap.Error(err))
	}

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(uint(c.retries)),
		backoff.WithNotify(notify))
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response for %s: %w", path, err)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, newAPIError(resp.StatusCode, data)
	default:
		return nil, backoff.Permanent(newAPIError(resp.StatusCode, data))
	}
}
