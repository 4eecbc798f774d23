// Package horizon is a read-only client for the Horizon claimable balance endpoints.
package horizon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultPageSize        = 200
	DefaultOperationsLimit = 50
	DefaultTimeout         = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryInterval   = 500 * time.Millisecond
)

var (
	ErrNotFound    = errors.New("horizon: resource not found")
	ErrUnavailable = errors.New("horizon: service unavailable")
	ErrMalformed   = errors.New("horizon: malformed response")
)

type Config struct {
	URL           string
	PageSize      int
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
	HTTPClient    *http.Client

	Logger *zap.Logger
}

type Client struct {
	baseURL       string
	pageSize      int
	timeout       time.Duration
	maxRetries    int
	retryInterval time.Duration
	httpClient    *http.Client

	logger *zap.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("horizon: missing URL")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("horizon: invalid URL: %w", err)
	}
	c := &Client{
		baseURL:       strings.TrimRight(cfg.URL, "/"),
		pageSize:      cfg.PageSize,
		timeout:       cfg.Timeout,
		maxRetries:    cfg.MaxRetries,
		retryInterval: cfg.RetryInterval,
		httpClient:    cfg.HTTPClient,
		logger:        cfg.Logger,
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.retryInterval <= 0 {
		c.retryInterval = DefaultRetryInterval
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.With(zap.String("client", "horizon"))
	return c, nil
}

func (c *Client) PageSize() int {
	return c.pageSize
}

// getJSON fetches path and decodes the body into out. Every attempt is bounded by the
// client timeout; network errors, 429 and 5xx responses are retried with backoff.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	lgr := c.logger.With(zap.String("url", endpoint))

	attempt := 0
	op := func() error {
		attempt++
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/hal+json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lgr.Debug("Horizon request failed", zap.Int("attempt", attempt), zap.Error(err))
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			lgr.Debug("Horizon unavailable", zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
			return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("horizon: unexpected status %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrMalformed, err))
		}
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryInterval
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxRetries)), ctx)
	return backoff.Retry(op, b)
}
