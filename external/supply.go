// Package external
package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultSupplyTimeout = 10 * time.Second

var ErrFeedUnavailable = errors.New("supply feed unavailable")

type SupplyConfig struct {
	AquaCirculatingURL string
	IceCirculatingURL  string
	Timeout            time.Duration

	Logger *zap.Logger
}

// SupplyFeed reads the circulating supply figures published next to the governance asset.
type SupplyFeed struct {
	aquaURL string
	iceURL  string
	client  *http.Client
	logger  *zap.Logger
}

func NewSupplyFeed(cfg SupplyConfig) *SupplyFeed {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSupplyTimeout
	}
	var netTransport = &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 5 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	lgr := cfg.Logger
	if lgr == nil {
		lgr = zap.NewNop()
	}
	return &SupplyFeed{
		aquaURL: cfg.AquaCirculatingURL,
		iceURL:  cfg.IceCirculatingURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: netTransport,
		},
		logger: lgr.With(zap.String("client", "supply")),
	}
}

// AquaCirculating returns the AQUA circulating supply. The feed body is a bare JSON number.
func (f *SupplyFeed) AquaCirculating(ctx context.Context) (float64, error) {
	var raw json.RawMessage
	if err := f.get(ctx, f.aquaURL, &raw); err != nil {
		return 0, err
	}
	return parseAmount(raw)
}

// IceCirculating returns the ICE circulating supply from {"ice_supply_amount": "..."}.
func (f *SupplyFeed) IceCirculating(ctx context.Context) (float64, error) {
	var body struct {
		IceSupplyAmount json.RawMessage `json:"ice_supply_amount"`
	}
	if err := f.get(ctx, f.iceURL, &body); err != nil {
		return 0, err
	}
	if len(body.IceSupplyAmount) == 0 {
		return 0, fmt.Errorf("%w: missing ice_supply_amount", ErrFeedUnavailable)
	}
	return parseAmount(body.IceSupplyAmount)
}

func (f *SupplyFeed) get(ctx context.Context, url string, out interface{}) error {
	if url == "" {
		return fmt.Errorf("%w: no url configured", ErrFeedUnavailable)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	response, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		f.logger.Warn("Supply feed returned non-OK status", zap.String("url", url), zap.Int("status", response.StatusCode))
		return fmt.Errorf("%w: %s returned %d", ErrFeedUnavailable, url, response.StatusCode)
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrFeedUnavailable, url, err)
	}
	return nil
}

// parseAmount accepts both 123.4 and "123.4".
func parseAmount(raw json.RawMessage) (float64, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad amount %q", ErrFeedUnavailable, s)
	}
	return v, nil
}
