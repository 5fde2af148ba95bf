// Package pricefeed provides the current-price capability the watcher
// polls. The backing source is the DexScreener REST API; a TTL-cached
// wrapper dampens repeated lookups within one poll interval.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ErrUnavailable means no price could be obtained for the token. The
// watcher treats it as a skipped cycle, never as an exit trigger.
var ErrUnavailable = errors.New("price unavailable")

// Source provides current prices by token address.
type Source interface {
	GetPrice(ctx context.Context, tokenAddress string) (float64, error)
}

// DexScreenerClient fetches prices from the DexScreener token endpoint.
type DexScreenerClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Config holds price feed configuration.
type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
	Logger      *zap.Logger
}

// NewDexScreenerClient creates a new DexScreener price client.
func NewDexScreenerClient(cfg *Config) *DexScreenerClient {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &DexScreenerClient{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  cfg.Logger,
	}
}

// GetPrice returns the USD price of the token's most liquid pair.
func (c *DexScreenerClient) GetPrice(ctx context.Context, tokenAddress string) (float64, error) {
	start := time.Now()
	price, err := c.getPrice(ctx, tokenAddress)
	RequestDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		RequestErrorsTotal.Inc()
		return 0, err
	}
	return price, nil
}

func (c *DexScreenerClient) getPrice(ctx context.Context, tokenAddress string) (float64, error) {
	url := fmt.Sprintf("%s/dex/tokens/%s", c.baseURL, tokenAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Pairs []struct {
			PriceUSD string `json:"priceUsd"`
		} `json:"pairs"`
	}
	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	// The first pair is the most liquid one.
	if len(payload.Pairs) == 0 {
		return 0, fmt.Errorf("%w: no pairs for %s", ErrUnavailable, tokenAddress)
	}

	price, err := strconv.ParseFloat(payload.Pairs[0].PriceUSD, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("%w: bad price %q", ErrUnavailable, payload.Pairs[0].PriceUSD)
	}

	return price, nil
}
