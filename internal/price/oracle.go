// Package price provides the SOL/USD quote source: the Pyth Hermes HTTP
// feed behind a TTL cache shared by all workers.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrQuoteUnavailable is returned when no fresh quote can be obtained.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Default configuration values.
const (
	DefaultTTL     = 30 * time.Second
	DefaultTimeout = 10 * time.Second

	// DefaultFeedURL is the Pyth Hermes endpoint for the SOL/USD feed.
	DefaultFeedURL = "https://hermes.pyth.network/v2/updates/price/latest?ids[]=" + SolUsdFeedID

	// SolUsdFeedID is the Pyth price-feed identifier for SOL/USD.
	SolUsdFeedID = "0xef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"
)

// Quote is one cached price observation. Replaced wholesale on refresh.
type Quote struct {
	UsdPerSol  float64
	CapturedAt time.Time
}

// Oracle caches the external SOL/USD quote for a TTL. Reads are shared;
// the cache cell is replaced under an exclusive lock only after the network
// fetch completes (fetch-then-swap), so workers are never serialized behind
// one network call. Concurrent refreshes may race; the races are harmless
// duplicate fetches.
type Oracle struct {
	feedURL string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	quote *Quote
}

// OracleOption configures an Oracle.
type OracleOption func(*Oracle)

// WithFeedURL overrides the price-feed endpoint.
func WithFeedURL(url string) OracleOption {
	return func(o *Oracle) { o.feedURL = url }
}

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) OracleOption {
	return func(o *Oracle) { o.ttl = ttl }
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) OracleOption {
	return func(o *Oracle) { o.client = client }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) OracleOption {
	return func(o *Oracle) { o.now = now }
}

// NewOracle creates a price oracle with the default Pyth Hermes feed.
func NewOracle(opts ...OracleOption) *Oracle {
	o := &Oracle{
		feedURL: DefaultFeedURL,
		client:  &http.Client{Timeout: DefaultTimeout},
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetUsdPrice returns the SOL/USD price, refreshing the cache when the held
// quote is older than the TTL.
func (o *Oracle) GetUsdPrice(ctx context.Context) (float64, error) {
	o.mu.RLock()
	q := o.quote
	o.mu.RUnlock()

	if q != nil && o.now().Sub(q.CapturedAt) < o.ttl {
		return q.UsdPerSol, nil
	}

	value, err := o.fetch(ctx)
	if err != nil {
		return 0, err
	}

	fresh := &Quote{UsdPerSol: value, CapturedAt: o.now()}
	o.mu.Lock()
	o.quote = fresh
	o.mu.Unlock()

	return value, nil
}

// hermesResponse mirrors the subset of the Hermes payload we consume:
// parsed[0].price.{price, expo}.
type hermesResponse struct {
	Parsed []struct {
		Price struct {
			Price string `json:"price"`
			Expo  int    `json:"expo"`
		} `json:"price"`
	} `json:"parsed"`
}

// fetch retrieves a fresh quote from the price feed.
func (o *Oracle) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.feedURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %v", ErrQuoteUnavailable, err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: feed status %d", ErrQuoteUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: read body: %v", ErrQuoteUnavailable, err)
	}

	var parsed hermesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("%w: decode feed: %v", ErrQuoteUnavailable, err)
	}
	if len(parsed.Parsed) == 0 {
		return 0, fmt.Errorf("%w: empty feed payload", ErrQuoteUnavailable)
	}

	p := parsed.Parsed[0].Price
	mantissa, err := strconv.ParseInt(p.Price, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse mantissa %q: %v", ErrQuoteUnavailable, p.Price, err)
	}

	return float64(mantissa) * math.Pow10(p.Expo), nil
}
