package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxAttempts    = 4
	DefaultRateLimitDelay = 1 * time.Second
	DefaultNotFoundDelay  = 500 * time.Millisecond
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint       string
	client         *http.Client
	maxAttempts    int
	rateLimitDelay time.Duration // scaled by attempt on 429
	notFoundDelay  time.Duration // scaled by attempt on null result
	requestID      atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxAttempts sets the bounded attempt budget for GetTransaction.
func WithMaxAttempts(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxAttempts = n
	}
}

// WithRateLimitDelay sets the base delay applied after an HTTP 429.
func WithRateLimitDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.rateLimitDelay = d
	}
}

// WithNotFoundDelay sets the base delay applied after a null result.
func WithNotFoundDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.notFoundDelay = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:       endpoint,
		client:         &http.Client{Timeout: DefaultTimeout},
		maxAttempts:    DefaultMaxAttempts,
		rateLimitDelay: DefaultRateLimitDelay,
		notFoundDelay:  DefaultNotFoundDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ RPCClient = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// errRateLimited marks an HTTP 429 during a single attempt.
var errRateLimited = fmt.Errorf("rate limited (429)")

// callOnce performs a single JSON-RPC call. It returns the raw result, which
// may be JSON null when the RPC provider has not indexed the item yet.
func (c *HTTPClient) callOnce(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		// RPC-reported errors are not retried.
		return nil, fmt.Errorf("%w: %s", ErrRPC, rpcResp.Error.Error())
	}

	return rpcResp.Result, nil
}

// GetTransaction retrieves a transaction by signature with jsonParsed
// encoding. Three per-attempt outcomes: HTTP 429 (wait rateLimitDelay x
// attempt, retry), null result (wait notFoundDelay x attempt, retry), or a
// decodable result. Transport failures retry like rate limits. The attempt
// budget is bounded; exceeding it returns ErrNotFoundAfterRetries.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"maxSupportedTransactionVersion": 0,
		},
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err := c.callOnce(ctx, "getTransaction", params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isTerminal(err) {
				return nil, err
			}
			// Rate limited or transport failure: attempt-indexed backoff.
			if !sleepCtx(ctx, time.Duration(attempt)*c.rateLimitDelay) {
				return nil, ctx.Err()
			}
			continue
		}

		if len(result) == 0 || string(result) == "null" {
			// Not yet indexed by the RPC provider.
			if !sleepCtx(ctx, time.Duration(attempt)*c.notFoundDelay) {
				return nil, ctx.Err()
			}
			continue
		}

		var tx Transaction
		if err := json.Unmarshal(result, &tx); err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", signature, err)
		}
		return &tx, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFoundAfterRetries, signature)
}

// isTerminal reports whether err must surface without another attempt.
func isTerminal(err error) bool {
	return errors.Is(err, ErrRPC)
}

// sleepCtx waits for d or until ctx is done. Returns false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
