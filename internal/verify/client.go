// Package verify implements the client for the authoritative transaction
// lookup API. The orchestrator falls back to it whenever a checkout window
// disappears without an in-band completion message.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickbytes/payflow/internal/payment"
	"github.com/quickbytes/payflow/internal/resilience"
)

// Client queries the transaction API for a payment's resolved status.
type Client struct {
	baseURL string
	http    resilience.Client
	logger  zerolog.Logger
}

// Config wires a verification client.
type Config struct {
	// BaseURL is the transaction API root, e.g. https://api.quickbytes.exchange.
	BaseURL string
	// Timeout bounds each lookup. Defaults to 5s.
	Timeout time.Duration
	// Breaker optionally guards the endpoint; nil disables breaking.
	Breaker *resilience.Breaker
	Logger  zerolog.Logger
}

// New constructs a verification client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("verify: base url is required")
	}
	return &Client{
		baseURL: base,
		http: resilience.Client{
			HTTP:    resilience.NewHTTPClient(cfg.Timeout),
			Breaker: cfg.Breaker,
		},
		logger: cfg.Logger,
	}, nil
}

// Verify fetches the transaction detail for txnID. A nil transaction with a
// nil error means no completed transaction exists for the id; that is the
// "absent" answer, not a failure. Transport and server errors are returned
// as errors and are the caller's cue to fall back conservatively.
func (c *Client) Verify(ctx context.Context, txnID string) (*payment.Transaction, error) {
	if c == nil {
		return nil, errors.New("verify: client not configured")
	}
	if strings.TrimSpace(txnID) == "" {
		return nil, errors.New("verify: transaction id is required")
	}
	endpoint := fmt.Sprintf("%s/v1/transaction/%s", c.baseURL, url.PathEscape(txnID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("verify: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Str("txn_id", txnID).Err(err).Msg("transaction verification failed")
		return nil, fmt.Errorf("verify: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Debug().Str("txn_id", txnID).Msg("transaction not found")
		return nil, nil
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, fmt.Errorf("verify: api status %d", resp.StatusCode)
	}

	var txn payment.Transaction
	if err := json.NewDecoder(resp.Body).Decode(&txn); err != nil {
		return nil, fmt.Errorf("verify: decode response: %w", err)
	}
	c.logger.Debug().Str("txn_id", txnID).Msg("transaction verified")
	return &txn, nil
}
