package resilience

import (
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewHTTPClient builds an instrumented HTTP client with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Client wraps an http.Client with a circuit breaker guarding one upstream
// endpoint. Requests are never retried here; the breaker only sheds load
// while the endpoint is known to be down.
type Client struct {
	HTTP    *http.Client
	Breaker *Breaker
}

// Do executes the request. When the breaker is open it fails fast with
// ErrOpenCircuit without touching the network. Transport errors and 5xx
// responses count as failures; everything else counts as success.
func (c Client) Do(req *http.Request) (*http.Response, error) {
	if c.HTTP == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	if c.Breaker != nil && !c.Breaker.Allow() {
		return nil, ErrOpenCircuit
	}
	resp, err := c.HTTP.Do(req)
	if c.Breaker != nil {
		if err != nil || resp.StatusCode >= http.StatusInternalServerError {
			c.Breaker.MarkFailure()
		} else {
			c.Breaker.MarkSuccess()
		}
	}
	return resp, err
}
