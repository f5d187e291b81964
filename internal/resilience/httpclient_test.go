package resilience_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quickbytes/payflow/internal/resilience"
)

func TestClientCountsServerErrorsAsFailures(t *testing.T) {
	var status atomic.Int64
	status.Store(http.StatusInternalServerError)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker(2, 0.5, time.Minute)
	client := resilience.Client{HTTP: resilience.NewHTTPClient(time.Second), Breaker: breaker}

	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	require.Equal(t, resilience.Open, breaker.CurrentState())

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
}

func TestClientCountsSuccessResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker(2, 0.5, time.Minute)
	client := resilience.Client{HTTP: resilience.NewHTTPClient(time.Second), Breaker: breaker}

	// 4xx responses are answers, not upstream failures.
	for i := 0; i < 5; i++ {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	require.Equal(t, resilience.Closed, breaker.CurrentState())
}

func TestClientWithoutBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := resilience.Client{HTTP: resilience.NewHTTPClient(time.Second)}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClientRequiresHTTPClient(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:0", nil)
	require.NoError(t, err)
	_, err = resilience.Client{}.Do(req)
	require.Error(t, err)
}
