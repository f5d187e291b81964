package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"

	"github.com/quickbytes/payflow/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewRejectsBadRate(t *testing.T) {
	_, err := ratelimit.New("not-a-rate")
	require.Error(t, err)
}

func TestMiddlewareEnforcesLimit(t *testing.T) {
	lim, err := ratelimit.New("2-H")
	require.NoError(t, err)
	h := ratelimit.Handler{Limiter: lim}
	srv := h.Middleware(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/transaction/txn-1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/transaction/txn-1", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddlewareKeysSeparately(t *testing.T) {
	lim, err := ratelimit.New("1-H")
	require.NoError(t, err)
	h := ratelimit.Handler{
		Limiter: lim,
		Key:     func(r *http.Request) string { return r.Header.Get("X-Client") },
	}
	srv := h.Middleware(okHandler())

	for _, client := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Client", client)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Client", "a")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func (failingStore) Peek(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func (failingStore) Reset(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func (failingStore) Increment(context.Context, string, int64, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	rate, err := limiter.NewRateFromFormatted("1-H")
	require.NoError(t, err)

	var observed error
	h := ratelimit.Handler{
		Limiter: limiter.New(failingStore{}, rate),
		OnError: func(err error) { observed = err },
	}
	srv := h.Middleware(okHandler())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Error(t, observed)
}

func TestMiddlewareWithoutLimiterPassesThrough(t *testing.T) {
	srv := ratelimit.Handler{}.Middleware(okHandler())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
