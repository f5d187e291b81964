package verify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/quickbytes/payflow/internal/common"
	"github.com/quickbytes/payflow/internal/payment"
	"github.com/quickbytes/payflow/internal/resilience"
	"github.com/quickbytes/payflow/internal/verify"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/v1/transaction/{txnID}", handler)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string, breaker *resilience.Breaker) *verify.Client {
	t.Helper()
	c, err := verify.New(verify.Config{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		Breaker: breaker,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := verify.New(verify.Config{BaseURL: "   "})
	require.Error(t, err)
}

func TestVerifyDecodesTransaction(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "txn-7", chi.URLParam(r, "txnID"))
		common.JSON(w, http.StatusOK, payment.Transaction{
			TxnID:         "txn-7",
			Payer:         "PAYER",
			ChargeAmount:  500,
			ChargeUnit:    "USD_CENTS",
			PaymentAmount: 25,
			PaymentUnit:   "ALGO",
			AlgoTxnID:     "ALGO-7",
		})
	})

	txn, err := newClient(t, srv.URL, nil).Verify(context.Background(), "txn-7")
	require.NoError(t, err)
	require.NotNil(t, txn)
	require.Equal(t, "txn-7", txn.TxnID)
	require.Equal(t, int64(500), txn.ChargeAmount)
	require.Equal(t, "ALGO-7", txn.AlgoTxnID)
}

func TestVerifyNotFoundIsAbsentNotError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, "TXN_NOT_FOUND", "transaction not found", nil)
	})

	txn, err := newClient(t, srv.URL, nil).Verify(context.Background(), "txn-missing")
	require.NoError(t, err)
	require.Nil(t, txn)
}

func TestVerifyServerErrorIsError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := newClient(t, srv.URL, nil).Verify(context.Background(), "txn-1")
	require.Error(t, err)
}

func TestVerifyTransportErrorIsError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {})
	srv.Close()

	_, err := newClient(t, srv.URL, nil).Verify(context.Background(), "txn-1")
	require.Error(t, err)
}

func TestVerifyRequiresTransactionID(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {})
	_, err := newClient(t, srv.URL, nil).Verify(context.Background(), "  ")
	require.Error(t, err)
}

func TestVerifyOpenBreakerFailsFast(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	breaker := resilience.NewBreaker(2, 0.5, time.Minute)
	client := newClient(t, srv.URL, breaker)

	for i := 0; i < 2; i++ {
		_, err := client.Verify(context.Background(), "txn-1")
		require.Error(t, err)
	}
	require.Equal(t, resilience.Open, breaker.CurrentState())

	_, err := client.Verify(context.Background(), "txn-1")
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, int64(2), hits.Load())
}
