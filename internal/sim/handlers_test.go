package sim_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/quickbytes/payflow/internal/events"
	"github.com/quickbytes/payflow/internal/payment"
	"github.com/quickbytes/payflow/internal/sim"
)

const simOrigin = "https://pay.test.quickbytes.exchange"

type simFixture struct {
	store    *sim.Store
	bus      *events.Bus
	launcher *sim.Launcher
	srv      *httptest.Server
}

func newSimFixture(t *testing.T) *simFixture {
	t.Helper()
	f := &simFixture{
		store:    sim.NewStore(),
		bus:      events.NewBus(),
		launcher: sim.NewLauncher(),
	}
	h := &sim.Handler{
		Store:    f.store,
		Bus:      f.bus,
		Launcher: f.launcher,
		Origin:   simOrigin,
		Logger:   zerolog.Nop(),
	}
	r := chi.NewRouter()
	h.Routes(r)
	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *simFixture) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *simFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCheckoutEchoesQuery(t *testing.T) {
	f := newSimFixture(t)
	resp := f.get(t, "/pay?txn_id=txn-1&cents=500&payment_address="+simPayAddr+"&payee_name=Shop&item_name=Article")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "txn-1", body["txn_id"])
	require.Equal(t, "500", body["cents"])
	require.Equal(t, simPayAddr, body["payment_address"])
}

func TestCheckoutRequiresTxnID(t *testing.T) {
	f := newSimFixture(t)
	resp := f.get(t, "/pay")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompletePublishesAndCloses(t *testing.T) {
	f := newSimFixture(t)
	win := openWindow(t, f.launcher, "txn-1")

	var notes []payment.Notification
	f.bus.Subscribe(func(n payment.Notification) { notes = append(notes, n) })

	resp := f.post(t, "/pay/txn-1/complete", `{"status":"success","payer":"PAYER"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, notes, 1)
	n := notes[0]
	require.Equal(t, simOrigin, n.Origin)
	require.Equal(t, payment.NotificationType, n.Type)
	require.Equal(t, "txn-1", n.TxnID)
	require.Equal(t, payment.StatusSuccess, n.Status)
	require.NotNil(t, n.Transaction)
	require.Equal(t, "txn-1", n.Transaction.TxnID)
	require.Equal(t, "PAYER", n.Transaction.Payer)
	require.Equal(t, simPayAddr, n.Transaction.Payee)
	require.Equal(t, int64(500), n.Transaction.ChargeAmount)
	require.Equal(t, "USD_CENTS", n.Transaction.ChargeUnit)
	require.InDelta(t, 25.0, n.Transaction.PaymentAmount, 1e-9)
	require.Equal(t, "ALGO", n.Transaction.PaymentUnit)
	require.NotEmpty(t, n.Transaction.AlgoTxnID)

	_, err := time.Parse(time.RFC3339, n.Transaction.TsInit)
	require.NoError(t, err)

	require.True(t, win.Closed())
	_, ok := f.store.Get("txn-1")
	require.True(t, ok)
}

func TestCompleteWithErrorStatusDoesNotRecord(t *testing.T) {
	f := newSimFixture(t)
	openWindow(t, f.launcher, "txn-1")

	var notes []payment.Notification
	f.bus.Subscribe(func(n payment.Notification) { notes = append(notes, n) })

	resp := f.post(t, "/pay/txn-1/complete", `{"status":"error"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, notes, 1)
	require.Equal(t, payment.StatusError, notes[0].Status)
	require.NotNil(t, notes[0].Transaction)
	require.Zero(t, f.store.Len())
}

func TestCompleteRejectsBadInput(t *testing.T) {
	f := newSimFixture(t)
	openWindow(t, f.launcher, "txn-1")

	resp := f.post(t, "/pay/txn-1/complete", `{"status":"maybe"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.post(t, "/pay/txn-1/complete", `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.post(t, "/pay/txn-2/complete", `{"status":"success"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAbandonClosesSilently(t *testing.T) {
	f := newSimFixture(t)
	win := openWindow(t, f.launcher, "txn-1")

	published := 0
	f.bus.Subscribe(func(payment.Notification) { published++ })

	resp := f.post(t, "/pay/txn-1/abandon", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, win.Closed())
	require.Zero(t, published)
}

func TestTransactionLookup(t *testing.T) {
	f := newSimFixture(t)
	f.store.Put(payment.Transaction{TxnID: "txn-1", AlgoTxnID: "ALGO-1"})

	resp := f.get(t, "/v1/transaction/txn-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var txn payment.Transaction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&txn))
	require.Equal(t, "ALGO-1", txn.AlgoTxnID)

	resp = f.get(t, "/v1/transaction/txn-unknown")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStorePing(t *testing.T) {
	s := sim.NewStore()
	require.NoError(t, s.Ping(context.Background(), time.Second))
	var missing *sim.Store
	require.Error(t, missing.Ping(context.Background(), time.Second))
}
