package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quickbytes/payflow/internal/health"
)

type stubChecker struct {
	err error
}

func (s stubChecker) Ping(context.Context, time.Duration) error { return s.err }

func TestLive(t *testing.T) {
	rec := httptest.NewRecorder()
	health.Handler{}.Live(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestReadyOK(t *testing.T) {
	health.SetReady(true)
	h := health.Handler{Checker: stubChecker{}}

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "ok", body["store"])
}

func TestReadyFailingStore(t *testing.T) {
	health.SetReady(true)
	h := health.Handler{Checker: stubChecker{err: errors.New("store down")}}

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "store down", body["store"])
}

func TestReadyDuringShutdown(t *testing.T) {
	health.SetReady(false)
	defer health.SetReady(true)

	rec := httptest.NewRecorder()
	health.Handler{Checker: stubChecker{}}.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyWithoutChecker(t *testing.T) {
	health.SetReady(true)
	rec := httptest.NewRecorder()
	health.Handler{}.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
