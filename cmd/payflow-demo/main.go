// Command payflow-demo drives a full payment flow against an in-process
// checkout simulator: one completed checkout, one abandoned window resolved
// through fallback verification, and one blocked popup.
package main

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quickbytes/payflow/internal/events"
	"github.com/quickbytes/payflow/internal/obs"
	"github.com/quickbytes/payflow/internal/payment"
	"github.com/quickbytes/payflow/internal/resilience"
	"github.com/quickbytes/payflow/internal/sim"
	"github.com/quickbytes/payflow/internal/verify"
)

const demoAddress = "PAYFLOWDEMO5TWCCFS3YPM2BNIXVMDNV4ZOV2TMF2KRCHEKNRZJFQVPQ4Q"

func main() {
	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "console"), envOrDefault("OBS_LOG_LEVEL", "debug"))
	obs.MustRegisterDomainMetrics("payflow", nil)

	store := sim.NewStore()
	bus := events.NewBus()
	launcher := sim.NewLauncher()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		logger.Fatal().Err(err).Msg("listen")
	}
	baseURL := "http://" + ln.Addr().String()

	simHandler := &sim.Handler{
		Store:    store,
		Bus:      bus,
		Launcher: launcher,
		Origin:   baseURL,
		Logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	simHandler.Routes(r)
	srv := &http.Server{Handler: r}
	go func() { _ = srv.Serve(ln) }()
	defer func() { _ = srv.Close() }()

	breaker := resilience.NewBreaker(5, 0.5, 10*time.Second)
	breaker.OnStateChange = func(s resilience.State) {
		if obs.BreakerState != nil {
			obs.BreakerState.WithLabelValues("verify").Set(float64(s))
		}
	}
	verifier, err := verify.New(verify.Config{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Breaker: breaker,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("verify client")
	}

	orch, err := payment.New(payment.Config{
		CheckoutURL:  baseURL + "/pay",
		Launcher:     launcher,
		Verifier:     verifier,
		Source:       bus,
		PollInterval: 100 * time.Millisecond,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("orchestrator")
	}
	defer orch.Destroy()

	params := payment.Params{
		Cents:          500,
		PaymentAddress: demoAddress,
		PayeeName:      "Demo Shop",
		ItemName:       "Sample article",
	}

	// Flow 1: the checkout completes and the in-band message resolves the session.
	done := make(chan string, 1)
	id, err := orch.CreatePayment(params, payment.Callbacks{
		OnSuccess: func(txn payment.Transaction) { done <- "success: " + txn.AlgoTxnID },
		OnError:   func(err error) { done <- "error: " + err.Error() },
		OnClose:   func() { done <- "closed" },
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create payment")
	}
	post(baseURL+"/pay/"+id+"/complete", `{"status":"success","payer":"DEMOPAYER"}`)
	logger.Info().Str("txn_id", id).Str("outcome", <-done).Msg("completed checkout")

	// Flow 2: the window is abandoned; fallback verification finds nothing.
	done2 := make(chan string, 1)
	id2, err := orch.CreatePayment(params, payment.Callbacks{
		OnSuccess: func(payment.Transaction) { done2 <- "success" },
		OnError:   func(err error) { done2 <- "error: " + err.Error() },
		OnClose:   func() { done2 <- "closed" },
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create payment")
	}
	post(baseURL+"/pay/"+id2+"/abandon", `{}`)
	logger.Info().Str("txn_id", id2).Str("outcome", <-done2).Msg("abandoned checkout")

	// Flow 3: the popup is blocked; the session resolves as an error outcome.
	launcher.Blocked = true
	done3 := make(chan string, 1)
	id3, err := orch.CreatePayment(params, payment.Callbacks{
		OnError: func(err error) { done3 <- "error: " + err.Error() },
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create payment")
	}
	logger.Info().Str("txn_id", id3).Str("outcome", <-done3).Msg("blocked checkout")

	fmt.Println("demo finished")
}

func post(url, body string) {
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		panic(err)
	}
	_ = resp.Body.Close()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
