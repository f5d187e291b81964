package sim

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quickbytes/payflow/internal/common"
	"github.com/quickbytes/payflow/internal/events"
	"github.com/quickbytes/payflow/internal/obs"
	"github.com/quickbytes/payflow/internal/payment"
)

// Exchange rate used by the simulator to derive the crypto-side amount.
const microAlgosPerCent = 50_000

// Handler exposes the simulator's HTTP surface.
type Handler struct {
	Store    *Store
	Bus      *events.Bus
	Launcher *Launcher
	// Origin is stamped on published notifications; the orchestrator only
	// accepts notifications carrying its configured checkout origin.
	Origin string
	Logger zerolog.Logger
}

// Checkout echoes the payment request a checkout window was opened with.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txnID := strings.TrimSpace(q.Get("txn_id"))
	if txnID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "txn_id is required", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{
		"txn_id":          txnID,
		"cents":           q.Get("cents"),
		"payment_address": q.Get("payment_address"),
		"payee_name":      q.Get("payee_name"),
		"item_name":       q.Get("item_name"),
	})
}

type completeReq struct {
	Status string `json:"status"`
	Payer  string `json:"payer"`
}

// Complete finishes a checkout: it records the transaction, publishes the
// in-band completion notification and closes the window, in that order, the
// same sequence a real checkout context performs.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil || h.Bus == nil || h.Launcher == nil {
		common.JSONError(w, http.StatusInternalServerError, "SIM_NOT_CONFIGURED", "simulator unavailable", nil)
		return
	}
	txnID := strings.TrimSpace(chi.URLParam(r, "txnID"))
	if txnID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "txnID is required", nil)
		return
	}
	win, ok := h.Launcher.Window(txnID)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "WINDOW_NOT_FOUND", "no open checkout for transaction", nil)
		return
	}
	var req completeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != payment.StatusSuccess && status != payment.StatusError {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "status must be success or error", nil)
		return
	}

	txn := payment.Transaction{
		TxnID:         txnID,
		Payer:         strings.TrimSpace(req.Payer),
		Payee:         win.PaymentAddress,
		ChargeAmount:  win.Cents,
		ChargeUnit:    "USD_CENTS",
		PaymentAmount: float64(win.Cents*microAlgosPerCent) / 1e6,
		PaymentUnit:   "ALGO",
		AlgoGroupID:   uuid.NewString(),
		AlgoTxnID:     uuid.NewString(),
		TsInit:        time.Now().UTC().Format(time.RFC3339),
	}
	if status == payment.StatusSuccess {
		h.Store.Put(txn)
	}
	if obs.SimTransactionsTotal != nil {
		obs.SimTransactionsTotal.WithLabelValues(status).Inc()
	}
	h.Bus.Publish(payment.Notification{
		Origin:      h.Origin,
		Type:        payment.NotificationType,
		TxnID:       txnID,
		Status:      status,
		Transaction: &txn,
	})
	h.Launcher.Close(txnID)
	h.Logger.Debug().Str("txn_id", txnID).Str("status", status).Msg("checkout completed")
	common.JSON(w, http.StatusOK, map[string]string{"txn_id": txnID, "status": status})
}

// Abandon closes a checkout window without reporting anything, the way a user
// dismisses the popup mid-flow.
func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Launcher == nil {
		common.JSONError(w, http.StatusInternalServerError, "SIM_NOT_CONFIGURED", "simulator unavailable", nil)
		return
	}
	txnID := strings.TrimSpace(chi.URLParam(r, "txnID"))
	if txnID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "txnID is required", nil)
		return
	}
	h.Launcher.Close(txnID)
	h.Logger.Debug().Str("txn_id", txnID).Msg("checkout abandoned")
	common.JSON(w, http.StatusOK, map[string]string{"txn_id": txnID, "status": "abandoned"})
}

// Transaction serves the authoritative transaction lookup consumed by the
// verification client.
func (h *Handler) Transaction(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "SIM_NOT_CONFIGURED", "simulator unavailable", nil)
		return
	}
	txnID := strings.TrimSpace(chi.URLParam(r, "txnID"))
	if txnID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "txnID is required", nil)
		return
	}
	txn, ok := h.Store.Get(txnID)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "TXN_NOT_FOUND", "transaction not found", nil)
		return
	}
	common.JSON(w, http.StatusOK, txn)
}

// Routes mounts the simulator endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/pay", h.Checkout)
	r.Post("/pay/{txnID}/complete", h.Complete)
	r.Post("/pay/{txnID}/abandon", h.Abandon)
	r.Get("/v1/transaction/{txnID}", h.Transaction)
}
