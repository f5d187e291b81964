package payment

import "errors"

// NotificationType is the completion marker a checkout context must set on
// in-band messages for them to be considered at all.
const NotificationType = "payment_complete"

// Statuses carried by in-band notifications.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Terminal outcomes delivered to the caller, used for logging and metrics labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeClosed  = "closed"
)

// Resolution paths, used as metrics labels.
const (
	PathMessage  = "message"
	PathFallback = "fallback"
	PathLaunch   = "launch"
)

var (
	// ErrInvalidParams indicates the payment parameters failed validation.
	ErrInvalidParams = errors.New("payment: invalid payment parameters")
	// ErrPopupBlocked indicates the platform refused to open the checkout window.
	ErrPopupBlocked = errors.New("payment: checkout window blocked")
	// ErrPaymentFailed is delivered when a checkout context reports an explicit failure.
	ErrPaymentFailed = errors.New("payment: payment failed")
)

// Params describe one priced payment request forwarded to the hosted checkout.
type Params struct {
	Cents          int64  `validate:"required,gt=0"`
	PaymentAddress string `validate:"required,payaddr"`
	PayeeName      string
	ItemName       string
}

// Transaction mirrors the detail record returned by the verification API and
// carried by in-band completion notifications.
type Transaction struct {
	TxnID         string  `json:"txn_id"`
	Payer         string  `json:"payer"`
	Payee         string  `json:"payee"`
	ChargeAmount  int64   `json:"charge_amount"`
	ChargeUnit    string  `json:"charge_unit"`
	PaymentAmount float64 `json:"payment_amount"`
	PaymentUnit   string  `json:"payment_unit"`
	AlgoGroupID   string  `json:"algo_group_id"`
	AlgoTxnID     string  `json:"algo_txn_id"`
	TsInit        string  `json:"ts_init"`
}

// Callbacks are the caller-supplied outcome handlers for one session. All
// fields are optional; at most one of the three ever fires per session.
type Callbacks struct {
	OnSuccess func(Transaction)
	OnError   func(error)
	OnClose   func()
}

// Notification is an in-band message delivered from a checkout context back to
// the orchestrator. Origin is set by the transport, not the sender payload.
type Notification struct {
	Origin      string       `json:"-"`
	Type        string       `json:"type"`
	TxnID       string       `json:"txn_id"`
	Status      string       `json:"status"`
	Transaction *Transaction `json:"transaction,omitempty"`
}
