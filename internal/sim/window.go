package sim

import (
	"errors"
	"net/url"
	"strconv"
	"sync"

	"github.com/quickbytes/payflow/internal/payment"
)

// ErrBlocked simulates the platform refusing to open a popup.
var ErrBlocked = errors.New("sim: popup blocked")

// Window is a simulated checkout browsing context.
type Window struct {
	TxnID          string
	Name           string
	URL            string
	Features       string
	Cents          int64
	PaymentAddress string
	PayeeName      string
	ItemName       string

	mu     sync.Mutex
	closed bool
}

// Closed reports whether the window has been closed.
func (w *Window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close marks the window closed. Closing twice is a no-op.
func (w *Window) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// Launcher opens simulated checkout windows. Each Open parses the checkout
// destination URL and registers the pending window under its transaction id
// so the completion endpoint can find and close it.
type Launcher struct {
	// Blocked makes every Open fail, simulating a popup blocker.
	Blocked bool

	mu      sync.Mutex
	windows map[string]*Window
}

// NewLauncher returns a launcher with no open windows.
func NewLauncher() *Launcher {
	return &Launcher{windows: make(map[string]*Window)}
}

// Open implements payment.Launcher.
func (l *Launcher) Open(dest, name string, placement payment.Placement) (payment.Window, error) {
	if l.Blocked {
		return nil, ErrBlocked
	}
	u, err := url.Parse(dest)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	cents, _ := strconv.ParseInt(q.Get("cents"), 10, 64)
	w := &Window{
		TxnID:          q.Get("txn_id"),
		Name:           name,
		URL:            dest,
		Features:       placement.FeatureString(),
		Cents:          cents,
		PaymentAddress: q.Get("payment_address"),
		PayeeName:      q.Get("payee_name"),
		ItemName:       q.Get("item_name"),
	}
	l.mu.Lock()
	l.windows[w.TxnID] = w
	l.mu.Unlock()
	return w, nil
}

// Window returns the open window for a transaction id.
func (l *Launcher) Window(txnID string) (*Window, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[txnID]
	return w, ok
}

// Close closes the window for txnID, if any.
func (l *Launcher) Close(txnID string) {
	l.mu.Lock()
	w, ok := l.windows[txnID]
	delete(l.windows, txnID)
	l.mu.Unlock()
	if ok {
		w.Close()
	}
}
