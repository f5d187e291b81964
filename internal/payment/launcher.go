package payment

import (
	"fmt"
	"net/url"
	"strconv"
)

// Window is a handle to a launched checkout context. Closed is sampled by the
// close watcher; no portable close event exists, so polling is the contract.
type Window interface {
	Closed() bool
}

// Launcher opens the hosted checkout in a separate browsing context. A
// refused launch (popup blocked) is reported as ErrPopupBlocked; it is a
// recoverable condition, not a crash.
type Launcher interface {
	Open(url, name string, placement Placement) (Window, error)
}

// Placement controls the size and screen position of the checkout window.
type Placement struct {
	Width        int
	Height       int
	ScreenWidth  int
	ScreenHeight int
	Features     string
}

// DefaultPlacement matches the hosted checkout's reference dimensions.
func DefaultPlacement() Placement {
	return Placement{
		Width:        600,
		Height:       800,
		ScreenWidth:  1920,
		ScreenHeight: 1080,
		Features:     "resizable=yes,scrollbars=yes,status=yes",
	}
}

// FeatureString renders the window feature list with screen-centred offsets.
func (p Placement) FeatureString() string {
	left := (p.ScreenWidth - p.Width) / 2
	top := (p.ScreenHeight - p.Height) / 2
	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	return fmt.Sprintf("width=%d,height=%d,left=%d,top=%d,%s", p.Width, p.Height, left, top, p.Features)
}

// PaymentURL builds the checkout destination URL carrying the correlation id
// and the payment parameters as a query string.
func PaymentURL(base, txnID string, params Params) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("payment: parse checkout url: %w", err)
	}
	q := u.Query()
	q.Set("txn_id", txnID)
	q.Set("cents", strconv.FormatInt(params.Cents, 10))
	q.Set("payment_address", params.PaymentAddress)
	if params.PayeeName != "" {
		q.Set("payee_name", params.PayeeName)
	}
	if params.ItemName != "" {
		q.Set("item_name", params.ItemName)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
