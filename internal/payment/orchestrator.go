package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quickbytes/payflow/internal/obs"
)

const defaultPollInterval = time.Second

// Verifier answers authoritative transaction lookups. A nil transaction with
// a nil error means "no completed transaction found", which is not an error.
type Verifier interface {
	Verify(ctx context.Context, txnID string) (*Transaction, error)
}

// Source delivers in-band notifications from checkout contexts. Subscribe
// returns the function that detaches the subscription again.
type Source interface {
	Subscribe(fn func(Notification)) (unsubscribe func())
}

// Config wires an Orchestrator.
type Config struct {
	// CheckoutURL is the hosted checkout base URL; its origin is the only
	// origin in-band notifications are accepted from.
	CheckoutURL string
	Launcher    Launcher
	Verifier    Verifier
	Source      Source
	Placement   Placement
	// PollInterval is the close watcher sampling interval. Defaults to 1s.
	PollInterval time.Duration
	Logger       zerolog.Logger
	// NewID overrides transaction id generation, for tests.
	NewID func() string
}

// Orchestrator coordinates per-transaction sessions, launched checkout
// windows, in-band completion messages and fallback verification so that
// every payment attempt resolves exactly once, even when the window
// disappears without a message.
type Orchestrator struct {
	checkoutURL string
	origin      string
	launcher    Launcher
	verifier    Verifier
	placement   Placement
	poll        time.Duration
	logger      zerolog.Logger
	newID       func() string

	registry    *Registry
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	destroyOnce sync.Once
}

// New constructs an orchestrator and attaches its message listener. The
// listener stays attached until Destroy.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Launcher == nil {
		return nil, errors.New("payment: launcher is required")
	}
	u, err := url.Parse(cfg.CheckoutURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("payment: invalid checkout url %q", cfg.CheckoutURL)
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	placement := cfg.Placement
	if placement.Width <= 0 || placement.Height <= 0 {
		placement = DefaultPlacement()
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		checkoutURL: cfg.CheckoutURL,
		origin:      u.Scheme + "://" + u.Host,
		launcher:    cfg.Launcher,
		verifier:    cfg.Verifier,
		placement:   placement,
		poll:        poll,
		logger:      cfg.Logger,
		newID:       newID,
		registry:    NewRegistry(),
		ctx:         ctx,
		cancel:      cancel,
	}
	if cfg.Source != nil {
		o.unsubscribe = cfg.Source.Subscribe(o.handleNotification)
	}
	o.logger.Debug().
		Str("checkout_url", o.checkoutURL).
		Str("origin", o.origin).
		Dur("poll_interval", o.poll).
		Msg("payment orchestrator initialised")
	return o, nil
}

// CreatePayment validates params, registers a session, opens the checkout
// window and starts its close watcher. Validation failures return an error
// before any session exists; a refused launch resolves the session as an
// error outcome through OnError and still returns the id.
func (o *Orchestrator) CreatePayment(params Params, cb Callbacks) (string, error) {
	if o == nil || o.launcher == nil {
		return "", errors.New("payment: orchestrator not configured")
	}
	if err := ValidateParams(params); err != nil {
		return "", err
	}

	id := o.newID()
	o.registry.Create(id, cb)

	dest, err := PaymentURL(o.checkoutURL, id, params)
	if err != nil {
		o.resolveLaunchError(id, err)
		return id, nil
	}
	w, err := o.launcher.Open(dest, "QuickBytes_"+id, o.placement)
	if err != nil {
		o.resolveLaunchError(id, fmt.Errorf("%w: %v", ErrPopupBlocked, err))
		return id, nil
	}
	o.registry.MarkWindow(id, w)
	go o.watchClose(id, w)

	if obs.SessionStartedTotal != nil {
		obs.SessionStartedTotal.WithLabelValues("opened").Inc()
	}
	o.logger.Debug().Str("txn_id", id).Int64("cents", params.Cents).Msg("payment initiated")
	return id, nil
}

// VerifyTransaction exposes the verification client for ad-hoc lookups.
func (o *Orchestrator) VerifyTransaction(ctx context.Context, txnID string) (*Transaction, error) {
	if o == nil || o.verifier == nil {
		return nil, errors.New("payment: verifier not configured")
	}
	return o.verifier.Verify(ctx, txnID)
}

// ActiveSessions reports how many sessions have not yet resolved.
func (o *Orchestrator) ActiveSessions() int {
	return o.registry.Len()
}

// Destroy detaches the message listener, stops all close watchers and clears
// the registry without invoking any pending callbacks. It is an
// unconditional, synchronous teardown, not a graceful drain.
func (o *Orchestrator) Destroy() {
	o.destroyOnce.Do(func() {
		if o.unsubscribe != nil {
			o.unsubscribe()
		}
		o.cancel()
		cleared := o.registry.Clear()
		o.logger.Debug().Int("sessions", cleared).Msg("payment orchestrator destroyed")
	})
}

func (o *Orchestrator) resolveLaunchError(id string, err error) {
	cb, ok := o.registry.Claim(id)
	o.registry.Remove(id)
	if obs.SessionStartedTotal != nil {
		obs.SessionStartedTotal.WithLabelValues("blocked").Inc()
	}
	o.logger.Debug().Str("txn_id", id).Err(err).Msg("payment error")
	if ok && cb.OnError != nil {
		cb.OnError(err)
	}
	if obs.SessionOutcomeTotal != nil {
		obs.SessionOutcomeTotal.WithLabelValues(OutcomeError, PathLaunch).Inc()
	}
}
