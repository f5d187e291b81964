package payment

import (
	"context"
	"errors"
	"time"

	"github.com/quickbytes/payflow/internal/obs"
)

// watchClose samples the window's closed state on the configured interval.
// One watcher runs per session, started once right after launch; it stops on
// the first closed observation or on orchestrator teardown.
func (o *Orchestrator) watchClose(id string, w Window) {
	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			if !w.Closed() {
				continue
			}
			o.resolveClosed(id)
			return
		}
	}
}

// resolveClosed runs once per session, on the first closed observation. If the
// in-band path already resolved the session it only drops the registry entry;
// otherwise it claims the session and asks the server what actually happened.
func (o *Orchestrator) resolveClosed(id string) {
	cb, ok := o.registry.Claim(id)
	if !ok {
		// Already resolved (in-band success or error) or torn down; the entry,
		// if still present, is only garbage-collected here.
		o.registry.Remove(id)
		o.logger.Debug().Str("txn_id", id).Msg("payment window closed")
		return
	}

	// Window closed before any in-band message arrived: the server is the
	// authority on whether a transaction was recorded. The call deliberately
	// uses a background context; teardown does not cancel it, the final
	// Remove simply reports the session gone and the response is dropped.
	txn, err := o.fallbackVerify(id)

	if !o.registry.Remove(id) {
		// Destroyed while the verification call was in flight.
		return
	}
	switch {
	case err != nil:
		// Unconfirmable is not the same as failed: report closed, not error.
		o.logger.Debug().Str("txn_id", id).Err(err).Msg("transaction verification failed after window close")
		if cb.OnClose != nil {
			cb.OnClose()
		}
		o.countOutcome(OutcomeClosed)
	case txn != nil:
		o.logger.Debug().Str("txn_id", id).Msg("transaction verified after window close")
		if cb.OnSuccess != nil {
			cb.OnSuccess(*txn)
		}
		o.countOutcome(OutcomeSuccess)
	default:
		o.logger.Debug().Str("txn_id", id).Msg("transaction not found after window close")
		if cb.OnClose != nil {
			cb.OnClose()
		}
		o.countOutcome(OutcomeClosed)
	}
	o.logger.Debug().Str("txn_id", id).Msg("payment window closed")
}

func (o *Orchestrator) fallbackVerify(id string) (*Transaction, error) {
	if o.verifier == nil {
		return nil, errors.New("payment: verifier not configured")
	}
	txn, err := o.verifier.Verify(context.Background(), id)
	if obs.VerificationTotal != nil {
		switch {
		case err != nil:
			obs.VerificationTotal.WithLabelValues("error").Inc()
		case txn != nil:
			obs.VerificationTotal.WithLabelValues("found").Inc()
		default:
			obs.VerificationTotal.WithLabelValues("not_found").Inc()
		}
	}
	return txn, err
}

func (o *Orchestrator) countOutcome(outcome string) {
	if obs.SessionOutcomeTotal != nil {
		obs.SessionOutcomeTotal.WithLabelValues(outcome, PathFallback).Inc()
	}
}
