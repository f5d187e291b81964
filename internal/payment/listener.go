package payment

import "github.com/quickbytes/payflow/internal/obs"

// handleNotification routes one in-band message to its session. It runs to
// completion synchronously: the origin and shape checks plus the claim form
// the check-then-act window that keeps resolution exactly-once against a
// concurrently firing close watcher.
func (o *Orchestrator) handleNotification(n Notification) {
	if n.Origin != o.origin {
		// Expected background noise from unrelated senders, not an error.
		o.logger.Debug().Str("origin", n.Origin).Msg("notification from unauthorised origin dropped")
		return
	}
	if n.Type != NotificationType || n.TxnID == "" || n.Transaction == nil {
		return
	}

	switch n.Status {
	case StatusSuccess:
		cb, ok := o.registry.Claim(n.TxnID)
		if !ok {
			// Session already resolved through another path, or never existed.
			return
		}
		o.registry.MarkComplete(n.TxnID)
		if cb.OnSuccess != nil {
			cb.OnSuccess(*n.Transaction)
		}
		if obs.SessionOutcomeTotal != nil {
			obs.SessionOutcomeTotal.WithLabelValues(OutcomeSuccess, PathMessage).Inc()
		}
		o.logger.Debug().Str("txn_id", n.TxnID).Str("status", n.Status).Msg("payment message received")
	case StatusError:
		// An in-band failure is terminal here: it claims the session, so the
		// close watcher only garbage-collects and never overrides it later.
		cb, ok := o.registry.Claim(n.TxnID)
		if !ok {
			return
		}
		if cb.OnError != nil {
			cb.OnError(ErrPaymentFailed)
		}
		if obs.SessionOutcomeTotal != nil {
			obs.SessionOutcomeTotal.WithLabelValues(OutcomeError, PathMessage).Inc()
		}
		o.logger.Debug().Str("txn_id", n.TxnID).Str("status", n.Status).Msg("payment message received")
	}
}
