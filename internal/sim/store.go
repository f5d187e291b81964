// Package sim implements an in-process stand-in for the hosted checkout: a
// window launcher, a checkout page, a completion endpoint that publishes the
// in-band notification, and the transaction lookup API the verification
// client talks to. It exists for the demo binary and for end-to-end tests;
// the real hosted checkout is out of scope.
package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quickbytes/payflow/internal/payment"
)

// Store is the simulator's in-memory ledger of completed transactions.
type Store struct {
	mu   sync.RWMutex
	txns map[string]payment.Transaction
}

// NewStore returns an empty transaction store.
func NewStore() *Store {
	return &Store{txns: make(map[string]payment.Transaction)}
}

// Put records a completed transaction under its id.
func (s *Store) Put(txn payment.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns[txn.TxnID] = txn
}

// Get looks up a transaction by id.
func (s *Store) Get(txnID string) (payment.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.txns[txnID]
	return txn, ok
}

// Len returns the number of recorded transactions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txns)
}

// Ping implements the readiness probe contract. The store is in memory, so
// the probe only fails when the store itself is missing.
func (s *Store) Ping(context.Context, time.Duration) error {
	if s == nil {
		return errors.New("sim: store not configured")
	}
	return nil
}
