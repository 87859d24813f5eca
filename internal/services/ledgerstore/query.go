package ledgerstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/repaircoin/rcnledger/internal/infra/pgutils"
	"github.com/repaircoin/rcnledger/internal/ledger"
	"github.com/repaircoin/rcnledger/internal/tier"
)

// BalanceSnapshot is the one authoritative balance view. Available and
// Total come from the balance calculator against a single row read, so
// the two can never be computed from different moments.
type BalanceSnapshot struct {
	Address         string `json:"address"`
	Available       int64  `json:"availableBalance"`
	Total           int64  `json:"totalBalance"`
	PendingMint     int64  `json:"pendingMintAmount"`
	Confirmed       int64  `json:"confirmedOnChainAmount"`
	Tier            string `json:"tier"`
	NextTier        string `json:"nextTier,omitempty"`
	RemainingToNext int64  `json:"remainingToNextTier,omitempty"`
}

func (s *Store) Balance(ctx context.Context, customerAddress string) (BalanceSnapshot, error) {
	cl, err := s.cust.Get(ctx, customerAddress)
	if err != nil {
		return BalanceSnapshot{}, fmt.Errorf("get ledger: %w", err)
	}

	return snapshot(s, cl), nil
}

func snapshot(s *Store, cl ledger.CustomerLedger) BalanceSnapshot {
	lvl := tier.For(s.program, cl.LifetimeEarnings)

	return BalanceSnapshot{
		Address:         cl.Address,
		Available:       ledger.Available(cl),
		Total:           ledger.Total(cl),
		PendingMint:     cl.PendingMint,
		Confirmed:       cl.ConfirmedOnChain,
		Tier:            cl.Tier,
		NextTier:        lvl.NextTier,
		RemainingToNext: lvl.RemainingToNext,
	}
}

// CustomerLedger returns the raw counters; workflows that need the
// pre-transaction tier read it from here.
func (s *Store) CustomerLedger(ctx context.Context, customerAddress string) (ledger.CustomerLedger, error) {
	return s.cust.Get(ctx, customerAddress)
}

func (s *Store) ShopLedger(ctx context.Context, shopID string) (ledger.ShopLedger, error) {
	return s.shops.Get(ctx, shopID)
}

// EnsureCustomer creates the account and empty ledger for an address if
// absent; redemption auto-creates customers this way. Role exclusivity
// is enforced: shop addresses are rejected.
func (s *Store) EnsureCustomer(ctx context.Context, address string) error {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.cust.Ensure(tx, address)
	})
	if err != nil {
		return fmt.Errorf("ensure customer: %w", err)
	}

	return nil
}

// CreditShopPurchase records a shop buying RCN to fund rewards.
func (s *Store) CreditShopPurchase(ctx context.Context, shopID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("purchase amount must be positive, got %d", amount)
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, lerr := s.shops.LockLedger(tx, shopID)
		if lerr != nil {
			return lerr
		}

		return s.shops.CreditPurchased(tx, shopID, amount)
	})
	if err != nil {
		return fmt.Errorf("credit shop purchase: %w", err)
	}

	return nil
}

// ReplayReport compares a customer's materialized counters against a
// replay of their transaction log.
type ReplayReport struct {
	Stored   ledger.CustomerLedger `json:"stored"`
	Replayed ledger.CustomerLedger `json:"replayed"`
	Drift    ledger.Drift          `json:"drift"`
	InSync   bool                  `json:"inSync"`
}

// RebuildCustomer replays the customer's log under their row lock and
// reports drift. This is the audit path; repairs go through the
// settlement operations, never through direct counter writes.
func (s *Store) RebuildCustomer(ctx context.Context, customerAddress string) (ReplayReport, error) {
	var report ReplayReport

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cl, err := s.cust.LockLedger(tx, customerAddress)
		if err != nil {
			return fmt.Errorf("lock customer: %w", err)
		}

		// The row lock blocks every writer for this customer, so the
		// log read below observes exactly the committed history that
		// produced the locked counters.
		txs, err := s.txns.ListByCustomer(ctx, customerAddress)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}

		replayed := ledger.Replay(customerAddress, txs)
		replayed.Tier = cl.Tier

		report = ReplayReport{
			Stored:   cl,
			Replayed: replayed,
			Drift:    ledger.Diff(cl, replayed),
		}
		report.InSync = report.Drift.Zero()

		return nil
	})
	if err != nil {
		return ReplayReport{}, fmt.Errorf("rebuild customer: %w", err)
	}

	return report, nil
}

// StuckPending lists mints that have sat pending beyond the operational
// threshold.
func (s *Store) StuckPending(ctx context.Context, olderThan time.Duration) ([]ledger.Transaction, error) {
	cutoff := time.Now().Add(-olderThan)

	txs, err := s.txns.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("stuck pending: %w", err)
	}

	return txs, nil
}

// History returns the customer's full transaction log in append order.
func (s *Store) History(ctx context.Context, customerAddress string) ([]ledger.Transaction, error) {
	return s.txns.ListByCustomer(ctx, customerAddress)
}
