package ledgerstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/repaircoin/rcnledger/internal/infra/pgutils"
	"github.com/repaircoin/rcnledger/internal/ledger"
)

// RecordRedeem debits the customer's available balance at a shop. The
// availability and cap checks run against the locked row, so concurrent
// redemptions for the same customer serialize here even without a
// session lock; sessions exist to fail the second attempt fast instead
// of making it wait and lose.
func (s *Store) RecordRedeem(ctx context.Context, customerAddress, shopID string, amount int64) (ledger.Transaction, int64, error) {
	var (
		out          ledger.Transaction
		newAvailable int64
	)

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.redeemLocked(tx, customerAddress, shopID, amount, &out, &newAvailable)
	})
	if err != nil {
		return ledger.Transaction{}, 0, fmt.Errorf("record redeem: %w", err)
	}

	return out, newAvailable, nil
}

// RedeemInSession completes a redemption session and applies its debit
// in the same DB transaction, so a session can never complete without
// its redeem being recorded or vice versa.
func (s *Store) RedeemInSession(ctx context.Context, sessionID string, now time.Time) (ledger.Transaction, int64, error) {
	var (
		out          ledger.Transaction
		newAvailable int64
	)

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		sess, err := s.sessions.Lock(tx, sessionID)
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}

		switch {
		case sess.ExpiredAt(now):
			serr := s.sessions.SetStatus(tx, sessionID, ledger.SessionExpired)
			if serr != nil {
				return fmt.Errorf("expire session: %w", serr)
			}

			return ledger.ErrSessionExpired
		case sess.Status != ledger.SessionActive:
			if sess.Status == ledger.SessionExpired {
				return ledger.ErrSessionExpired
			}

			return fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, ledger.ErrSessionNotFound)
		}

		err = s.redeemLocked(tx, sess.CustomerAddress, sess.ShopID, sess.RequestedAmount, &out, &newAvailable)
		if err != nil {
			return err
		}

		err = s.sessions.SetStatus(tx, sessionID, ledger.SessionCompleted)
		if err != nil {
			return fmt.Errorf("complete session: %w", err)
		}

		return nil
	})
	if err != nil {
		return ledger.Transaction{}, 0, fmt.Errorf("redeem in session: %w", err)
	}

	return out, newAvailable, nil
}

func (s *Store) redeemLocked(tx *sql.Tx, customerAddress, shopID string, amount int64, out *ledger.Transaction, newAvailable *int64) error {
	if amount <= 0 {
		return fmt.Errorf("redeem amount must be positive, got %d", amount)
	}

	// Shop before customer, same order as RecordEarn.
	_, err := s.shops.LockLedger(tx, shopID)
	if err != nil {
		return fmt.Errorf("lock shop: %w", err)
	}

	cl, err := s.cust.LockLedger(tx, customerAddress)
	if err != nil {
		return fmt.Errorf("lock customer: %w", err)
	}

	available := ledger.Available(cl)
	if amount > available {
		return ledger.ErrInsufficientAvailableBalance
	}

	home, err := s.cust.HomeShop(tx, customerAddress)
	if err != nil {
		return fmt.Errorf("home shop: %w", err)
	}

	limit := s.program.CapFor(cl.LifetimeEarnings, home == shopID)
	if amount > limit {
		return ledger.ErrRedemptionCapExceeded
	}

	err = s.cust.ApplyRedeem(tx, customerAddress, amount)
	if err != nil {
		return fmt.Errorf("apply redeem: %w", err)
	}

	err = s.shops.AddReceived(tx, shopID, amount)
	if err != nil {
		return fmt.Errorf("add received: %w", err)
	}

	appended, err := s.txns.Append(tx, ledger.Transaction{
		ID:              uuid.NewString(),
		Type:            ledger.TxRedeem,
		CustomerAddress: customerAddress,
		ShopID:          shopID,
		Amount:          amount,
		Reason:          "redemption",
		Status:          ledger.TxConfirmed,
	})
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}

	*out = appended
	*newAvailable = available - amount

	return nil
}
