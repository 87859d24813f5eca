package ledgerstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/repaircoin/rcnledger/internal/infra/pgutils"
	"github.com/repaircoin/rcnledger/internal/ledger"
)

// RecordMintConfirmed moves the referenced amount from pending mint to
// confirmed on-chain. Idempotent: a transaction already confirmed is a
// no-op regardless of how many times the callback is delivered; the
// unique index on external_tx_hash backstops a hash being attached to
// two different rows.
func (s *Store) RecordMintConfirmed(ctx context.Context, transactionID, onChainTxHash string) error {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.txns.LockByID(tx, transactionID)
		if err != nil {
			return fmt.Errorf("lock transaction: %w", err)
		}

		switch t.Status {
		case ledger.TxConfirmed:
			return nil // duplicate delivery
		case ledger.TxFailed:
			// A confirmation after a failure reversal cannot be applied
			// automatically: the amount may already have been redeemed.
			return fmt.Errorf("transaction %s already failed, refusing late confirmation: %w",
				transactionID, ledger.ErrSettlementConflict)
		case ledger.TxPending:
		}

		_, err = s.cust.LockLedger(tx, t.CustomerAddress)
		if err != nil {
			return fmt.Errorf("lock customer: %w", err)
		}

		err = s.cust.SettleConfirmed(tx, t.CustomerAddress, t.Amount)
		if err != nil {
			return fmt.Errorf("settle counters: %w", err)
		}

		err = s.txns.MarkConfirmed(tx, transactionID, onChainTxHash)
		if err != nil {
			return fmt.Errorf("mark confirmed: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("record mint confirmed: %w", err)
	}

	return nil
}

// RecordMintFailed reverses the pending amount, which makes it count
// toward the available balance again immediately. Idempotent on
// terminal states.
func (s *Store) RecordMintFailed(ctx context.Context, transactionID, reason string) error {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.txns.LockByID(tx, transactionID)
		if err != nil {
			return fmt.Errorf("lock transaction: %w", err)
		}

		switch t.Status {
		case ledger.TxFailed, ledger.TxConfirmed:
			return nil // duplicate or already settled
		case ledger.TxPending:
		}

		_, err = s.cust.LockLedger(tx, t.CustomerAddress)
		if err != nil {
			return fmt.Errorf("lock customer: %w", err)
		}

		err = s.cust.SettleFailed(tx, t.CustomerAddress, t.Amount)
		if err != nil {
			return fmt.Errorf("settle counters: %w", err)
		}

		err = s.txns.MarkFailed(tx, transactionID, reason)
		if err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("record mint failed: %w", err)
	}

	return nil
}
