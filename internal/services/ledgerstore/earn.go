package ledgerstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/repaircoin/rcnledger/internal/infra/pgutils"
	"github.com/repaircoin/rcnledger/internal/ledger"
	"github.com/repaircoin/rcnledger/internal/tier"
)

// EarnInput describes one reward credit. Type distinguishes the plain
// earn from bonus/referral/tier_bonus credits; all of them count toward
// lifetime earnings and start out pending mint.
type EarnInput struct {
	CustomerAddress string
	ShopID          string
	Amount          int64
	Type            ledger.TxType
	Reason          string
}

// RecordEarn runs the full earn flow in one DB transaction:
//
// 1) Lock shop row, check and debit its purchased balance.
// 2) Lock customer row.
// 3) Credit lifetime earnings and pending mint, upgrade tier.
// 4) Append the pending earn row.
//
// Shop rows lock before customer rows everywhere in this package; the
// fixed order keeps concurrent earns and redeems deadlock-free.
func (s *Store) RecordEarn(ctx context.Context, in EarnInput) (ledger.Transaction, error) {
	if in.Amount <= 0 {
		return ledger.Transaction{}, fmt.Errorf("earn amount must be positive, got %d", in.Amount)
	}

	out := ledger.Transaction{}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := s.shops.LockLedger(tx, in.ShopID)
		if err != nil {
			return fmt.Errorf("lock shop: %w", err)
		}

		err = s.shops.DebitPurchased(tx, in.ShopID, in.Amount)
		if err != nil {
			return fmt.Errorf("debit shop: %w", err)
		}

		cl, err := s.cust.LockLedger(tx, in.CustomerAddress)
		if err != nil {
			return fmt.Errorf("lock customer: %w", err)
		}

		computed := tier.For(s.program, cl.LifetimeEarnings+in.Amount).Tier
		newTier := tier.Upgrade(s.program, cl.Tier, computed)

		err = s.cust.ApplyEarn(tx, in.CustomerAddress, in.Amount, newTier)
		if err != nil {
			return fmt.Errorf("apply earn: %w", err)
		}

		err = s.cust.AddShopEarnings(tx, in.CustomerAddress, in.ShopID, in.Amount)
		if err != nil {
			return fmt.Errorf("add shop earnings: %w", err)
		}

		err = s.shops.AddIssued(tx, in.ShopID, in.Amount)
		if err != nil {
			return fmt.Errorf("add issued: %w", err)
		}

		out, err = s.txns.Append(tx, ledger.Transaction{
			ID:              uuid.NewString(),
			Type:            in.Type,
			CustomerAddress: in.CustomerAddress,
			ShopID:          in.ShopID,
			Amount:          in.Amount,
			Reason:          in.Reason,
			Status:          ledger.TxPending,
		})
		if err != nil {
			return fmt.Errorf("append log: %w", err)
		}

		return nil
	})
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("record earn: %w", err)
	}

	return out, nil
}
