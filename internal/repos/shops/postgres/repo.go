package shops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/repaircoin/rcnledger/internal/ledger"
)

type shopsRepo struct{ db *sql.DB }

func New(db *sql.DB) *shopsRepo {
	return &shopsRepo{db: db}
}

const shopColumns = `shop_id, address, purchased_rcn, rcg_tier, total_issued, total_received`

func (r *shopsRepo) Get(ctx context.Context, shopID string) (ledger.ShopLedger, error) {
	var s ledger.ShopLedger

	err := r.db.QueryRowContext(ctx, `
		SELECT `+shopColumns+`
		FROM shop_ledgers
		WHERE shop_id = $1
	`, shopID).Scan(
		&s.ShopID, &s.Address, &s.PurchasedBalance,
		&s.RCGTier, &s.TotalIssued, &s.TotalReceived,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.ShopLedger{}, ledger.ErrShopNotFound
		}

		return ledger.ShopLedger{}, fmt.Errorf("get shop: %w", err)
	}

	return s, nil
}

func (r *shopsRepo) LockLedger(tx *sql.Tx, shopID string) (ledger.ShopLedger, error) {
	var s ledger.ShopLedger

	err := tx.QueryRow(`
		SELECT `+shopColumns+`
		FROM shop_ledgers
		WHERE shop_id = $1
		FOR UPDATE
	`, shopID).Scan(
		&s.ShopID, &s.Address, &s.PurchasedBalance,
		&s.RCGTier, &s.TotalIssued, &s.TotalReceived,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.ShopLedger{}, ledger.ErrShopNotFound
		}

		return ledger.ShopLedger{}, fmt.Errorf("lock shop: %w", err)
	}

	return s, nil
}

func (r *shopsRepo) DebitPurchased(tx *sql.Tx, shopID string, amount int64) error {
	res, err := tx.Exec(`
		UPDATE shop_ledgers
		SET purchased_rcn = purchased_rcn - $2,
		    updated_at = now()
		WHERE shop_id = $1
		  AND purchased_rcn >= $2
	`, shopID, amount)
	if err != nil {
		return fmt.Errorf("debit purchased: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return ledger.ErrInsufficientShopBalance
	}

	return nil
}

func (r *shopsRepo) CreditPurchased(tx *sql.Tx, shopID string, amount int64) error {
	res, err := tx.Exec(`
		UPDATE shop_ledgers
		SET purchased_rcn = purchased_rcn + $2,
		    updated_at = now()
		WHERE shop_id = $1
	`, shopID, amount)
	if err != nil {
		return fmt.Errorf("credit purchased: %w", err)
	}

	return requireShop(res)
}

func (r *shopsRepo) AddIssued(tx *sql.Tx, shopID string, amount int64) error {
	res, err := tx.Exec(`
		UPDATE shop_ledgers
		SET total_issued = total_issued + $2,
		    updated_at = now()
		WHERE shop_id = $1
	`, shopID, amount)
	if err != nil {
		return fmt.Errorf("add issued: %w", err)
	}

	return requireShop(res)
}

func (r *shopsRepo) AddReceived(tx *sql.Tx, shopID string, amount int64) error {
	res, err := tx.Exec(`
		UPDATE shop_ledgers
		SET total_received = total_received + $2,
		    updated_at = now()
		WHERE shop_id = $1
	`, shopID, amount)
	if err != nil {
		return fmt.Errorf("add received: %w", err)
	}

	return requireShop(res)
}

func requireShop(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return ledger.ErrShopNotFound
	}

	return nil
}
