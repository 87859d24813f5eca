package customers

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/repaircoin/rcnledger/internal/ledger"
)

func (r *customersRepo) ApplyEarn(tx *sql.Tx, address string, amount int64, newTier string) error {
	res, err := tx.Exec(`
		UPDATE customer_ledgers
		SET lifetime_earnings = lifetime_earnings + $2,
		    pending_mint = pending_mint + $2,
		    tier = $3,
		    updated_at = now()
		WHERE address = $1
	`, address, amount, newTier)
	if err != nil {
		return fmt.Errorf("apply earn: %w", err)
	}

	return requireAffected(res, "apply earn")
}

func (r *customersRepo) ApplyRedeem(tx *sql.Tx, address string, amount int64) error {
	res, err := tx.Exec(`
		UPDATE customer_ledgers
		SET total_redemptions = total_redemptions + $2,
		    updated_at = now()
		WHERE address = $1
		  AND lifetime_earnings - total_redemptions - pending_mint >= $2
	`, address, amount)
	if err != nil {
		return fmt.Errorf("apply redeem: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	// Guarded update: the WHERE clause re-checks availability under the
	// row lock so the counter can never overdraw even if a caller's
	// pre-check raced.
	if affected == 0 {
		return ledger.ErrInsufficientAvailableBalance
	}

	return nil
}

func (r *customersRepo) SettleConfirmed(tx *sql.Tx, address string, amount int64) error {
	res, err := tx.Exec(`
		UPDATE customer_ledgers
		SET pending_mint = pending_mint - $2,
		    confirmed_on_chain = confirmed_on_chain + $2,
		    updated_at = now()
		WHERE address = $1
		  AND pending_mint >= $2
	`, address, amount)
	if err != nil {
		return fmt.Errorf("settle confirmed: %w", err)
	}

	return requireAffected(res, "settle confirmed")
}

func (r *customersRepo) SettleFailed(tx *sql.Tx, address string, amount int64) error {
	res, err := tx.Exec(`
		UPDATE customer_ledgers
		SET pending_mint = pending_mint - $2,
		    updated_at = now()
		WHERE address = $1
		  AND pending_mint >= $2
	`, address, amount)
	if err != nil {
		return fmt.Errorf("settle failed: %w", err)
	}

	return requireAffected(res, "settle failed")
}

func (r *customersRepo) AddShopEarnings(tx *sql.Tx, address, shopID string, amount int64) error {
	_, err := tx.Exec(`
		INSERT INTO customer_shop_earnings (customer_address, shop_id, earned)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_address, shop_id)
		DO UPDATE SET earned = customer_shop_earnings.earned + EXCLUDED.earned
	`, address, shopID, amount)
	if err != nil {
		return fmt.Errorf("add shop earnings: %w", err)
	}

	return nil
}

func (r *customersRepo) HomeShop(tx *sql.Tx, address string) (string, error) {
	var shopID string

	// Ties resolve deterministically by shop id.
	err := tx.QueryRow(`
		SELECT shop_id
		FROM customer_shop_earnings
		WHERE customer_address = $1
		ORDER BY earned DESC, shop_id ASC
		LIMIT 1
	`, address).Scan(&shopID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("home shop: %w", err)
	}

	return shopID, nil
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%s: no ledger row updated", op)
	}

	return nil
}
