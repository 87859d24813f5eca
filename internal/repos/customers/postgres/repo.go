package customers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/repaircoin/rcnledger/internal/ledger"
)

type customersRepo struct{ db *sql.DB }

func New(db *sql.DB) *customersRepo {
	return &customersRepo{db: db}
}

func (r *customersRepo) Ensure(tx *sql.Tx, address string) error {
	// ON CONFLICT instead of check-then-insert: two concurrent first
	// earns for the same address would otherwise race the PK.
	_, err := tx.Exec(`
		INSERT INTO accounts (address, role) VALUES ($1, 'customer')
		ON CONFLICT (address) DO NOTHING
	`, address)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	var role string

	err = tx.QueryRow(`
		SELECT role FROM accounts WHERE address = $1
	`, address).Scan(&role)
	if err != nil {
		return fmt.Errorf("check role: %w", err)
	}

	if role != string(ledger.RoleCustomer) {
		return ledger.ErrRoleConflict
	}

	_, err = tx.Exec(`
		INSERT INTO customer_ledgers (address) VALUES ($1)
		ON CONFLICT (address) DO NOTHING
	`, address)
	if err != nil {
		return fmt.Errorf("insert ledger: %w", err)
	}

	return nil
}

func (r *customersRepo) Exists(tx *sql.Tx, address string) error {
	var exists bool

	err := tx.QueryRow(`
		SELECT EXISTS(
			SELECT 1
			FROM accounts a
			JOIN customer_ledgers l ON l.address = a.address
			WHERE a.address = $1 AND a.role = 'customer' AND a.active
		)
	`, address).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}

	if !exists {
		return ledger.ErrCustomerNotFound
	}

	return nil
}

func (r *customersRepo) Get(ctx context.Context, address string) (ledger.CustomerLedger, error) {
	var l ledger.CustomerLedger

	err := r.db.QueryRowContext(ctx, `
		SELECT address, lifetime_earnings, total_redemptions, pending_mint, confirmed_on_chain, tier
		FROM customer_ledgers
		WHERE address = $1
	`, address).Scan(
		&l.Address, &l.LifetimeEarnings, &l.TotalRedemptions,
		&l.PendingMint, &l.ConfirmedOnChain, &l.Tier,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.CustomerLedger{}, ledger.ErrCustomerNotFound
		}

		return ledger.CustomerLedger{}, fmt.Errorf("get ledger: %w", err)
	}

	return l, nil
}

func (r *customersRepo) LockLedger(tx *sql.Tx, address string) (ledger.CustomerLedger, error) {
	var l ledger.CustomerLedger

	err := tx.QueryRow(`
		SELECT address, lifetime_earnings, total_redemptions, pending_mint, confirmed_on_chain, tier
		FROM customer_ledgers
		WHERE address = $1
		FOR UPDATE
	`, address).Scan(
		&l.Address, &l.LifetimeEarnings, &l.TotalRedemptions,
		&l.PendingMint, &l.ConfirmedOnChain, &l.Tier,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.CustomerLedger{}, ledger.ErrCustomerNotFound
		}

		return ledger.CustomerLedger{}, fmt.Errorf("lock ledger: %w", err)
	}

	return l, nil
}
