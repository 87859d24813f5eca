package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/repaircoin/rcnledger/internal/ledger"
	"github.com/repaircoin/rcnledger/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

type transactionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *transactionsRepo {
	return &transactionsRepo{db: db}
}

const txColumns = `id, seq, type, customer_address, COALESCE(shop_id, ''), amount, reason,
	COALESCE(external_tx_hash, ''), status, created_at`

func (r *transactionsRepo) Append(tx *sql.Tx, t ledger.Transaction) (ledger.Transaction, error) {
	err := tx.QueryRow(`
		INSERT INTO transactions (id, type, customer_address, shop_id, amount, reason, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING seq, created_at
	`, t.ID, t.Type, t.CustomerAddress, t.ShopID, t.Amount, t.Reason, t.Status).
		Scan(&t.Seq, &t.CreatedAt)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	return t, nil
}

func (r *transactionsRepo) LockByID(tx *sql.Tx, id string) (ledger.Transaction, error) {
	var t ledger.Transaction

	err := tx.QueryRow(`
		SELECT `+txColumns+`
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&t.ID, &t.Seq, &t.Type, &t.CustomerAddress, &t.ShopID,
		&t.Amount, &t.Reason, &t.ExternalTxHash, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Transaction{}, ledger.ErrTransactionNotFound
		}

		return ledger.Transaction{}, fmt.Errorf("lock transaction: %w", err)
	}

	return t, nil
}

func (r *transactionsRepo) MarkConfirmed(tx *sql.Tx, id, externalTxHash string) error {
	_, err := tx.Exec(`
		UPDATE transactions
		SET status = 'confirmed',
		    external_tx_hash = $2
		WHERE id = $1
	`, id, externalTxHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			// The hash already settled some row; the uniqueness index is
			// the last line of defense against double settlement.
			return fmt.Errorf("external tx hash already recorded: %w", err)
		}

		return fmt.Errorf("mark confirmed: %w", err)
	}

	return nil
}

func (r *transactionsRepo) MarkFailed(tx *sql.Tx, id, reason string) error {
	_, err := tx.Exec(`
		UPDATE transactions
		SET status = 'failed',
		    reason = CASE WHEN $2 = '' THEN reason ELSE reason || ' | ' || $2 END
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}

	return nil
}

func (r *transactionsRepo) ListByCustomer(ctx context.Context, address string) ([]ledger.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE customer_address = $1
		ORDER BY seq
	`, address)
	if err != nil {
		return nil, fmt.Errorf("list by customer: %w", err)
	}
	defer rows.Close()

	return scanAll(rows)
}

func (r *transactionsRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]ledger.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE status = 'pending'
		  AND created_at < $1
		ORDER BY seq
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	return scanAll(rows)
}

func scanAll(rows *sql.Rows) ([]ledger.Transaction, error) {
	var out []ledger.Transaction

	for rows.Next() {
		var t ledger.Transaction

		err := rows.Scan(
			&t.ID, &t.Seq, &t.Type, &t.CustomerAddress, &t.ShopID,
			&t.Amount, &t.Reason, &t.ExternalTxHash, &t.Status, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		out = append(out, t)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}
