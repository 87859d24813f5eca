package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/repaircoin/rcnledger/internal/ledger"
	"github.com/repaircoin/rcnledger/internal/repos/sessions"
)

var _ sessions.Sessions = (*sessionsRepo)(nil)

type sessionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *sessionsRepo {
	return &sessionsRepo{db: db}
}

const sessionColumns = `session_id, customer_address, shop_id, requested_amount, status, created_at, expires_at`

func (r *sessionsRepo) Insert(tx *sql.Tx, s ledger.RedemptionSession) error {
	_, err := tx.Exec(`
		INSERT INTO redemption_sessions
			(session_id, customer_address, shop_id, requested_amount, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.SessionID, s.CustomerAddress, s.ShopID, s.RequestedAmount, s.Status, s.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ledger.ErrRedemptionInProgress
		}

		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

func (r *sessionsRepo) Get(ctx context.Context, sessionID string) (ledger.RedemptionSession, error) {
	var s ledger.RedemptionSession

	err := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM redemption_sessions
		WHERE session_id = $1
	`, sessionID).Scan(
		&s.SessionID, &s.CustomerAddress, &s.ShopID,
		&s.RequestedAmount, &s.Status, &s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.RedemptionSession{}, ledger.ErrSessionNotFound
		}

		return ledger.RedemptionSession{}, fmt.Errorf("get session: %w", err)
	}

	return s, nil
}

func (r *sessionsRepo) Lock(tx *sql.Tx, sessionID string) (ledger.RedemptionSession, error) {
	var s ledger.RedemptionSession

	err := tx.QueryRow(`
		SELECT `+sessionColumns+`
		FROM redemption_sessions
		WHERE session_id = $1
		FOR UPDATE
	`, sessionID).Scan(
		&s.SessionID, &s.CustomerAddress, &s.ShopID,
		&s.RequestedAmount, &s.Status, &s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.RedemptionSession{}, ledger.ErrSessionNotFound
		}

		return ledger.RedemptionSession{}, fmt.Errorf("lock session: %w", err)
	}

	return s, nil
}

func (r *sessionsRepo) SetStatus(tx *sql.Tx, sessionID string, status ledger.SessionStatus) error {
	res, err := tx.Exec(`
		UPDATE redemption_sessions
		SET status = $2
		WHERE session_id = $1
	`, sessionID, status)
	if err != nil {
		return fmt.Errorf("set session status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return ledger.ErrSessionNotFound
	}

	return nil
}

func (r *sessionsRepo) ExpireOverdue(tx *sql.Tx, address string, now time.Time) (int64, error) {
	res, err := tx.Exec(`
		UPDATE redemption_sessions
		SET status = 'expired'
		WHERE customer_address = $1
		  AND status = 'active'
		  AND expires_at <= $2
	`, address, now)
	if err != nil {
		return 0, fmt.Errorf("expire overdue: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return affected, nil
}

func (r *sessionsRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE redemption_sessions
		SET status = 'expired'
		WHERE status = 'active'
		  AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return affected, nil
}
