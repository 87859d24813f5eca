// Package redemption implements the customer redemption workflow: a
// short-lived session per attempt, at most one active session per
// customer, and completion that debits the ledger and closes the
// session in one unit of work.
package redemption

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/repaircoin/rcnledger/internal/infra/metrics"
	"github.com/repaircoin/rcnledger/internal/infra/pgutils"
	"github.com/repaircoin/rcnledger/internal/ledger"
	"github.com/repaircoin/rcnledger/internal/program"
	"github.com/repaircoin/rcnledger/internal/repos/customers"
	pgcustomers "github.com/repaircoin/rcnledger/internal/repos/customers/postgres"
	"github.com/repaircoin/rcnledger/internal/repos/sessions"
	pgsessions "github.com/repaircoin/rcnledger/internal/repos/sessions/postgres"
	"github.com/repaircoin/rcnledger/internal/services/ledgerstore"
)

type Service struct {
	db      *sql.DB
	store   *ledgerstore.Store
	cust    customers.Customers
	sess    sessions.Sessions
	program *program.Program

	now func() time.Time
}

func New(db *sql.DB, store *ledgerstore.Store) *Service {
	return &Service{
		db:      db,
		store:   store,
		cust:    pgcustomers.New(db),
		sess:    pgsessions.New(db),
		program: store.Program(),
		now:     time.Now,
	}
}

// Begin opens a redemption session for the customer at a shop. The
// amount is validated against the available balance and the applicable
// cap up front so the customer fails fast; the authoritative check
// repeats at completion under the same guards.
//
// A concurrent second Begin for the same customer fails with
// ledger.ErrRedemptionInProgress off the active-session unique index.
func (s *Service) Begin(ctx context.Context, customerAddress, shopID string, amount int64) (ledger.RedemptionSession, error) {
	if amount <= 0 {
		return ledger.RedemptionSession{}, fmt.Errorf("redemption amount must be positive, got %d", amount)
	}

	now := s.now()
	sess := ledger.RedemptionSession{
		SessionID:       uuid.NewString(),
		CustomerAddress: customerAddress,
		ShopID:          shopID,
		RequestedAmount: amount,
		Status:          ledger.SessionActive,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.program.SessionTTL),
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// Redemption auto-creates the customer ledger; shops stay shops.
		err := s.cust.Ensure(tx, customerAddress)
		if err != nil {
			return fmt.Errorf("ensure customer: %w", err)
		}

		// Free the lock if a previous attempt was abandoned.
		_, err = s.sess.ExpireOverdue(tx, customerAddress, now)
		if err != nil {
			return fmt.Errorf("expire overdue: %w", err)
		}

		cl, err := s.cust.LockLedger(tx, customerAddress)
		if err != nil {
			return fmt.Errorf("lock customer: %w", err)
		}

		if amount > ledger.Available(cl) {
			return ledger.ErrInsufficientAvailableBalance
		}

		home, err := s.cust.HomeShop(tx, customerAddress)
		if err != nil {
			return fmt.Errorf("home shop: %w", err)
		}

		if amount > s.program.CapFor(cl.LifetimeEarnings, home == shopID) {
			return ledger.ErrRedemptionCapExceeded
		}

		return s.sess.Insert(tx, sess)
	})
	if err != nil {
		return ledger.RedemptionSession{}, fmt.Errorf("begin redemption: %w", err)
	}

	return sess, nil
}

// Complete debits the session's amount and transitions it to completed.
// Returns the customer's new available balance.
func (s *Service) Complete(ctx context.Context, sessionID string) (int64, error) {
	tx, newAvailable, err := s.store.RedeemInSession(ctx, sessionID, s.now())
	if err != nil {
		return 0, err
	}

	metrics.RCNRedeemed.Add(float64(tx.Amount))

	return newAvailable, nil
}

// Cancel transitions an active session to cancelled, releasing the
// customer's redemption lock without a debit.
func (s *Service) Cancel(ctx context.Context, sessionID string) error {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		sess, err := s.sess.Lock(tx, sessionID)
		if err != nil {
			return err
		}

		switch sess.Status {
		case ledger.SessionActive:
			return s.sess.SetStatus(tx, sessionID, ledger.SessionCancelled)
		case ledger.SessionCancelled:
			return nil
		case ledger.SessionExpired:
			return ledger.ErrSessionExpired
		default:
			return fmt.Errorf("session %s already %s", sessionID, sess.Status)
		}
	})
	if err != nil {
		return fmt.Errorf("cancel redemption: %w", err)
	}

	return nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (ledger.RedemptionSession, error) {
	return s.sess.Get(ctx, sessionID)
}

// RunSweeper expires overdue sessions in the background until ctx is
// done, so abandoned attempts release their lock even if nobody comes
// back for them.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sess.SweepExpired(ctx, s.now())
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("session sweep failed", "error", err)
				}

				continue
			}

			if n > 0 {
				slog.Info("expired overdue redemption sessions", "count", n)
			}
		}
	}
}
