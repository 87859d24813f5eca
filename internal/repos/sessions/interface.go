package sessions

import (
	"context"
	"database/sql"
	"time"

	"github.com/repaircoin/rcnledger/internal/ledger"
)

// Sessions persists redemption sessions. The at-most-one-active-session
// invariant is enforced by a partial unique index on
// (customer_address) WHERE status = 'active'; Insert surfaces the
// violation as ledger.ErrRedemptionInProgress.
type Sessions interface {
	Insert(tx *sql.Tx, s ledger.RedemptionSession) error
	Get(ctx context.Context, sessionID string) (ledger.RedemptionSession, error)
	// Lock returns ledger.ErrSessionNotFound for unknown session ids.
	Lock(tx *sql.Tx, sessionID string) (ledger.RedemptionSession, error)
	SetStatus(tx *sql.Tx, sessionID string, status ledger.SessionStatus) error
	// ExpireOverdue frees the customer's lock if their active session
	// has passed its deadline. Returns the number of sessions expired.
	ExpireOverdue(tx *sql.Tx, address string, now time.Time) (int64, error)
	// SweepExpired expires every overdue active session; used by the
	// background sweeper.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
