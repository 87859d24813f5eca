package transactions

import (
	"context"
	"database/sql"
	"time"

	"github.com/repaircoin/rcnledger/internal/ledger"
)

// Transactions is the append-only ledger log. Rows are never deleted;
// the only mutation after append is the pending -> confirmed|failed
// status transition driven by settlement.
type Transactions interface {
	// Append inserts the row and returns it with its assigned append
	// sequence, which totally orders a customer's log.
	Append(tx *sql.Tx, t ledger.Transaction) (ledger.Transaction, error)
	// LockByID returns ledger.ErrTransactionNotFound for unknown ids.
	LockByID(tx *sql.Tx, id string) (ledger.Transaction, error)
	MarkConfirmed(tx *sql.Tx, id, externalTxHash string) error
	MarkFailed(tx *sql.Tx, id, reason string) error

	ListByCustomer(ctx context.Context, address string) ([]ledger.Transaction, error)
	// ListPendingOlderThan surfaces mints stuck beyond the operational
	// threshold for operator review.
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]ledger.Transaction, error)
}
