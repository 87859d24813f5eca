package shops

import (
	"context"
	"database/sql"

	"github.com/repaircoin/rcnledger/internal/ledger"
)

// Shops persists per-shop ledger counters. The purchased RCN balance
// funds reward issuance and must be debited under the same transaction
// that credits the customer.
type Shops interface {
	Get(ctx context.Context, shopID string) (ledger.ShopLedger, error)
	// LockLedger returns ledger.ErrShopNotFound for unknown shops.
	LockLedger(tx *sql.Tx, shopID string) (ledger.ShopLedger, error)
	// DebitPurchased fails with ledger.ErrInsufficientShopBalance when
	// the purchased balance does not cover amount.
	DebitPurchased(tx *sql.Tx, shopID string, amount int64) error
	CreditPurchased(tx *sql.Tx, shopID string, amount int64) error
	AddIssued(tx *sql.Tx, shopID string, amount int64) error
	AddReceived(tx *sql.Tx, shopID string, amount int64) error
}
