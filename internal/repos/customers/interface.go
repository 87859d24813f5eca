package customers

import (
	"context"
	"database/sql"

	"github.com/repaircoin/rcnledger/internal/ledger"
)

// Customers persists per-customer ledger counters. Mutations take a
// *sql.Tx so the store can compose them with the transaction-log append
// in one unit of work; reads outside a flow take a context.
type Customers interface {
	// Ensure creates the account and an empty ledger if the address is
	// unknown. Returns ledger.ErrRoleConflict if the address is
	// registered as a shop.
	Ensure(tx *sql.Tx, address string) error
	// Exists returns ledger.ErrCustomerNotFound for unknown or inactive
	// customer addresses.
	Exists(tx *sql.Tx, address string) error
	Get(ctx context.Context, address string) (ledger.CustomerLedger, error)
	// LockLedger takes the row lock that serializes all ledger
	// operations for one customer.
	LockLedger(tx *sql.Tx, address string) (ledger.CustomerLedger, error)

	// ApplyEarn credits lifetime earnings and pending mint, and stores
	// the (possibly upgraded) tier.
	ApplyEarn(tx *sql.Tx, address string, amount int64, newTier string) error
	ApplyRedeem(tx *sql.Tx, address string, amount int64) error
	// SettleConfirmed moves amount from pending mint to confirmed
	// on-chain; SettleFailed reverses pending mint only.
	SettleConfirmed(tx *sql.Tx, address string, amount int64) error
	SettleFailed(tx *sql.Tx, address string, amount int64) error

	AddShopEarnings(tx *sql.Tx, address, shopID string, amount int64) error
	// HomeShop is the shop with the largest cumulative earned amount
	// for this customer; empty string when the customer has earned
	// nowhere yet.
	HomeShop(tx *sql.Tx, address string) (string, error)
}
