// Package ledgerstore exposes the atomic ledger operations. Each
// operation runs in a single database transaction that appends exactly
// one log row and updates the materialized counters consistently; row
// locks are scoped to the customers and shops involved, never global.
package ledgerstore

import (
	"database/sql"

	"github.com/repaircoin/rcnledger/internal/program"
	"github.com/repaircoin/rcnledger/internal/repos/customers"
	pgcustomers "github.com/repaircoin/rcnledger/internal/repos/customers/postgres"
	"github.com/repaircoin/rcnledger/internal/repos/sessions"
	pgsessions "github.com/repaircoin/rcnledger/internal/repos/sessions/postgres"
	"github.com/repaircoin/rcnledger/internal/repos/shops"
	pgshops "github.com/repaircoin/rcnledger/internal/repos/shops/postgres"
	"github.com/repaircoin/rcnledger/internal/repos/transactions"
	pgtransactions "github.com/repaircoin/rcnledger/internal/repos/transactions/postgres"
)

type Store struct {
	db       *sql.DB
	program  *program.Program
	cust     customers.Customers
	shops    shops.Shops
	txns     transactions.Transactions
	sessions sessions.Sessions
}

func New(db *sql.DB, prog *program.Program) *Store {
	return &Store{
		db:       db,
		program:  prog,
		cust:     pgcustomers.New(db),
		shops:    pgshops.New(db),
		txns:     pgtransactions.New(db),
		sessions: pgsessions.New(db),
	}
}

// Sessions exposes the session repo for the redemption workflow, which
// composes session transitions with ledger operations in one unit of
// work via RedeemInSession.
func (s *Store) Sessions() sessions.Sessions { return s.sessions }

func (s *Store) Program() *program.Program { return s.program }
