package customers

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/repaircoin/rcnledger/internal/infra/pgtestutil"
	"github.com/repaircoin/rcnledger/internal/ledger"
)

const custAddr = "0xc0ffee254729296a45a3885639ac7e10f9d54979"

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) error {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	return nil
}

func seedShop(t *testing.T, db *sql.DB, id, addr string) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO accounts (address, role) VALUES ($1, 'shop')`, addr)
	if err != nil {
		t.Fatalf("seed shop account: %v", err)
	}

	_, err = db.Exec(`INSERT INTO shop_ledgers (shop_id, address, purchased_rcn) VALUES ($1, $2, 0)`, id, addr)
	if err != nil {
		t.Fatalf("seed shop ledger: %v", err)
	}
}

func TestEnsure_CreatesOnce(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	for i := 0; i < 2; i++ {
		err := inTx(t, db, func(tx *sql.Tx) error {
			return repo.Ensure(tx, custAddr)
		})
		if err != nil {
			t.Fatalf("ensure #%d: %v", i+1, err)
		}
	}

	got, err := repo.Get(context.Background(), custAddr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LifetimeEarnings != 0 || got.Tier != "BRONZE" {
		t.Fatalf("fresh ledger: %+v", got)
	}
}

func TestEnsure_ConcurrentFirstEarnBothSucceed(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	const workers = 8

	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// every goroutine runs Ensure for a never-seen address in
			// its own transaction
			errs <- inTx(t, db, func(tx *sql.Tx) error {
				return repo.Ensure(tx, custAddr)
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent ensure: %v", err)
		}
	}

	var accounts, ledgers int
	if err := db.QueryRow(`SELECT COUNT(*) FROM accounts WHERE address = $1`, custAddr).Scan(&accounts); err != nil {
		t.Fatalf("count accounts: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM customer_ledgers WHERE address = $1`, custAddr).Scan(&ledgers); err != nil {
		t.Fatalf("count ledgers: %v", err)
	}
	if accounts != 1 || ledgers != 1 {
		t.Fatalf("want exactly one row each, got accounts=%d ledgers=%d", accounts, ledgers)
	}
}

func TestEnsure_RoleConflict(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	_, err := db.Exec(`INSERT INTO accounts (address, role) VALUES ($1, 'shop')`, custAddr)
	if err != nil {
		t.Fatalf("seed shop account: %v", err)
	}

	repo := New(db)

	err = inTx(t, db, func(tx *sql.Tx) error {
		return repo.Ensure(tx, custAddr)
	})
	if !errors.Is(err, ledger.ErrRoleConflict) {
		t.Fatalf("want ErrRoleConflict, got %v", err)
	}
}

func TestApplyRedeem_GuardsAvailableBalance(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	err := inTx(t, db, func(tx *sql.Tx) error {
		if err := repo.Ensure(tx, custAddr); err != nil {
			return err
		}
		if err := repo.ApplyEarn(tx, custAddr, 100, "BRONZE"); err != nil {
			return err
		}
		// still pending: nothing is available yet
		return repo.ApplyRedeem(tx, custAddr, 10)
	})
	if !errors.Is(err, ledger.ErrInsufficientAvailableBalance) {
		t.Fatalf("want ErrInsufficientAvailableBalance, got %v", err)
	}

	err = inTx(t, db, func(tx *sql.Tx) error {
		if err := repo.Ensure(tx, custAddr); err != nil {
			return err
		}
		if err := repo.ApplyEarn(tx, custAddr, 100, "BRONZE"); err != nil {
			return err
		}
		if err := repo.SettleConfirmed(tx, custAddr, 100); err != nil {
			return err
		}
		return repo.ApplyRedeem(tx, custAddr, 60)
	})
	if err != nil {
		t.Fatalf("redeem within available: %v", err)
	}

	got, err := repo.Get(context.Background(), custAddr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalRedemptions != 60 {
		t.Fatalf("redeemed: want 60, got %d", got.TotalRedemptions)
	}

	err = inTx(t, db, func(tx *sql.Tx) error {
		return repo.ApplyRedeem(tx, custAddr, 41)
	})
	if !errors.Is(err, ledger.ErrInsufficientAvailableBalance) {
		t.Fatalf("overdraw: want ErrInsufficientAvailableBalance, got %v", err)
	}
}

func TestHomeShop(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedShop(t, db, "shop-a", "0x00000000000000000000000000000000000000aa")
	seedShop(t, db, "shop-b", "0x00000000000000000000000000000000000000bb")

	repo := New(db)

	var home string

	err := inTx(t, db, func(tx *sql.Tx) error {
		if err := repo.Ensure(tx, custAddr); err != nil {
			return err
		}

		h, err := repo.HomeShop(tx, custAddr)
		if err != nil {
			return err
		}
		if h != "" {
			t.Fatalf("home shop before any earnings: got %q", h)
		}

		if err := repo.AddShopEarnings(tx, custAddr, "shop-a", 40); err != nil {
			return err
		}
		if err := repo.AddShopEarnings(tx, custAddr, "shop-b", 90); err != nil {
			return err
		}
		if err := repo.AddShopEarnings(tx, custAddr, "shop-a", 30); err != nil {
			return err
		}

		home, err = repo.HomeShop(tx, custAddr)
		return err
	})
	if err != nil {
		t.Fatalf("home shop flow: %v", err)
	}

	if home != "shop-b" {
		t.Fatalf("home shop: want shop-b, got %q", home)
	}
}

func TestHomeShop_TieBreaksByShopID(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	seedShop(t, db, "shop-a", "0x00000000000000000000000000000000000000aa")
	seedShop(t, db, "shop-b", "0x00000000000000000000000000000000000000bb")

	repo := New(db)

	var home string

	err := inTx(t, db, func(tx *sql.Tx) error {
		if err := repo.Ensure(tx, custAddr); err != nil {
			return err
		}
		if err := repo.AddShopEarnings(tx, custAddr, "shop-b", 50); err != nil {
			return err
		}
		if err := repo.AddShopEarnings(tx, custAddr, "shop-a", 50); err != nil {
			return err
		}

		var err error
		home, err = repo.HomeShop(tx, custAddr)
		return err
	})
	if err != nil {
		t.Fatalf("home shop flow: %v", err)
	}

	if home != "shop-a" {
		t.Fatalf("tie break: want shop-a, got %q", home)
	}
}

func TestSettleFailed_ReversesPendingOnly(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	err := inTx(t, db, func(tx *sql.Tx) error {
		if err := repo.Ensure(tx, custAddr); err != nil {
			return err
		}
		if err := repo.ApplyEarn(tx, custAddr, 100, "BRONZE"); err != nil {
			return err
		}
		if err := repo.SettleConfirmed(tx, custAddr, 100); err != nil {
			return err
		}
		if err := repo.ApplyEarn(tx, custAddr, 20, "BRONZE"); err != nil {
			return err
		}
		return repo.SettleFailed(tx, custAddr, 20)
	})
	if err != nil {
		t.Fatalf("settle flow: %v", err)
	}

	got, err := repo.Get(context.Background(), custAddr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.PendingMint != 0 {
		t.Fatalf("pending: want 0, got %d", got.PendingMint)
	}
	if got.ConfirmedOnChain != 100 {
		t.Fatalf("confirmed: want 100, got %d", got.ConfirmedOnChain)
	}
	if got.LifetimeEarnings != 120 {
		t.Fatalf("lifetime keeps the failed earn in history: want 120, got %d", got.LifetimeEarnings)
	}
}

func TestGet_Unknown(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	_, err := repo.Get(context.Background(), custAddr)
	if !errors.Is(err, ledger.ErrCustomerNotFound) {
		t.Fatalf("want ErrCustomerNotFound, got %v", err)
	}
}
