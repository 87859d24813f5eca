package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/repaircoin/rcnledger/internal/api"
	"github.com/repaircoin/rcnledger/internal/clients/mintsvc"
	"github.com/repaircoin/rcnledger/internal/clients/promo"
	"github.com/repaircoin/rcnledger/internal/clients/registry"
	"github.com/repaircoin/rcnledger/internal/infra/logging"
	"github.com/repaircoin/rcnledger/internal/infra/pgutils"
	"github.com/repaircoin/rcnledger/internal/program"
	"github.com/repaircoin/rcnledger/internal/services/ledgerstore"
	"github.com/repaircoin/rcnledger/internal/services/redemption"
	"github.com/repaircoin/rcnledger/internal/services/reward"
	"github.com/repaircoin/rcnledger/internal/services/settlement"
	"github.com/repaircoin/rcnledger/pkg/envconf"
	"github.com/repaircoin/rcnledger/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	prog, err := program.Load(cfg.ProgramFile)
	if err != nil {
		return fmt.Errorf("load program: %w", err)
	}

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		slog.Info("close db")
		return db.Close()
	})

	// --- Services ---
	store := ledgerstore.New(db, prog)

	col := cfg.Collaborators
	rewardSvc := reward.New(
		store,
		registry.New(col.RegistryBaseURL, col.ClientTimeout),
		promo.New(col.PromoBaseURL, col.ClientTimeout),
		mintsvc.New(col.MintBaseURL, col.ClientTimeout),
		prog,
	)
	redemptionSvc := redemption.New(db, store)
	reconciler := settlement.New(store, prog)

	// Session sweeper frees abandoned redemption locks.
	sweepCtx, sweepStop := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})

	go func() {
		defer close(sweepDone)
		redemptionSvc.RunSweeper(sweepCtx, prog.SessionTTL/2)
	}()

	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("stop session sweeper")
		sweepStop()

		select {
		case <-sweepDone:
			return nil
		case <-c.Done():
			return fmt.Errorf("sweeper did not stop: %w", c.Err())
		}
	})

	// --- HTTP server ---
	router := api.NewRouter(store, rewardSvc, redemptionSvc, reconciler)
	srv := api.NewServer(cfg.Port, router)

	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("shut down server")

		serr := srv.Shutdown(c)
		if serr != nil {
			return fmt.Errorf("shutdown srv: %w", serr)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("rcn ledger API started", "port", cfg.Port)

	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
