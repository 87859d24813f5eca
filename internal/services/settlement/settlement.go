// Package settlement reconciles the off-chain ledger with mint outcomes
// reported by the chain service. Delivery is at-least-once and possibly
// out of order, so every mutation here is idempotent keyed by the ledger
// transaction id and the on-chain hash.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/repaircoin/rcnledger/internal/infra/metrics"
	"github.com/repaircoin/rcnledger/internal/ledger"
	"github.com/repaircoin/rcnledger/internal/program"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Ledger is the slice of the ledger store the reconciler drives. These
// two operations are the only sanctioned way to correct settlement
// state; operator overrides route through them as well.
type Ledger interface {
	RecordMintConfirmed(ctx context.Context, transactionID, onChainTxHash string) error
	RecordMintFailed(ctx context.Context, transactionID, reason string) error
	StuckPending(ctx context.Context, olderThan time.Duration) ([]ledger.Transaction, error)
}

type Reconciler struct {
	ledger  Ledger
	program *program.Program
}

func New(l Ledger, prog *program.Program) *Reconciler {
	return &Reconciler{ledger: l, program: prog}
}

// OnMintSettled consumes one terminal callback from the chain service.
// Duplicate deliveries land on an already-terminal transaction and
// return success without further effect.
func (r *Reconciler) OnMintSettled(ctx context.Context, transactionID string, status Status, onChainTxHash string) error {
	switch status {
	case StatusConfirmed:
		err := r.ledger.RecordMintConfirmed(ctx, transactionID, onChainTxHash)
		if err != nil {
			return fmt.Errorf("confirm settlement: %w", err)
		}

		metrics.Settlements.WithLabelValues("confirmed").Inc()

		return nil

	case StatusFailed:
		err := r.ledger.RecordMintFailed(ctx, transactionID, "mint failed on chain")
		if err != nil {
			return fmt.Errorf("fail settlement: %w", err)
		}

		metrics.Settlements.WithLabelValues("failed").Inc()
		// The amount is redeemable again; the alert is for operators to
		// investigate the chain-side failure, not to fix balances.
		slog.Warn("mint failed, pending amount reversed",
			"transactionId", transactionID,
		)

		return nil

	default:
		return fmt.Errorf("unknown settlement status %q", status)
	}
}

// Stuck lists mints pending beyond the program's operational threshold.
func (r *Reconciler) Stuck(ctx context.Context) ([]ledger.Transaction, error) {
	return r.ledger.StuckPending(ctx, r.program.StuckSettlementAge)
}

// ResolveManually is the operator override for orphaned pending mints.
// It goes through the same record operations as the automatic path, so
// the append-only log stays the source of truth.
func (r *Reconciler) ResolveManually(ctx context.Context, transactionID string, status Status, onChainTxHash, operator string) error {
	slog.Info("operator settlement override",
		"transactionId", transactionID,
		"status", status,
		"operator", operator,
	)

	switch status {
	case StatusConfirmed:
		return r.OnMintSettled(ctx, transactionID, StatusConfirmed, onChainTxHash)
	case StatusFailed:
		err := r.ledger.RecordMintFailed(ctx, transactionID, "operator override by "+operator)
		if err != nil {
			return fmt.Errorf("operator fail settlement: %w", err)
		}

		metrics.Settlements.WithLabelValues("operator_failed").Inc()

		return nil
	default:
		return fmt.Errorf("unknown settlement status %q", status)
	}
}
