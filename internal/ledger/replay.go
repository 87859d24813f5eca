package ledger

// Replay folds a customer's transaction log, in Seq order, into the
// counters it should have produced. The persisted CustomerLedger row is a
// materialized view of exactly this fold; any audit or repair compares
// against Replay rather than trusting stored counters.
//
// Settlement outcomes are encoded in the log itself: an earn row that was
// later confirmed carries status confirmed, a reversed one carries status
// failed. Replaying therefore needs no event stream beyond the rows.
func Replay(address string, txs []Transaction) CustomerLedger {
	l := CustomerLedger{Address: address}

	for _, tx := range txs {
		if tx.CustomerAddress != address {
			continue
		}

		switch tx.Type {
		case TxEarn, TxBonus, TxReferral, TxTierBonus:
			l.LifetimeEarnings += tx.Amount

			switch tx.Status {
			case TxPending:
				l.PendingMint += tx.Amount
			case TxConfirmed:
				l.ConfirmedOnChain += tx.Amount
			case TxFailed:
				// reversed mint: earned but neither pending nor on-chain
			}

		case TxRedeem:
			if tx.Status != TxFailed {
				l.TotalRedemptions += tx.Amount
			}

		case TxMint:
			if tx.Status == TxConfirmed {
				l.ConfirmedOnChain += tx.Amount
			}

		case TxBurn:
			if tx.Status == TxConfirmed {
				l.ConfirmedOnChain -= tx.Amount
			}
		}
	}

	return l
}

// Drift reports the per-counter difference between the materialized row
// and a replayed one (stored minus replayed). All zeros means the row is
// consistent with its log.
type Drift struct {
	LifetimeEarnings int64
	TotalRedemptions int64
	PendingMint      int64
	ConfirmedOnChain int64
}

func (d Drift) Zero() bool {
	return d == Drift{}
}

func Diff(stored, replayed CustomerLedger) Drift {
	return Drift{
		LifetimeEarnings: stored.LifetimeEarnings - replayed.LifetimeEarnings,
		TotalRedemptions: stored.TotalRedemptions - replayed.TotalRedemptions,
		PendingMint:      stored.PendingMint - replayed.PendingMint,
		ConfirmedOnChain: stored.ConfirmedOnChain - replayed.ConfirmedOnChain,
	}
}
