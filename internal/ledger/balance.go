package ledger

// Available is the amount a customer can redeem right now. Amounts still
// pending on-chain mint are excluded; the result never goes negative.
//
// This is the only definition of "available" in the system. Callers must
// not cache it or substitute Total for it.
func Available(l CustomerLedger) int64 {
	avail := l.LifetimeEarnings - l.TotalRedemptions - l.PendingMint
	if avail < 0 {
		return 0
	}

	return avail
}

// Total is the economic balance: lifetime earnings minus redemptions,
// pending and confirmed amounts included. Distinct from Available and
// never interchangeable with it.
func Total(l CustomerLedger) int64 {
	return l.LifetimeEarnings - l.TotalRedemptions
}
