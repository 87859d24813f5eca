package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAvailable(t *testing.T) {
	tests := []struct {
		name      string
		ledger    CustomerLedger
		wantAvail int64
		wantTotal int64
	}{
		{
			name:      "fresh ledger",
			ledger:    CustomerLedger{},
			wantAvail: 0,
			wantTotal: 0,
		},
		{
			name:      "earned and partially redeemed",
			ledger:    CustomerLedger{LifetimeEarnings: 110, TotalRedemptions: 36},
			wantAvail: 74,
			wantTotal: 74,
		},
		{
			name:      "pending mint excluded from available but not total",
			ledger:    CustomerLedger{LifetimeEarnings: 130, TotalRedemptions: 36, PendingMint: 20},
			wantAvail: 74,
			wantTotal: 94,
		},
		{
			name:      "everything pending",
			ledger:    CustomerLedger{LifetimeEarnings: 50, PendingMint: 50},
			wantAvail: 0,
			wantTotal: 50,
		},
		{
			name:      "clamped at zero",
			ledger:    CustomerLedger{LifetimeEarnings: 10, TotalRedemptions: 5, PendingMint: 10},
			wantAvail: 0,
			wantTotal: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantAvail, Available(tt.ledger))
			require.Equal(t, tt.wantTotal, Total(tt.ledger))
		})
	}
}

func TestAvailable_NeverExceedsTotal(t *testing.T) {
	ledgers := []CustomerLedger{
		{},
		{LifetimeEarnings: 110, TotalRedemptions: 36},
		{LifetimeEarnings: 130, TotalRedemptions: 36, PendingMint: 20},
		{LifetimeEarnings: 1000, TotalRedemptions: 999, PendingMint: 1},
		{LifetimeEarnings: 5, TotalRedemptions: 0, PendingMint: 5},
	}

	for _, l := range ledgers {
		require.GreaterOrEqual(t, Available(l), int64(0))
		require.LessOrEqual(t, Available(l), Total(l))
	}
}
