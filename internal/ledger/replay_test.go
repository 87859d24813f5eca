package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const addr = "0xc0ffee254729296a45a3885639ac7e10f9d54979"

func tx(txType TxType, amount int64, status TxStatus) Transaction {
	return Transaction{
		Type:            txType,
		CustomerAddress: addr,
		Amount:          amount,
		Status:          status,
	}
}

func TestReplay_EarnRedeemSettleInterleavings(t *testing.T) {
	tests := []struct {
		name string
		log  []Transaction
		want CustomerLedger
	}{
		{
			name: "single confirmed earn",
			log:  []Transaction{tx(TxEarn, 100, TxConfirmed)},
			want: CustomerLedger{Address: addr, LifetimeEarnings: 100, ConfirmedOnChain: 100},
		},
		{
			name: "earn still pending",
			log:  []Transaction{tx(TxEarn, 20, TxPending)},
			want: CustomerLedger{Address: addr, LifetimeEarnings: 20, PendingMint: 20},
		},
		{
			name: "failed mint reverses pending only",
			log: []Transaction{
				tx(TxEarn, 100, TxConfirmed),
				tx(TxEarn, 20, TxFailed),
			},
			want: CustomerLedger{Address: addr, LifetimeEarnings: 120, ConfirmedOnChain: 100},
		},
		{
			name: "earn redeem earn redeem",
			log: []Transaction{
				tx(TxEarn, 100, TxConfirmed),
				tx(TxRedeem, 36, TxConfirmed),
				tx(TxEarn, 10, TxConfirmed),
				tx(TxRedeem, 4, TxConfirmed),
			},
			want: CustomerLedger{
				Address:          addr,
				LifetimeEarnings: 110,
				TotalRedemptions: 40,
				ConfirmedOnChain: 110,
			},
		},
		{
			name: "bonus types count toward lifetime earnings",
			log: []Transaction{
				tx(TxEarn, 50, TxConfirmed),
				tx(TxTierBonus, 10, TxConfirmed),
				tx(TxReferral, 5, TxPending),
				tx(TxBonus, 2, TxPending),
			},
			want: CustomerLedger{
				Address:          addr,
				LifetimeEarnings: 67,
				PendingMint:      7,
				ConfirmedOnChain: 60,
			},
		},
		{
			name: "foreign addresses ignored",
			log: []Transaction{
				tx(TxEarn, 50, TxConfirmed),
				{Type: TxEarn, CustomerAddress: "0xother", Amount: 99, Status: TxConfirmed},
			},
			want: CustomerLedger{Address: addr, LifetimeEarnings: 50, ConfirmedOnChain: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Replay(addr, tt.log)
			require.Equal(t, tt.want, got)
			require.GreaterOrEqual(t, Available(got), int64(0))
			require.LessOrEqual(t, Available(got), Total(got))
		})
	}
}

func TestReplay_Idempotent(t *testing.T) {
	log := []Transaction{
		tx(TxEarn, 100, TxConfirmed),
		tx(TxRedeem, 30, TxConfirmed),
		tx(TxEarn, 20, TxFailed),
		tx(TxEarn, 40, TxPending),
	}

	first := Replay(addr, log)
	second := Replay(addr, log)
	require.Equal(t, first, second)
}

func TestDiff(t *testing.T) {
	stored := CustomerLedger{Address: addr, LifetimeEarnings: 110, TotalRedemptions: 36}
	replayed := Replay(addr, []Transaction{
		tx(TxEarn, 110, TxConfirmed),
		tx(TxRedeem, 36, TxConfirmed),
	})

	d := Diff(stored, replayed)
	require.False(t, d.Zero())
	require.Equal(t, int64(-110), d.ConfirmedOnChain)

	stored.ConfirmedOnChain = 110
	require.True(t, Diff(stored, replayed).Zero())
}
