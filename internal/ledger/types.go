package ledger

import "time"

// Amounts are whole RCN. The chain side deals in wei-denominated token
// amounts; conversion happens in the mint client, never in the ledger.

type Role string

const (
	RoleCustomer Role = "customer"
	RoleShop     Role = "shop"
)

type TxType string

const (
	TxEarn      TxType = "earn"
	TxRedeem    TxType = "redeem"
	TxBonus     TxType = "bonus"
	TxReferral  TxType = "referral"
	TxTierBonus TxType = "tier_bonus"
	TxMint      TxType = "mint"
	TxBurn      TxType = "burn"
)

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// Transaction is one immutable, append-only ledger event. Counters in
// CustomerLedger are a materialized view over the sequence of these rows
// (ordered by Seq) and must stay rebuildable from it.
type Transaction struct {
	ID              string
	Seq             int64
	Type            TxType
	CustomerAddress string
	ShopID          string
	Amount          int64
	Reason          string
	ExternalTxHash  string
	Status          TxStatus
	CreatedAt       time.Time
}

// CustomerLedger holds the primitive counters for one customer wallet.
// Balances are never stored; derive them with Available/Total.
type CustomerLedger struct {
	Address          string
	LifetimeEarnings int64
	TotalRedemptions int64
	PendingMint      int64
	ConfirmedOnChain int64
	Tier             string
}

// ShopLedger holds the per-shop counters. PurchasedBalance funds reward
// issuance and is debited atomically with the customer credit.
type ShopLedger struct {
	ShopID           string
	Address          string
	PurchasedBalance int64
	RCGTier          string
	TotalIssued      int64
	TotalReceived    int64
}

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
	SessionCancelled SessionStatus = "cancelled"
)

// RedemptionSession scopes one redemption attempt. At most one active
// session may exist per customer at a time.
type RedemptionSession struct {
	SessionID       string
	CustomerAddress string
	ShopID          string
	RequestedAmount int64
	Status          SessionStatus
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

func (s RedemptionSession) ExpiredAt(now time.Time) bool {
	return s.Status == SessionActive && !now.Before(s.ExpiresAt)
}
