// Package reward implements the shop-initiated issuance workflow: base
// reward from the repair amount (or an explicit custom amount), tier
// bonus from the customer's current tier, optional promo bonus, one
// atomic ledger credit, and an asynchronous mint enqueue.
package reward

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/repaircoin/rcnledger/internal/clients/promo"
	"github.com/repaircoin/rcnledger/internal/clients/registry"
	"github.com/repaircoin/rcnledger/internal/infra/metrics"
	"github.com/repaircoin/rcnledger/internal/ledger"
	"github.com/repaircoin/rcnledger/internal/program"
	"github.com/repaircoin/rcnledger/internal/services/ledgerstore"
	"github.com/repaircoin/rcnledger/internal/tier"
)

// Ledger is the slice of the ledger store this workflow needs.
type Ledger interface {
	ShopLedger(ctx context.Context, shopID string) (ledger.ShopLedger, error)
	EnsureCustomer(ctx context.Context, address string) error
	CustomerLedger(ctx context.Context, customerAddress string) (ledger.CustomerLedger, error)
	RecordEarn(ctx context.Context, in ledgerstore.EarnInput) (ledger.Transaction, error)
}

type Registry interface {
	AccountExists(ctx context.Context, address string) (registry.Account, bool, error)
}

type Promo interface {
	Validate(ctx context.Context, code string) (promo.Validation, error)
}

type Minter interface {
	Mint(ctx context.Context, address string, amount int64, reference string) (string, error)
}

type Service struct {
	ledger   Ledger
	registry Registry
	promo    Promo
	minter   Minter
	program  *program.Program

	mintTimeout time.Duration
}

func New(l Ledger, reg Registry, pr Promo, m Minter, prog *program.Program) *Service {
	return &Service{
		ledger:      l,
		registry:    reg,
		promo:       pr,
		minter:      m,
		program:     prog,
		mintTimeout: 30 * time.Second,
	}
}

type IssueRequest struct {
	ShopID          string
	CustomerAddress string
	// RepairAmount is the fiat repair total; it resolves to a base
	// reward through the program's reward bands. CustomAmount, when
	// positive, bypasses the bands and is used as the base directly.
	RepairAmount int64
	CustomAmount int64
	PromoCode    string
}

type IssueResult struct {
	BaseReward    int64  `json:"baseReward"`
	TierBonus     int64  `json:"tierBonus"`
	PromoBonus    int64  `json:"promoBonus"`
	TotalReward   int64  `json:"totalReward"`
	Tier          string `json:"tier"`
	TransactionID string `json:"transactionId"`
}

func (s *Service) Issue(ctx context.Context, req IssueRequest) (IssueResult, error) {
	shop, err := s.ledger.ShopLedger(ctx, req.ShopID)
	if err != nil {
		return IssueResult{}, fmt.Errorf("load shop: %w", err)
	}

	if strings.EqualFold(shop.Address, req.CustomerAddress) {
		return IssueResult{}, ledger.ErrSelfRewardForbidden
	}

	// Issuance requires pre-registration, unlike redemption.
	acc, found, err := s.registry.AccountExists(ctx, req.CustomerAddress)
	if err != nil {
		return IssueResult{}, fmt.Errorf("registry lookup: %w", err)
	}
	if !found || !acc.Active || acc.Role != string(ledger.RoleCustomer) {
		return IssueResult{}, ledger.ErrCustomerNotFound
	}

	// The registry is the existence gate; once it vouches for the
	// address, a first-time customer gets their ledger row here.
	err = s.ledger.EnsureCustomer(ctx, req.CustomerAddress)
	if err != nil {
		return IssueResult{}, fmt.Errorf("ensure customer ledger: %w", err)
	}

	base := req.CustomAmount
	if base <= 0 {
		base = s.program.BaseReward(req.RepairAmount)
	}
	if base <= 0 {
		return IssueResult{}, fmt.Errorf("repair amount %d earns no reward", req.RepairAmount)
	}

	cl, err := s.ledger.CustomerLedger(ctx, req.CustomerAddress)
	if err != nil {
		return IssueResult{}, fmt.Errorf("load customer ledger: %w", err)
	}

	// Tier is evaluated on earnings before this transaction: a reward
	// that crosses a tier boundary is still bonused at the old tier.
	lvl := tier.For(s.program, cl.LifetimeEarnings)
	tierBonus := lvl.Bonus(base)

	var promoBonus int64

	if req.PromoCode != "" {
		v, verr := s.promo.Validate(ctx, req.PromoCode)
		if verr != nil {
			return IssueResult{}, fmt.Errorf("validate promo: %w", verr)
		}
		if !v.Valid {
			return IssueResult{}, fmt.Errorf("%s: %w", v.Reason, ledger.ErrPromoCodeInvalid)
		}

		promoBonus = v.BonusAmount
	}

	total := base + tierBonus + promoBonus

	tx, err := s.ledger.RecordEarn(ctx, ledgerstore.EarnInput{
		CustomerAddress: req.CustomerAddress,
		ShopID:          req.ShopID,
		Amount:          total,
		Type:            ledger.TxEarn,
		Reason:          fmt.Sprintf("repair reward (base %d, tier %d, promo %d)", base, tierBonus, promoBonus),
	})
	if err != nil {
		return IssueResult{}, fmt.Errorf("record earn: %w", err)
	}

	metrics.RewardsIssued.Inc()
	metrics.RCNIssued.Add(float64(total))

	s.enqueueMint(tx)

	return IssueResult{
		BaseReward:    base,
		TierBonus:     tierBonus,
		PromoBonus:    promoBonus,
		TotalReward:   total,
		Tier:          lvl.Tier,
		TransactionID: tx.ID,
	}, nil
}

// enqueueMint is fire-and-forget: the reward is already committed, the
// amount sits in pending mint, and the settlement reconciler picks up
// whatever the chain service eventually reports. An enqueue failure
// leaves the transaction pending for the stuck-settlement report.
func (s *Service) enqueueMint(tx ledger.Transaction) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.mintTimeout)
		defer cancel()

		_, err := s.minter.Mint(ctx, tx.CustomerAddress, tx.Amount, tx.ID)
		if err != nil {
			metrics.MintEnqueueFailures.Inc()
			slog.Error("mint enqueue failed",
				"transactionId", tx.ID,
				"customer", tx.CustomerAddress,
				"amount", tx.Amount,
				"error", err,
			)

			return
		}

		slog.Info("mint enqueued", "transactionId", tx.ID, "amount", tx.Amount)
	}()
}
