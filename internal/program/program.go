// Package program holds the loyalty program parameters: tier thresholds
// and bonuses, redemption caps, and repair-amount reward bands. These are
// business configuration, not code; they load from a YAML file so
// operators can retune them without a deploy.
package program

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

const bpsDenominator = 10_000

type TierConfig struct {
	Name string `yaml:"name"`
	// MinLifetimeEarnings is the inclusive lower bound for the tier.
	MinLifetimeEarnings int64 `yaml:"minLifetimeEarnings"`
	// BonusAmount is a flat RCN bonus added to every reward earned at
	// this tier.
	BonusAmount int64 `yaml:"bonusAmount"`
	// BonusMultiplierBps scales the base reward, in basis points
	// (10000 = no multiplier bonus).
	BonusMultiplierBps int64 `yaml:"bonusMultiplierBps"`
}

type RedemptionConfig struct {
	// HomeShopCapBps caps redemption at the customer's home shop as a
	// share of lifetime earnings. 10000 means uncapped beyond the
	// available balance.
	HomeShopCapBps int64 `yaml:"homeShopCapBps"`
	// CrossShopCapBps caps redemption at any other shop.
	CrossShopCapBps int64 `yaml:"crossShopCapBps"`
}

// RewardBand maps a fiat repair amount to a flat RCN reward.
type RewardBand struct {
	MinRepairAmount int64 `yaml:"minRepairAmount"`
	Reward          int64 `yaml:"rcnReward"`
}

type Program struct {
	Tiers       []TierConfig     `yaml:"tiers"`
	Redemption  RedemptionConfig `yaml:"redemption"`
	RewardBands []RewardBand     `yaml:"rewardBands"`

	SessionTTL         time.Duration `yaml:"sessionTTL"`
	StuckSettlementAge time.Duration `yaml:"stuckSettlementAge"`
}

// Default mirrors the production program: BRONZE/SILVER/GOLD at
// 0/200/1000 lifetime RCN, 100% home-shop and 20% cross-shop caps.
func Default() *Program {
	return &Program{
		Tiers: []TierConfig{
			{Name: "BRONZE", MinLifetimeEarnings: 0, BonusAmount: 0, BonusMultiplierBps: 10_000},
			{Name: "SILVER", MinLifetimeEarnings: 200, BonusAmount: 2, BonusMultiplierBps: 10_000},
			{Name: "GOLD", MinLifetimeEarnings: 1000, BonusAmount: 5, BonusMultiplierBps: 10_000},
		},
		Redemption: RedemptionConfig{
			HomeShopCapBps:  10_000,
			CrossShopCapBps: 2_000,
		},
		RewardBands: []RewardBand{
			{MinRepairAmount: 50, Reward: 10},
			{MinRepairAmount: 100, Reward: 25},
		},
		SessionTTL:         60 * time.Second,
		StuckSettlementAge: 24 * time.Hour,
	}
}

// Load reads a program file and validates it. An empty path returns the
// default program.
func Load(path string) (*Program, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program file: %w", err)
	}

	p := Default()

	err = yaml.Unmarshal(raw, p)
	if err != nil {
		return nil, fmt.Errorf("parse program file: %w", err)
	}

	err = p.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate program file: %w", err)
	}

	return p, nil
}

func (p *Program) Validate() error {
	if len(p.Tiers) == 0 {
		return errors.New("at least one tier required")
	}

	if p.Tiers[0].MinLifetimeEarnings != 0 {
		return errors.New("first tier must start at 0")
	}

	for i := 1; i < len(p.Tiers); i++ {
		if p.Tiers[i].MinLifetimeEarnings <= p.Tiers[i-1].MinLifetimeEarnings {
			return fmt.Errorf("tier %q threshold must exceed %q", p.Tiers[i].Name, p.Tiers[i-1].Name)
		}
	}

	for _, t := range p.Tiers {
		if t.Name == "" {
			return errors.New("tier name required")
		}
		if t.BonusAmount < 0 || t.BonusMultiplierBps < bpsDenominator {
			return fmt.Errorf("tier %q bonus out of range", t.Name)
		}
	}

	r := p.Redemption
	if r.HomeShopCapBps <= 0 || r.HomeShopCapBps > bpsDenominator {
		return errors.New("homeShopCapBps out of range")
	}
	if r.CrossShopCapBps <= 0 || r.CrossShopCapBps > bpsDenominator {
		return errors.New("crossShopCapBps out of range")
	}

	if !sort.SliceIsSorted(p.RewardBands, func(i, j int) bool {
		return p.RewardBands[i].MinRepairAmount < p.RewardBands[j].MinRepairAmount
	}) {
		return errors.New("reward bands must be sorted by minRepairAmount")
	}

	if p.SessionTTL <= 0 {
		return errors.New("sessionTTL must be positive")
	}
	if p.StuckSettlementAge <= 0 {
		return errors.New("stuckSettlementAge must be positive")
	}

	return nil
}

// BaseReward resolves a fiat repair amount to its RCN reward band.
// Amounts below the lowest band earn nothing.
func (p *Program) BaseReward(repairAmount int64) int64 {
	reward := int64(0)

	for _, band := range p.RewardBands {
		if repairAmount >= band.MinRepairAmount {
			reward = band.Reward
		}
	}

	return reward
}

// CapFor returns the maximum redeemable amount for the shop relationship,
// as a share of lifetime earnings.
func (p *Program) CapFor(lifetimeEarnings int64, homeShop bool) int64 {
	bps := p.Redemption.CrossShopCapBps
	if homeShop {
		bps = p.Redemption.HomeShopCapBps
	}

	return lifetimeEarnings * bps / bpsDenominator
}
